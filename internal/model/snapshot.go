package model

import "time"

// CollectedAtLayout is the layout of Snapshot.CollectedAt: UTC with an
// explicit "+00:00" offset and microseconds when non-zero.
const CollectedAtLayout = "2006-01-02T15:04:05.999999-07:00"

// Snapshot is the host data gathered by one collect run.
// Its JSON form is written to `<base>_snapshot.json` and embedded in the prompt.
type Snapshot struct {
	// System holds CPU, memory, disk, boot time and user session data.
	System SystemInfo `json:"system"`

	// Network holds the inet socket table.
	Network NetworkInfo `json:"network"`

	// Processes holds the busiest processes.
	Processes ProcessList `json:"processes"`

	// Sysmon holds recent Sysmon events or the reason none were read.
	Sysmon SysmonLogs `json:"sysmon"`

	// CollectedAt is the UTC time the collection finished (see CollectedAtLayout).
	CollectedAt string `json:"collected_at"`

	// Hostname is the name of the audited host. Not serialized; the
	// snapshot format has no host field.
	Hostname string `json:"-"`

	// PerformedSteps lists the collection steps that completed.
	PerformedSteps []string `json:"-"`

	// StepErrors maps failed step names to their error messages.
	StepErrors map[string]string `json:"-"`
}

// NewSnapshot returns an empty snapshot with non-nil collections, so that
// the JSON output has `[]` rather than `null` for lists that were not filled.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		System:     SystemInfo{Users: []UserSession{}},
		Network:    NetworkInfo{Connections: []Connection{}},
		Processes:  ProcessList{TopProcesses: []ProcessInfo{}},
		Sysmon:     SysmonLogs{Events: []SysmonEvent{}},
		StepErrors: make(map[string]string),
	}
}

// MarkCollected stamps CollectedAt with t converted to UTC.
func (s *Snapshot) MarkCollected(t time.Time) {
	s.CollectedAt = t.UTC().Format(CollectedAtLayout)
}

// AddStepError records a failed collection step.
func (s *Snapshot) AddStepError(step string, err error) {
	if err == nil {
		return
	}
	if s.StepErrors == nil {
		s.StepErrors = make(map[string]string)
	}
	s.StepErrors[step] = err.Error()
}

// SystemInfo contains host-level metrics.
type SystemInfo struct {
	// CPUCount is the number of logical CPUs.
	CPUCount int `json:"cpu_count"`

	// CPUPercent is the total CPU utilisation over the sample interval.
	CPUPercent float64 `json:"cpu_percent"`

	Memory    MemoryInfo    `json:"memory"`
	Swap      SwapInfo      `json:"swap"`
	DiskUsage DiskUsageInfo `json:"disk_usage"`

	// BootTime is the local boot time in ISO-8601 form.
	BootTime string `json:"boot_time"`

	// Users lists the logged-in user sessions.
	Users []UserSession `json:"users"`

	// Errors holds messages of metrics that could not be read.
	Errors []string `json:"errors,omitempty"`
}

// MemoryInfo mirrors the virtual memory statistics.
type MemoryInfo struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Percent   float64 `json:"percent"`
	Used      uint64  `json:"used"`
	Free      uint64  `json:"free"`
}

// SwapInfo mirrors the swap statistics.
type SwapInfo struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
	Sin     uint64  `json:"sin"`
	Sout    uint64  `json:"sout"`
}

// DiskUsageInfo is the usage of the root volume.
type DiskUsageInfo struct {
	Path    string  `json:"path"`
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

// UserSession is one logged-in user.
type UserSession struct {
	Name     string `json:"name"`
	Terminal string `json:"terminal"`
	Host     string `json:"host"`

	// Started is the session start time as a Unix timestamp.
	Started float64 `json:"started"`
}

// NetworkInfo contains the inet connection table.
type NetworkInfo struct {
	Connections []Connection `json:"connections"`

	// Error is set when the table could not be read.
	Error string `json:"error,omitempty"`
}

// Connection is one inet socket.
type Connection struct {
	FD     uint32 `json:"fd"`
	Family string `json:"family"`
	Type   string `json:"type"`

	// LocalAddr and RemoteAddr are "host:port", or nil when unbound.
	LocalAddr  *string `json:"laddr"`
	RemoteAddr *string `json:"raddr"`

	Status string `json:"status"`
	PID    int32  `json:"pid"`
}

// ProcessList wraps the top processes.
type ProcessList struct {
	TopProcesses []ProcessInfo `json:"top_processes"`
}

// ProcessInfo describes one running process.
type ProcessInfo struct {
	PID        int32             `json:"pid"`
	Name       string            `json:"name"`
	Username   string            `json:"username"`
	CPUPercent float64           `json:"cpu_percent"`
	MemoryInfo ProcessMemoryInfo `json:"memory_info"`
}

// ProcessMemoryInfo holds resident and virtual memory sizes in bytes.
type ProcessMemoryInfo struct {
	RSS uint64 `json:"rss"`
	VMS uint64 `json:"vms"`
}

// SysmonLogs holds Sysmon events read from the EVTX file.
type SysmonLogs struct {
	Events []SysmonEvent `json:"events"`
	Count  int           `json:"count"`

	// Error is set when the log was missing or could not be parsed.
	Error string `json:"error,omitempty"`
}

// SysmonEvent is one Sysmon record.
type SysmonEvent struct {
	RecordID    uint64 `json:"record_id"`
	EventID     int    `json:"event_id"`
	TimeCreated string `json:"time_created"`

	// Event is the parsed event as JSON text, truncated.
	Event string `json:"event"`
}
