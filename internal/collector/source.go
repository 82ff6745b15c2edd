package collector

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/nao1215/socaudit/internal/model"
)

// Source provides raw host data.
type Source interface {
	CPUCount(ctx context.Context) (int, error)
	CPUPercent(ctx context.Context, interval time.Duration) (float64, error)
	VirtualMemory(ctx context.Context) (model.MemoryInfo, error)
	SwapMemory(ctx context.Context) (model.SwapInfo, error)
	DiskUsage(ctx context.Context, path string) (model.DiskUsageInfo, error)
	BootTime(ctx context.Context) (time.Time, error)
	Users(ctx context.Context) ([]model.UserSession, error)
	Connections(ctx context.Context) ([]model.Connection, error)
	Processes(ctx context.Context) ([]model.ProcessInfo, error)
}

// errNoCPUSample is returned when gopsutil yields no CPU percentage.
var errNoCPUSample = errors.New("no CPU sample returned")

// gopsutilSource implements Source with gopsutil.
type gopsutilSource struct{}

// NewSource returns the gopsutil-backed Source.
func NewSource() Source {
	return gopsutilSource{}
}

func (gopsutilSource) CPUCount(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

func (gopsutilSource) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, errNoCPUSample
	}
	return percents[0], nil
}

func (gopsutilSource) VirtualMemory(ctx context.Context) (model.MemoryInfo, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.MemoryInfo{}, err
	}
	return model.MemoryInfo{
		Total:     v.Total,
		Available: v.Available,
		Percent:   v.UsedPercent,
		Used:      v.Used,
		Free:      v.Free,
	}, nil
}

func (gopsutilSource) SwapMemory(ctx context.Context) (model.SwapInfo, error) {
	s, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return model.SwapInfo{}, err
	}
	return model.SwapInfo{
		Total:   s.Total,
		Used:    s.Used,
		Free:    s.Free,
		Percent: s.UsedPercent,
		Sin:     s.Sin,
		Sout:    s.Sout,
	}, nil
}

func (gopsutilSource) DiskUsage(ctx context.Context, path string) (model.DiskUsageInfo, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return model.DiskUsageInfo{}, err
	}
	return model.DiskUsageInfo{
		Path:    u.Path,
		Total:   u.Total,
		Used:    u.Used,
		Free:    u.Free,
		Percent: u.UsedPercent,
	}, nil
}

func (gopsutilSource) BootTime(ctx context.Context) (time.Time, error) {
	bt, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(bt), 0), nil //nolint:gosec // boot time fits in int64
}

func (gopsutilSource) Users(ctx context.Context) ([]model.UserSession, error) {
	users, err := host.UsersWithContext(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]model.UserSession, 0, len(users))
	for _, u := range users {
		sessions = append(sessions, model.UserSession{
			Name:     u.User,
			Terminal: u.Terminal,
			Host:     u.Host,
			Started:  float64(u.Started),
		})
	}
	return sessions, nil
}

func (gopsutilSource) Connections(ctx context.Context) ([]model.Connection, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, err
	}
	out := make([]model.Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, model.Connection{
			FD:         c.Fd,
			Family:     familyName(c.Family),
			Type:       socketTypeName(c.Type),
			LocalAddr:  formatAddr(c.Laddr.IP, c.Laddr.Port),
			RemoteAddr: formatAddr(c.Raddr.IP, c.Raddr.Port),
			Status:     c.Status,
			PID:        c.Pid,
		})
	}
	return out, nil
}

// Processes lists running processes. Processes that exit while being read
// are skipped; attributes the caller may not read are left zero-valued.
func (gopsutilSource) Processes(ctx context.Context) ([]model.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		name, err := p.NameWithContext(ctx)
		if err != nil {
			if exists, _ := p.IsRunningWithContext(ctx); !exists {
				continue
			}
		}

		info := model.ProcessInfo{PID: p.Pid, Name: name}
		if user, err := p.UsernameWithContext(ctx); err == nil {
			info.Username = user
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = pct
		}
		if m, err := p.MemoryInfoWithContext(ctx); err == nil && m != nil {
			info.MemoryInfo = model.ProcessMemoryInfo{RSS: m.RSS, VMS: m.VMS}
		}
		out = append(out, info)
	}
	return out, nil
}

// familyName renders an address family the way socket tables print it.
func familyName(family uint32) string {
	switch family {
	case syscall.AF_INET:
		return "AF_INET"
	case syscall.AF_INET6:
		return "AF_INET6"
	default:
		return "AF_" + strconv.FormatUint(uint64(family), 10)
	}
}

// socketTypeName renders a socket type.
func socketTypeName(t uint32) string {
	switch t {
	case syscall.SOCK_STREAM:
		return "SOCK_STREAM"
	case syscall.SOCK_DGRAM:
		return "SOCK_DGRAM"
	default:
		return "SOCK_" + strconv.FormatUint(uint64(t), 10)
	}
}

// formatAddr returns "host:port", or nil for an unbound address.
func formatAddr(ip string, port uint32) *string {
	if ip == "" && port == 0 {
		return nil
	}
	s := net.JoinHostPort(ip, strconv.FormatUint(uint64(port), 10))
	return &s
}
