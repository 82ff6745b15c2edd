package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Supported AI provider names.
const (
	// ProviderOpenAI selects the OpenAI Responses API.
	ProviderOpenAI = "openai"

	// ProviderGoogle selects Google Gemini through the generative-ai-go client.
	ProviderGoogle = "google"
)

// Default configuration values.
const (
	// DefaultProvider is used when neither the flag nor the config file names one.
	DefaultProvider = ProviderOpenAI

	// DefaultOpenAIModel is the model requested from OpenAI when --model is empty.
	DefaultOpenAIModel = "gpt-4.1"

	// DefaultGoogleModel is the model requested from Gemini when --model is empty.
	DefaultGoogleModel = "gemini-2.0-pro"

	// DefaultOpenAIBaseURL is the root of the OpenAI REST API.
	// Any Responses-compatible gateway can be used by overriding it.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultTemperature keeps the analysis close to deterministic.
	DefaultTemperature = 0.2

	// DefaultOpenAIMaxOutputTokens caps the length of an OpenAI analysis.
	DefaultOpenAIMaxOutputTokens = 2000

	// DefaultGoogleMaxOutputTokens caps the length of a Gemini analysis.
	// Gemini tends to be more verbose, so it gets a larger budget.
	DefaultGoogleMaxOutputTokens = 3000

	// DefaultHours is how far back Sysmon events are collected.
	DefaultHours = 24

	// DefaultMaxSysmonEvents limits the number of Sysmon events sent to the model.
	// Each event costs prompt tokens, so this bounds the request size.
	DefaultMaxSysmonEvents = 300

	// DefaultSysmonPath is the standard location of the Sysmon operational log.
	DefaultSysmonPath = `C:\Windows\System32\winevt\Logs\Microsoft-Windows-Sysmon%4Operational.evtx`

	// DefaultProcessLimit is the number of top CPU consumers kept in the snapshot.
	DefaultProcessLimit = 50

	// DefaultCPUSampleInterval is the window used to measure system CPU usage.
	DefaultCPUSampleInterval = 1 * time.Second

	// DefaultTimeout bounds a single AI request. Large snapshots can take
	// a few minutes to analyze.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRetries is the number of retries on HTTP 429 responses.
	DefaultMaxRetries = 5

	// DefaultOutputDir is where reports and snapshots are written.
	DefaultOutputDir = "."

	// DefaultDashboardOut is the file written by the dashboard command.
	DefaultDashboardOut = "audit_dashboard.html"

	// DefaultDashboardPattern selects the reports picked up by the dashboard.
	DefaultDashboardPattern = "*.md"

	// DefaultDashboardTitle is the page title of the dashboard.
	DefaultDashboardTitle = "Security Audit Dashboard"

	// DefaultDashboardConcurrency is the number of reports rendered in parallel.
	DefaultDashboardConcurrency = 8

	// AppName is the application name used for XDG directory paths.
	AppName = "socaudit"
)

// Config holds all configuration options for an audit run.
// It is populated from defaults, the optional config file and CLI flags,
// in that order, and passed explicitly to the components that need it.
type Config struct {
	// Provider is the AI provider name: "openai" or "google".
	Provider string

	// Model is the model name. Empty means the provider default.
	Model string

	// OpenAIBaseURL is the base URL of the OpenAI-compatible API.
	OpenAIBaseURL string

	// Temperature is the sampling temperature sent to the provider.
	Temperature float64

	// MaxOutputTokens is the response length cap.
	// Zero means the provider default.
	MaxOutputTokens int

	// Timeout bounds each AI request.
	Timeout time.Duration

	// MaxRetries is the number of retries on rate limiting.
	MaxRetries int

	// SecretsDir is an optional directory holding API key files.
	// Keys found in the environment take precedence.
	SecretsDir string

	// Hours is the Sysmon look-back window.
	Hours int

	// MaxSysmonEvents is the maximum number of Sysmon events kept.
	// Zero disables Sysmon event collection.
	MaxSysmonEvents int

	// SysmonPath is the path to the Sysmon EVTX file.
	SysmonPath string

	// ProcessLimit is the number of top processes kept in the snapshot.
	ProcessLimit int

	// CPUSampleInterval is the window used to measure CPU usage.
	CPUSampleInterval time.Duration

	// DiskPath is the volume whose usage is reported.
	DiskPath string

	// OutputDir is the directory for the Markdown report and JSON snapshot.
	OutputDir string

	// WriteHTML renders the report to HTML next to the Markdown file.
	WriteHTML bool

	// HTMLOut overrides the HTML output path.
	HTMLOut string

	// AppendMetadata appends a collection metadata section to the report.
	AppendMetadata bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .socaudit is searched in the current and home directories.
	ConfigFilePath string

	// File holds settings loaded from the configuration file.
	File *File

	// DBDir is the directory holding the audit history database.
	DBDir string

	// SaveToDB records each run in the audit history database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Provider:          DefaultProvider,
		OpenAIBaseURL:     DefaultOpenAIBaseURL,
		Temperature:       DefaultTemperature,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		Hours:             DefaultHours,
		MaxSysmonEvents:   DefaultMaxSysmonEvents,
		SysmonPath:        DefaultSysmonPath,
		ProcessLimit:      DefaultProcessLimit,
		CPUSampleInterval: DefaultCPUSampleInterval,
		DiskPath:          DefaultDiskPath(),
		OutputDir:         DefaultOutputDir,
		WriteHTML:         true,
		AppendMetadata:    true,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
	}
}

// DefaultDiskPath returns the root of the volume the tool runs from.
// On Windows this is the current drive (for example "C:\"), elsewhere "/".
func DefaultDiskPath() string {
	if runtime.GOOS != "windows" {
		return "/"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return `C:\`
	}
	vol := filepath.VolumeName(cwd)
	if vol == "" {
		return `C:\`
	}
	return vol + `\`
}

// ResolvedModel returns the configured model or the provider default.
func (c *Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	if c.NormalizedProvider() == ProviderGoogle {
		return DefaultGoogleModel
	}
	return DefaultOpenAIModel
}

// ResolvedMaxOutputTokens returns the configured token cap or the provider default.
func (c *Config) ResolvedMaxOutputTokens() int {
	if c.MaxOutputTokens > 0 {
		return c.MaxOutputTokens
	}
	if c.NormalizedProvider() == ProviderGoogle {
		return DefaultGoogleMaxOutputTokens
	}
	return DefaultOpenAIMaxOutputTokens
}

// NormalizedProvider returns the lower-cased provider name, defaulting to
// openai. "gemini" is accepted as another name for google.
func (c *Config) NormalizedProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	switch p {
	case "":
		return DefaultProvider
	case "gemini":
		return ProviderGoogle
	default:
		return p
	}
}

// XDGDataDir returns the XDG data directory for socaudit.
// On Linux: ~/.local/share/socaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for socaudit.
// On Linux: ~/.config/socaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	switch c.NormalizedProvider() {
	case ProviderOpenAI, ProviderGoogle:
	default:
		return ErrUnknownProvider
	}

	if c.Hours <= 0 {
		return ErrInvalidHours
	}

	if c.MaxSysmonEvents < 0 {
		return ErrInvalidMaxEvents
	}

	if c.ProcessLimit <= 0 {
		return ErrInvalidProcessLimit
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrInvalidTemperature
	}

	if c.MaxOutputTokens < 0 {
		return ErrInvalidMaxOutputTokens
	}

	if c.CPUSampleInterval < 0 {
		return ErrInvalidSampleInterval
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	return nil
}
