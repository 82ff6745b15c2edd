package config

import (
	"strings"
	"time"
)

// ProviderSettings holds per-provider overrides from the configuration file.
type ProviderSettings struct {
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`

	// BaseURL overrides the API base URL. Only used by OpenAI-compatible providers.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Temperature overrides the sampling temperature.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// MaxOutputTokens overrides the response length cap.
	MaxOutputTokens int `yaml:"maxOutputTokens,omitempty"`
}

// CollectSettings holds collection and output settings from the configuration file.
// Zero values mean "not set" and leave the defaults in place.
type CollectSettings struct {
	Provider        string        `yaml:"provider,omitempty"`
	Hours           int           `yaml:"hours,omitempty"`
	MaxSysmonEvents int           `yaml:"maxSysmon,omitempty"`
	SysmonPath      string        `yaml:"sysmonPath,omitempty"`
	ProcessLimit    int           `yaml:"processLimit,omitempty"`
	DiskPath        string        `yaml:"diskPath,omitempty"`
	OutputDir       string        `yaml:"outputDir,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	MaxRetries      *int          `yaml:"maxRetries,omitempty"`
	SecretsDir      string        `yaml:"secretsDir,omitempty"`
	HTML            *bool         `yaml:"html,omitempty"`
	Metadata        *bool         `yaml:"metadata,omitempty"`
	SaveHistory     *bool         `yaml:"saveHistory,omitempty"`
}

// DashboardSettings holds dashboard defaults from the configuration file.
type DashboardSettings struct {
	Out         string `yaml:"out,omitempty"`
	Dir         string `yaml:"dir,omitempty"`
	Pattern     string `yaml:"pattern,omitempty"`
	Recursive   bool   `yaml:"recursive,omitempty"`
	Title       string `yaml:"title,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// File represents the structure of the .socaudit configuration file.
type File struct {
	// Collect contains settings for the collect command.
	Collect CollectSettings `yaml:"collect,omitempty"`

	// Providers maps provider names ("openai", "google") to their overrides.
	Providers map[string]ProviderSettings `yaml:"providers,omitempty"`

	// Dashboard contains defaults for the dashboard command.
	Dashboard DashboardSettings `yaml:"dashboard,omitempty"`
}

// GetProviderSettings returns the overrides for a provider.
// Lookup is case-insensitive; a missing entry yields zero settings.
func (cf *File) GetProviderSettings(provider string) ProviderSettings {
	if cf == nil {
		return ProviderSettings{}
	}
	name := strings.ToLower(strings.TrimSpace(provider))
	for k, v := range cf.Providers {
		if strings.ToLower(k) == name {
			return v
		}
	}
	return ProviderSettings{}
}

// ApplyTo copies the collect settings set in the file onto cfg.
// Provider overrides are applied separately with ApplyProvider once the
// final provider is known. Flags are applied afterwards by the caller,
// so they win over the file.
func (cf *File) ApplyTo(cfg *Config) {
	if cf == nil || cfg == nil {
		return
	}

	c := cf.Collect
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}
	if c.Hours > 0 {
		cfg.Hours = c.Hours
	}
	if c.MaxSysmonEvents > 0 {
		cfg.MaxSysmonEvents = c.MaxSysmonEvents
	}
	if c.SysmonPath != "" {
		cfg.SysmonPath = c.SysmonPath
	}
	if c.ProcessLimit > 0 {
		cfg.ProcessLimit = c.ProcessLimit
	}
	if c.DiskPath != "" {
		cfg.DiskPath = c.DiskPath
	}
	if c.OutputDir != "" {
		cfg.OutputDir = c.OutputDir
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.MaxRetries != nil {
		cfg.MaxRetries = *c.MaxRetries
	}
	if c.SecretsDir != "" {
		cfg.SecretsDir = c.SecretsDir
	}
	if c.HTML != nil {
		cfg.WriteHTML = *c.HTML
	}
	if c.Metadata != nil {
		cfg.AppendMetadata = *c.Metadata
	}
	if c.SaveHistory != nil {
		cfg.SaveToDB = *c.SaveHistory
	}
}

// ApplyProvider copies the overrides of cfg's provider onto cfg.
func (cf *File) ApplyProvider(cfg *Config) {
	if cf == nil || cfg == nil {
		return
	}
	p := cf.GetProviderSettings(cfg.NormalizedProvider())
	if p.Model != "" {
		cfg.Model = p.Model
	}
	if p.BaseURL != "" {
		cfg.OpenAIBaseURL = p.BaseURL
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = p.MaxOutputTokens
	}
}
