package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/socaudit/internal/collector"
	"github.com/nao1215/socaudit/internal/config"
	"github.com/nao1215/socaudit/internal/model"
)

// SystemStep fills Snapshot.System.
type SystemStep struct {
	src  collector.Source
	opts collector.SystemOptions
}

// NewSystemStep creates a system metrics step.
func NewSystemStep(src collector.Source, opts collector.SystemOptions) *SystemStep {
	return &SystemStep{src: src, opts: opts}
}

// Name returns the step name.
func (s *SystemStep) Name() string {
	return "system"
}

// Do executes the system step.
func (s *SystemStep) Do(ctx context.Context, snapshot *model.Snapshot) error {
	snapshot.System = collector.CollectSystem(ctx, s.src, s.opts)
	return nil
}

// NetworkStep fills Snapshot.Network.
type NetworkStep struct {
	src collector.Source
}

// NewNetworkStep creates a connection table step.
func NewNetworkStep(src collector.Source) *NetworkStep {
	return &NetworkStep{src: src}
}

// Name returns the step name.
func (s *NetworkStep) Name() string {
	return "network"
}

// Do executes the network step.
func (s *NetworkStep) Do(ctx context.Context, snapshot *model.Snapshot) error {
	snapshot.Network = collector.CollectNetwork(ctx, s.src)
	return nil
}

// ProcessStep fills Snapshot.Processes.
type ProcessStep struct {
	src   collector.Source
	limit int
}

// NewProcessStep creates a top-processes step keeping limit entries.
func NewProcessStep(src collector.Source, limit int) *ProcessStep {
	return &ProcessStep{src: src, limit: limit}
}

// Name returns the step name.
func (s *ProcessStep) Name() string {
	return "processes"
}

// Do executes the process step. A process table that cannot be listed is
// returned as an error; the section is left empty.
func (s *ProcessStep) Do(ctx context.Context, snapshot *model.Snapshot) error {
	list, err := collector.CollectProcesses(ctx, s.src, s.limit)
	snapshot.Processes = list
	return err
}

// sysmonCollector is satisfied by *collector.SysmonReader.
type sysmonCollector interface {
	Collect(ctx context.Context) model.SysmonLogs
}

// SysmonStep fills Snapshot.Sysmon.
type SysmonStep struct {
	reader sysmonCollector
	logger *slog.Logger
}

// NewSysmonStep creates a Sysmon step.
func NewSysmonStep(reader sysmonCollector, logger *slog.Logger) *SysmonStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SysmonStep{reader: reader, logger: logger}
}

// Name returns the step name.
func (s *SysmonStep) Name() string {
	return "sysmon"
}

// Do executes the Sysmon step. A missing log is common off Windows, so it
// is only logged at debug level.
func (s *SysmonStep) Do(ctx context.Context, snapshot *model.Snapshot) error {
	snapshot.Sysmon = s.reader.Collect(ctx)
	if snapshot.Sysmon.Error != "" {
		s.logger.Debug("Sysmon events unavailable", "reason", snapshot.Sysmon.Error)
	}
	return nil
}

// DefaultPipelineConfig holds the settings of the default collection steps.
type DefaultPipelineConfig struct {
	CPUSampleInterval time.Duration
	DiskPath          string
	ProcessLimit      int
	SysmonPath        string
	Hours             int
	MaxSysmonEvents   int
	Logger            *slog.Logger
}

// DefaultPipelineOption configures DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCPUSampleInterval sets how long CPU usage is sampled.
func WithPipelineCPUSampleInterval(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CPUSampleInterval = d
	}
}

// WithPipelineDiskPath sets the volume whose usage is reported.
func WithPipelineDiskPath(path string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DiskPath = path
	}
}

// WithPipelineProcessLimit sets how many processes are kept.
func WithPipelineProcessLimit(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ProcessLimit = n
	}
}

// WithPipelineSysmon sets the EVTX path, time window and event cap.
func WithPipelineSysmon(path string, hours, maxEvents int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SysmonPath = path
		c.Hours = hours
		c.MaxSysmonEvents = maxEvents
	}
}

// WithPipelineStepLogger sets the logger passed to the steps.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates a pipeline with the system, network, processes
// and sysmon steps, in that order.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts step settings (WithPipelineProcessLimit, etc).
func DefaultPipeline(src collector.Source, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		CPUSampleInterval: config.DefaultCPUSampleInterval,
		DiskPath:          config.DefaultDiskPath(),
		ProcessLimit:      config.DefaultProcessLimit,
		SysmonPath:        config.DefaultSysmonPath,
		Hours:             config.DefaultHours,
		MaxSysmonEvents:   config.DefaultMaxSysmonEvents,
		Logger:            slog.Default(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sysmon := collector.NewSysmonReader(
		cfg.SysmonPath,
		cfg.Hours,
		cfg.MaxSysmonEvents,
		collector.WithSysmonLogger(cfg.Logger),
	)

	p.AddSteps(
		NewSystemStep(src, collector.SystemOptions{
			CPUSampleInterval: cfg.CPUSampleInterval,
			DiskPath:          cfg.DiskPath,
		}),
		NewNetworkStep(src),
		NewProcessStep(src, cfg.ProcessLimit),
		NewSysmonStep(sysmon, cfg.Logger),
	)

	return p
}
