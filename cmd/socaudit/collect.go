package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/socaudit/internal/ai"
	"github.com/nao1215/socaudit/internal/collector"
	"github.com/nao1215/socaudit/internal/config"
	"github.com/nao1215/socaudit/internal/database"
	"github.com/nao1215/socaudit/internal/model"
	"github.com/nao1215/socaudit/internal/pipeline"
	"github.com/nao1215/socaudit/internal/report"
	"github.com/nao1215/socaudit/internal/scoring"
	"github.com/nao1215/socaudit/internal/secrets"
)

// NewCollectCmd creates the collect command.
func NewCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect host data and request an AI security analysis",
		Long: `Collect gathers a snapshot of the local host and asks an AI model to review it.

The snapshot contains:
- CPU, memory, swap and disk usage, boot time and logged-in users
- The inet socket table
- The busiest processes by CPU usage
- Recent Sysmon events read from the operational EVTX log

The analysis is written to security_audit_<user>_<timestamp>.md, the raw
snapshot to ..._snapshot.json and a rendered page to ....html. If the AI call
fails the report contains the error instead, and the snapshot is still written.

Examples:
  # Analyze with OpenAI (needs OPENAI_API_KEY)
  socaudit collect

  # Analyze with Gemini, looking back 48 hours
  socaudit collect --provider google --hours 48

  # Read API keys from files in a secrets directory
  socaudit collect --secrets-dir /run/secrets

  # Write outputs to a directory without the HTML page
  socaudit collect --output-dir reports --html=false

  # Render an existing report and exit
  socaudit collect --from-md security_audit_alice_20250101_120000.md`,
		Args: cobra.NoArgs,
		RunE: runCollectCmd,
	}

	// Collection flags
	cmd.Flags().Int("hours", config.DefaultHours,
		"How many hours back to collect Sysmon logs")
	cmd.Flags().Int("max-sysmon", config.DefaultMaxSysmonEvents,
		"Maximum number of Sysmon events to parse (0 disables Sysmon collection)")
	cmd.Flags().String("sysmon-path", config.DefaultSysmonPath,
		"Path to the Sysmon EVTX file")
	cmd.Flags().Int("process-limit", config.DefaultProcessLimit,
		"Number of top CPU processes to include")
	cmd.Flags().String("disk-path", config.DefaultDiskPath(),
		"Volume whose usage is reported")

	// AI flags
	cmd.Flags().StringP("provider", "p", config.DefaultProvider,
		"AI provider: openai or google")
	cmd.Flags().StringP("model", "m", "",
		"Model name (defaults: openai="+config.DefaultOpenAIModel+", google="+config.DefaultGoogleModel+")")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for the AI request")
	cmd.Flags().String("secrets-dir", "",
		"Directory with API key files (used when the environment has no key)")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for the report, snapshot and HTML files")
	cmd.Flags().Bool("html", true,
		"Render the report to HTML")
	cmd.Flags().String("html-out", "",
		"Write HTML to this path instead of next to the report")
	cmd.Flags().Bool("no-metadata", false,
		"Do not append the collection metadata section to the report")
	cmd.Flags().String("from-md", "",
		"Convert an existing Markdown report to HTML and exit")

	// History flags
	cmd.Flags().Bool("no-db", false,
		"Do not record this run in the audit history")
	cmd.Flags().String("db-dir", "",
		"Directory of the audit history database (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .socaudit in current or home directory)")

	return cmd
}

// collectDeps are the parts of a collect run that touch the host or the network.
type collectDeps struct {
	source      collector.Source
	newProvider func(ctx context.Context, opts ai.Options) (ai.Provider, error)
	now         func() time.Time
	hostname    func() (string, error)
	user        func() string
}

// defaultCollectDeps returns the dependencies used outside tests.
func defaultCollectDeps() collectDeps {
	return collectDeps{
		source:      collector.NewSource(),
		newProvider: ai.NewProvider,
		now:         time.Now,
		hostname:    os.Hostname,
		user:        report.UserName,
	}
}

// runCollectCmd executes the collect command.
func runCollectCmd(cmd *cobra.Command, _ []string) error {
	fromMD, err := cmd.Flags().GetString("from-md")
	if err != nil {
		return err
	}
	if fromMD != "" {
		htmlOut, err := cmd.Flags().GetString("html-out")
		if err != nil {
			return err
		}
		return renderMarkdownFile(cmd.OutOrStdout(), fromMD, htmlOut, "")
	}

	cfg, err := buildCollectConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	store, err := secrets.Load(cfg.SecretsDir)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, store.Values()...)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err = runCollect(ctx, cfg, store, defaultCollectDeps(), logger, cmd.OutOrStdout())
	return err
}

// buildCollectConfig creates a Config from defaults, the configuration file
// and the flags the user actually set, in that order.
func buildCollectConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently run with defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.File.ApplyTo(cfg)

	// The provider decides which provider section of the file applies,
	// so it is resolved before the remaining flags.
	if flags.Changed("provider") {
		if cfg.Provider, err = flags.GetString("provider"); err != nil {
			return nil, err
		}
	}
	cfg.File.ApplyProvider(cfg)

	if flags.Changed("hours") {
		if cfg.Hours, err = flags.GetInt("hours"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-sysmon") {
		if cfg.MaxSysmonEvents, err = flags.GetInt("max-sysmon"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("sysmon-path") {
		if cfg.SysmonPath, err = flags.GetString("sysmon-path"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("process-limit") {
		if cfg.ProcessLimit, err = flags.GetInt("process-limit"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("disk-path") {
		if cfg.DiskPath, err = flags.GetString("disk-path"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("model") {
		if cfg.Model, err = flags.GetString("model"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("secrets-dir") {
		if cfg.SecretsDir, err = flags.GetString("secrets-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("html") {
		if cfg.WriteHTML, err = flags.GetBool("html"); err != nil {
			return nil, err
		}
	}

	if cfg.HTMLOut, err = flags.GetString("html-out"); err != nil {
		return nil, err
	}

	noMetadata, err := flags.GetBool("no-metadata")
	if err != nil {
		return nil, err
	}
	if noMetadata {
		cfg.AppendMetadata = false
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	if noDB {
		cfg.SaveToDB = false
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runCollect performs one audit run: collect, analyze, write the outputs
// and record the run. Only a cancelled context or a failure to write the
// report or snapshot is returned as an error.
func runCollect(ctx context.Context, cfg *config.Config, store secrets.Store, deps collectDeps, logger *slog.Logger, out io.Writer) (*model.AuditRecord, error) {
	host, err := deps.hostname()
	if err != nil {
		logger.Warn("failed to read hostname", "error", err)
		host = "unknown"
	}

	snapshot := model.NewSnapshot()
	snapshot.Hostname = host

	p := pipeline.DefaultPipeline(
		deps.source,
		[]pipeline.Option{
			pipeline.WithLogger(logger),
			pipeline.WithContinueOnError(true),
		},
		pipeline.WithPipelineCPUSampleInterval(cfg.CPUSampleInterval),
		pipeline.WithPipelineDiskPath(cfg.DiskPath),
		pipeline.WithPipelineProcessLimit(cfg.ProcessLimit),
		pipeline.WithPipelineSysmon(cfg.SysmonPath, cfg.Hours, cfg.MaxSysmonEvents),
		pipeline.WithPipelineStepLogger(logger),
	)

	logger.Info("starting collection", "host", host, "steps", p.StepNames())
	startTime := deps.now()

	if err := p.Execute(ctx, snapshot); err != nil {
		return nil, err
	}
	snapshot.MarkCollected(deps.now())

	logger.Info("collection finished",
		"elapsed", deps.now().Sub(startTime).Round(time.Millisecond),
		"connections", len(snapshot.Network.Connections),
		"processes", len(snapshot.Processes.TopProcesses),
		"sysmonEvents", snapshot.Sysmon.Count,
	)

	rec := &model.AuditRecord{
		Host:     host,
		User:     deps.user(),
		Provider: cfg.NormalizedProvider(),
		Model:    cfg.ResolvedModel(),
	}

	analysis, aiErr := analyze(ctx, cfg, store, deps, snapshot, rec)
	if aiErr != nil {
		if errors.Is(aiErr, context.Canceled) {
			return nil, aiErr
		}
		logger.Error("AI analysis failed", "provider", rec.Provider, "error", aiErr)
		rec.AIError = aiErr.Error()
		analysis = report.ErrorReport(aiErr)
	}

	reportMD := analysis
	if aiErr == nil && cfg.AppendMetadata {
		var buf bytes.Buffer
		buf.WriteString(analysis)
		meta := report.Metadata{
			Host:     host,
			Provider: rec.Provider,
			Model:    rec.Model,
			Snapshot: snapshot,
		}
		if _, err := report.NewMarkdownWriter(&buf).WriteMetadata(meta); err != nil {
			logger.Warn("failed to append metadata", "error", err)
		} else {
			reportMD = buf.String()
		}
	}

	finished := deps.now()
	paths := report.NewOutputPaths(cfg.OutputDir, rec.User, finished)

	if err := report.WriteFile(paths.Markdown, []byte(reportMD)); err != nil {
		return nil, err
	}

	var snapBuf bytes.Buffer
	if _, err := report.NewSnapshotWriter(&snapBuf).WriteSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := report.WriteFile(paths.Snapshot, snapBuf.Bytes()); err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "[+] Wrote report: %s\n", paths.Markdown)
	fmt.Fprintf(out, "[+] Wrote snapshot: %s\n", paths.Snapshot)

	rec.ReportPath = paths.Markdown
	rec.SnapshotPath = paths.Snapshot
	rec.CollectedAt = finished
	rec.Report = reportMD
	rec.Score = scoring.Compute(analysis)

	if cfg.WriteHTML {
		htmlOut := paths.HTML
		if cfg.HTMLOut != "" {
			htmlOut = cfg.HTMLOut
		}
		if err := writeHTML(analysis, stem(paths.Markdown), htmlOut, deps.now); err != nil {
			fmt.Fprintf(out, "[!] HTML render failed: %v\n", err)
		} else {
			rec.HTMLPath = htmlOut
			fmt.Fprintf(out, "[+] Wrote HTML: %s\n", htmlOut)
		}
	}

	if cfg.SaveToDB {
		if err := saveAuditRecord(ctx, cfg.DBDir, rec, logger); err != nil {
			logger.Error("failed to save audit history", "error", err)
		}
	}

	return rec, nil
}

// analyze creates the provider, sends the snapshot and returns the report text.
func analyze(ctx context.Context, cfg *config.Config, store secrets.Store, deps collectDeps, snapshot *model.Snapshot, rec *model.AuditRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	provider, err := deps.newProvider(ctx, ai.OptionsFromConfig(cfg, store))
	if err != nil {
		return "", err
	}
	defer provider.Close()

	rec.Provider = provider.Name()
	rec.Model = provider.Model()

	return ai.Analyze(ctx, provider, snapshot)
}

// saveAuditRecord stores rec in the history database under dbDir.
func saveAuditRecord(ctx context.Context, dbDir string, rec *model.AuditRecord, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.SaveAudit(ctx, rec); err != nil {
		return err
	}

	logger.Info("audit saved",
		"id", rec.ID,
		"runID", rec.RunID,
		"host", rec.Host,
		"finalScore", rec.Score.FinalScore,
	)
	return nil
}
