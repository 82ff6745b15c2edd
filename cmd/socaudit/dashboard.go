package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/socaudit/internal/config"
	"github.com/nao1215/socaudit/internal/dashboard"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Build an HTML dashboard from Markdown reports",
		Long: `Dashboard collects Markdown audit reports from a folder and writes a single
self-contained HTML page to browse them.

Each report is scored from its text (severity words and the model's
self-grade). The page offers search, a minimum score filter, severity
filters, sorting by score, date or name, and a table of contents for the
selected report.

Examples:
  # Build audit_dashboard.html from the reports in the current folder
  socaudit dashboard

  # Include subfolders and choose the output file
  socaudit dashboard --dir reports --recursive --out public/index.html

  # Only pick up audit reports
  socaudit dashboard --pattern "security_audit_*.md"`,
		Args: cobra.NoArgs,
		RunE: runDashboardCmd,
	}

	cmd.Flags().String("out", config.DefaultDashboardOut,
		"Output HTML file")
	cmd.Flags().String("dir", ".",
		"Folder to scan for reports")
	cmd.Flags().BoolP("recursive", "r", false,
		"Scan subfolders too")
	cmd.Flags().String("pattern", config.DefaultDashboardPattern,
		"Glob matched against report file names")
	cmd.Flags().String("title", config.DefaultDashboardTitle,
		"Dashboard title")
	cmd.Flags().Int("concurrency", config.DefaultDashboardConcurrency,
		"Number of reports processed in parallel")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .socaudit in current or home directory)")

	return cmd
}

// dashboardRequest is a resolved dashboard invocation.
type dashboardRequest struct {
	Out     string
	Options dashboard.Options
}

// runDashboardCmd executes the dashboard command.
func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	req, err := buildDashboardRequest(cmd)
	if err != nil {
		return err
	}

	req.Options.Logger = setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))

	n, err := dashboard.Build(cmd.Context(), req.Options, req.Out)
	if errors.Is(err, dashboard.ErrNoReports) {
		fmt.Fprintln(cmd.OutOrStdout(), "No Markdown files found. Put some .md reports in this folder and rerun.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[+] Wrote %s with %d report(s).\n", req.Out, n)
	return nil
}

// buildDashboardRequest merges the dashboard section of the configuration
// file with the flags the user set.
func buildDashboardRequest(cmd *cobra.Command) (*dashboardRequest, error) {
	flags := cmd.Flags()

	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	req := &dashboardRequest{
		Out:     config.DefaultDashboardOut,
		Options: dashboard.DefaultOptions(),
	}

	if path := config.FindConfigFile(configFile); path != "" {
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		applyDashboardSettings(req, cf.Dashboard)
	} else if configFile != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configFile)
	}

	if flags.Changed("out") {
		if req.Out, err = flags.GetString("out"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dir") {
		if req.Options.Root, err = flags.GetString("dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("recursive") {
		if req.Options.Recursive, err = flags.GetBool("recursive"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("pattern") {
		if req.Options.Pattern, err = flags.GetString("pattern"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("title") {
		if req.Options.Title, err = flags.GetString("title"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if req.Options.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// applyDashboardSettings copies the non-empty file settings onto req.
func applyDashboardSettings(req *dashboardRequest, s config.DashboardSettings) {
	if s.Out != "" {
		req.Out = s.Out
	}
	if s.Dir != "" {
		req.Options.Root = s.Dir
	}
	if s.Pattern != "" {
		req.Options.Pattern = s.Pattern
	}
	if s.Recursive {
		req.Options.Recursive = true
	}
	if s.Title != "" {
		req.Options.Title = s.Title
	}
	if s.Concurrency > 0 {
		req.Options.Concurrency = s.Concurrency
	}
}
