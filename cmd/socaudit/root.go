package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	seclog "github.com/nao1215/socaudit/internal/log"
)

// NewRootCmd creates the root command for socaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "socaudit",
		Short: "AI-assisted security audit of the local host",
		Long: `socaudit gathers system, network, process and Sysmon data from the local
host, sends it to an AI provider (OpenAI or Google Gemini) for a security
posture review and writes the review as Markdown, JSON and HTML.

Reports from many hosts or runs can be combined into a single static
dashboard with 'socaudit dashboard'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewDashboardCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the secret-masking logger used by all commands.
// Loaded API keys are registered so they are masked wherever they appear.
func setupLogger(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return seclog.NewSecureLogger(w, verbose, seclog.WithSecrets(secrets...))
}
