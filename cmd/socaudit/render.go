package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/socaudit/internal/report"
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <report.md>",
		Short: "Render a Markdown report to HTML",
		Long: `Render converts an existing Markdown report into a standalone HTML page.

The page shows the report title, a score badge, severity counts and the
severity, self-grade and final scores computed from the report text.

Examples:
  # Write security_audit_alice_20250101_120000.html next to the report
  socaudit render security_audit_alice_20250101_120000.md

  # Choose the output path and page title
  socaudit render report.md -o public/index.html --title "Weekly audit"`,
		Args: cobra.ExactArgs(1),
		RunE: runRenderCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output HTML path (default: the report path with .html extension)")
	cmd.Flags().String("title", "",
		"Page title (default: the report file name without extension)")

	return cmd
}

// runRenderCmd executes the render command.
func runRenderCmd(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	title, err := cmd.Flags().GetString("title")
	if err != nil {
		return err
	}

	return renderMarkdownFile(cmd.OutOrStdout(), args[0], output, title)
}

// renderMarkdownFile renders mdPath to htmlOut. An empty htmlOut writes
// next to the report and an empty title uses the file stem.
func renderMarkdownFile(out io.Writer, mdPath, htmlOut, title string) error {
	data, err := os.ReadFile(mdPath) //nolint:gosec // user-provided report path is intentional
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	if htmlOut == "" {
		htmlOut = strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".html"
	}
	if title == "" {
		title = stem(mdPath)
	}

	if err := writeHTML(strings.ToValidUTF8(string(data), ""), title, htmlOut, time.Now); err != nil {
		return err
	}

	fmt.Fprintf(out, "[+] Wrote HTML: %s\n", htmlOut)
	return nil
}

// writeHTML renders md as a report page and writes it to path.
func writeHTML(md, title, path string, now func() time.Time) error {
	renderer, err := report.NewHTMLRenderer(report.WithNow(now))
	if err != nil {
		return err
	}

	page, err := renderer.Render(md, title)
	if err != nil {
		return err
	}

	return report.WriteFile(path, page)
}

// stem returns the file name of path without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
