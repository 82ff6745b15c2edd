package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/socaudit/internal/config"
	"github.com/nao1215/socaudit/internal/database"
	"github.com/nao1215/socaudit/internal/model"
)

// Constants for risk direction and summary messages.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
	noFindingsMessage      = "No findings"
	failedRunMessage       = "analysis failed"
)

// compareDateLayout is the layout of audit times in compare output.
const compareDateLayout = "2006-01-02 15:04:05"

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [host]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the latest and a previous audit of a host.

This command retrieves the audit history recorded by 'socaudit collect' and shows:
- Changes in the number of critical, high, medium and low mentions
- Changes in the severity, self-grade and final scores
- Whether the overall posture improved or worsened

The host defaults to the local host name. The comparison requires at least
two audits in the history for that host.

Examples:
  # Compare the latest two audits of this host
  socaudit compare

  # List the audit history of a host
  socaudit compare --list web01

  # Compare with a specific historical audit by ID
  socaudit compare --with-id 5 web01

  # Compare with the first audit since a date
  socaudit compare --since "2025-01-01"

  # Output comparison in JSON format
  socaudit compare --json

  # List all audited hosts in the database
  socaudit compare --list-hosts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the host")
	cmd.Flags().BoolP("list-hosts", "L", false,
		"List all audited hosts in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", "",
		"Directory of the audit history database (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listHosts, err := cmd.Flags().GetBool("list-hosts")
	if err != nil {
		return err
	}

	// Resolve the host before opening the database so that a failure
	// does not leave the database locked.
	var host string
	if !listHosts {
		if len(args) > 0 {
			host = strings.TrimSpace(args[0])
		} else {
			host, err = os.Hostname()
			if err != nil {
				return fmt.Errorf("host is required (failed to read local host name: %w)", err)
			}
		}
		if host == "" {
			return errors.New("host is required (use --list-hosts to see audited hosts)")
		}
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listHosts {
		return listAuditedHosts(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listAuditHistory(ctx, out, db, host)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	comparison, err := selectComparison(ctx, db, host, withID, sinceDate)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// listAuditedHosts lists all hosts that have audit records in the database.
func listAuditedHosts(ctx context.Context, out io.Writer, db *database.AuditDB) error {
	hosts, err := db.ListHosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Fprintln(out, "No audited hosts found in the database.")
		fmt.Fprintln(out, "\nUse 'socaudit collect' to audit this host.")
		return nil
	}

	fmt.Fprintf(out, "Audited hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Fprintf(out, "  • %s\n", host)
	}
	fmt.Fprintln(out, "\nUse 'socaudit compare --list <host>' to see the audit history of a host.")

	return nil
}

// listAuditHistory lists all audit records of a host.
func listAuditHistory(ctx context.Context, out io.Writer, db *database.AuditDB, host string) error {
	records, err := db.GetAuditHistory(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", host)
		fmt.Fprintln(out, "\nUse 'socaudit collect' on that host to record an audit.")
		return nil
	}

	title := cases.Title(language.English)

	fmt.Fprintf(out, "Audit history for %s (%d audits):\n\n", host, len(records))
	fmt.Fprintf(out, "  %-6s  %-20s  %-16s  %-8s  %-7s  %s\n", "ID", "Date", "When", "Provider", "Score", "Severity Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 86))

	for i := range records {
		rec := &records[i]
		fmt.Fprintf(out, "  %-6d  %-20s  %-16s  %-8s  %-7s  %s\n",
			rec.ID,
			rec.CollectedAt.Local().Format(compareDateLayout),
			humanize.Time(rec.CollectedAt),
			title.String(rec.Provider),
			formatScore(rec.Score.FinalScore),
			formatSeveritySummary(rec),
		)
	}

	fmt.Fprintln(out, "\nUse 'socaudit compare <host>' to compare the latest two audits.")
	fmt.Fprintln(out, "Use 'socaudit compare --with-id <id> <host>' to compare with a specific audit.")

	return nil
}

// formatSeveritySummary formats the severity counts of a record into a short string.
func formatSeveritySummary(rec *model.AuditRecord) string {
	if rec.Failed() {
		return failedRunMessage
	}

	c := rec.Score.Severity
	var parts []string
	if c.Critical > 0 {
		parts = append(parts, fmt.Sprintf("C:%d", c.Critical))
	}
	if c.High > 0 {
		parts = append(parts, fmt.Sprintf("H:%d", c.High))
	}
	if c.Medium > 0 {
		parts = append(parts, fmt.Sprintf("M:%d", c.Medium))
	}
	if c.Low > 0 {
		parts = append(parts, fmt.Sprintf("L:%d", c.Low))
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// selectComparison picks the two audits to compare. The latest audit is
// always the current one; the previous one is chosen by ID, by date, or is
// the audit before the latest.
func selectComparison(ctx context.Context, db *database.AuditDB, host string, withID int64, sinceDate string) (*ComparisonResult, error) {
	records, err := db.GetAuditHistory(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no audit history found for %s", host)
	}

	if len(records) < 2 && withID == 0 && sinceDate == "" {
		return nil, fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(records))
	}

	current := &records[0]
	var previous *model.AuditRecord

	switch {
	case withID > 0:
		previous, err = db.GetAuditByID(ctx, withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get audit with ID %d: %w", withID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("audit with ID %d not found", withID)
		}
		if previous.Host != host {
			return nil, fmt.Errorf("audit ID %d belongs to %s, not %s", withID, previous.Host, host)
		}
		if previous.ID == current.ID {
			return nil, fmt.Errorf("audit ID %d is the latest audit; choose an older one", withID)
		}
	case sinceDate != "":
		parsedDate, err := time.ParseInLocation("2006-01-02", sinceDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// History is newest first, so walk it backwards to find the
		// oldest audit at or after the date.
		for i := len(records) - 1; i >= 0; i-- {
			if !records[i].CollectedAt.Before(parsedDate) {
				previous = &records[i]
				break
			}
		}
		if previous == nil {
			return nil, fmt.Errorf("no audits found since %s", sinceDate)
		}
		if previous.ID == current.ID {
			return nil, fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", sinceDate)
		}
	default:
		previous = &records[1]
	}

	return compareAudits(previous, current), nil
}

// ComparisonResult holds the result of comparing two audits of a host.
type ComparisonResult struct {
	// Host is the audited host name.
	Host string `json:"host"`

	// PreviousAudit contains metadata about the previous audit.
	PreviousAudit AuditSummary `json:"previous_audit"`

	// CurrentAudit contains metadata about the current audit.
	CurrentAudit AuditSummary `json:"current_audit"`

	// RiskChange describes the overall change in posture.
	RiskChange RiskChange `json:"risk_change"`
}

// AuditSummary contains metadata about an audit for comparison display.
type AuditSummary struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	CollectedAt time.Time `json:"collected_at"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`

	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`

	SeverityScore  float64 `json:"severity_score"`
	SelfGradeScore float64 `json:"self_grade_score"`
	FinalScore     float64 `json:"final_score"`

	// Failed is true when the AI analysis of the run failed.
	Failed bool `json:"failed,omitempty"`
}

// RiskChange describes the change between two audits.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	CriticalDelta int `json:"critical_delta"`
	HighDelta     int `json:"high_delta"`
	MediumDelta   int `json:"medium_delta"`
	LowDelta      int `json:"low_delta"`

	// ScoreDelta is the change of the final score; positive is better.
	ScoreDelta float64 `json:"score_delta"`
}

// summarize extracts the comparison view of a record.
func summarize(rec *model.AuditRecord) AuditSummary {
	return AuditSummary{
		ID:             rec.ID,
		RunID:          rec.RunID,
		CollectedAt:    rec.CollectedAt,
		Provider:       rec.Provider,
		Model:          rec.Model,
		CriticalCount:  rec.Score.Severity.Critical,
		HighCount:      rec.Score.Severity.High,
		MediumCount:    rec.Score.Severity.Medium,
		LowCount:       rec.Score.Severity.Low,
		SeverityScore:  rec.Score.SeverityScore,
		SelfGradeScore: rec.Score.SelfGradeScore,
		FinalScore:     rec.Score.FinalScore,
		Failed:         rec.Failed(),
	}
}

// compareAudits compares two audits and generates a comparison result.
func compareAudits(previous, current *model.AuditRecord) *ComparisonResult {
	result := &ComparisonResult{
		Host:          current.Host,
		PreviousAudit: summarize(previous),
		CurrentAudit:  summarize(current),
	}
	result.RiskChange = calculateRiskChange(result.PreviousAudit, result.CurrentAudit)
	return result
}

// calculateRiskChange calculates the change between two audits.
// The direction follows the final score, which already weighs severities.
func calculateRiskChange(previous, current AuditSummary) RiskChange {
	change := RiskChange{
		CriticalDelta: current.CriticalCount - previous.CriticalCount,
		HighDelta:     current.HighCount - previous.HighCount,
		MediumDelta:   current.MediumCount - previous.MediumCount,
		LowDelta:      current.LowCount - previous.LowCount,
		ScoreDelta:    math.Round((current.FinalScore-previous.FinalScore)*10) / 10,
	}

	switch {
	case change.ScoreDelta > 0:
		change.Direction = riskDirectionImproved
	case change.ScoreDelta < 0:
		change.Direction = riskDirectionWorsened
	default:
		change.Direction = riskDirectionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// comparisonRows returns the metric rows shared by the text and Markdown output.
func comparisonRows(result *ComparisonResult) [][]string {
	p, c, d := result.PreviousAudit, result.CurrentAudit, result.RiskChange
	return [][]string{
		{"Critical", strconv.Itoa(p.CriticalCount), strconv.Itoa(c.CriticalCount), formatDelta(d.CriticalDelta)},
		{"High", strconv.Itoa(p.HighCount), strconv.Itoa(c.HighCount), formatDelta(d.HighDelta)},
		{"Medium", strconv.Itoa(p.MediumCount), strconv.Itoa(c.MediumCount), formatDelta(d.MediumDelta)},
		{"Low", strconv.Itoa(p.LowCount), strconv.Itoa(c.LowCount), formatDelta(d.LowDelta)},
		{"Severity Score", formatScore(p.SeverityScore), formatScore(c.SeverityScore), formatScoreDelta(c.SeverityScore - p.SeverityScore)},
		{"Self-Grade", formatGrade(p.SelfGradeScore), formatGrade(c.SelfGradeScore), "-"},
		{"Final Score", formatScore(p.FinalScore), formatScore(c.FinalScore), formatScoreDelta(d.ScoreDelta)},
	}
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Audit Comparison: " + result.Host)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	rows := [][]string{
		{"Date",
			result.PreviousAudit.CollectedAt.Local().Format("2006-01-02 15:04"),
			result.CurrentAudit.CollectedAt.Local().Format("2006-01-02 15:04"),
			"-"},
		{"Model",
			"`" + result.PreviousAudit.Model + "`",
			"`" + result.CurrentAudit.Model + "`",
			"-"},
	}
	rows = append(rows, comparisonRows(result)...)

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})

	if result.PreviousAudit.Failed || result.CurrentAudit.Failed {
		md.PlainText("")
		md.Warningf("The AI analysis of at least one audit failed; its scores reflect the error report.")
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Audit Comparison: %s\n", result.Host)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))

	fmt.Fprintf(out, "\nPrevious audit: #%d %s (%s)\n",
		result.PreviousAudit.ID,
		result.PreviousAudit.CollectedAt.Local().Format(compareDateLayout),
		humanize.Time(result.PreviousAudit.CollectedAt))
	fmt.Fprintf(out, "Current audit:  #%d %s (%s)\n",
		result.CurrentAudit.ID,
		result.CurrentAudit.CollectedAt.Local().Format(compareDateLayout),
		humanize.Time(result.CurrentAudit.CollectedAt))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 50))
	for _, row := range comparisonRows(result) {
		fmt.Fprintf(out, "  %-14s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	if result.PreviousAudit.Failed {
		fmt.Fprintf(out, "\nNote: the AI analysis of audit #%d failed.\n", result.PreviousAudit.ID)
	}
	if result.CurrentAudit.Failed {
		fmt.Fprintf(out, "\nNote: the AI analysis of audit #%d failed.\n", result.CurrentAudit.ID)
	}

	return nil
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (score increased)"
	case riskDirectionWorsened:
		return "WORSENED (score decreased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

// formatScoreDelta formats a score delta with one decimal and sign.
func formatScoreDelta(delta float64) string {
	delta = math.Round(delta*10) / 10
	if delta > 0 {
		return "+" + strconv.FormatFloat(delta, 'f', 1, 64)
	} else if delta < 0 {
		return strconv.FormatFloat(delta, 'f', 1, 64)
	}
	return "0"
}

// formatScore formats a score with one decimal.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// formatGrade formats a self-grade score, or N/A when the report had none.
func formatGrade(score float64) string {
	if score < 0 {
		return "N/A"
	}
	return formatScore(score)
}
