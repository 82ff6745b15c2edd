package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/socaudit/internal/model"
)

// ErrorReportTitle is the heading of the report written when the AI call fails.
const ErrorReportTitle = "AI Analysis Error"

// ErrorReport returns the Markdown written in place of the analysis when the
// provider call fails. The collection output is still written next to it.
func ErrorReport(err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return "# " + ErrorReportTitle + "\n\n" + msg + "\n"
}

// Metadata describes the run that produced a report.
type Metadata struct {
	// Host is the audited host name.
	Host string

	// Provider and Model identify the AI backend.
	Provider string
	Model    string

	// Snapshot is the collected data. May be nil.
	Snapshot *model.Snapshot
}

// MarkdownWriter outputs the "Collection Metadata" appendix.
type MarkdownWriter struct {
	baseWriter
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// WriteMetadata writes the appendix. It starts with a horizontal rule so it
// can be appended directly to the AI output.
func (w *MarkdownWriter) WriteMetadata(meta Metadata) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")
	md.H2(model.MetadataHeading)
	md.PlainText("")

	w.writeRunTable(md, meta)

	if s := meta.Snapshot; s != nil {
		w.writeHostTable(md, s)
		w.writeConnectionChart(md, s.Network.Connections)
		w.writeStepErrors(md, s)
		if s.Sysmon.Error != "" {
			md.Note("Sysmon data unavailable: " + s.Sysmon.Error)
			md.PlainText("")
		}
	}

	md.PlainTextf("*Appendix generated by socaudit*")

	return len(md.String()), md.Build()
}

// writeRunTable writes who ran the analysis and when.
func (w *MarkdownWriter) writeRunTable(md *markdown.Markdown, meta Metadata) {
	collected := "-"
	if meta.Snapshot != nil && meta.Snapshot.CollectedAt != "" {
		collected = meta.Snapshot.CollectedAt
	}
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Host", orDash(meta.Host)},
			{"Collected At", collected},
			{"Provider", orDash(meta.Provider)},
			{"Model", "`" + orDash(meta.Model) + "`"},
		},
	})
	md.PlainText("")
}

// writeHostTable summarises the snapshot contents.
func (w *MarkdownWriter) writeHostTable(md *markdown.Markdown, s *model.Snapshot) {
	sys := s.System
	rows := [][]string{
		{"CPU Cores", strconv.Itoa(sys.CPUCount)},
		{"CPU Usage", fmt.Sprintf("%.1f%%", sys.CPUPercent)},
		{"Memory", fmt.Sprintf("%s of %s in use", humanize.Bytes(sys.Memory.Used), humanize.Bytes(sys.Memory.Total))},
		{"Disk " + orDash(sys.DiskUsage.Path), fmt.Sprintf("%s of %s in use", humanize.Bytes(sys.DiskUsage.Used), humanize.Bytes(sys.DiskUsage.Total))},
		{"Boot Time", orDash(sys.BootTime)},
		{"Logged-in Users", humanize.Comma(int64(len(sys.Users)))},
		{"Connections", humanize.Comma(int64(len(s.Network.Connections)))},
		{"Processes Listed", humanize.Comma(int64(len(s.Processes.TopProcesses)))},
		{"Sysmon Events", humanize.Comma(int64(s.Sysmon.Count))},
	}
	if len(s.PerformedSteps) > 0 {
		steps := make([]string, len(s.PerformedSteps))
		for i, name := range s.PerformedSteps {
			steps[i] = w.title.String(name)
		}
		rows = append(rows, []string{"Completed Steps", strings.Join(steps, ", ")})
	}

	md.PlainText("### Host Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Item", "Value"}, Rows: rows})
	md.PlainText("")
}

// writeConnectionChart writes a mermaid pie chart of socket states.
func (w *MarkdownWriter) writeConnectionChart(md *markdown.Markdown, conns []model.Connection) {
	if len(conns) == 0 {
		return
	}

	counts := make(map[string]uint64)
	for _, c := range conns {
		status := c.Status
		if status == "" {
			status = "NONE"
		}
		counts[status]++
	}
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, state)
	}
	sort.Strings(states)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Connection States"),
		piechart.WithShowData(true),
	)
	for _, state := range states {
		chart.LabelAndIntValue(state, counts[state])
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeStepErrors lists the collection steps that failed.
func (w *MarkdownWriter) writeStepErrors(md *markdown.Markdown, s *model.Snapshot) {
	messages := s.System.Errors
	if len(s.StepErrors) == 0 && len(messages) == 0 {
		return
	}

	names := make([]string, 0, len(s.StepErrors))
	for name := range s.StepErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]string, 0, len(names)+len(messages))
	for _, name := range names {
		items = append(items, w.title.String(name)+": "+s.StepErrors[name])
	}
	items = append(items, messages...)

	md.Warningf("%d collection problem(s) were recorded; the analysis may be incomplete.", len(items))
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
