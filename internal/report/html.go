package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"regexp"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/nao1215/socaudit/internal/model"
	"github.com/nao1215/socaudit/internal/scoring"
)

// GeneratedLayout is the layout of the "Generated:" line of a report page.
const GeneratedLayout = "2006-01-02 15:04:05 MST"

//go:embed templates/report.html.tmpl
var templateFS embed.FS

// headingID matches the ids generated for headings.
var headingID = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// NewPolicy returns the sanitizer applied to rendered AI output.
// AI text is untrusted, so only user-generated-content markup survives,
// plus heading ids and the class names used by the page styles.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Matching(headingID).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").OnElements("span", "div", "table", "code")
	return p
}

// MarkdownToHTML converts Markdown to HTML with tables, fenced code and
// heading ids. The result is not sanitized.
func MarkdownToHTML(src []byte) []byte {
	return blackfriday.Run(
		src,
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.AutoHeadingIDs),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.CommonHTMLFlags,
		})),
	)
}

// HTMLRenderer turns one Markdown report into a standalone HTML page.
type HTMLRenderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
	now    func() time.Time
}

// HTMLOption configures an HTMLRenderer.
type HTMLOption func(*HTMLRenderer)

// WithNow sets the clock used for the "Generated:" line.
func WithNow(now func() time.Time) HTMLOption {
	return func(r *HTMLRenderer) {
		if now != nil {
			r.now = now
		}
	}
}

// NewHTMLRenderer parses the embedded page template.
func NewHTMLRenderer(opts ...HTMLOption) (*HTMLRenderer, error) {
	tmpl, err := template.New("report.html.tmpl").
		Funcs(sprig.HtmlFuncMap()).
		Funcs(template.FuncMap{"badgeColor": scoring.BadgeColor, "whole": whole}).
		ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	r := &HTMLRenderer{
		tmpl:   tmpl,
		policy: NewPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// severityRow is one line of the severity card.
type severityRow struct {
	Class string
	Label string
	Count int
}

// pageData is the template input.
type pageData struct {
	Title      string
	Generated  string
	Score      model.ScoreCard
	Severities []severityRow
	Body       template.HTML
}

// Render scores md and returns the complete page.
func (r *HTMLRenderer) Render(md, title string) ([]byte, error) {
	score := scoring.Compute(md)

	rows := make([]severityRow, 0, len(model.AllSeverities))
	for _, sev := range model.AllSeverities {
		rows = append(rows, severityRow{
			Class: sev.String(),
			Label: sev.String(),
			Count: score.Severity.Get(sev),
		})
	}

	data := pageData{
		Title:      title,
		Generated:  r.now().Local().Format(GeneratedLayout),
		Score:      score,
		Severities: rows,
		// sanitized by the policy
		Body: template.HTML(r.policy.SanitizeBytes(MarkdownToHTML([]byte(md)))),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report page: %w", err)
	}
	return buf.Bytes(), nil
}

// whole rounds a score for display.
func whole(v float64) int {
	return int(math.Round(v))
}
