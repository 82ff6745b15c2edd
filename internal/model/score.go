package model

// NoGrade is the self-grade score of a report that contains no grade.
const NoGrade = -1.0

// ScoreCard holds the severity counts and derived scores of one report.
type ScoreCard struct {
	Severity SeverityCounts `json:"severity"`

	// SelfGradeScore is the score of the report's own letter grade, or NoGrade.
	SelfGradeScore float64 `json:"self_grade_score"`

	// SeverityScore is 100 minus the capped severity penalties.
	SeverityScore float64 `json:"severity_score"`

	// FinalScore blends SeverityScore and SelfGradeScore.
	FinalScore float64 `json:"final_score"`
}

// HasGrade reports whether the report contained a letter grade.
func (s ScoreCard) HasGrade() bool {
	return s.SelfGradeScore >= 0
}

// ReportItem is one Markdown report as embedded in the dashboard.
type ReportItem struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`

	// HTML is the sanitized rendering of the report.
	HTML string `json:"html"`

	// Text is the raw Markdown.
	Text string `json:"text"`

	ScoreCard

	// Mtime is the modification time as "YYYY-mm-dd HH:MM:SS TZ".
	Mtime     string `json:"mtime"`
	MtimeUnix int64  `json:"mtime_unix"`

	// TOC lists the h1-h3 headings of HTML.
	TOC []TOCEntry `json:"toc"`
}

// TOCEntry is one heading of a rendered report.
type TOCEntry struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}
