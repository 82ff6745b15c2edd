package model

import "time"

// MetadataHeading is the H2 title of the appendix collect adds after the AI
// analysis. Scoring stops at this heading.
const MetadataHeading = "Collection Metadata"

// AuditRecord is one collect run as stored in the history database.
type AuditRecord struct {
	// ID is the database row id. Zero until saved.
	ID int64 `json:"id"`

	// RunID is a random UUID identifying the run across files and history.
	RunID string `json:"run_id"`

	Host     string `json:"host"`
	User     string `json:"user"`
	Provider string `json:"provider"`
	Model    string `json:"model"`

	CollectedAt time.Time `json:"collected_at"`

	ReportPath   string `json:"report_path"`
	SnapshotPath string `json:"snapshot_path"`
	HTMLPath     string `json:"html_path,omitempty"`

	Score ScoreCard `json:"score"`

	// AIError holds the analysis error when the provider call failed.
	AIError string `json:"ai_error,omitempty"`

	// Report is the Markdown report text.
	Report string `json:"-"`
}

// Failed reports whether the AI analysis of this run failed.
func (r *AuditRecord) Failed() bool {
	return r.AIError != ""
}
