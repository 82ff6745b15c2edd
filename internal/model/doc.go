// Package model defines the core data structures used throughout socaudit.
//
// This package contains the following main types:
//   - Snapshot: the host data gathered by the collector and sent to the AI provider
//   - ScoreCard: severity counts and the derived scores of a report
//   - ReportItem: one Markdown report as shown on the dashboard
//   - AuditRecord: one collect run as stored in the history database
//
// The JSON field names of Snapshot are part of the output format
// (`_snapshot.json`) and of the prompt, so they are kept stable.
package model
