// Package dashboard builds a single self-contained HTML page from a folder
// of Markdown audit reports.
//
// Load finds the reports, renders and scores each one concurrently and
// returns them in path order. Render embeds the result as JSON in a page
// with filtering, sorting and a report viewer. Build does both and writes
// the file.
package dashboard
