// Package main provides the entry point for the socaudit CLI.
//
// socaudit collects host data (system metrics, sockets, processes and
// Sysmon events), asks an AI model for a security assessment and writes
// the result as Markdown, JSON and HTML. A separate command turns a folder
// of reports into a browsable dashboard.
//
// Usage:
//
//	socaudit collect
//	socaudit dashboard --recursive
//
// See --help for all available options.
package main

// main is the entry point for socaudit.
func main() {
	Execute()
}
