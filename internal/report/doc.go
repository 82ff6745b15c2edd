// Package report writes the files produced by an audit run.
//
// A collect run emits three files that share one base name:
//   - <base>.md: the AI analysis, or an error report when the call failed
//   - <base>_snapshot.json: the collected host data (JSONWriter)
//   - <base>.html: the Markdown rendered as a standalone page (HTMLRenderer)
//
// MarkdownWriter also produces the optional "Collection Metadata" appendix.
// Host names and error text in the appendix can contain severity words, so
// scoring.Compute stops at its heading.
package report
