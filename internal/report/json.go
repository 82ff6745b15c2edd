package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/socaudit/internal/model"
)

// JSONWriter outputs values as JSON followed by a newline.
// HTML characters are not escaped, so command lines and paths in the
// snapshot stay readable.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a compact JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewSnapshotWriter returns the writer used for <base>_snapshot.json files.
func NewSnapshotWriter(output io.Writer) *JSONWriter {
	return NewJSONWriter(output, WithPrettyPrint())
}

// WriteSnapshot outputs a collected snapshot.
func (w *JSONWriter) WriteSnapshot(s *model.Snapshot) (int, error) {
	return w.Write(s)
}

// Write marshals v and writes it to the output.
func (w *JSONWriter) Write(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	// Encode appends the trailing newline.
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
