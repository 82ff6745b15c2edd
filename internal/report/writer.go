package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// BasePrefix starts the name of every file written by a collect run.
	BasePrefix = "security_audit"

	// TimestampLayout is the time component of the base name.
	TimestampLayout = "20060102_150405"

	// SnapshotSuffix is appended to the base name of the JSON snapshot.
	SnapshotSuffix = "_snapshot.json"

	// filePerm keeps reports private; they describe the host in detail.
	filePerm os.FileMode = 0o600

	// dirPerm is used for output directories that do not exist yet.
	dirPerm os.FileMode = 0o750
)

// OutputPaths are the files written by one collect run.
type OutputPaths struct {
	// Markdown is the report path (<base>.md).
	Markdown string

	// Snapshot is the JSON snapshot path (<base>_snapshot.json).
	Snapshot string

	// HTML is the rendered report path (<base>.html).
	HTML string
}

// NewOutputPaths returns the paths for a run by user at t inside dir.
// An empty dir means the current directory.
func NewOutputPaths(dir, user string, t time.Time) OutputPaths {
	if dir == "" {
		dir = "."
	}
	base := filepath.Join(dir, BaseName(user, t))
	return OutputPaths{
		Markdown: base + ".md",
		Snapshot: base + SnapshotSuffix,
		HTML:     base + ".html",
	}
}

// BaseName returns "security_audit_<user>_<YYYYmmdd_HHMMSS>" using the local time of t.
func BaseName(user string, t time.Time) string {
	user = sanitizeUser(user)
	if user == "" {
		user = "user"
	}
	return fmt.Sprintf("%s_%s_%s", BasePrefix, user, t.Format(TimestampLayout))
}

// UserName returns the user part of the base name.
// USERNAME is checked first (Windows), then USER, then the literal "user".
func UserName() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if v := sanitizeUser(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "user"
}

// sanitizeUser drops path separators so that the name cannot leave the output directory.
func sanitizeUser(user string) string {
	user = strings.TrimSpace(user)
	return strings.NewReplacer("/", "", `\`, "", "..", "").Replace(user)
}

// WriteFile writes data to path with owner-only permissions, creating
// missing parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
