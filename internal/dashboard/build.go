package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Build loads the reports selected by opts and writes the dashboard to out.
// It returns the number of reports on the page, or ErrNoReports when
// nothing matched; in that case out is not touched.
func Build(ctx context.Context, opts Options, out string) (int, error) {
	items, err := Load(ctx, opts)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, ErrNoReports
	}

	title := opts.Title
	if title == "" {
		title = DefaultOptions().Title
	}

	var buf bytes.Buffer
	if err := Render(&buf, items, title); err != nil {
		return 0, err
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil { //nolint:gosec // the dashboard is meant to be opened in a browser
		return 0, fmt.Errorf("failed to write %s: %w", out, err)
	}
	return len(items), nil
}
