package dashboard

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeReport(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("reports are sorted by path and scored", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "b.md"), "# Second\n\nOne critical issue.\n")
		writeReport(t, filepath.Join(dir, "a.md"), "# First\n\n## Summary\n\nGrade: A\n")
		writeReport(t, filepath.Join(dir, "notes.txt"), "# Ignored\n")

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "a.md", items[0].Filename)
		assert.Equal(t, "First", items[0].Title)
		assert.InDelta(t, 98.0, items[0].FinalScore, 0.001)
		assert.Equal(t, []string{"first", "summary"}, []string{items[0].TOC[0].ID, items[0].TOC[1].ID})

		assert.Equal(t, "b.md", items[1].Filename)
		assert.Equal(t, 1, items[1].Severity.Critical)
		assert.InDelta(t, 75.0, items[1].FinalScore, 0.001)
		assert.Less(t, items[1].SelfGradeScore, 0.0)
	})

	t.Run("flat scan ignores subdirectories", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "top.md"), "# Top\n")
		writeReport(t, filepath.Join(dir, "sub", "nested.md"), "# Nested\n")

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "top.md", items[0].Filename)
	})

	t.Run("recursive scan matches base names in subdirectories", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "top.md"), "# Top\n")
		writeReport(t, filepath.Join(dir, "sub", "nested.md"), "# Nested\n")

		items, err := Load(context.Background(), Options{Root: dir, Recursive: true, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "sub/nested.md", items[0].Filename)
		assert.Equal(t, "top.md", items[1].Filename)
	})

	t.Run("custom pattern selects files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "security_audit_bob_1.md"), "# Audit\n")
		writeReport(t, filepath.Join(dir, "README.md"), "# Readme\n")

		items, err := Load(context.Background(), Options{Root: dir, Pattern: "security_audit_*.md", Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Audit", items[0].Title)
	})

	t.Run("title falls back to the file stem", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "security_audit_x.md"), "no heading here\n## Sub only\n")

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "security_audit_x", items[0].Title)
	})

	t.Run("invalid UTF-8 is dropped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "bad.md"), "# Bad\xff Title\n")

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Bad Title", items[0].Title)
	})

	t.Run("mtime uses the dashboard layout", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "r.md")
		writeReport(t, path, "# R\n")
		mod := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
		require.NoError(t, os.Chtimes(path, mod, mod))

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, mod.Format(MtimeLayout), items[0].Mtime)
		assert.Equal(t, mod.Unix(), items[0].MtimeUnix)
	})

	t.Run("unreadable file is skipped", func(t *testing.T) {
		t.Parallel()

		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permissions are not enforced")
		}

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "ok.md"), "# Ok\n")
		locked := filepath.Join(dir, "locked.md")
		writeReport(t, locked, "# Locked\n")
		require.NoError(t, os.Chmod(locked, 0o000))

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "ok.md", items[0].Filename)
	})

	t.Run("script in report is sanitized", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "x.md"), "# X\n\n<script>alert(1)</script>\n")

		items, err := Load(context.Background(), Options{Root: dir, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.NotContains(t, items[0].HTML, "<script>")
		assert.Contains(t, items[0].Text, "<script>")
	})

	t.Run("many reports keep order with limited workers", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		for _, name := range []string{"e", "d", "c", "b", "a", "f", "g", "h", "i", "j"} {
			writeReport(t, filepath.Join(dir, name+".md"), "# "+name+"\n")
		}

		items, err := Load(context.Background(), Options{Root: dir, Concurrency: 3, Logger: quietLogger()})
		require.NoError(t, err)
		require.Len(t, items, 10)
		for i, want := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
			assert.Equal(t, want, items[i].Title)
		}
	})

	t.Run("empty directory returns no items", func(t *testing.T) {
		t.Parallel()

		items, err := Load(context.Background(), Options{Root: t.TempDir(), Logger: quietLogger()})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("missing directory returns error", func(t *testing.T) {
		t.Parallel()

		_, err := Load(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")})
		assert.Error(t, err)
	})

	t.Run("malformed pattern returns ErrInvalidPattern", func(t *testing.T) {
		t.Parallel()

		_, err := Load(context.Background(), Options{Root: t.TempDir(), Pattern: "[", Logger: quietLogger()})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("negative concurrency returns ErrInvalidConcurrency", func(t *testing.T) {
		t.Parallel()

		_, err := Load(context.Background(), Options{Root: t.TempDir(), Concurrency: -1})
		assert.ErrorIs(t, err, ErrInvalidConcurrency)
	})

	t.Run("canceled context stops loading", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeReport(t, filepath.Join(dir, "a.md"), "# A\n")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Load(ctx, Options{Root: dir, Logger: quietLogger()})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "first h1 wins", text: "# One\n# Two\n", want: "One"},
		{name: "leading whitespace is allowed", text: "intro\n   #   Indented Title  \n", want: "Indented Title"},
		{name: "h2 is not a title", text: "## Only h2\n", want: "report"},
		{name: "hash without space is not a heading", text: "#tag\n", want: "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractTitle(tt.text, "/tmp/report.md"))
		})
	}
}
