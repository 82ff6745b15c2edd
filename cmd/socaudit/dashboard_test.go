package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/socaudit/internal/config"
)

func TestNewDashboardCmd(t *testing.T) {
	t.Parallel()

	cmd := NewDashboardCmd()

	defaults := map[string]string{
		"out":         config.DefaultDashboardOut,
		"dir":         ".",
		"recursive":   "false",
		"pattern":     config.DefaultDashboardPattern,
		"title":       config.DefaultDashboardTitle,
		"concurrency": "8",
	}
	for name, def := range defaults {
		f := cmd.Flags().Lookup(name)
		if assert.NotNil(t, f, "flag %q", name) {
			assert.Equal(t, def, f.DefValue, "flag %q", name)
		}
	}
}

func TestRunDashboardCmd(t *testing.T) {
	t.Parallel()

	writeFile := func(t *testing.T, path, content string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	emptyConfig := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".socaudit")
		writeFile(t, path, "dashboard: {}\n")
		return path
	}

	t.Run("writes the dashboard and reports the count", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.md"), "# Host A\n\nOne critical issue.\n")
		writeFile(t, filepath.Join(dir, "b.md"), "# Host B\n\nAll low.\n")
		writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
		out := filepath.Join(t.TempDir(), "dash.html")

		var stdout bytes.Buffer
		cmd := NewDashboardCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", emptyConfig(t), "--dir", dir, "--out", out, "--title", "Fleet"})

		require.NoError(t, cmd.Execute())

		assert.Equal(t, "[+] Wrote "+out+" with 2 report(s).\n", stdout.String())

		page, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(page), "<title>Fleet</title>")
		assert.Contains(t, string(page), "Host A")
		assert.NotContains(t, string(page), "notes.txt")
	})

	t.Run("recursive flag includes subfolders", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "top.md"), "# Top\n")
		writeFile(t, filepath.Join(dir, "nested", "deep.md"), "# Deep\n")
		out := filepath.Join(t.TempDir(), "dash.html")

		var stdout bytes.Buffer
		cmd := NewDashboardCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", emptyConfig(t), "--dir", dir, "--out", out, "-r"})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, stdout.String(), "with 2 report(s)")
	})

	t.Run("no reports prints a hint and succeeds", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "dash.html")

		var stdout bytes.Buffer
		cmd := NewDashboardCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", emptyConfig(t), "--dir", t.TempDir(), "--out", out})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "No Markdown files found. Put some .md reports in this folder and rerun.\n", stdout.String())

		_, err := os.Stat(out)
		assert.True(t, os.IsNotExist(err), "dashboard must not be written")
	})

	t.Run("config file supplies defaults", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "security_audit_x.md"), "# X\n")
		writeFile(t, filepath.Join(dir, "readme.md"), "# Readme\n")
		out := filepath.Join(t.TempDir(), "from_config.html")

		cfgPath := filepath.Join(t.TempDir(), ".socaudit")
		writeFile(t, cfgPath, "dashboard:\n  dir: "+dir+"\n  out: "+out+"\n  pattern: \"security_audit_*.md\"\n")

		var stdout bytes.Buffer
		cmd := NewDashboardCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", cfgPath})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "[+] Wrote "+out+" with 1 report(s).\n", stdout.String())
	})

	t.Run("invalid pattern is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewDashboardCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", emptyConfig(t), "--dir", t.TempDir(), "--pattern", "[", "--out", filepath.Join(t.TempDir(), "x.html")})

		err := cmd.Execute()
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "invalid file pattern"), "unexpected error: %v", err)
	})
}
