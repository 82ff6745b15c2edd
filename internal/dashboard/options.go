package dashboard

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/nao1215/socaudit/internal/config"
)

// Options controls which reports are loaded and how the page is titled.
type Options struct {
	// Root is the directory to scan. Empty means the current directory.
	Root string

	// Pattern is matched against file base names, e.g. "*.md".
	Pattern string

	// Recursive also scans subdirectories of Root.
	Recursive bool

	// Title is the page title.
	Title string

	// Concurrency is the number of reports rendered at once.
	// Zero means config.DefaultDashboardConcurrency.
	Concurrency int

	// Logger receives warnings about skipped files. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the options used by the dashboard command
// when no flag is given.
func DefaultOptions() Options {
	return Options{
		Root:        ".",
		Pattern:     config.DefaultDashboardPattern,
		Title:       config.DefaultDashboardTitle,
		Concurrency: config.DefaultDashboardConcurrency,
	}
}

// withDefaults fills empty fields and checks the rest.
func (o Options) withDefaults() (Options, error) {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Pattern == "" {
		o.Pattern = config.DefaultDashboardPattern
	}
	if _, err := filepath.Match(o.Pattern, ""); err != nil {
		return o, fmt.Errorf("%w: %q", ErrInvalidPattern, o.Pattern)
	}
	if o.Title == "" {
		o.Title = config.DefaultDashboardTitle
	}
	if o.Concurrency < 0 {
		return o, ErrInvalidConcurrency
	}
	if o.Concurrency == 0 {
		o.Concurrency = min(config.DefaultDashboardConcurrency, runtime.NumCPU())
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}
