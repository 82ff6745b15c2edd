package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/socaudit/internal/model"
	"github.com/nao1215/socaudit/internal/report"
	"github.com/nao1215/socaudit/internal/scoring"
)

// MtimeLayout is the layout of ReportItem.Mtime.
const MtimeLayout = "2006-01-02 15:04:05 MST"

// titlePattern matches the first level-one heading of a report.
var titlePattern = regexp.MustCompile(`(?m)^\s*#\s+(.+)$`)

// Load finds the reports selected by opts and renders them.
// Files that cannot be read are skipped with a warning; the result keeps
// the sorted path order regardless of which worker finishes first.
func Load(ctx context.Context, opts Options) ([]model.ReportItem, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	paths, err := findReports(opts.Root, opts.Pattern, opts.Recursive)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return []model.ReportItem{}, nil
	}

	policy := report.NewPolicy()
	results := make([]*model.ReportItem, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			item, err := loadReport(opts.Root, path, func(b []byte) string {
				return string(policy.SanitizeBytes(report.MarkdownToHTML(b)))
			})
			if err != nil {
				opts.Logger.Warn("skipping report", "path", path, "error", err)
				return nil
			}
			results[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]model.ReportItem, 0, len(results))
	for _, item := range results {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

// findReports returns the regular files under root whose base name matches
// pattern, sorted by path.
func findReports(root, pattern string, recursive bool) ([]string, error) {
	var paths []string

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ok, _ := filepath.Match(pattern, e.Name()); ok {
				paths = append(paths, filepath.Join(root, e.Name()))
			}
		}
		sort.Strings(paths)
		return paths, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subdirectories are skipped, the root is not
			if path != root && d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// loadReport reads, renders and scores one file.
func loadReport(root, path string, render func([]byte) string) (*model.ReportItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, errors.New("not a regular file")
	}

	data, err := os.ReadFile(path) //nolint:gosec // paths come from the directory scan
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "")

	html := render([]byte(text))
	mtime := info.ModTime().Local()

	return &model.ReportItem{
		Filename:  displayName(root, path),
		Title:     ExtractTitle(text, path),
		HTML:      html,
		Text:      text,
		ScoreCard: scoring.Compute(text),
		Mtime:     mtime.Format(MtimeLayout),
		MtimeUnix: mtime.Unix(),
		TOC:       ExtractTOC(html),
	}, nil
}

// ExtractTitle returns the first "# " heading of text, or the file stem of path.
func ExtractTitle(text, path string) string {
	if m := titlePattern.FindStringSubmatch(text); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// displayName is the path relative to root with forward slashes.
// For a flat scan it is the base name.
func displayName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
