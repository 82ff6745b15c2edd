package dashboard

import "errors"

var (
	// ErrNoReports is returned by Build when no file matches the pattern.
	ErrNoReports = errors.New("no markdown reports found")

	// ErrInvalidPattern is returned when the glob pattern is malformed.
	ErrInvalidPattern = errors.New("invalid file pattern")

	// ErrInvalidConcurrency is returned when the worker count is negative.
	ErrInvalidConcurrency = errors.New("concurrency must not be negative")
)
