package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrUnknownProvider is returned when the provider is not "openai" or "google".
	ErrUnknownProvider = errors.New("unknown provider: must be \"openai\" or \"google\"")

	// ErrInvalidHours is returned when the Sysmon look-back window is not positive.
	ErrInvalidHours = errors.New("invalid hours: must be positive")

	// ErrInvalidMaxEvents is returned when the Sysmon event cap is negative.
	// Use 0 to skip Sysmon events entirely.
	ErrInvalidMaxEvents = errors.New("invalid max sysmon events: must be non-negative")

	// ErrInvalidProcessLimit is returned when the process limit is not positive.
	ErrInvalidProcessLimit = errors.New("invalid process limit: must be positive")

	// ErrInvalidTimeout is returned when the AI request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidTemperature is returned when the temperature is outside [0, 2].
	ErrInvalidTemperature = errors.New("invalid temperature: must be between 0 and 2")

	// ErrInvalidMaxOutputTokens is returned when the token cap is negative.
	ErrInvalidMaxOutputTokens = errors.New("invalid max output tokens: must be non-negative")

	// ErrInvalidSampleInterval is returned when the CPU sample interval is negative.
	ErrInvalidSampleInterval = errors.New("invalid cpu sample interval: must be non-negative")

	// ErrEmptyOutputDir is returned when no output directory is configured.
	ErrEmptyOutputDir = errors.New("output directory must not be empty")
)
