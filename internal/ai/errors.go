package ai

import "errors"

var (
	// ErrUnknownProvider is returned for a provider name other than openai or google.
	ErrUnknownProvider = errors.New("unknown AI provider")

	// ErrMissingAPIKey is returned when no API key is found for the provider.
	ErrMissingAPIKey = errors.New("API key not set")

	// ErrAPIStatus is returned when the provider answers with a non-2xx status.
	ErrAPIStatus = errors.New("AI provider returned an error status")
)
