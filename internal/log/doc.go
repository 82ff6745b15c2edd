// Package log provides secure logging built on the standard slog package.
//
// SecureHandler wraps any slog.Handler and masks:
//   - attributes whose key names a credential (api_key, authorization, token, ...)
//   - values shaped like OpenAI keys, Google API keys, JWTs or bearer tokens
//   - secrets embedded in URLs and error messages (?key=..., Bearer ...)
//   - literal values registered with WithSecrets, such as the loaded API key
//
// Even in verbose mode, API keys never reach the log output.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose, log.WithSecrets(apiKey))
//	slog.SetDefault(logger)
package log
