// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Recognised key files: openai_api_key, google_api_key, googleai_api_key,
// gemini_api_key. Environment variables take precedence over these files.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store maps secret names to values.
type Store map[string]string

// Load reads all files in dir and returns their trimmed contents by name.
// An empty dir or a missing directory is not an error; Load returns an
// empty Store. Unreadable files are logged and skipped.
func Load(dir string) (Store, error) {
	if dir == "" {
		return Store{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Store)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // user-chosen secrets dir
		if err != nil {
			slog.Default().Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the first non-empty value among names. Each name is tried
// as an environment variable (upper case) and then as a file in s
// (lower case).
func (s Store) Lookup(names ...string) (string, bool) {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(strings.ToUpper(name))); v != "" {
			return v, true
		}
	}
	for _, name := range names {
		if v := s[strings.ToLower(name)]; v != "" {
			return v, true
		}
	}
	return "", false
}

// Values returns all secret values, for registering with the log redactor.
func (s Store) Values() []string {
	values := make([]string, 0, len(s))
	for _, v := range s {
		values = append(values, v)
	}
	return values
}
