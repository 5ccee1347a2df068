// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value. Environment variables override files.
//
// Supported key files: anthropic-api-key, exa-api-key, firecrawl-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store holds loaded secrets and resolves lookups against the environment.
type Store struct {
	values map[string]string
}

// Load reads all files in dir and returns a Store mapping filename to
// trimmed contents. A missing directory or missing files are not errors.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (*Store, error) {
	values := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{values: values}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			values[name] = value
		}
	}

	return &Store{values: values}, nil
}

// Get resolves a secret by key name. The environment variable form of the
// key (upper-cased, hyphens to underscores: "exa-api-key" → "EXA_API_KEY")
// takes precedence over the file value. Returns "" when the key is unset.
func (s *Store) Get(key string) string {
	if v := os.Getenv(EnvName(key)); v != "" {
		return v
	}
	if s == nil {
		return ""
	}
	return s.values[key]
}

// Keys returns the names of the secrets loaded from disk.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// EnvName converts a secret key name to its environment variable form.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
