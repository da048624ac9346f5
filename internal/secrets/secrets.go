// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves API keys and tokens from a directory of plain-text
// files, falling back to environment variables. Each file in the directory is
// one secret: the filename is the key and the trimmed contents are the value.
//
// Known keys: azure-openai-api-key, anthropic-api-key, gemini-api-key,
// github-token.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key names understood by learnsite, with the environment variable each one
// falls back to.
const (
	AzureOpenAIKey = "azure-openai-api-key"
	AnthropicKey   = "anthropic-api-key"
	GeminiKey      = "gemini-api-key"
	GitHubToken    = "github-token"
)

var envFallback = map[string]string{
	AzureOpenAIKey: "AZURE_OPENAI_API_KEY",
	AnthropicKey:   "ANTHROPIC_API_KEY",
	GeminiKey:      "GEMINI_API_KEY",
	GitHubToken:    "GITHUB_TOKEN",
}

// Store is a resolved set of secrets. The zero value is empty and usable.
type Store struct {
	values map[string]string
	getenv func(string) string
}

// Load reads every regular, non-dot file in dir. A missing directory is not
// an error and yields an empty Store. Unreadable files are logged and skipped.
func Load(dir string) (*Store, error) {
	s := &Store{values: map[string]string{}, getenv: os.Getenv}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "key", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s.values[name] = value
		}
	}

	return s, nil
}

// Get returns the secret for key. File values win over the environment.
func (s *Store) Get(key string) string {
	if s != nil {
		if v, ok := s.values[key]; ok {
			return v
		}
	}
	env, ok := envFallback[key]
	if !ok {
		return ""
	}
	getenv := os.Getenv
	if s != nil && s.getenv != nil {
		getenv = s.getenv
	}
	return strings.TrimSpace(getenv(env))
}

// Or returns explicit when it is non-empty and the resolved secret otherwise.
func (s *Store) Or(key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return s.Get(key)
}

// Keys lists the keys loaded from files, sorted. Values are never exposed.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
