// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides text-completion clients for the hosted model APIs
// learnsite can synthesize content with: Azure OpenAI, Anthropic, and Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/learnsite/internal/secrets"
	"github.com/pdiddy/learnsite/pkg/types"
)

// Client sends one prompt and returns the model's raw text reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrMissingCredentials is returned when a provider has no API key configured.
var ErrMissingCredentials = errors.New("missing API credentials")

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.3
	defaultTimeout     = 2 * time.Minute
)

// withDefaults fills unset generation parameters.
func withDefaults(cfg types.AIConfig) types.AIConfig {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// New builds the client selected by cfg.Provider. API keys not set in cfg
// are resolved from the secrets store.
func New(ctx context.Context, cfg types.AIConfig, s *secrets.Store) (Client, error) {
	cfg = withDefaults(cfg)
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case types.ProviderAzure, "":
		cfg.APIKey = s.Or(secrets.AzureOpenAIKey, cfg.APIKey)
		return NewAzure(cfg, httpClient)
	case types.ProviderAnthropic:
		cfg.APIKey = s.Or(secrets.AnthropicKey, cfg.APIKey)
		return NewClaude(cfg, httpClient)
	case types.ProviderGemini:
		cfg.APIKey = s.Or(secrets.GeminiKey, cfg.APIKey)
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: use azure, anthropic, or gemini", cfg.Provider)
	}
}

// StatusError reports a non-200 reply from a model API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Code, e.Body)
}
