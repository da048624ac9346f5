// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/pdiddy/learnsite/pkg/types"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient calls the Gemini generative model API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGemini opens a Gemini client. Call Close when done.
func NewGemini(ctx context.Context, cfg types.AIConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: set GEMINI_API_KEY or .secrets/gemini-api-key", ErrMissingCredentials)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	return &GeminiClient{client: client, model: model, name: name}, nil
}

// Complete generates a reply to prompt and concatenates its text parts.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	slog.DebugContext(ctx, "generating content", "model", g.name, "length", len(prompt))
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("calling Gemini: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("no text content in Gemini response")
	}
	return text, nil
}

// Close releases the underlying gRPC connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// responseText joins the text parts of the first candidate that has content.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
