// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/learnsite/internal/httputil"
	"github.com/pdiddy/learnsite/pkg/types"
)

const (
	defaultAzureDeployment = "gpt-4o"
	defaultAzureAPIVersion = "2023-12-01-preview"
)

// AzureClient calls an Azure OpenAI chat-completions deployment.
type AzureClient struct {
	url         string
	apiKey      string
	maxTokens   int
	temperature float64
	maxRetries  int
	client      *http.Client
}

// NewAzure builds a client for the deployment cfg.Model (default gpt-4o) on
// the resource at cfg.Endpoint.
func NewAzure(cfg types.AIConfig, client *http.Client) (*AzureClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure: %w: set AZURE_OPENAI_API_KEY or .secrets/azure-openai-api-key", ErrMissingCredentials)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure: endpoint is required (llm.endpoint or AZURE_OPENAI_ENDPOINT)")
	}
	deployment := cfg.Model
	if deployment == "" {
		deployment = defaultAzureDeployment
	}
	version := cfg.APIVersion
	if version == "" {
		version = defaultAzureAPIVersion
	}
	if client == nil {
		client = http.DefaultClient
	}

	base := strings.TrimRight(cfg.Endpoint, "/")
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		base, url.PathEscape(deployment), url.QueryEscape(version))

	return &AzureClient{
		url:         endpoint,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		client:      client,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message.
func (a *AzureClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.apiKey)

	resp, err := httputil.DoWithRetry(ctx, a.client, req, a.maxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Azure OpenAI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Provider: "Azure OpenAI", Code: resp.StatusCode, Body: string(b)}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding Azure OpenAI response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("Azure OpenAI returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
