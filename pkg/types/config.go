// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// LLMProvider identifies the hosted model API used for synthesis.
type LLMProvider string

const (
	ProviderAzure     LLMProvider = "azure"
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderGemini    LLMProvider = "gemini"
)

// AIConfig holds settings for the stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend: azure, anthropic, or gemini.
	Provider LLMProvider `json:"provider" yaml:"provider"`

	// Model is the model or deployment identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// Endpoint is the resource base URL. Required for azure.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// APIVersion is the Azure OpenAI api-version query parameter.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds a single HTTP request to the API.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxTokens caps the completion length (default 2000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// ExtractBackend identifies the PDF text extraction tool.
type ExtractBackend string

const (
	BackendNative    ExtractBackend = "native"
	BackendPdftotext ExtractBackend = "pdftotext"
)

// MinCounts is the per-topic minimum-count contract for one topic kind.
type MinCounts struct {
	Concepts   int `json:"concepts" yaml:"concepts"`
	MCQs       int `json:"mcqs" yaml:"mcqs"`
	Subjective int `json:"subjective" yaml:"subjective"`
}

// DefaultTopicMinimums applies to main topics without subtopics.
var DefaultTopicMinimums = MinCounts{Concepts: 1, MCQs: 3, Subjective: 3}

// DefaultSubtopicMinimums applies to each subtopic.
var DefaultSubtopicMinimums = MinCounts{Concepts: 1, MCQs: 2, Subjective: 2}

// PipelineConfig holds the settings the parallel pipeline honors.
type PipelineConfig struct {
	// Workers bounds the number of documents processed concurrently.
	Workers int `json:"workers" yaml:"workers"`

	// PDFsDir is the directory scanned (non-recursively) for inputs.
	PDFsDir string `json:"pdfs_dir" yaml:"pdfs_dir"`

	// OutputDir receives the rendered pages and index.html.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// BundlesDir, when set, receives a YAML copy of every ContentBundle.
	BundlesDir string `json:"bundles_dir,omitempty" yaml:"bundles_dir,omitempty"`

	// JobTimeout bounds a single document's processing. Zero disables it.
	JobTimeout time.Duration `json:"job_timeout" yaml:"job_timeout"`

	// TopicMinimums and SubtopicMinimums are the per-topic count contracts.
	// They are used as given: a zero count generates nothing of that kind.
	// DefaultTopicMinimums and DefaultSubtopicMinimums hold the defaults.
	TopicMinimums    MinCounts `json:"topic_minimums" yaml:"topic_minimums"`
	SubtopicMinimums MinCounts `json:"subtopic_minimums" yaml:"subtopic_minimums"`

	// SiteTitle is shown on the index page.
	SiteTitle string `json:"site_title" yaml:"site_title"`

	// TitlePrefix is stripped from filenames when deriving page titles
	// (e.g. "Class 9").
	TitlePrefix string `json:"title_prefix" yaml:"title_prefix"`
}

// PublishConfig holds settings for pushing the site to a pages branch.
type PublishConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	RemoteURL   string `json:"remote" yaml:"remote"`
	Branch      string `json:"branch" yaml:"branch"`
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	AuthorName  string `json:"author_name" yaml:"author_name"`
	AuthorEmail string `json:"author_email" yaml:"author_email"`

	// ReadmePath is copied into the published tree when it exists.
	ReadmePath string `json:"readme_path" yaml:"readme_path"`
}
