// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/learnsite/internal/llm"
	"github.com/pdiddy/learnsite/internal/synth"
	"github.com/pdiddy/learnsite/internal/textract"
	"github.com/pdiddy/learnsite/pkg/types"
)

// Configuration keys. Nested keys map to LEARNSITE_<SECTION>_<NAME>.
const (
	keyWorkers      = "workers"
	keyPDFsDir      = "pdfs_dir"
	keyOutputDir    = "output_dir"
	keyBundlesDir   = "bundles_dir"
	keyJobTimeout   = "job_timeout"
	keySiteTitle    = "site_title"
	keyTitlePrefix  = "title_prefix"
	keyBackend      = "extract.backend"
	keyProvider     = "llm.provider"
	keyModel        = "llm.model"
	keyEndpoint     = "llm.endpoint"
	keyAPIVersion   = "llm.api_version"
	keyMaxRetries   = "llm.max_retries"
	keyLLMTimeout   = "llm.timeout"
	keyMaxTokens    = "llm.max_tokens"
	keyTemperature  = "llm.temperature"
	keyPublish      = "publish.enabled"
	keyRemote       = "publish.remote"
	keyBranch       = "publish.branch"
	keyAuthorName   = "publish.author_name"
	keyAuthorEmail  = "publish.author_email"
	keyReadme       = "publish.readme"
	keyLedgerPath   = "ledger.path"
	keyMetricsFile  = "metrics.textfile"
	keyMinTopic     = "min.topic"
	keyMinSubtopic  = "min.subtopic"
	defaultWorkers  = 3
	defaultLedger   = ".learnsite/history.db"
	defaultJobLimit = 10 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyWorkers, defaultWorkers)
	v.SetDefault(keyPDFsDir, "pdfs")
	v.SetDefault(keyOutputDir, "site")
	v.SetDefault(keyJobTimeout, defaultJobLimit)
	v.SetDefault(keySiteTitle, "Interactive Learning System")
	v.SetDefault(keyTitlePrefix, "Class 9")
	v.SetDefault(keyBackend, string(types.BackendNative))
	v.SetDefault(keyProvider, string(types.ProviderAzure))
	_ = v.BindEnv(keyEndpoint, "LEARNSITE_LLM_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
	v.SetDefault(keyMaxRetries, 3)
	v.SetDefault(keyLLMTimeout, 2*time.Minute)
	v.SetDefault(keyMaxTokens, 2000)
	v.SetDefault(keyTemperature, 0.3)
	v.SetDefault(keyPublish, true)
	v.SetDefault(keyBranch, "main")
	v.SetDefault(keyReadme, "README.md")
	v.SetDefault(keyLedgerPath, defaultLedger)

	v.SetDefault(keyMinTopic+".concepts", types.DefaultTopicMinimums.Concepts)
	v.SetDefault(keyMinTopic+".mcqs", types.DefaultTopicMinimums.MCQs)
	v.SetDefault(keyMinTopic+".subjective", types.DefaultTopicMinimums.Subjective)
	v.SetDefault(keyMinSubtopic+".concepts", types.DefaultSubtopicMinimums.Concepts)
	v.SetDefault(keyMinSubtopic+".mcqs", types.DefaultSubtopicMinimums.MCQs)
	v.SetDefault(keyMinSubtopic+".subjective", types.DefaultSubtopicMinimums.Subjective)
}

// bindFlags binds the named flags of cmd to viper keys. Binding happens when
// a command runs so that commands sharing a key do not override each other.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func minCounts(v *viper.Viper, prefix string) types.MinCounts {
	return types.MinCounts{
		Concepts:   v.GetInt(prefix + ".concepts"),
		MCQs:       v.GetInt(prefix + ".mcqs"),
		Subjective: v.GetInt(prefix + ".subjective"),
	}
}

func pipelineConfig(v *viper.Viper) types.PipelineConfig {
	return types.PipelineConfig{
		Workers:          v.GetInt(keyWorkers),
		PDFsDir:          v.GetString(keyPDFsDir),
		OutputDir:        v.GetString(keyOutputDir),
		BundlesDir:       v.GetString(keyBundlesDir),
		JobTimeout:       v.GetDuration(keyJobTimeout),
		TopicMinimums:    minCounts(v, keyMinTopic),
		SubtopicMinimums: minCounts(v, keyMinSubtopic),
		SiteTitle:        v.GetString(keySiteTitle),
		TitlePrefix:      v.GetString(keyTitlePrefix),
	}
}

func aiConfig(v *viper.Viper) types.AIConfig {
	return types.AIConfig{
		Provider:    types.LLMProvider(v.GetString(keyProvider)),
		Model:       v.GetString(keyModel),
		Endpoint:    v.GetString(keyEndpoint),
		APIVersion:  v.GetString(keyAPIVersion),
		MaxRetries:  v.GetInt(keyMaxRetries),
		Timeout:     v.GetDuration(keyLLMTimeout),
		MaxTokens:   v.GetInt(keyMaxTokens),
		Temperature: v.GetFloat64(keyTemperature),
	}
}

func publishConfig(v *viper.Viper) types.PublishConfig {
	return types.PublishConfig{
		Enabled:     v.GetBool(keyPublish),
		RemoteURL:   v.GetString(keyRemote),
		Branch:      v.GetString(keyBranch),
		AuthorName:  v.GetString(keyAuthorName),
		AuthorEmail: v.GetString(keyAuthorEmail),
		ReadmePath:  v.GetString(keyReadme),
	}
}

// newReader returns the text reader for the configured backend.
func newReader(backend string) (textract.Reader, error) {
	switch types.ExtractBackend(backend) {
	case types.BackendNative, "":
		return textract.PDFReader{}, nil
	case types.BackendPdftotext:
		r := textract.NewPdftotextReader()
		if !r.Available() {
			return nil, fmt.Errorf("extract backend pdftotext selected but pdftotext is not installed")
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown extract backend %q: use native or pdftotext", backend)
	}
}

// newSynthesizer builds the LLM client and synthesizer from configuration.
// The returned func releases the client.
func newSynthesizer(ctx context.Context, v *viper.Viper) (*synth.Synthesizer, func(), error) {
	cfg := aiConfig(v)
	client, err := llm.New(ctx, cfg, loadedSecrets)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}
	release := func() {}
	if c, ok := client.(io.Closer); ok {
		release = func() { _ = c.Close() }
	}
	return synth.New(client, cfg.MaxRetries), release, nil
}
