// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/learnsite/internal/ledger"
	"github.com/pdiddy/learnsite/internal/metrics"
	"github.com/pdiddy/learnsite/internal/pipeline"
	"github.com/pdiddy/learnsite/internal/publish"
	"github.com/pdiddy/learnsite/internal/render"
	"github.com/pdiddy/learnsite/internal/secrets"
	"github.com/pdiddy/learnsite/internal/textract"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every PDF in the input directory and publish the site",
	Long: `Run discovers the PDF chapters in the input directory and processes them
in parallel: text and topic extraction, content generation per topic, and
page rendering. The index page in the output directory is rewritten after
every chapter. When all chapters are done the site is published once,
provided at least one page was generated.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("workers", defaultWorkers, "maximum chapters processed concurrently")
	runCmd.Flags().String("pdfs-dir", "pdfs", "directory scanned for input PDFs")
	runCmd.Flags().String("output-dir", "site", "directory receiving pages and index.html")
	runCmd.Flags().String("bundles-dir", "", "directory receiving a YAML copy of each chapter's content")
	runCmd.Flags().Duration("job-timeout", defaultJobLimit, "time limit for one chapter (0 disables)")
	runCmd.Flags().String("provider", "azure", "LLM provider: azure, anthropic, or gemini")
	runCmd.Flags().String("model", "", "model or deployment name")
	runCmd.Flags().String("backend", "native", "PDF text backend: native or pdftotext")
	runCmd.Flags().Bool("no-publish", false, "skip publishing after the run")
	runCmd.Flags().Bool("prompt-token", false, "prompt for a push token when none is configured")
	runCmd.Flags().String("ledger", defaultLedger, "run history database (empty disables)")
	runCmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, map[string]string{
		"workers":          keyWorkers,
		"pdfs-dir":         keyPDFsDir,
		"output-dir":       keyOutputDir,
		"bundles-dir":      keyBundlesDir,
		"job-timeout":      keyJobTimeout,
		"provider":         keyProvider,
		"model":            keyModel,
		"backend":          keyBackend,
		"ledger":           keyLedgerPath,
		"metrics-textfile": keyMetricsFile,
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := pipelineConfig(v)
	inputs, err := pipeline.Discover(cfg.PDFsDir)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No PDF files found in %s\n", cfg.PDFsDir)
		return nil
	}

	reader, err := newReader(v.GetString(keyBackend))
	if err != nil {
		return err
	}
	syn, release, err := newSynthesizer(ctx, v)
	if err != nil {
		return err
	}
	defer release()

	renderer, err := render.New()
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Extractor:   textract.New(reader, syn),
		Synthesizer: syn,
		Renderer:    renderer,
		Status:      cmd.OutOrStdout(),
	}

	noPublish, _ := cmd.Flags().GetBool("no-publish")
	pubCfg := publishConfig(v)
	switch {
	case !pubCfg.Enabled || noPublish:
	case pubCfg.RemoteURL == "":
		slog.Warn("publishing enabled but publish.remote is not set; the site will not be pushed")
	default:
		prompt, _ := cmd.Flags().GetBool("prompt-token")
		pubCfg.Token = resolveToken(loadedSecrets, prompt, cmd.InOrStdin(), cmd.ErrOrStderr())
		deps.Publisher = publish.NewGitPublisher(pubCfg)
	}

	if path := v.GetString(keyLedgerPath); path != "" {
		l, err := ledger.Open(path)
		if err != nil {
			return err
		}
		defer l.Close()
		deps.Ledger = l
	}

	var recorder *metrics.PrometheusRecorder
	if v.GetString(keyMetricsFile) != "" {
		recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
		deps.Recorder = recorder
	}

	p, err := pipeline.New(cfg, deps)
	if err != nil {
		return err
	}
	report, err := p.RunAll(ctx, inputs)
	if err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(v.GetString(keyMetricsFile)); err != nil {
			slog.Warn("writing metrics textfile", "error", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n", report.RunID)
	if report.PublishErr != nil {
		return report.PublishErr
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d chapter(s) failed processing", len(report.Failures))
	}
	return nil
}

// resolveToken returns the push token from secrets or the environment, and
// otherwise asks for one on in when prompt is set.
func resolveToken(s *secrets.Store, prompt bool, in io.Reader, out io.Writer) string {
	if token := s.Get(secrets.GitHubToken); token != "" || !prompt {
		return token
	}
	fmt.Fprint(out, "GitHub token (leave empty to skip publishing): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
