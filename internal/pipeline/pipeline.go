// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline turns a directory of PDF chapters into a static study
// site. Documents are processed in parallel by a bounded pool of workers;
// each finished page is merged into the aggregate index, which is rewritten
// after every completion so it is always a valid page. When the pool
// drains, the site is published once if anything was generated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/learnsite/internal/ledger"
	"github.com/pdiddy/learnsite/internal/metrics"
	"github.com/pdiddy/learnsite/pkg/types"
)

// Sentinel errors, inspected with errors.Is.
var (
	ErrNoInputs        = errors.New("no PDF files found")
	ErrNoContent       = errors.New("no content generated")
	ErrPublishDisabled = errors.New("publishing disabled")
	ErrExtraction      = errors.New("extraction failed")
	ErrSynthesis       = errors.New("synthesis failed")
	ErrRender          = errors.New("render failed")
	ErrPublish         = errors.New("publish failed")
)

// Extractor reads a document's text and topic outline.
type Extractor interface {
	Extract(ctx context.Context, path string) (types.Extraction, error)
}

// Synthesizer generates study items for one topic.
type Synthesizer interface {
	Concepts(ctx context.Context, topic, text string, n int) ([]types.Concept, error)
	MCQs(ctx context.Context, topic, text string, n int) ([]types.MCQ, error)
	Subjective(ctx context.Context, topic, text string, n int) ([]types.SubjectiveItem, error)
}

// Renderer produces the HTML for pages and the index.
type Renderer interface {
	RenderPage(b *types.ContentBundle) ([]byte, error)
	RenderIndex(v types.IndexView) ([]byte, error)
}

// Publisher deploys the output directory.
type Publisher interface {
	Publish(ctx context.Context, siteDir string) error
}

// RunLedger records run history.
type RunLedger interface {
	StartRun(ctx context.Context, id string, total int) error
	RecordJob(ctx context.Context, runID string, o ledger.JobOutcome) error
	FinishRun(ctx context.Context, id string, s ledger.RunSummary) error
}

// Deps are the pipeline's collaborators. Extractor, Synthesizer and
// Renderer are required; the rest are optional.
type Deps struct {
	Extractor   Extractor
	Synthesizer Synthesizer
	Renderer    Renderer

	// Publisher is invoked once per run. Nil disables publishing.
	Publisher Publisher

	// Ledger, when set, records the run and every job outcome.
	Ledger RunLedger

	// Recorder receives job metrics. Nil means metrics.NoopRecorder.
	Recorder metrics.Recorder

	// Status receives one human-readable line per job event. Nil discards.
	Status io.Writer
}

// JobFailure is a document that could not be processed.
type JobFailure struct {
	Input types.InputDocument
	Err   error
}

// RunReport summarizes a RunAll call.
type RunReport struct {
	RunID string
	Total int

	// Results are the successful jobs in completion order.
	Results  []types.JobResult
	Failures []JobFailure

	Published  bool
	PublishErr error

	// SkipReason explains why publishing did not happen: ErrNoInputs,
	// ErrNoContent, or ErrPublishDisabled.
	SkipReason error
}

const (
	defaultPDFsDir   = "pdfs"
	defaultOutputDir = "site"
	defaultSiteTitle = "Interactive Learning System"
)

// Pipeline processes input documents into pages and an index.
type Pipeline struct {
	cfg    types.PipelineConfig
	deps   Deps
	rec    metrics.Recorder
	status io.Writer
	now    func() time.Time
	newID  func() string
}

// New returns a Pipeline for cfg, filling unset directories, title, and
// minimum counts with defaults.
func New(cfg types.PipelineConfig, deps Deps) (*Pipeline, error) {
	if deps.Extractor == nil || deps.Synthesizer == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("pipeline requires an extractor, a synthesizer, and a renderer")
	}
	cfg = withDefaults(cfg)
	for _, m := range []types.MinCounts{cfg.TopicMinimums, cfg.SubtopicMinimums} {
		if m.Concepts < 0 || m.MCQs < 0 || m.Subjective < 0 {
			return nil, fmt.Errorf("minimum counts must not be negative: %+v", m)
		}
	}

	p := &Pipeline{
		cfg:    cfg,
		deps:   deps,
		rec:    deps.Recorder,
		status: io.Discard,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	if p.rec == nil {
		p.rec = metrics.NoopRecorder{}
	}
	if deps.Status != nil {
		p.status = &syncWriter{w: deps.Status}
	}
	return p, nil
}

func withDefaults(cfg types.PipelineConfig) types.PipelineConfig {
	if cfg.PDFsDir == "" {
		cfg.PDFsDir = defaultPDFsDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = defaultSiteTitle
	}
	return cfg
}

// Config returns the effective configuration.
func (p *Pipeline) Config() types.PipelineConfig {
	return p.cfg
}

// Discover lists the PDF files directly inside dir, sorted by name. A
// missing directory is created and yields no inputs.
func Discover(dir string) ([]types.InputDocument, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating input directory %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	var docs []types.InputDocument
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		docs = append(docs, types.InputDocument{Path: filepath.Join(dir, e.Name()), Name: e.Name()})
	}
	return docs, nil
}

// RunAll processes inputs with at most Workers documents in flight. A
// failed document is logged and counted without affecting the others.
// The returned error covers only problems that stop the run before any
// job starts; per-job and publish failures are in the report.
func (p *Pipeline) RunAll(ctx context.Context, inputs []types.InputDocument) (*RunReport, error) {
	if p.cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", p.cfg.Workers)
	}

	report := &RunReport{RunID: p.newID(), Total: len(inputs)}
	if len(inputs) == 0 {
		report.SkipReason = ErrNoInputs
		fmt.Fprintf(p.status, "No PDF files found in %s\n", p.cfg.PDFsDir)
		return report, nil
	}

	idx := newIndexState(filepath.Join(p.cfg.OutputDir, IndexFile), p.cfg.SiteTitle, p.deps.Renderer.RenderIndex, p.now)
	if err := idx.start(len(inputs)); err != nil {
		return nil, fmt.Errorf("writing placeholder index: %w", err)
	}

	logger := slog.With("run", report.RunID)
	logger.InfoContext(ctx, "run started", "documents", len(inputs), "workers", p.cfg.Workers)
	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.StartRun(ctx, report.RunID, len(inputs)); err != nil {
			logger.WarnContext(ctx, "recording run start", "error", err)
		}
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for _, in := range assignOutputPaths(inputs) {
		g.Go(func() error {
			p.runJob(ctx, report.RunID, in, idx)
			return nil
		})
	}
	_ = g.Wait()

	report.Results, report.Failures = idx.outcomes()
	fmt.Fprintf(p.status, "\nRun summary: %d completed, %d failed (total: %d)\n",
		len(report.Results), len(report.Failures), report.Total)

	p.publish(ctx, report)

	if p.deps.Ledger != nil {
		summary := ledger.RunSummary{
			Completed: len(report.Results),
			Failed:    len(report.Failures),
			Published: report.Published,
		}
		if report.PublishErr != nil {
			summary.PublishError = report.PublishErr.Error()
		}
		if err := p.deps.Ledger.FinishRun(ctx, report.RunID, summary); err != nil {
			logger.WarnContext(ctx, "recording run finish", "error", err)
		}
	}
	logger.InfoContext(ctx, "run finished", "completed", len(report.Results), "failed", len(report.Failures), "published", report.Published)
	return report, nil
}

// runJob processes one document and merges its outcome into the index.
// Ledger writes happen after the index lock is released.
func (p *Pipeline) runJob(ctx context.Context, runID string, in types.InputDocument, idx *indexState) {
	start := p.now()
	p.rec.JobStarted()
	fmt.Fprintf(p.status, "processing: %s\n", in.Name)

	jctx, cancel := p.jobContext(ctx)
	res, err := p.safeProcess(jctx, in)
	cancel()
	elapsed := p.now().Sub(start)

	outcome := ledger.JobOutcome{Source: in.Name, Duration: elapsed}
	if err != nil {
		p.rec.JobFinished(metrics.ResultFailed, elapsed)
		fmt.Fprintf(p.status, "failed:  %s (%v)\n", in.Name, err)
		slog.ErrorContext(ctx, "document failed", "run", runID, "source", in.Name, "error", err)
		if ierr := idx.fail(JobFailure{Input: in, Err: err}); ierr != nil {
			slog.WarnContext(ctx, "updating index", "run", runID, "error", ierr)
		}
		outcome.Status = ledger.StatusFailed
		outcome.Error = err.Error()
	} else {
		p.rec.JobFinished(metrics.ResultSuccess, elapsed)
		if ierr := idx.complete(res); ierr != nil {
			slog.WarnContext(ctx, "updating index", "run", runID, "error", ierr)
		}
		fmt.Fprintf(p.status, "completed: %s -> %s (%d concepts, %d mcqs, %d subjective)\n",
			in.Name, res.Filename, res.Stats.TotalConcepts, res.Stats.TotalMCQs, res.Stats.TotalSubjective)
		outcome.Status = ledger.StatusCompleted
		outcome.Page = res.Filename
		outcome.Stats = res.Stats
		outcome.FinishedAt = res.CompletedAt
	}

	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.RecordJob(ctx, runID, outcome); err != nil {
			slog.WarnContext(ctx, "recording job", "run", runID, "source", in.Name, "error", err)
		}
	}
}

func (p *Pipeline) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.JobTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.JobTimeout)
	}
	return context.WithCancel(ctx)
}

// safeProcess runs ProcessOne, turning a panic into a job error.
func (p *Pipeline) safeProcess(ctx context.Context, in types.InputDocument) (res types.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing %s panicked: %v", in.Name, r)
		}
	}()
	return p.ProcessOne(ctx, in)
}

// publish deploys the output directory once, when at least one document
// produced a page. A publish error never touches the generated output.
func (p *Pipeline) publish(ctx context.Context, report *RunReport) {
	switch {
	case len(report.Results) == 0:
		report.SkipReason = ErrNoContent
	case p.deps.Publisher == nil:
		report.SkipReason = ErrPublishDisabled
	}
	if report.SkipReason != nil {
		p.rec.IncPublish(metrics.ResultSkipped)
		fmt.Fprintf(p.status, "publish skipped: %v\n", report.SkipReason)
		return
	}

	if err := p.deps.Publisher.Publish(ctx, p.cfg.OutputDir); err != nil {
		report.PublishErr = fmt.Errorf("%w: %w", ErrPublish, err)
		p.rec.IncPublish(metrics.ResultFailed)
		fmt.Fprintf(p.status, "publish failed: %v\n", err)
		slog.ErrorContext(ctx, "publish failed", "run", report.RunID, "error", err)
		return
	}
	report.Published = true
	p.rec.IncPublish(metrics.ResultSuccess)
	fmt.Fprintln(p.status, "published site")
}

// syncWriter serializes status lines written by concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}
