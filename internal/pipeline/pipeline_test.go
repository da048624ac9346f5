// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/learnsite/internal/ledger"
	"github.com/pdiddy/learnsite/internal/render"
	"github.com/pdiddy/learnsite/pkg/types"
)

// --- fakes ---

type fakeExtractor struct {
	delay    time.Duration
	outline  types.TopicOutline
	fail     map[string]error
	panics   map[string]bool
	block    map[string]bool
	empty    map[string]bool
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (types.Extraction, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	name := filepath.Base(path)
	if f.block[name] {
		<-ctx.Done()
		return types.Extraction{}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics[name] {
		panic("corrupt object stream")
	}
	if err := f.fail[name]; err != nil {
		return types.Extraction{}, err
	}
	if f.empty[name] {
		return types.Extraction{Text: "   ", Pages: 1}, nil
	}
	return types.Extraction{Text: "Chapter text about " + name, Outline: f.outline, Pages: 3}, nil
}

// fakeSynth returns n distinct items per call unless shaped otherwise.
type fakeSynth struct {
	mu      sync.Mutex
	prompts []string
	fail    map[string]error
	// short is subtracted from every requested count.
	short int
	// dup repeats the first item with different case and spacing.
	dup bool
	// reply overrides the MCQ questions returned for every call.
	reply []string
}

func (f *fakeSynth) record(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, topic)
	return f.fail[topic]
}

func (f *fakeSynth) count(n int) int {
	if n -= f.short; n < 0 {
		return 0
	}
	return n
}

func (f *fakeSynth) Concepts(_ context.Context, topic, _ string, n int) ([]types.Concept, error) {
	if err := f.record(topic); err != nil {
		return nil, err
	}
	var out []types.Concept
	for i := 1; i <= f.count(n); i++ {
		out = append(out, types.Concept{Title: fmt.Sprintf("%s concept %d", topic, i), Description: "d", Topic: topic})
	}
	if f.dup && len(out) > 0 {
		out = append(out, types.Concept{Title: "  " + strings.ToUpper(out[0].Title) + " ", Description: "dup", Topic: topic})
	}
	return out, nil
}

func (f *fakeSynth) MCQs(_ context.Context, topic, _ string, n int) ([]types.MCQ, error) {
	if err := f.record(topic); err != nil {
		return nil, err
	}
	var out []types.MCQ
	if f.reply != nil {
		for _, q := range f.reply {
			out = append(out, types.MCQ{Question: q, Options: []string{"a", "b"}, Topic: topic})
		}
		return out, nil
	}
	for i := 1; i <= f.count(n); i++ {
		out = append(out, types.MCQ{Question: fmt.Sprintf("%s mcq %d?", topic, i), Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1, Topic: topic})
	}
	if f.dup && len(out) > 0 {
		out = append(out, types.MCQ{Question: strings.ToUpper(out[0].Question), Options: []string{"a", "b"}, Topic: topic})
	}
	return out, nil
}

func (f *fakeSynth) Subjective(_ context.Context, topic, _ string, n int) ([]types.SubjectiveItem, error) {
	if err := f.record(topic); err != nil {
		return nil, err
	}
	var out []types.SubjectiveItem
	for i := 1; i <= f.count(n); i++ {
		out = append(out, types.SubjectiveItem{Question: fmt.Sprintf("%s question %d?", topic, i), Answer: "a", Marks: "3 Marks", Topic: topic})
	}
	if f.dup && len(out) > 0 {
		out = append(out, types.SubjectiveItem{Question: " " + out[0].Question, Answer: "again", Marks: "3 Marks", Topic: topic})
	}
	return out, nil
}

// spyRenderer wraps the real renderer. Every index render runs under the
// index lock, so it can safely parse the previous index write from disk.
type spyRenderer struct {
	*render.Renderer
	t         *testing.T
	indexPath string

	mu        sync.Mutex
	snapshots []indexSnapshot
}

type indexSnapshot struct {
	completed, total, cards int
}

func (s *spyRenderer) RenderIndex(v types.IndexView) ([]byte, error) {
	if data, err := os.ReadFile(s.indexPath); err == nil {
		snap := parseIndex(s.t, data)
		s.mu.Lock()
		s.snapshots = append(s.snapshots, snap)
		s.mu.Unlock()
	}
	return s.Renderer.RenderIndex(v)
}

func parseIndex(t *testing.T, data []byte) indexSnapshot {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if !assert.NoError(t, err) {
		return indexSnapshot{}
	}
	completed, err := strconv.Atoi(doc.Find("#completed").Text())
	assert.NoError(t, err, "completed counter is numeric")
	total, err := strconv.Atoi(doc.Find("#total").Text())
	assert.NoError(t, err, "total counter is numeric")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), "</html>"), "index is complete")
	return indexSnapshot{completed: completed, total: total, cards: doc.Find(".pdf-card").Length()}
}

type fakePublisher struct {
	calls atomic.Int32
	err   error
	dir   string
}

func (f *fakePublisher) Publish(_ context.Context, siteDir string) error {
	f.calls.Add(1)
	f.dir = siteDir
	return f.err
}

type fakeLedger struct {
	mu       sync.Mutex
	started  map[string]int
	jobs     []ledger.JobOutcome
	finished map[string]ledger.RunSummary
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{started: map[string]int{}, finished: map[string]ledger.RunSummary{}}
}

func (f *fakeLedger) StartRun(_ context.Context, id string, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[id] = total
	return nil
}

func (f *fakeLedger) RecordJob(_ context.Context, _ string, o ledger.JobOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, o)
	return nil
}

func (f *fakeLedger) FinishRun(_ context.Context, id string, s ledger.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[id] = s
	return nil
}

// --- helpers ---

type fixture struct {
	dir       string
	cfg       types.PipelineConfig
	extractor *fakeExtractor
	synth     *fakeSynth
	renderer  *spyRenderer
	publisher *fakePublisher
	ledger    *fakeLedger
	status    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	r, err := render.New()
	require.NoError(t, err)

	cfg := types.PipelineConfig{
		Workers:          3,
		PDFsDir:          filepath.Join(dir, "pdfs"),
		OutputDir:        filepath.Join(dir, "site"),
		TitlePrefix:      "Class 9",
		TopicMinimums:    types.DefaultTopicMinimums,
		SubtopicMinimums: types.DefaultSubtopicMinimums,
	}
	return &fixture{
		dir:       dir,
		cfg:       cfg,
		extractor: &fakeExtractor{},
		synth:     &fakeSynth{},
		renderer:  &spyRenderer{Renderer: r, t: t, indexPath: filepath.Join(cfg.OutputDir, IndexFile)},
		publisher: &fakePublisher{},
		ledger:    newFakeLedger(),
		status:    &bytes.Buffer{},
	}
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(f.cfg, Deps{
		Extractor:   f.extractor,
		Synthesizer: f.synth,
		Renderer:    f.renderer,
		Publisher:   f.publisher,
		Ledger:      f.ledger,
		Status:      f.status,
	})
	require.NoError(t, err)
	return p
}

func inputs(names ...string) []types.InputDocument {
	docs := make([]types.InputDocument, 0, len(names))
	for _, n := range names {
		docs = append(docs, types.InputDocument{Path: filepath.Join("pdfs", n), Name: n})
	}
	return docs
}

func readBundle(t *testing.T, path string) types.ContentBundle {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var b types.ContentBundle
	require.NoError(t, yaml.Unmarshal(data, &b))
	return b
}

// --- RunAll ---

func TestRunAllFiveInputsThreeWorkers(t *testing.T) {
	f := newFixture(t)
	f.extractor.delay = 30 * time.Millisecond
	f.extractor.outline = types.TopicOutline{{Name: "Cells", Subtopics: []string{"Membrane", "Nucleus"}}}
	p := f.pipeline(t)

	docs := inputs(
		"Science - Cells.pdf",
		"Science - Tissues.pdf",
		"Geography - Drainage.pdf",
		"History - The French Revolution.pdf",
		"Economics.pdf",
	)
	report, err := p.RunAll(context.Background(), docs)
	require.NoError(t, err)

	assert.LessOrEqual(t, f.extractor.peak.Load(), int32(3))
	assert.Len(t, report.Results, 5)
	assert.Empty(t, report.Failures)
	assert.True(t, report.Published)
	assert.Nil(t, report.SkipReason)
	assert.Equal(t, int32(1), f.publisher.calls.Load())
	assert.Equal(t, f.cfg.OutputDir, f.publisher.dir)

	sources := map[string]bool{}
	for _, r := range report.Results {
		assert.False(t, sources[r.SourceName], "duplicate result for %s", r.SourceName)
		sources[r.SourceName] = true
		assert.FileExists(t, filepath.Join(f.cfg.OutputDir, filepath.FromSlash(r.Filename)))
	}
	assert.Len(t, sources, 5)

	// Every write, from the placeholder on, was a complete page whose
	// counter matched its cards and never went backwards.
	require.Len(t, f.renderer.snapshots, 5, "one snapshot per write before the last")
	prev := -1
	for i, s := range f.renderer.snapshots {
		assert.Equal(t, 5, s.total, "snapshot %d", i)
		assert.Equal(t, s.completed, s.cards, "snapshot %d", i)
		assert.GreaterOrEqual(t, s.completed, prev, "snapshot %d", i)
		prev = s.completed
	}
	assert.Equal(t, 0, f.renderer.snapshots[0].completed, "placeholder index written first")

	data, err := os.ReadFile(filepath.Join(f.cfg.OutputDir, IndexFile))
	require.NoError(t, err)
	final := parseIndex(t, data)
	assert.Equal(t, indexSnapshot{completed: 5, total: 5, cards: 5}, final)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	var hrefs []string
	doc.Find(".pdf-card").Each(func(_ int, s *goquery.Selection) {
		href, err := url.PathUnescape(s.AttrOr("href", ""))
		require.NoError(t, err)
		hrefs = append(hrefs, href)
	})
	var want []string
	for _, r := range report.Results {
		want = append(want, r.Filename)
	}
	assert.Equal(t, want, hrefs, "index lists results in completion order")
	assert.Contains(t, hrefs, "Science/Cells.html")
	assert.Contains(t, hrefs, "Economics.html")
	assert.Contains(t, hrefs, "History/The French Revolution.html")

	assert.Equal(t, 5, f.ledger.started[report.RunID])
	assert.Len(t, f.ledger.jobs, 5)
	assert.Equal(t, ledger.RunSummary{Completed: 5, Published: true}, f.ledger.finished[report.RunID])

	assert.Equal(t, 5, strings.Count(f.status.String(), "processing: "))
	assert.Contains(t, f.status.String(), "Run summary: 5 completed, 0 failed (total: 5)")
}

func TestRunAllNoInputs(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	report, err := p.RunAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.ErrorIs(t, report.SkipReason, ErrNoInputs)
	assert.False(t, report.Published)
	assert.Zero(t, f.publisher.calls.Load())
	assert.NoFileExists(t, filepath.Join(f.cfg.OutputDir, IndexFile))
	assert.Empty(t, f.ledger.started)
}

func TestRunAllRequiresWorkers(t *testing.T) {
	f := newFixture(t)
	f.cfg.Workers = 0
	p := f.pipeline(t)

	_, err := p.RunAll(context.Background(), inputs("a.pdf"))
	assert.ErrorContains(t, err, "workers must be at least 1")
	assert.Zero(t, f.publisher.calls.Load())
}

func TestRunAllFailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.cfg.Workers = 2
	f.extractor.fail = map[string]error{"broken.pdf": errors.New("corrupt xref table")}
	f.extractor.panics = map[string]bool{"panics.pdf": true}
	f.extractor.empty = map[string]bool{"scanned.pdf": true}
	p := f.pipeline(t)

	report, err := p.RunAll(context.Background(), inputs("a.pdf", "broken.pdf", "b.pdf", "panics.pdf", "scanned.pdf"))
	require.NoError(t, err)

	assert.Len(t, report.Results, 2)
	require.Len(t, report.Failures, 3)
	failed := map[string]error{}
	for _, fl := range report.Failures {
		failed[fl.Input.Name] = fl.Err
	}
	assert.ErrorIs(t, failed["broken.pdf"], ErrExtraction)
	assert.ErrorContains(t, failed["broken.pdf"], "corrupt xref table")
	assert.ErrorContains(t, failed["panics.pdf"], "panicked")
	assert.ErrorIs(t, failed["scanned.pdf"], ErrExtraction)

	assert.True(t, report.Published)
	assert.Equal(t, int32(1), f.publisher.calls.Load())

	data, err := os.ReadFile(filepath.Join(f.cfg.OutputDir, IndexFile))
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "3", doc.Find("#failed").Text())
	assert.Equal(t, "All documents processed", doc.Find(".status").Text())

	statuses := map[string]string{}
	for _, j := range f.ledger.jobs {
		statuses[j.Source] = j.Status
	}
	assert.Equal(t, ledger.StatusCompleted, statuses["a.pdf"])
	assert.Equal(t, ledger.StatusFailed, statuses["broken.pdf"])
	assert.Equal(t, ledger.RunSummary{Completed: 2, Failed: 3, Published: true}, f.ledger.finished[report.RunID])
	assert.Contains(t, f.status.String(), "failed:  broken.pdf")
}

func TestRunAllNothingGenerated(t *testing.T) {
	f := newFixture(t)
	f.extractor.fail = map[string]error{"a.pdf": errors.New("x"), "b.pdf": errors.New("y")}
	p := f.pipeline(t)

	report, err := p.RunAll(context.Background(), inputs("a.pdf", "b.pdf"))
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.Len(t, report.Failures, 2)
	assert.ErrorIs(t, report.SkipReason, ErrNoContent)
	assert.Zero(t, f.publisher.calls.Load())
	assert.FileExists(t, filepath.Join(f.cfg.OutputDir, IndexFile))
}

func TestRunAllPublishError(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("authentication required")
	p := f.pipeline(t)

	report, err := p.RunAll(context.Background(), inputs("Science - Cells.pdf"))
	require.NoError(t, err)

	assert.False(t, report.Published)
	assert.ErrorIs(t, report.PublishErr, ErrPublish)
	assert.Len(t, report.Results, 1)
	assert.FileExists(t, filepath.Join(f.cfg.OutputDir, "Science", "Cells.html"))
	assert.Contains(t, f.ledger.finished[report.RunID].PublishError, "authentication required")
}

func TestRunAllPublishDisabled(t *testing.T) {
	f := newFixture(t)
	p, err := New(f.cfg, Deps{Extractor: f.extractor, Synthesizer: f.synth, Renderer: f.renderer})
	require.NoError(t, err)

	report, err := p.RunAll(context.Background(), inputs("a.pdf"))
	require.NoError(t, err)
	assert.ErrorIs(t, report.SkipReason, ErrPublishDisabled)
	assert.Len(t, report.Results, 1)
}

func TestRunAllJobTimeout(t *testing.T) {
	f := newFixture(t)
	f.cfg.JobTimeout = 50 * time.Millisecond
	f.extractor.block = map[string]bool{"slow.pdf": true}
	p := f.pipeline(t)

	report, err := p.RunAll(context.Background(), inputs("slow.pdf", "fast.pdf"))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "slow.pdf", report.Failures[0].Input.Name)
	assert.ErrorIs(t, report.Failures[0].Err, context.DeadlineExceeded)
	assert.Len(t, report.Results, 1)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(types.PipelineConfig{Workers: 1}, Deps{})
	assert.Error(t, err)

	f := newFixture(t)
	f.cfg.TopicMinimums = types.MinCounts{Concepts: -1}
	_, err = New(f.cfg, Deps{Extractor: f.extractor, Synthesizer: f.synth, Renderer: f.renderer})
	assert.ErrorContains(t, err, "negative")
}

// --- ProcessOne ---

func TestProcessOneMinimumCounts(t *testing.T) {
	f := newFixture(t)
	f.extractor.outline = types.TopicOutline{
		{Name: "Matter"},
		{Name: "Cells", Subtopics: []string{"Membrane", "Nucleus"}},
	}
	f.synth.short = 1
	f.synth.dup = true
	p := f.pipeline(t)

	res, err := p.ProcessOne(context.Background(), inputs("Class 9 - Science - Cells.pdf")[0])
	require.NoError(t, err)

	// One plain topic (1/3/3) and two subtopics (1/2/2 each).
	assert.Equal(t, 3, res.Stats.TotalConcepts)
	assert.Equal(t, 7, res.Stats.TotalMCQs)
	assert.Equal(t, 7, res.Stats.TotalSubjective)
	assert.Equal(t, 2, res.Stats.MainTopics)
	assert.Equal(t, 2, res.Stats.TotalSubtopics)
	// Each topic was one short in every kind: 3 concepts + 3 mcqs + 3 subjective.
	assert.Equal(t, 9, res.Stats.BackfilledItems)
	assert.Zero(t, res.Stats.FailedTopics)

	assert.Equal(t, "Class 9/Science - Cells.html", res.Filename)
	assert.Equal(t, "Science - Cells", res.Title)
	assert.Equal(t, SubjectIcon, res.Icon)

	// The parent of subtopics is never prompted on its own.
	assert.NotContains(t, f.synth.prompts, "Cells")
	assert.Contains(t, f.synth.prompts, "Membrane")
}

func TestProcessOneBundle(t *testing.T) {
	f := newFixture(t)
	f.cfg.BundlesDir = filepath.Join(f.dir, "bundles")
	f.extractor.outline = types.TopicOutline{
		{Name: "Matter"},
		{Name: "Cells", Subtopics: []string{"Membrane"}},
	}
	f.synth.dup = true
	p := f.pipeline(t)

	_, err := p.ProcessOne(context.Background(), inputs("Science - Cells.pdf")[0])
	require.NoError(t, err)

	b := readBundle(t, filepath.Join(f.cfg.BundlesDir, "Science", "Cells.yaml"))
	require.Len(t, b.MCQs, 5)
	for i, q := range b.MCQs {
		assert.Equal(t, i+1, q.ID, "mcq ids are contiguous")
		assert.NotEmpty(t, q.Topic)
	}
	for i, q := range b.Subjective {
		assert.Equal(t, i+1, q.ID, "subjective ids are contiguous")
	}
	assert.Equal(t, "Matter", b.MCQs[0].Topic)
	assert.Equal(t, "Cells → Membrane", b.MCQs[4].Topic)
	assert.Equal(t, "Cells → Membrane", b.Concepts[1].Topic)

	// Duplicates differing only in case and spacing were dropped.
	seen := map[string]bool{}
	for _, q := range b.MCQs {
		k := normKey(q.Question)
		assert.False(t, seen[k], "duplicate question %q", q.Question)
		seen[k] = true
	}
	assert.Equal(t, "Science - Cells", b.Subject.Title)
}

func TestProcessOneSynthesisFailureBackfills(t *testing.T) {
	f := newFixture(t)
	f.extractor.outline = types.TopicOutline{{Name: "Drainage"}, {Name: "Lakes"}}
	f.synth.fail = map[string]error{"Drainage": errors.New("503 service unavailable")}
	f.cfg.BundlesDir = filepath.Join(f.dir, "bundles")
	p := f.pipeline(t)

	res, err := p.ProcessOne(context.Background(), inputs("Geography - Drainage.pdf")[0])
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.FailedTopics)
	assert.Equal(t, 7, res.Stats.BackfilledItems)
	assert.Equal(t, 6, res.Stats.TotalMCQs)

	b := readBundle(t, filepath.Join(f.cfg.BundlesDir, "Geography", "Drainage.yaml"))
	assert.Equal(t, "Additional Concept 1", b.Concepts[0].Title)
	assert.True(t, b.Concepts[0].Placeholder)
	assert.Equal(t, "Additional MCQ question 1?", b.MCQs[0].Question)
	assert.Equal(t, []string{"Option A", "Option B", "Option C", "Option D"}, b.MCQs[0].Options)
	assert.Equal(t, "Comprehensive answer for question 3.", b.Subjective[2].Answer)
	assert.Equal(t, "Lakes", b.MCQs[3].Topic)
	assert.False(t, b.MCQs[3].Placeholder)
}

func TestProcessOneEmptyOutline(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	res, err := p.ProcessOne(context.Background(), inputs("Class 9 - economics.pdf")[0])
	require.NoError(t, err)
	assert.Equal(t, "Economics", res.Title)
	assert.Equal(t, 1, res.Stats.MainTopics)
	assert.Equal(t, 3, res.Stats.TotalMCQs)
	assert.Equal(t, []string{"Economics", "Economics", "Economics"}, f.synth.prompts)
}

func TestProcessOneZeroMinimumsGenerateNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.TopicMinimums = types.MinCounts{}
	f.cfg.SubtopicMinimums = types.MinCounts{}
	p := f.pipeline(t)
	assert.Equal(t, types.MinCounts{}, p.Config().TopicMinimums)

	res, err := p.ProcessOne(context.Background(), inputs("Economics.pdf")[0])
	require.NoError(t, err)
	assert.Zero(t, res.Stats.TotalConcepts)
	assert.Zero(t, res.Stats.TotalMCQs)
	assert.Zero(t, res.Stats.TotalSubjective)
	assert.Zero(t, res.Stats.BackfilledItems)
	assert.Empty(t, f.synth.prompts)
}

func TestProcessOneCountsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	f.extractor.outline = types.TopicOutline{{Name: "A", Subtopics: []string{"x", "y", "z"}}, {Name: "B"}}
	f.synth.short = 2
	p := f.pipeline(t)

	in := inputs("Science - Repeat.pdf")[0]
	first, err := p.ProcessOne(context.Background(), in)
	require.NoError(t, err)
	second, err := p.ProcessOne(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.Stats, second.Stats)
}

func TestProcessOneRenderFailure(t *testing.T) {
	f := newFixture(t)
	p, err := New(f.cfg, Deps{Extractor: f.extractor, Synthesizer: f.synth, Renderer: failingRenderer{}})
	require.NoError(t, err)

	_, err = p.ProcessOne(context.Background(), inputs("a.pdf")[0])
	assert.ErrorIs(t, err, ErrRender)
}

type failingRenderer struct{}

func (failingRenderer) RenderPage(*types.ContentBundle) ([]byte, error) {
	return nil, errors.New("template exploded")
}
func (failingRenderer) RenderIndex(types.IndexView) ([]byte, error) {
	return []byte("<html></html>"), nil
}

// --- backfill ---

func TestFillSkipsCollidingPlaceholders(t *testing.T) {
	f := newFixture(t)
	f.extractor.outline = types.TopicOutline{{Name: "Tricky"}}
	f.synth.reply = []string{"Additional MCQ question 2?"}
	f.cfg.BundlesDir = filepath.Join(f.dir, "bundles")
	p := f.pipeline(t)

	_, err := p.ProcessOne(context.Background(), inputs("Tricky.pdf")[0])
	require.NoError(t, err)

	b := readBundle(t, filepath.Join(f.cfg.BundlesDir, "Tricky.yaml"))
	var questions []string
	for _, q := range b.MCQs {
		questions = append(questions, q.Question)
	}
	assert.Equal(t, []string{"Additional MCQ question 2?", "Additional MCQ question 3?", "Additional MCQ question 4?"}, questions)
}

func TestFill(t *testing.T) {
	gen := func(seq int) string { return fmt.Sprintf("p%d", seq) }
	id := func(s string) string { return s }

	out, n := fill([]string{"a", "b", "c"}, 2, id, map[string]bool{}, gen)
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Zero(t, n)

	out, n = fill(nil, 0, id, map[string]bool{}, gen)
	assert.Empty(t, out)
	assert.Zero(t, n)

	seen := map[string]bool{"a": true, "p2": true}
	out, n = fill([]string{"a"}, 3, id, seen, gen)
	assert.Equal(t, []string{"a", "p3", "p4"}, out)
	assert.Equal(t, 2, n)
}

func TestDedupe(t *testing.T) {
	seen := map[string]bool{}
	out := dedupe([]string{"What is a cell?", " what is a CELL? ", "", "Define tissue."}, func(s string) string { return s }, seen)
	assert.Equal(t, []string{"What is a cell?", "Define tissue."}, out)
	assert.True(t, seen["define tissue."])
}

// --- naming and discovery ---

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Science - The Fundamental Unit of Life.pdf", "Science/The Fundamental Unit of Life.html"},
		{"Geography - Drainage (Part 1).pdf", "Geography/Drainage Part 1.html"},
		{"A - B - C.pdf", "A/B - C.html"},
		{"Economics.pdf", "Economics.html"},
		{"History: Modern?.pdf", "History Modern.html"},
		{" - Orphan.pdf", "Orphan.html"},
		{"???.pdf", "document.html"},
		{"/abs/dir/Maths - Polynomials.PDF", "Maths/Polynomials.html"},
		{"Ciências - Capítulo 1.pdf", "Ciências/Capítulo 1.html"},
		{"विज्ञान.pdf", "विज्ञान.html"},
		{"गणित.pdf", "गणित.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.name))
		})
	}
}

func TestAssignOutputPaths(t *testing.T) {
	docs := assignOutputPaths(inputs(
		"Science - Cells.pdf",
		"Science - Cells!.pdf",
		"science - cells.pdf",
		"Science - Cells 2.pdf",
		"Economics.pdf",
	))

	var got []string
	for _, d := range docs {
		got = append(got, d.OutputPath)
	}
	assert.Equal(t, []string{
		"Science/Cells.html",
		"Science/Cells 2.html",
		"science/cells 3.html",
		"Science/Cells 2 2.html",
		"Economics.html",
	}, got)
}

func TestRunAllCollidingNamesKeepSeparatePages(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	report, err := p.RunAll(context.Background(), inputs("Science - Cells.pdf", "Science - Cells!.pdf"))
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	pages := map[string]string{}
	for _, r := range report.Results {
		pages[r.SourceName] = r.Filename
		assert.FileExists(t, filepath.Join(f.cfg.OutputDir, filepath.FromSlash(r.Filename)))
	}
	assert.Equal(t, map[string]string{
		"Science - Cells.pdf":  "Science/Cells.html",
		"Science - Cells!.pdf": "Science/Cells 2.html",
	}, pages)
}

func TestSubjectTitle(t *testing.T) {
	tests := []struct {
		name, prefix, want string
	}{
		{"Class 9 - Science - The Fundamental Unit of Life.pdf", "Class 9", "Science - The Fundamental Unit Of Life"},
		{"class 9 - geography - drainage.pdf", "Class 9", "Geography - Drainage"},
		{"Class 9-History.pdf", "Class 9", "History"},
		{"Class 9 maths.pdf", "Class 9", "Maths"},
		{"economics.pdf", "", "Economics"},
		{"Class 9.pdf", "Class 9", "Class 9"},
		{"Class 10 - Physics.pdf", "Class 9", "Class 10 - Physics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubjectTitle(tt.name, tt.prefix))
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pdfs")

	docs, err := Discover(dir)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.DirExists(t, dir)

	for _, name := range []string{"b.pdf", "A.PDF", "notes.txt", "c.pdf.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.pdf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested.pdf", "d.pdf"), []byte("%PDF"), 0o644))

	docs, err = Discover(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A.PDF", docs[0].Name)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), docs[1].Path)
}
