// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/learnsite/internal/metrics"
	"github.com/pdiddy/learnsite/pkg/types"
)

// topicSpec is one unit of synthesis: a main topic without subtopics, or a
// single subtopic.
type topicSpec struct {
	// Label tags the generated items ("main" or "main → sub").
	Label string
	// Prompt is the topic name given to the model.
	Prompt string
	Min    types.MinCounts
}

// TopicResult is what synthesis produced for one topic. Err is set when any
// of the topic's synthesis calls failed; items from the calls that
// succeeded are kept and the rest is backfilled.
type TopicResult struct {
	Label      string
	Min        types.MinCounts
	Concepts   []types.Concept
	MCQs       []types.MCQ
	Subjective []types.SubjectiveItem
	Err        error
}

// effectiveOutline returns the outline to generate from. A document with no
// usable topics is treated as a single topic named after its subject.
func effectiveOutline(outline types.TopicOutline, subject string) types.TopicOutline {
	var out types.TopicOutline
	for _, t := range outline {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		var subs []string
		for _, s := range t.Subtopics {
			if s = strings.TrimSpace(s); s != "" {
				subs = append(subs, s)
			}
		}
		out = append(out, types.MainTopic{Name: name, Subtopics: subs})
	}
	if len(out) == 0 {
		out = types.TopicOutline{{Name: subject}}
	}
	return out
}

// topicSpecs expands an outline into synthesis units. A main topic with
// subtopics is covered only through its subtopics.
func topicSpecs(outline types.TopicOutline, topicMin, subtopicMin types.MinCounts) []topicSpec {
	var specs []topicSpec
	for _, t := range outline {
		if len(t.Subtopics) == 0 {
			specs = append(specs, topicSpec{Label: t.Name, Prompt: t.Name, Min: topicMin})
			continue
		}
		for _, sub := range t.Subtopics {
			specs = append(specs, topicSpec{
				Label:  t.Name + types.TopicSeparator + sub,
				Prompt: sub,
				Min:    subtopicMin,
			})
		}
	}
	return specs
}

// ProcessOne turns one document into a rendered page under the output
// directory and returns its index entry. Extraction and render problems
// fail the job; a failed topic is backfilled instead.
func (p *Pipeline) ProcessOne(ctx context.Context, in types.InputDocument) (types.JobResult, error) {
	ext, err := p.deps.Extractor.Extract(ctx, in.Path)
	if err != nil {
		return types.JobResult{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if strings.TrimSpace(ext.Text) == "" {
		return types.JobResult{}, fmt.Errorf("%w: %s has no extractable text", ErrExtraction, in.Name)
	}

	title := SubjectTitle(in.Name, p.cfg.TitlePrefix)
	outline := effectiveOutline(ext.Outline, title)
	specs := topicSpecs(outline, p.cfg.TopicMinimums, p.cfg.SubtopicMinimums)

	results := make([]TopicResult, 0, len(specs))
	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			return types.JobResult{}, fmt.Errorf("processing %s: %w", in.Name, err)
		}
		results = append(results, p.synthesizeTopic(ctx, s, ext.Text))
	}
	if err := ctx.Err(); err != nil {
		return types.JobResult{}, fmt.Errorf("processing %s: %w", in.Name, err)
	}

	a := assemble(results)
	bundle := &types.ContentBundle{
		Subject:    types.SubjectInfo{Title: title, Icon: SubjectIcon},
		Source:     in.Name,
		Outline:    outline,
		Concepts:   a.Concepts,
		MCQs:       a.MCQs,
		Subjective: a.Subjective,
		Stats: types.ContentStats{
			TotalConcepts:   len(a.Concepts),
			TotalMCQs:       len(a.MCQs),
			TotalSubjective: len(a.Subjective),
			MainTopics:      len(outline),
			TotalSubtopics:  outline.SubtopicCount(),
			BackfilledItems: a.Backfilled.total(),
			FailedTopics:    a.Failed,
		},
		GeneratedAt: p.now(),
	}
	p.rec.AddBackfilled(metrics.KindConcept, a.Backfilled.Concepts)
	p.rec.AddBackfilled(metrics.KindMCQ, a.Backfilled.MCQs)
	p.rec.AddBackfilled(metrics.KindSubjective, a.Backfilled.Subjective)
	p.rec.AddTopicFailures(a.Failed)

	page, err := p.deps.Renderer.RenderPage(bundle)
	if err != nil {
		return types.JobResult{}, fmt.Errorf("%w: %s: %w", ErrRender, in.Name, err)
	}
	rel := in.OutputPath
	if rel == "" {
		rel = OutputPath(in.Name)
	}
	if err := writeFileAtomic(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(rel)), page); err != nil {
		return types.JobResult{}, fmt.Errorf("%w: writing %s: %w", ErrRender, rel, err)
	}

	if p.cfg.BundlesDir != "" {
		if err := writeBundle(p.cfg.BundlesDir, rel, bundle); err != nil {
			slog.WarnContext(ctx, "writing content bundle", "source", in.Name, "error", err)
		}
	}

	slog.DebugContext(ctx, "page rendered", "source", in.Name, "page", rel,
		"topics", len(specs), "backfilled", a.Backfilled.total(), "failed_topics", a.Failed)

	return types.JobResult{
		Title:       title,
		Icon:        SubjectIcon,
		Filename:    rel,
		Stats:       bundle.Stats,
		SourceName:  in.Name,
		CompletedAt: p.now(),
	}, nil
}

// synthesizeTopic requests the topic's minimum of each item kind.
func (p *Pipeline) synthesizeTopic(ctx context.Context, s topicSpec, text string) TopicResult {
	r := TopicResult{Label: s.Label, Min: s.Min}
	syn := p.deps.Synthesizer

	var errs []error
	var err error
	if s.Min.Concepts > 0 {
		if r.Concepts, err = syn.Concepts(ctx, s.Prompt, text, s.Min.Concepts); err != nil {
			errs = append(errs, fmt.Errorf("concepts: %w", err))
		}
	}
	if s.Min.MCQs > 0 {
		if r.MCQs, err = syn.MCQs(ctx, s.Prompt, text, s.Min.MCQs); err != nil {
			errs = append(errs, fmt.Errorf("mcqs: %w", err))
		}
	}
	if s.Min.Subjective > 0 {
		if r.Subjective, err = syn.Subjective(ctx, s.Prompt, text, s.Min.Subjective); err != nil {
			errs = append(errs, fmt.Errorf("subjective: %w", err))
		}
	}

	if len(errs) > 0 {
		r.Err = fmt.Errorf("%w for %q: %w", ErrSynthesis, s.Label, errors.Join(errs...))
		slog.WarnContext(ctx, "topic synthesis failed, backfilling", "topic", s.Label, "error", r.Err)
	}
	return r
}

// writeBundle stores a YAML copy of the bundle beside the page layout.
func writeBundle(dir, rel string, b *types.ContentBundle) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling bundle: %w", err)
	}
	path := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(rel, ".html")+".yaml"))
	return writeFileAtomic(path, data)
}
