// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth generates study content for one topic at a time by
// prompting a language model: concepts, multiple-choice questions, and
// subjective questions with model answers. It also identifies a document's
// topic outline.
//
// Replies are parsed leniently and every item is validated here, so the
// rest of the program only sees well-formed records. A reply that cannot be
// parsed yields zero items without error; only a failed API call is an error.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/learnsite/internal/llm"
	"github.com/pdiddy/learnsite/pkg/types"
)

const defaultMaxRetries = 3

// Synthesizer turns source text into validated study items.
type Synthesizer struct {
	client     llm.Client
	maxRetries int
}

// New returns a Synthesizer that retries failed calls maxRetries times
// (default 3 when maxRetries <= 0).
func New(client llm.Client, maxRetries int) *Synthesizer {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Synthesizer{client: client, maxRetries: maxRetries}
}

// Outline asks the model for the document's topic hierarchy. An
// unparseable reply is an error so the caller can fall back to headings.
func (s *Synthesizer) Outline(ctx context.Context, text string) (types.TopicOutline, error) {
	prompt, err := renderPrompt(outlinePromptTmpl, promptData{Text: truncate(text, outlineContextChars)})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}
	reply, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	outline, err := parseOutline(reply)
	if err != nil {
		return nil, fmt.Errorf("parsing topic outline: %w", err)
	}
	return outline, nil
}

// Concepts asks for n concepts about topic.
func (s *Synthesizer) Concepts(ctx context.Context, topic, text string, n int) ([]types.Concept, error) {
	var resp conceptsResponse
	ok, err := s.ask(ctx, conceptsPromptTmpl, promptData{Topic: topic, Count: n, Text: truncate(text, conceptContextChars)}, &resp)
	if err != nil || !ok {
		return nil, err
	}
	items, problems := convertConcepts(resp.Concepts, topic)
	logProblems(ctx, "concepts", topic, problems)
	return items, nil
}

// MCQs asks for n multiple-choice questions about topic. IDs are left zero.
func (s *Synthesizer) MCQs(ctx context.Context, topic, text string, n int) ([]types.MCQ, error) {
	var resp mcqsResponse
	ok, err := s.ask(ctx, mcqsPromptTmpl, promptData{Topic: topic, Count: n, Text: truncate(text, questionContextChars)}, &resp)
	if err != nil || !ok {
		return nil, err
	}
	items, problems := convertMCQs(resp.MCQs, topic)
	logProblems(ctx, "mcqs", topic, problems)
	return items, nil
}

// Subjective asks for n subjective questions about topic. IDs are left zero.
func (s *Synthesizer) Subjective(ctx context.Context, topic, text string, n int) ([]types.SubjectiveItem, error) {
	var resp subjectiveResponse
	ok, err := s.ask(ctx, subjectivePromptTmpl, promptData{Topic: topic, Count: n, Text: truncate(text, questionContextChars)}, &resp)
	if err != nil || !ok {
		return nil, err
	}
	items, problems := convertSubjective(resp.Subjective, topic)
	logProblems(ctx, "subjective", topic, problems)
	return items, nil
}

// ask renders the prompt, calls the model, and decodes the reply into v.
// ok is false when the reply could not be decoded.
func (s *Synthesizer) ask(ctx context.Context, tmpl *template.Template, data promptData, v any) (ok bool, err error) {
	prompt, err := renderPrompt(tmpl, data)
	if err != nil {
		return false, fmt.Errorf("rendering prompt: %w", err)
	}
	reply, err := s.complete(ctx, prompt)
	if err != nil {
		return false, err
	}
	if err := decodeObject(reply, v); err != nil {
		slog.WarnContext(ctx, "unparseable model reply", "prompt", tmpl.Name(), "topic", data.Topic, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	return callWithRetry(ctx, s.client, prompt, s.maxRetries)
}

func logProblems(ctx context.Context, kind, topic string, problems []string) {
	if len(problems) == 0 {
		return
	}
	slog.WarnContext(ctx, "dropped invalid items", "kind", kind, "topic", topic, "problems", strings.Join(problems, "; "))
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the model with exponential backoff.
func callWithRetry(ctx context.Context, client llm.Client, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		reply, err := client.Complete(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
