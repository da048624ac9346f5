// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textract turns a PDF chapter into cleaned plain text and a topic
// outline. Text comes from a pluggable Reader; the outline from an Outliner
// (normally the LLM) with a heading heuristic as fallback.
package textract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/learnsite/pkg/types"
)

// Reader extracts raw text from a document on disk.
type Reader interface {
	// ReadText returns the document's text and its page count.
	ReadText(ctx context.Context, path string) (text string, pages int, err error)
}

// Outliner identifies the topic hierarchy of a document's text.
type Outliner interface {
	Outline(ctx context.Context, text string) (types.TopicOutline, error)
}

// Extractor combines a Reader and an optional Outliner.
type Extractor struct {
	reader   Reader
	outliner Outliner
}

// New returns an Extractor. outliner may be nil, in which case the heading
// heuristic alone builds the outline.
func New(r Reader, o Outliner) *Extractor {
	return &Extractor{reader: r, outliner: o}
}

// Extract reads path, cleans its text, and builds the topic outline. Only a
// read failure is an error; outline problems degrade to the heuristic.
func (e *Extractor) Extract(ctx context.Context, path string) (types.Extraction, error) {
	raw, pages, err := e.reader.ReadText(ctx, path)
	if err != nil {
		return types.Extraction{}, fmt.Errorf("reading %s: %w", path, err)
	}

	text := Clean(raw)
	slog.DebugContext(ctx, "extracted text", "path", path, "pages", pages, "chars", len(text))

	return types.Extraction{
		Text:    text,
		Outline: e.outline(ctx, path, text),
		Pages:   pages,
	}, nil
}

func (e *Extractor) outline(ctx context.Context, path, text string) types.TopicOutline {
	if e.outliner != nil && strings.TrimSpace(text) != "" {
		outline, err := e.outliner.Outline(ctx, text)
		if err != nil {
			slog.WarnContext(ctx, "topic identification failed, using headings", "path", path, "error", err)
		} else if len(outline) > 0 {
			return outline
		}
	}

	headings := Headings(text)
	outline := make(types.TopicOutline, 0, len(headings))
	for _, h := range headings {
		outline = append(outline, types.MainTopic{Name: h})
	}
	return outline
}
