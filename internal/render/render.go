// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render produces the static HTML site: one self-contained study
// page per document and the aggregate index page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/pdiddy/learnsite/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"inc":     func(i int) int { return i + 1 },
	"letter":  letter,
	"percent": percent,
}

// Renderer holds the parsed page and index templates. It is safe for
// concurrent use.
type Renderer struct {
	page  *template.Template
	index *template.Template
	md    goldmark.Markdown
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	page, err := template.New("page.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	index, err := template.New("index.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	// goldmark escapes raw HTML by default, so its output is safe to embed.
	return &Renderer{page: page, index: index, md: goldmark.New()}, nil
}

type conceptView struct {
	Title       string
	Description template.HTML
	Topic       string
	Placeholder bool
}

type subjectiveView struct {
	types.SubjectiveItem
	Answer template.HTML
}

// scriptData is embedded as JSON for the page's client-side behavior.
type scriptData struct {
	Concepts   []types.Concept        `json:"concepts"`
	MCQs       []types.MCQ            `json:"mcqs"`
	Subjective []types.SubjectiveItem `json:"subjective"`
}

type pageData struct {
	Subject     types.SubjectInfo
	Source      string
	Stats       types.ContentStats
	Topics      []types.MainTopic
	Concepts    []conceptView
	MCQs        []types.MCQ
	Subjective  []subjectiveView
	GeneratedAt time.Time
	Data        scriptData
}

// RenderPage renders the study page for one bundle.
func (r *Renderer) RenderPage(b *types.ContentBundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("nil content bundle")
	}

	data := pageData{
		Subject:     b.Subject,
		Source:      b.Source,
		Stats:       b.Stats,
		Topics:      topicTree(b),
		MCQs:        b.MCQs,
		GeneratedAt: b.GeneratedAt,
		Data: scriptData{
			Concepts:   nonNil(b.Concepts),
			MCQs:       nonNil(b.MCQs),
			Subjective: nonNil(b.Subjective),
		},
	}
	for _, c := range b.Concepts {
		desc, err := r.markdown(c.Description)
		if err != nil {
			return nil, fmt.Errorf("concept %q: %w", c.Title, err)
		}
		data.Concepts = append(data.Concepts, conceptView{Title: c.Title, Description: desc, Topic: c.Topic, Placeholder: c.Placeholder})
	}
	for _, s := range b.Subjective {
		answer, err := r.markdown(s.Answer)
		if err != nil {
			return nil, fmt.Errorf("subjective %d: %w", s.ID, err)
		}
		data.Subjective = append(data.Subjective, subjectiveView{SubjectiveItem: s, Answer: answer})
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderIndex renders the aggregate index page.
func (r *Renderer) RenderIndex(v types.IndexView) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.index.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("executing index template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) markdown(s string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(s), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- goldmark runs without the unsafe option
}

// topicTree returns the bundle's outline, or when it has none, the topic
// hierarchy recovered from concept labels in first-seen order.
func topicTree(b *types.ContentBundle) []types.MainTopic {
	if len(b.Outline) > 0 {
		return b.Outline
	}

	var tree []types.MainTopic
	pos := make(map[string]int)
	seenSub := make(map[string]bool)
	for _, c := range b.Concepts {
		main, sub, hasSub := strings.Cut(c.Topic, types.TopicSeparator)
		i, ok := pos[main]
		if !ok {
			i = len(tree)
			pos[main] = i
			tree = append(tree, types.MainTopic{Name: main})
		}
		if hasSub && !seenSub[c.Topic] {
			seenSub[c.Topic] = true
			tree[i].Subtopics = append(tree[i].Subtopics, sub)
		}
	}
	return tree
}

// letter labels option i as A, B, C... and falls back to its number past Z.
func letter(i int) string {
	if i >= 0 && i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
