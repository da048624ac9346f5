// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/learnsite/pkg/types"
)

// DefaultMarks is assigned to subjective items the model left unmarked.
const DefaultMarks = "3 Marks"

// MaxOptions is the most options an MCQ may carry; pages label them A-H.
const MaxOptions = 8

// conceptsResponse, mcqsResponse, and subjectiveResponse mirror the JSON
// shapes requested by the prompts.
type conceptsResponse struct {
	Concepts []conceptItem `json:"concepts"`
}

type conceptItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type mcqsResponse struct {
	MCQs []mcqItem `json:"mcqs"`
}

type mcqItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

type subjectiveResponse struct {
	Subjective []subjectiveItem `json:"subjective"`
}

type subjectiveItem struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Marks     string `json:"marks"`
	Important bool   `json:"important"`
}

// extractJSON returns the substring from the first left to the last right
// delimiter, or "" when the reply holds no such span. Models often wrap JSON
// in prose or code fences.
func extractJSON(reply string, left, right byte) string {
	start := strings.IndexByte(reply, left)
	end := strings.LastIndexByte(reply, right)
	if start < 0 || end <= start {
		return ""
	}
	return reply[start : end+1]
}

// decodeObject leniently decodes the JSON object embedded in reply into v.
func decodeObject(reply string, v any) error {
	raw := extractJSON(reply, '{', '}')
	if raw == "" {
		return fmt.Errorf("no JSON object in reply")
	}
	return json.Unmarshal([]byte(raw), v)
}

// parseOutline decodes the JSON array embedded in reply and drops topics
// without a name.
func parseOutline(reply string) (types.TopicOutline, error) {
	raw := extractJSON(reply, '[', ']')
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in reply")
	}
	var topics []types.MainTopic
	if err := json.Unmarshal([]byte(raw), &topics); err != nil {
		return nil, err
	}

	outline := make(types.TopicOutline, 0, len(topics))
	for _, t := range topics {
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
		outline = append(outline, types.MainTopic{Name: name, Subtopics: subs})
	}
	return outline, nil
}

// convertConcepts validates model concepts: a title is required.
func convertConcepts(items []conceptItem, topic string) ([]types.Concept, []string) {
	var result []types.Concept
	var problems []string
	for i, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			problems = append(problems, fmt.Sprintf("concept %d: empty title", i))
			continue
		}
		result = append(result, types.Concept{
			Title:       title,
			Description: strings.TrimSpace(item.Description),
			Topic:       topic,
		})
	}
	return result, problems
}

// convertMCQs validates model MCQs: a question, at least two options, and a
// correct_answer that indexes into them.
func convertMCQs(items []mcqItem, topic string) ([]types.MCQ, []string) {
	var result []types.MCQ
	var problems []string
	for i, item := range items {
		q := strings.TrimSpace(item.Question)
		if q == "" {
			problems = append(problems, fmt.Sprintf("mcq %d: empty question", i))
			continue
		}
		if len(item.Options) < 2 {
			problems = append(problems, fmt.Sprintf("mcq %d: %d options, need at least 2", i, len(item.Options)))
			continue
		}
		if len(item.Options) > MaxOptions {
			problems = append(problems, fmt.Sprintf("mcq %d: %d options, at most %d allowed", i, len(item.Options), MaxOptions))
			continue
		}
		if item.CorrectAnswer < 0 || item.CorrectAnswer >= len(item.Options) {
			problems = append(problems, fmt.Sprintf("mcq %d: correct_answer %d out of range [0,%d)", i, item.CorrectAnswer, len(item.Options)))
			continue
		}
		opts := make([]string, len(item.Options))
		for j, o := range item.Options {
			opts[j] = strings.TrimSpace(o)
		}
		result = append(result, types.MCQ{
			Question:      q,
			Options:       opts,
			CorrectAnswer: item.CorrectAnswer,
			Topic:         topic,
		})
	}
	return result, problems
}

// convertSubjective validates model subjective items: question and answer
// are required; marks default to DefaultMarks.
func convertSubjective(items []subjectiveItem, topic string) ([]types.SubjectiveItem, []string) {
	var result []types.SubjectiveItem
	var problems []string
	for i, item := range items {
		q := strings.TrimSpace(item.Question)
		a := strings.TrimSpace(item.Answer)
		if q == "" || a == "" {
			problems = append(problems, fmt.Sprintf("subjective %d: question and answer are required", i))
			continue
		}
		marks := strings.TrimSpace(item.Marks)
		if marks == "" {
			marks = DefaultMarks
		}
		result = append(result, types.SubjectiveItem{
			Question:  q,
			Answer:    a,
			Marks:     marks,
			Important: item.Important,
			Topic:     topic,
		})
	}
	return result, problems
}
