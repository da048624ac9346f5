// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/pdiddy/learnsite/internal/synth"
	"github.com/pdiddy/learnsite/pkg/types"
)

const placeholderDescription = "Important educational concept extracted from the textbook content."

var placeholderOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// backfillCounts tallies placeholder items by kind.
type backfillCounts struct {
	Concepts   int
	MCQs       int
	Subjective int
}

func (c backfillCounts) total() int {
	return c.Concepts + c.MCQs + c.Subjective
}

// normKey is the identity used for duplicate detection.
func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func conceptKey(c types.Concept) string           { return c.Title }
func mcqKey(q types.MCQ) string                   { return q.Question }
func subjectiveKey(q types.SubjectiveItem) string { return q.Question }

// dedupe drops items whose key is empty or already in seen, keeping the
// first occurrence, and records the kept keys in seen.
func dedupe[T any](items []T, key func(T) string, seen map[string]bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := normKey(key(it))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// fill returns exactly n items: surplus is trimmed, and a shortfall is made
// up in a single pass with placeholders from gen. Placeholders whose key
// is already in seen are skipped, so every added item is distinct from the
// rest of the topic. seq is the 1-based position handed to gen.
func fill[T any](items []T, n int, key func(T) string, seen map[string]bool, gen func(seq int) T) ([]T, int) {
	if len(items) >= n {
		return items[:n], 0
	}
	added := 0
	for seq := len(items) + 1; len(items) < n; seq++ {
		p := gen(seq)
		k := normKey(key(p))
		if seen[k] {
			continue
		}
		seen[k] = true
		items = append(items, p)
		added++
	}
	return items, added
}

func placeholderConcept(n int) types.Concept {
	return types.Concept{
		Title:       fmt.Sprintf("Additional Concept %d", n),
		Description: placeholderDescription,
		Placeholder: true,
	}
}

func placeholderMCQ(n int) types.MCQ {
	return types.MCQ{
		Question:      fmt.Sprintf("Additional MCQ question %d?", n),
		Options:       append([]string(nil), placeholderOptions...),
		CorrectAnswer: 0,
		Placeholder:   true,
	}
}

func placeholderSubjective(n int) types.SubjectiveItem {
	return types.SubjectiveItem{
		Question:    fmt.Sprintf("Additional subjective question %d?", n),
		Answer:      fmt.Sprintf("Comprehensive answer for question %d.", n),
		Marks:       synth.DefaultMarks,
		Placeholder: true,
	}
}

// assembled is the bundle content built from every topic's results.
type assembled struct {
	Concepts   []types.Concept
	MCQs       []types.MCQ
	Subjective []types.SubjectiveItem
	Backfilled backfillCounts
	Failed     int
}

// assemble dedupes and backfills each topic to its minimums, labels every
// item with its topic, and numbers questions with IDs running 1..n across
// the whole document in topic order.
func assemble(results []TopicResult) assembled {
	var out assembled
	for _, r := range results {
		if r.Err != nil {
			out.Failed++
		}

		seen := map[string]bool{}
		concepts := dedupe(r.Concepts, conceptKey, seen)
		base := len(out.Concepts)
		concepts, n := fill(concepts, r.Min.Concepts, conceptKey, seen, func(seq int) types.Concept {
			return placeholderConcept(base + seq)
		})
		out.Backfilled.Concepts += n
		for _, c := range concepts {
			c.Topic = r.Label
			out.Concepts = append(out.Concepts, c)
		}

		seen = map[string]bool{}
		mcqs := dedupe(r.MCQs, mcqKey, seen)
		base = len(out.MCQs)
		mcqs, n = fill(mcqs, r.Min.MCQs, mcqKey, seen, func(seq int) types.MCQ {
			return placeholderMCQ(base + seq)
		})
		out.Backfilled.MCQs += n
		for _, q := range mcqs {
			q.Topic = r.Label
			q.ID = len(out.MCQs) + 1
			out.MCQs = append(out.MCQs, q)
		}

		seen = map[string]bool{}
		subjective := dedupe(r.Subjective, subjectiveKey, seen)
		base = len(out.Subjective)
		subjective, n = fill(subjective, r.Min.Subjective, subjectiveKey, seen, func(seq int) types.SubjectiveItem {
			return placeholderSubjective(base + seq)
		})
		out.Backfilled.Subjective += n
		for _, q := range subjective {
			q.Topic = r.Label
			q.ID = len(out.Subjective) + 1
			out.Subjective = append(out.Subjective, q)
		}
	}
	return out
}
