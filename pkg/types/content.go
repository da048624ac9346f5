// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TopicSeparator joins a main topic and a subtopic in a Concept's Topic label.
const TopicSeparator = " → "

// MainTopic is one entry of a document's topic outline.
type MainTopic struct {
	// Name is the heading text as it appears in the source.
	Name string `json:"main_topic" yaml:"main_topic"`

	// Subtopics are the ordered child headings; empty when the topic has none.
	Subtopics []string `json:"subtopics" yaml:"subtopics"`
}

// TopicOutline is the ordered topic hierarchy extracted from a document.
type TopicOutline []MainTopic

// SubtopicCount returns the number of subtopics across all main topics.
func (o TopicOutline) SubtopicCount() int {
	n := 0
	for _, t := range o {
		n += len(t.Subtopics)
	}
	return n
}

// Extraction is what the Extractor returns for one document.
type Extraction struct {
	Text    string       `json:"text" yaml:"text"`
	Outline TopicOutline `json:"outline" yaml:"outline"`
	Pages   int          `json:"pages" yaml:"pages"`
}

// Concept is a short study note generated for one topic.
type Concept struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	// Topic is the main topic, or "main → subtopic", it was generated under.
	Topic string `json:"topic" yaml:"topic"`

	// Placeholder marks items produced by backfill rather than the model.
	Placeholder bool `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// MCQ is a multiple-choice question. ID is assigned by the pipeline and is
// unique and contiguous within a ContentBundle.
type MCQ struct {
	ID            int      `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
	Topic         string   `json:"topic" yaml:"topic"`
	Placeholder   bool     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// SubjectiveItem is an open-response question with a model answer.
type SubjectiveItem struct {
	ID          int    `json:"id" yaml:"id"`
	Question    string `json:"question" yaml:"question"`
	Answer      string `json:"answer" yaml:"answer"`
	Marks       string `json:"marks" yaml:"marks"`
	Important   bool   `json:"important" yaml:"important"`
	Topic       string `json:"topic" yaml:"topic"`
	Placeholder bool   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// ContentStats summarizes a ContentBundle.
type ContentStats struct {
	TotalConcepts   int `json:"total_concepts" yaml:"total_concepts"`
	TotalMCQs       int `json:"total_mcqs" yaml:"total_mcqs"`
	TotalSubjective int `json:"total_subjective" yaml:"total_subjective"`
	MainTopics      int `json:"main_topics" yaml:"main_topics"`
	TotalSubtopics  int `json:"total_subtopics" yaml:"total_subtopics"`

	// BackfilledItems counts placeholder items across all three kinds.
	BackfilledItems int `json:"backfilled_items" yaml:"backfilled_items"`

	// FailedTopics counts topics whose synthesis call failed outright.
	FailedTopics int `json:"failed_topics" yaml:"failed_topics"`
}

// SubjectInfo is the display identity of a processed document.
type SubjectInfo struct {
	Title string `json:"title" yaml:"title"`
	Icon  string `json:"icon" yaml:"icon"`
}

// ContentBundle holds everything generated for one input document.
type ContentBundle struct {
	Subject     SubjectInfo      `json:"subject" yaml:"subject"`
	Source      string           `json:"source" yaml:"source"`
	Outline     TopicOutline     `json:"outline" yaml:"outline"`
	Concepts    []Concept        `json:"concepts" yaml:"concepts"`
	MCQs        []MCQ            `json:"mcqs" yaml:"mcqs"`
	Subjective  []SubjectiveItem `json:"subjective" yaml:"subjective"`
	Stats       ContentStats     `json:"stats" yaml:"stats"`
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
}
