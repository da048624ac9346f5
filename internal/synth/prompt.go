// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"bytes"
	"text/template"
)

// Source text is truncated before it is embedded in a prompt.
const (
	conceptContextChars  = 1500
	questionContextChars = 2000
	outlineContextChars  = 12000
)

var outlinePromptTmpl = template.Must(template.New("outline").Parse(`Analyze this textbook content and identify its hierarchical topic structure.

Content to analyze:
{{.Text}}

Return ONLY a JSON array of topic objects with their subtopics:
[
  {"main_topic": "Main Topic Name", "subtopics": ["Subtopic 1", "Subtopic 2"]},
  {"main_topic": "Another Main Topic", "subtopics": []}
]

Rules:
- Use the exact heading text as it appears in the document; do not rephrase.
- Look for bold text, numbered sections, and clear topic breaks.
- Include every major topic-subtopic relationship you find.
- If a topic has no clear subtopics, use an empty array.
`))

var conceptsPromptTmpl = template.Must(template.New("concepts").Parse(`Generate {{.Count}} key educational concepts for the topic: "{{.Topic}}"

Requirements:
- Extract direct facts from the textbook content.
- Include important dates, numbers, and specific information.
- Focus on what students must remember for exams.
- Use clear, concise language. Markdown emphasis is allowed in descriptions.

Textbook content:
{{.Text}}...

Return JSON format:
{"concepts": [{"title": "Specific Concept Title", "description": "Description with key facts"}]}
`))

var mcqsPromptTmpl = template.Must(template.New("mcqs").Parse(`Create {{.Count}} multiple choice questions for the topic: "{{.Topic}}"

Guidelines:
- Test different aspects of the topic: key facts, dates, numbers, and concepts.
- Provide one correct answer and three plausible distractors.
- correct_answer is the zero-based index of the right option.

Textbook content:
{{.Text}}...

Return JSON format:
{"mcqs": [{"question": "Question text related to {{.Topic}}?", "options": ["Option A", "Option B", "Option C", "Option D"], "correct_answer": 0}]}
`))

var subjectivePromptTmpl = template.Must(template.New("subjective").Parse(`Create {{.Count}} subjective questions for the topic: "{{.Topic}}"

Guidelines:
- Cover different aspects of the topic with a mix of 3, 4, and 5 mark questions.
- Questions should require detailed explanations; answers should be comprehensive.
- Mark at most one or two questions as "important", and only for core concepts
  that are frequently asked in exams.

Textbook content:
{{.Text}}...

Return JSON format:
{"subjective": [{"question": "Question text related to {{.Topic}}?", "answer": "Comprehensive answer", "marks": "3 Marks", "important": false}]}
`))

type promptData struct {
	Topic string
	Count int
	Text  string
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
