// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// InputDocument is one source file discovered at pipeline start.
// Name (the base filename) is its identity.
type InputDocument struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`

	// OutputPath is the page path assigned for a run, slash-separated.
	// Empty means it is derived from Name.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
}

// JobResult is the summary of one successfully processed document. It is
// the only value that crosses from a worker into the shared index state.
type JobResult struct {
	Title string `json:"title" yaml:"title"`
	Icon  string `json:"icon" yaml:"icon"`

	// Filename is the rendered page path relative to the output directory,
	// always slash-separated.
	Filename string `json:"filename" yaml:"filename"`

	Stats       ContentStats `json:"stats" yaml:"stats"`
	SourceName  string       `json:"source_name" yaml:"source_name"`
	CompletedAt time.Time    `json:"completed_at" yaml:"completed_at"`
}

// IndexView is the data rendered into the aggregate index page.
type IndexView struct {
	Title       string      `json:"title" yaml:"title"`
	Total       int         `json:"total" yaml:"total"`
	Completed   int         `json:"completed" yaml:"completed"`
	Failed      int         `json:"failed" yaml:"failed"`
	Entries     []JobResult `json:"entries" yaml:"entries"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
}

// Pending reports how many documents are still in flight or queued.
func (v IndexView) Pending() int {
	p := v.Total - v.Completed - v.Failed
	if p < 0 {
		return 0
	}
	return p
}

// Done reports whether every document has either completed or failed.
func (v IndexView) Done() bool {
	return v.Total > 0 && v.Pending() == 0
}
