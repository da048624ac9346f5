// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/pdiddy/learnsite/pkg/types"
)

// IndexFile is the aggregate index page inside the output directory.
const IndexFile = "index.html"

// indexState is the run's shared aggregate. Every mutation appends, renders
// and persists under one lock, so the file on disk always reflects a
// complete prefix of the results and is never partially written.
type indexState struct {
	mu       sync.Mutex
	path     string
	render   func(types.IndexView) ([]byte, error)
	now      func() time.Time
	view     types.IndexView
	failures []JobFailure
}

func newIndexState(path, title string, render func(types.IndexView) ([]byte, error), now func() time.Time) *indexState {
	return &indexState{
		path:   path,
		render: render,
		now:    now,
		view:   types.IndexView{Title: title},
	}
}

// start writes the placeholder index for total documents.
func (s *indexState) start(total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Total = total
	return s.persistLocked()
}

// complete appends a result and rewrites the index. The entry is kept even
// when the write fails; the next write will include it.
func (s *indexState) complete(r types.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Entries = append(s.view.Entries, r)
	s.view.Completed = len(s.view.Entries)
	return s.persistLocked()
}

// fail records a failed document and rewrites the index.
func (s *indexState) fail(f JobFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
	s.view.Failed = len(s.failures)
	return s.persistLocked()
}

// outcomes returns copies of the results, in completion order, and the
// failures.
func (s *indexState) outcomes() ([]types.JobResult, []JobFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.view.Entries), slices.Clone(s.failures)
}

func (s *indexState) persistLocked() error {
	v := s.view
	v.Entries = slices.Clone(s.view.Entries)
	v.GeneratedAt = s.now()

	data, err := s.render(v)
	if err != nil {
		return fmt.Errorf("%w: index: %w", ErrRender, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temporary file beside path and renames
// it into place, creating parent directories as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
