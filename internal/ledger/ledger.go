// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records the history of pipeline runs and per-document job
// outcomes in SQLite, for the history command.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/learnsite/pkg/types"
)

// Job statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// JobOutcome is the recorded result of one document.
type JobOutcome struct {
	Source     string             `json:"source" yaml:"source"`
	Page       string             `json:"page,omitempty" yaml:"page,omitempty"`
	Status     string             `json:"status" yaml:"status"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
	Stats      types.ContentStats `json:"stats" yaml:"stats"`
	Duration   time.Duration      `json:"duration" yaml:"duration"`
	FinishedAt time.Time          `json:"finished_at" yaml:"finished_at"`
}

// RunSummary is written when a run finishes.
type RunSummary struct {
	Completed    int
	Failed       int
	Published    bool
	PublishError string
}

// Run is one recorded pipeline run.
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Total        int        `json:"total" yaml:"total"`
	Completed    int        `json:"completed" yaml:"completed"`
	Failed       int        `json:"failed" yaml:"failed"`
	Published    bool       `json:"published" yaml:"published"`
	PublishError string     `json:"publish_error,omitempty" yaml:"publish_error,omitempty"`
}

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Ledger is the SQLite-backed run history.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path, creating its parent
// directory and schema as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Workers record outcomes concurrently; one connection serializes them.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, now: time.Now}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			published INTEGER NOT NULL DEFAULT 0,
			publish_error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			source TEXT NOT NULL,
			page TEXT,
			status TEXT NOT NULL,
			error TEXT,
			concepts INTEGER NOT NULL DEFAULT 0,
			mcqs INTEGER NOT NULL DEFAULT 0,
			subjective INTEGER NOT NULL DEFAULT 0,
			backfilled INTEGER NOT NULL DEFAULT 0,
			failed_topics INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_run_id ON jobs(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun records a new run over total inputs.
func (l *Ledger) StartRun(ctx context.Context, id string, total int) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, total) VALUES (?, ?, ?)`,
		id, formatTime(l.now()), total,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", id, err)
	}
	return nil
}

// RecordJob appends one job outcome to a run.
func (l *Ledger) RecordJob(ctx context.Context, runID string, o JobOutcome) error {
	finished := o.FinishedAt
	if finished.IsZero() {
		finished = l.now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, source, page, status, error, concepts, mcqs, subjective, backfilled, failed_topics, duration_ms, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Source, o.Page, o.Status, o.Error,
		o.Stats.TotalConcepts, o.Stats.TotalMCQs, o.Stats.TotalSubjective,
		o.Stats.BackfilledItems, o.Stats.FailedTopics,
		o.Duration.Milliseconds(), formatTime(finished),
	)
	if err != nil {
		return fmt.Errorf("recording job %s: %w", o.Source, err)
	}
	return nil
}

// FinishRun closes a run with its final counts and publish outcome.
func (l *Ledger) FinishRun(ctx context.Context, id string, s RunSummary) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, completed = ?, failed = ?, published = ?, publish_error = ? WHERE id = ?`,
		formatTime(l.now()), s.Completed, s.Failed, s.Published, s.PublishError, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, total, completed, failed, published, publish_error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			started    string
			finished   sql.NullString
			publishErr sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Total, &r.Completed, &r.Failed, &r.Published, &publishErr); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			r.FinishedAt = &t
		}
		r.PublishError = publishErr.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Jobs returns the outcomes recorded for a run in completion order.
func (l *Ledger) Jobs(ctx context.Context, runID string) ([]JobOutcome, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT source, page, status, error, concepts, mcqs, subjective, backfilled, failed_topics, duration_ms, finished_at
		 FROM jobs WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobOutcome
	for rows.Next() {
		var (
			o          JobOutcome
			page, msg  sql.NullString
			durationMS int64
			finished   string
		)
		if err := rows.Scan(&o.Source, &page, &o.Status, &msg,
			&o.Stats.TotalConcepts, &o.Stats.TotalMCQs, &o.Stats.TotalSubjective,
			&o.Stats.BackfilledItems, &o.Stats.FailedTopics, &durationMS, &finished); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		o.Page = page.String
		o.Error = msg.String
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if o.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		jobs = append(jobs, o)
	}
	return jobs, rows.Err()
}

// timeLayout is fixed-width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
