// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records pipeline observability data. Components take a
// Recorder; NoopRecorder is the default and PrometheusRecorder is used when
// a metrics textfile is configured.
package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// Item kinds for backfill counters.
const (
	KindConcept    = "concept"
	KindMCQ        = "mcq"
	KindSubjective = "subjective"
)

// Recorder defines observability hooks for the pipeline. Implementations must
// be safe for concurrent use by workers.
type Recorder interface {
	JobStarted()
	JobFinished(result ResultLabel, d time.Duration)
	AddBackfilled(kind string, n int)
	AddTopicFailures(n int)
	IncPublish(result ResultLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) JobStarted()                            {}
func (NoopRecorder) JobFinished(ResultLabel, time.Duration) {}
func (NoopRecorder) AddBackfilled(string, int)              {}
func (NoopRecorder) AddTopicFailures(int)                   {}
func (NoopRecorder) IncPublish(ResultLabel)                 {}
