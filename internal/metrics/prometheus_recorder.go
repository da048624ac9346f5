// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "learnsite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	jobs          *prom.CounterVec
	jobDuration   prom.Histogram
	backfilled    *prom.CounterVec
	topicFailures prom.Counter
	inFlight      prom.Gauge
	publishes     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics on
// reg, or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		jobs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Documents processed by outcome",
		}, []string{"result"}),
		jobDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time to process one document end to end",
			Buckets:   prom.ExponentialBuckets(1, 2, 12),
		}),
		backfilled: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "backfilled_items_total",
			Help:      "Placeholder items generated to meet minimum counts",
		}, []string{"kind"}),
		topicFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "topic_failures_total",
			Help:      "Topics whose synthesis call failed",
		}),
		inFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Documents currently being processed",
		}),
		publishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by outcome",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.jobs, pr.jobDuration, pr.backfilled, pr.topicFailures, pr.inFlight, pr.publishes)
	return pr
}

func (p *PrometheusRecorder) JobStarted() {
	if p == nil {
		return
	}
	p.inFlight.Inc()
}

func (p *PrometheusRecorder) JobFinished(result ResultLabel, d time.Duration) {
	if p == nil {
		return
	}
	p.inFlight.Dec()
	p.jobs.WithLabelValues(string(result)).Inc()
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddBackfilled(kind string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.backfilled.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) AddTopicFailures(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.topicFailures.Add(float64(n))
}

func (p *PrometheusRecorder) IncPublish(result ResultLabel) {
	if p == nil {
		return
	}
	p.publishes.WithLabelValues(string(result)).Inc()
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// format, for scraping a batch job after it exits.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
