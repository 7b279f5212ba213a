// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "adlibrary"

// Run outcomes.
const (
	RunFresh  = "fresh"
	RunCached = "cached"
	RunStale  = "stale"
	RunFailed = "failed"
)

// Recorder records pipeline activity. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	runs           *prometheus.CounterVec
	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	dropped        *prometheus.CounterVec
	records        prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source fetches by source and result.",
		}, []string{"source", "result"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_seconds",
			Help:      "Source fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Records removed during reconciliation by reason.",
		}, []string{"reason"}),
		records: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciled_records",
			Help:      "Records returned per fresh run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(r.runs, r.sourceFetches, r.sourceDuration, r.dropped, r.records)
	return r
}

// Run counts one pipeline run with the given outcome.
func (r *Recorder) Run(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

// Source records one fetch.
func (r *Recorder) Source(name string, d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.sourceFetches.WithLabelValues(name, result).Inc()
	r.sourceDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Dropped counts records removed for reason. Zero counts are ignored.
func (r *Recorder) Dropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.dropped.WithLabelValues(reason).Add(float64(n))
}

// Reconciled observes the size of a reconciled list.
func (r *Recorder) Reconciled(n int) {
	if r == nil {
		return
	}
	r.records.Observe(float64(n))
}
