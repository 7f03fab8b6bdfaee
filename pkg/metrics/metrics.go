// Package metrics provides prometheus instrumentation for the feature
// store: ingestion outcomes, compute and store latency, and online
// read traffic. Metrics are registered once at package init on the
// default registry and exposed by the HTTP layer at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestsTotal counts ingest calls by group and outcome. Status is one
	// of: success, validation_error, transformation_error, storage_error,
	// unknown_group.
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylark",
			Name:      "ingests_total",
			Help:      "Total ingest operations by feature group and outcome",
		},
		[]string{"group", "status"},
	)

	// OnlineWriteFailures counts best-effort online cache refreshes that
	// failed after a successful offline append.
	OnlineWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylark",
			Name:      "online_write_failures_total",
			Help:      "Online store writes that failed after the offline append succeeded",
		},
		[]string{"group"},
	)

	// OnlineReads counts online point reads by group and hit/miss.
	OnlineReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylark",
			Name:      "online_reads_total",
			Help:      "Online feature reads by group and result",
		},
		[]string{"group", "result"},
	)

	// ComputeLatency observes feature group computation time.
	ComputeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skylark",
			Name:      "compute_duration_seconds",
			Help:      "Feature group computation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"group"},
	)

	// StoreLatency observes store adapter operation time.
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skylark",
			Name:      "store_duration_seconds",
			Help:      "Store adapter operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)
)

// Timer measures one operation's duration into a histogram.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer starts a timer against the given histogram labels.
func NewTimer(observer prometheus.Observer) *Timer {
	return &Timer{start: time.Now(), observer: observer}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.observer.Observe(elapsed.Seconds())
	return elapsed
}
