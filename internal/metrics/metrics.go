// Package metrics registers the Prometheus collectors shared by the API and
// the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swiftstore_ingest_duration_seconds",
		Help:    "Duration of asset ingestion (transcode plus upload) in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})

	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swiftstore_ingest_total",
		Help: "Total number of ingest calls by provider and outcome",
	}, []string{"provider", "status"})

	TranscodePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swiftstore_transcode_total",
		Help: "Transcodes by number of encode passes",
	}, []string{"passes"})

	TranscodeOverBudget = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swiftstore_transcode_over_budget_total",
		Help: "Transcodes whose corrective pass still exceeded the size budget",
	})

	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swiftstore_gate_decisions_total",
		Help: "Store access decisions by outcome",
	}, []string{"outcome"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swiftstore_jobs_processed_total",
		Help: "Asynchronous ingest jobs processed by the worker",
	}, []string{"status"})
)

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
