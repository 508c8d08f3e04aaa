// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of each tourism pipeline stage in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage", "status"},
	)

	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_fallback_total",
			Help: "Number of times an NLU or NER call was served by the fallback provider",
		},
		[]string{"kind", "provider", "reason"},
	)

	CanonicalizationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canonicalization_failures_total",
			Help: "Structured tourism payloads rejected by the canonicalizer",
		},
		[]string{"source"},
	)

	NLUCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_cache_requests_total",
			Help: "NLU cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
