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

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Search requests by mode",
		},
		[]string{"mode"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end search latency by mode",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	RetrieverFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_retriever_failures_total",
			Help: "Retriever branches that failed or timed out and contributed no results",
		},
		[]string{"source", "reason"},
	)

	RetrieverFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_retriever_fallbacks_total",
			Help: "Fallbacks taken because a collaborator was unavailable",
		},
		[]string{"from", "to"},
	)

	RankedResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranking_results_count",
			Help:    "Number of candidates ranked per call",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	RankingWeightsReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_weights_reloads_total",
			Help: "Weight store reads by outcome",
		},
		[]string{"outcome"},
	)

	AnalyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_analytics_events_total",
			Help: "Ranking analytics writes by outcome",
		},
		[]string{"outcome"},
	)
)
