package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AnalyzeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyze_results_total",
			Help: "Fingerprint analyses by outcome (risk tier or error).",
		},
		[]string{"result"},
	)

	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limiter decisions by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	DeletionRequestsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deletion_requests_processed_total",
			Help: "Deletion requests handled by the processor, by resulting status.",
		},
		[]string{"status"},
	)

	DeletedVisitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deletion_visits_removed_total",
			Help: "Visit rows removed by erasure requests.",
		},
	)

	StatsRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_refresh_total",
			Help: "Stats cache refresh attempts by result.",
		},
		[]string{"result"},
	)

	DetachedTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detached_tasks_total",
			Help: "Fire-and-forget tasks by task name and result.",
		},
		[]string{"task", "result"},
	)
)

// MustRegister registers every collector on reg, or on the default registry
// when reg is nil.
func MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AnalyzeResultsTotal,
		RateLimitDecisionsTotal,
		DeletionRequestsProcessedTotal,
		DeletedVisitsTotal,
		StatsRefreshTotal,
		DetachedTasksTotal,
	)
}
