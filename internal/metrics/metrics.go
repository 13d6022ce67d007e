// Package metrics exposes the ambient Prometheus instrumentation for the
// job manager: counters for published/consumed/succeeded/failed jobs, a
// local-runner execution-duration histogram, and a result-cache-eviction
// counter. Grounded in the teacher repo's promhttp wiring in
// cmd/automata-worker/main.go — this package supplies the collectors,
// callers register promhttp.Handler() themselves.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_jobs_published_total",
			Help: "Total number of jobs published to a task queue.",
		},
		[]string{"function"},
	)

	jobsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_jobs_consumed_total",
			Help: "Total number of jobs received by a worker.",
		},
		[]string{"function"},
	)

	jobsSucceeded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_jobs_succeeded_total",
			Help: "Total number of jobs that completed successfully.",
		},
		[]string{"function"},
	)

	jobsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_jobs_failed_total",
			Help: "Total number of jobs that exhausted their retries and failed.",
		},
		[]string{"function"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobmanager_execution_duration_seconds",
			Help:    "Wall-clock duration of a local function execution, including retries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	cacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_result_cache_evictions_total",
			Help: "Total number of result-cache entries evicted before their waiter collected them.",
		},
		[]string{"function"},
	)
)

func init() {
	prometheus.MustRegister(
		jobsPublished,
		jobsConsumed,
		jobsSucceeded,
		jobsFailed,
		executionDuration,
		cacheEvictions,
	)
}

// IncPublished records one job published to a task queue.
func IncPublished(function string) { jobsPublished.WithLabelValues(function).Inc() }

// IncConsumed records one job received by a worker.
func IncConsumed(function string) { jobsConsumed.WithLabelValues(function).Inc() }

// IncSucceeded records one job that completed successfully.
func IncSucceeded(function string) { jobsSucceeded.WithLabelValues(function).Inc() }

// IncFailed records one job that exhausted its retries and failed.
func IncFailed(function string) { jobsFailed.WithLabelValues(function).Inc() }

// ObserveExecutionDuration records the wall-clock time a local execution
// (including retries) took, in seconds.
func ObserveExecutionDuration(function string, seconds float64) {
	executionDuration.WithLabelValues(function).Observe(seconds)
}

// IncCacheEviction records one result-cache eviction for function.
func IncCacheEviction(function string) { cacheEvictions.WithLabelValues(function).Inc() }
