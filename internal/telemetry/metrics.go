// Package telemetry exposes Prometheus collectors for the ingestion service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestPostingsTotal        *prometheus.CounterVec
	ingestSourceFailuresTotal  *prometheus.CounterVec
	ingestRunsTotal            *prometheus.CounterVec
	ingestRunDurationSeconds   prometheus.Histogram
	ingestFetchDurationSeconds *prometheus.HistogramVec
	ingestRateLimitWaitSeconds *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Posting outcomes recorded per source.
const (
	OutcomeFetched   = "fetched"
	OutcomeMalformed = "malformed"
	OutcomeFiltered  = "filtered"
	OutcomeDuplicate = "duplicate"
	OutcomeWritten   = "written"
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestPostingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_postings_total",
				Help: "Total postings processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		ingestSourceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_source_failures_total",
				Help: "Total source fetch failures, labeled by source and failure class.",
			},
			[]string{"source", "class"},
		)

		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Total pipeline runs, labeled by result.",
			},
			[]string{"result"},
		)

		ingestRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Histogram of end-to-end run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		ingestFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_fetch_duration_seconds",
				Help:    "Histogram of per-source fetch durations.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"source"},
		)

		ingestRateLimitWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_rate_limit_wait_seconds",
				Help:    "Histogram of time spent waiting on per-source rate limiters.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePostings adds n postings for the source and outcome.
func ObservePostings(source, outcome string, n int) {
	if n <= 0 {
		return
	}
	ingestPostingsTotal.WithLabelValues(source, outcome).Add(float64(n))
}

// ObserveSourceFailure increments the failure counter for the class.
func ObserveSourceFailure(source, class string) {
	ingestSourceFailuresTotal.WithLabelValues(source, class).Inc()
}

// ObserveRun records a completed run.
func ObserveRun(result string, duration time.Duration) {
	ingestRunsTotal.WithLabelValues(result).Inc()
	ingestRunDurationSeconds.Observe(duration.Seconds())
}

// ObserveFetch records how long one source's fetch took.
func ObserveFetch(source string, duration time.Duration) {
	ingestFetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveRateLimitWait records time spent throttled before a fetch. It
// is a no-op before Init so throttled code paths stay testable without
// registering collectors.
func ObserveRateLimitWait(source string, duration time.Duration) {
	if ingestRateLimitWaitSeconds == nil {
		return
	}
	ingestRateLimitWaitSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
