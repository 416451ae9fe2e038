// Package metrics exposes Prometheus collectors for the orchestration service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestJobsTotal            *prometheus.CounterVec
	ingestChunksTotal          prometheus.Counter
	ingestPageFailures         prometheus.Counter
	queryDurationSeconds       prometheus.Histogram
	graphProbeTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlprime_ingest_jobs_total",
				Help: "Total number of ingest jobs reaching a terminal state, labeled by status.",
			},
			[]string{"status"},
		)

		ingestChunksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlprime_ingest_chunks_total",
				Help: "Total number of content chunks indexed across all ingests.",
			},
		)

		ingestPageFailures = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlprime_ingest_page_failures_total",
				Help: "Total number of sub-page failures recorded during ingests.",
			},
		)

		queryDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawlprime_query_duration_seconds",
				Help:    "End-to-end query latency including retrieval and synthesis.",
				Buckets: prometheus.DefBuckets,
			},
		)

		graphProbeTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlprime_graph_probe_total",
				Help: "Graph backend reachability probe outcomes.",
			},
			[]string{"reachable"},
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
				Help:    "HTTP request latency, labeled by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveJobFinished records a terminal job outcome.
func ObserveJobFinished(status string, chunks int, pageFailures int) {
	Init()
	ingestJobsTotal.WithLabelValues(status).Inc()
	ingestChunksTotal.Add(float64(chunks))
	ingestPageFailures.Add(float64(pageFailures))
}

// ObserveQuery records one query's end-to-end latency.
func ObserveQuery(d time.Duration) {
	Init()
	queryDurationSeconds.Observe(d.Seconds())
}

// ObserveGraphProbe records a reachability probe outcome.
func ObserveGraphProbe(reachable bool) {
	Init()
	graphProbeTotal.WithLabelValues(strconv.FormatBool(reachable)).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
