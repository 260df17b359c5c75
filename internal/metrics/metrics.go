// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tanya_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration covers everything from static pages to a full model round trip.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tanya_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// QueriesTotal counts answered questions by outcome ("ok", "invalid", "model_error", "error").
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tanya_queries_total",
			Help: "Total number of questions processed",
		},
		[]string{"outcome"},
	)

	// QueryDuration is the end-to-end latency of one question.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tanya_query_duration_seconds",
			Help:    "Duration of question answering in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// IndexBuildsTotal counts folder index builds by outcome.
	IndexBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tanya_index_builds_total",
			Help: "Total number of index builds",
		},
		[]string{"outcome"},
	)

	// IndexedChunks is the number of chunks in the current index.
	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tanya_indexed_chunks",
			Help: "Number of chunks in the loaded document index",
		},
	)

	// EmbeddingCacheLookups counts memoized embedding lookups by result ("hit", "miss").
	EmbeddingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tanya_embedding_cache_lookups_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	// ProviderCallDuration is the latency of embedding and model provider calls.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tanya_provider_call_duration_seconds",
			Help:    "Duration of external provider calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind", "provider"},
	)
)

// ObserveProvider records how long a provider call took.
func ObserveProvider(kind, provider string, start time.Time) {
	ProviderCallDuration.WithLabelValues(kind, provider).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
