// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the recyclematch service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// RequestBuckets defines histogram buckets for HTTP request latencies. The
// upper buckets cover requests that wait on a cold embedding call, which can
// include a remote image fetch.
var RequestBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// SearchBuckets defines histogram buckets for in-memory vector scans, which
// complete in well under a second at the store sizes this service targets.
var SearchBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.025, 0.1, 0.5, 1}

var (
	// RequestsTotal counts all HTTP requests by method, path, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recyclematch_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recyclematch_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: RequestBuckets,
		},
		[]string{"method", "path"},
	)

	// MatchRequestsTotal counts match computations by outcome.
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recyclematch_match_requests_total",
			Help: "Match computations",
		},
		[]string{"status"},
	)

	// VectorSearchDuration records the latency of nearest-neighbor scans.
	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recyclematch_vector_search_duration_seconds",
			Help:    "Vector store search latency",
			Buckets: SearchBuckets,
		},
	)

	// VectorStoreSize tracks the number of records in the vector store.
	VectorStoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recyclematch_vector_store_records",
			Help: "Records in the vector store",
		},
	)

	// EmbeddingRequestsTotal counts requests sent to the embedding provider.
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recyclematch_embedding_requests_total",
			Help: "Embedding provider requests",
		},
		[]string{"kind", "status"},
	)

	// EmbeddingLatency records embedding provider latency in seconds.
	EmbeddingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recyclematch_embedding_latency_seconds",
			Help:    "Embedding provider latency",
			Buckets: RequestBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		MatchRequestsTotal,
		VectorSearchDuration,
		VectorStoreSize,
		EmbeddingRequestsTotal,
		EmbeddingLatency,
	)
}
