package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: queries served from the response cache.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sommelier_cache_hits_total",
			Help: "Total number of response cache hits.",
		},
	)

	// Counter: queries that required a new generation.
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sommelier_cache_misses_total",
			Help: "Total number of response cache misses.",
		},
	)

	// Counter: absorbed collaborator failures, by kind.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_errors_total",
			Help: "Total number of absorbed collaborator errors.",
		},
		[]string{"kind"},
	)

	// Counter: store operations issued by the cache, by operation.
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_store_operations_total",
			Help: "Total number of operations against the answer store.",
		},
		[]string{"operation"},
	)

	// Counter: HTTP requests served, by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	// Histogram: end-to-end query latency in seconds, by outcome.
	QueryLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sommelier_query_latency_seconds",
			Help:    "End-to-end query latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		ErrorsTotal,
		StoreOperationsTotal,
		HTTPRequestsTotal,
		QueryLatencySeconds,
	)
}

// Middleware counts HTTP requests by method, path, and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
