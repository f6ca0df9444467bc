package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTP series are labelled by route pattern, never by raw path.
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_http_requests_total",
			Help: "Total number of HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlask_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern. Model-backed routes dominate the upper buckets.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	panicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlask_http_panics_total",
			Help: "Total number of handler panics recovered by the server.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, panicsTotal)
}
