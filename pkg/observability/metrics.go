// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the prompt tester server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// InferenceBuckets defines histogram buckets suited for inference latencies,
// ranging from 100ms to 120s.
var InferenceBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, path, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompttester_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompttester_request_duration_seconds",
			Help:    "Request duration",
			Buckets: InferenceBuckets,
		},
		[]string{"method", "path"},
	)

	// InflightRequests tracks the number of requests currently being served.
	InflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prompttester_inflight_requests",
			Help: "Requests currently in flight",
		},
	)

	// UpstreamRequestsTotal counts requests sent to the inference backend.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompttester_upstream_requests_total",
			Help: "Upstream inference requests",
		},
		[]string{"model", "status"},
	)

	// UpstreamLatency records inference backend latency in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompttester_upstream_latency_seconds",
			Help:    "Upstream inference latency",
			Buckets: InferenceBuckets,
		},
		[]string{"model"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompttester_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InflightRequests,
		UpstreamRequestsTotal,
		UpstreamLatency,
		RateLimitRejectedTotal,
	)
}
