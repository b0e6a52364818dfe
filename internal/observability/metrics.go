package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizationDecisionsTotal counts authorization outcomes.
	//
	// Example usage:
	// observability.AuthorizationDecisionsTotal.WithLabelValues("Deny", "unknown_signing_key").Inc()
	AuthorizationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_authorization_decisions_total",
			Help: "Number of authorization decisions by effect and reason.",
		},
		[]string{"effect", "reason"},
	)

	// KeySetFetchDuration tracks the latency of signing key set fetches.
	KeySetFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_jwks_fetch_duration_seconds",
			Help:    "A histogram of signing key set fetch latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	// KeyCacheLookupsTotal counts signing key cache lookups by result (hit, miss, error).
	KeyCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_key_cache_lookups_total",
			Help: "Number of signing key cache lookups by result.",
		},
		[]string{"result"},
	)

	// TodoOperationsTotal counts to-do service operations by outcome.
	TodoOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_operations_total",
			Help: "Number of to-do operations by operation and status.",
		},
		[]string{"operation", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests served.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "Number of HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	// HTTPRequestDuration tracks the latency of each route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "A histogram of HTTP request latencies by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
