package observability

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics exposed on /metrics. Command and query metrics are
// recorded by the bus middleware; the HTTP metrics by the router.
var (
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_commands_total",
			Help: "Total commands by type and outcome",
		},
		[]string{"command", "outcome"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_query_duration_seconds",
			Help:    "Query handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_queries_total",
			Help: "Total queries by type and outcome",
		},
		[]string{"query", "outcome"},
	)

	TraceSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_trace_sessions_active",
			Help: "Currently open trace sessions",
		},
	)

	TraceExpansionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_trace_expansions_total",
			Help: "Total trace expansion operations",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestDuration, HTTPRequestsTotal,
		CommandDuration, CommandsTotal,
		QueryDuration, QueriesTotal,
		TraceSessionsActive, TraceExpansionsTotal,
	)
}
