package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_requests_total",
			Help: "Total number of processed chat messages",
		},
		[]string{"mode", "intent", "escalated"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auracx_request_duration_seconds",
			Help:    "End-to-end message processing time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RouteDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_route_decisions_total",
			Help: "Router transitions out of classification",
		},
		[]string{"route"},
	)

	DegradedClassifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auracx_classifications_degraded_total",
			Help: "Classifications that fell back to the degraded default",
		},
	)

	AgentInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_agent_invocations_total",
			Help: "Domain agent invocations by outcome",
		},
		[]string{"agent", "outcome"},
	)

	AgentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auracx_agent_duration_seconds",
			Help:    "Domain agent run time in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2},
		},
		[]string{"agent"},
	)

	Redactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_redactions_total",
			Help: "Masked PII spans by category",
		},
		[]string{"category"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_escalations_total",
			Help: "Escalated responses by reason",
		},
		[]string{"reason"},
	)

	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_sink_failures_total",
			Help: "Best-effort sink deliveries that failed",
		},
		[]string{"sink"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auracx_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// Outcome labels for AgentInvocations.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomePanic    = "panic"
)
