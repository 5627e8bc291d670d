// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// OrchestrationDuration tracks one full orchestration cycle per inbound message.
	OrchestrationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_orchestration_duration_seconds",
			Help:    "Duration of a single orchestration cycle",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	// OrchestrationsTotal tracks orchestration cycles by outcome.
	OrchestrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_orchestrations_total",
			Help: "Total orchestration cycles",
		},
		[]string{"tenant_id", "outcome"},
	)

	// HandoffsTotal tracks AI-to-human handoffs by reason.
	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_handoffs_total",
			Help: "Total conversations handed off to a human agent",
		},
		[]string{"tenant_id", "reason"},
	)

	// SilencedTotal tracks replies suppressed by an active silence window.
	SilencedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_silenced_total",
			Help: "Inbound messages suppressed by the post-handoff silence window",
		},
		[]string{"tenant_id"},
	)

	// ToolCallsTotal tracks model-requested tool executions.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Total tool calls executed on behalf of the model",
		},
		[]string{"tool", "status"},
	)

	// LLMCompletionDuration tracks model completion latency.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RepliesTotal tracks agent replies delivered to the outbound boundary.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_replies_total",
			Help: "Total agent replies sent",
		},
		[]string{"tenant_id", "intent"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordOrchestration records one orchestration cycle.
func RecordOrchestration(tenantID, outcome string, duration float64) {
	OrchestrationDuration.WithLabelValues(outcome).Observe(duration)
	OrchestrationsTotal.WithLabelValues(tenantID, outcome).Inc()
}

// RecordCompletion records metrics for a single LLM completion.
func RecordCompletion(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCompletionDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
