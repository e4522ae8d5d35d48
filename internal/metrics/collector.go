// Package metrics exposes Prometheus instruments for agents, tools,
// workflows, model calls and the HTTP API. A nil *Collector is valid and
// records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the registered instruments.
type Collector struct {
	agentTurnsTotal   *prometheus.CounterVec
	agentTurnDuration *prometheus.HistogramVec

	toolExecutionsTotal *prometheus.CounterVec
	toolDuration        *prometheus.HistogramVec

	workflowRunsTotal *prometheus.CounterVec
	workflowDuration  *prometheus.HistogramVec

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	traceSinkErrors *prometheus.CounterVec
}

// NewCollector registers all instruments with reg under namespace. A nil
// reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		agentTurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_turns_total",
			Help:      "Total number of agent turns",
		}, []string{"agent", "status"}),
		agentTurnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_turn_duration_seconds",
			Help:      "Agent turn duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"agent"}),

		toolExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions by outcome state",
		}, []string{"tool", "state"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),

		workflowRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow runs",
		}, []string{"pattern", "status"}),
		workflowDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Workflow duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"pattern"}),

		llmRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		}, []string{"model", "status"}),
		llmRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),
		llmTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		}, []string{"model", "type"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		traceSinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trace_sink_errors_total",
			Help:      "Trace records that could not be persisted",
		}, []string{"kind"}),
	}
}

// RecordAgentTurn records one agent turn.
func (c *Collector) RecordAgentTurn(agent, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.agentTurnsTotal.WithLabelValues(agent, status).Inc()
	c.agentTurnDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// RecordToolExecution records one tool outcome.
func (c *Collector) RecordToolExecution(tool, state string, d time.Duration) {
	if c == nil {
		return
	}
	c.toolExecutionsTotal.WithLabelValues(tool, state).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordWorkflow records one workflow run.
func (c *Collector) RecordWorkflow(pattern, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.workflowRunsTotal.WithLabelValues(pattern, status).Inc()
	c.workflowDuration.WithLabelValues(pattern).Observe(d.Seconds())
}

// RecordLLMRequest records one completion call and its token usage.
func (c *Collector) RecordLLMRequest(model, status string, d time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(model, status).Inc()
	c.llmRequestDuration.WithLabelValues(model).Observe(d.Seconds())

	if promptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordHTTPRequest records one HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordTraceSinkError counts a dropped trace or span record.
func (c *Collector) RecordTraceSinkError(kind string) {
	if c == nil {
		return
	}
	c.traceSinkErrors.WithLabelValues(kind).Inc()
}
