// Package metrics exports Prometheus counters and histograms for synthesis
// runs. Metrics live in a private registry and can be written to a textfile
// for the node_exporter textfile collector.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

const namespace = "parsegen"

// Metrics holds the run metrics.
type Metrics struct {
	registry *prometheus.Registry

	// RunsTotal counts finished runs. Labels: target, outcome (success, failed)
	RunsTotal *prometheus.CounterVec
	// AttemptsTotal counts validated attempts. Labels: target, verdict
	AttemptsTotal *prometheus.CounterVec
	// LLMCallsTotal counts LLM calls. Labels: operation, status (ok, error)
	LLMCallsTotal *prometheus.CounterVec
	// TokensTotal counts tokens. Labels: operation, direction (prompt, completion)
	TokensTotal *prometheus.CounterVec
	// LLMCallSeconds measures LLM call latency. Labels: operation
	LLMCallSeconds *prometheus.HistogramVec
	// BackoffSeconds sums the time spent waiting after transient errors.
	BackoffSeconds prometheus.Counter
	// AttemptsPerRun records how many attempts each run used.
	AttemptsPerRun prometheus.Histogram
}

// New registers the metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished synthesis runs by target and outcome.",
		}, []string{"target", "outcome"}),
		AttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Validated candidates by target and verdict.",
		}, []string{"target", "verdict"}),
		LLMCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by operation and status.",
		}, []string{"operation", "status"}),
		TokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens by operation and direction.",
		}, []string{"operation", "direction"}),
		LLMCallSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"operation"}),
		BackoffSeconds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backoff_seconds_total",
			Help:      "Time spent backing off after transient LLM errors.",
		}),
		AttemptsPerRun: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts_per_run",
			Help:      "Attempts used by each finished run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the current values in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Hook feeds orchestrator events into Metrics.
type Hook struct {
	engine.NopHook
	m *Metrics
}

// Hook returns an engine.Hook recording into m.
func (m *Metrics) Hook() *Hook { return &Hook{m: m} }

func (h *Hook) OnVerdict(_ context.Context, st *engine.State, v engine.Verdict) {
	h.m.AttemptsTotal.WithLabelValues(st.TargetID, string(v.Status)).Inc()
}

func (h *Hook) OnLLMCall(_ context.Context, call engine.LLMCall) {
	op := string(call.Operation)
	status := "ok"
	if call.Err != nil {
		status = "error"
	}
	h.m.LLMCallsTotal.WithLabelValues(op, status).Inc()
	h.m.LLMCallSeconds.WithLabelValues(op).Observe(call.Duration.Seconds())
	h.m.TokensTotal.WithLabelValues(op, "prompt").Add(float64(call.Usage.Prompt))
	h.m.TokensTotal.WithLabelValues(op, "completion").Add(float64(call.Usage.Completion))
}

func (h *Hook) OnBackoff(_ context.Context, _ *engine.State, delay time.Duration, _ error) {
	h.m.BackoffSeconds.Add(delay.Seconds())
}

func (h *Hook) OnRunEnd(_ context.Context, st *engine.State, res engine.Result) {
	outcome := "failed"
	if res.Success {
		outcome = "success"
	}
	h.m.RunsTotal.WithLabelValues(st.TargetID, outcome).Inc()
	h.m.AttemptsPerRun.Observe(float64(res.Attempts))
}
