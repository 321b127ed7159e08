package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petal-labs/relay/core"
)

// MetricsHook exports telemetry events as Prometheus metrics.
type MetricsHook struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	circuit  *prometheus.CounterVec
	mode     *prometheus.CounterVec
}

// NewMetricsHook creates a hook registering its collectors with the
// given registerer. A nil registerer uses the default registry.
func NewMetricsHook(reg prometheus.Registerer) *MetricsHook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	h := &MetricsHook{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_operations_total",
			Help: "Completed logical operations by target, kind, provenance, and outcome.",
		}, []string{"target", "kind", "live", "ok"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_operation_duration_seconds",
			Help:    "End-to-end duration of logical operations, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target", "kind"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_retries_total",
			Help: "Retry decisions by target and error class.",
		}, []string{"target", "class"}),
		circuit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_circuit_transitions_total",
			Help: "Circuit breaker transitions by target and destination state.",
		}, []string{"target", "to"}),
		mode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_mode_transitions_total",
			Help: "Service mode transitions by target and destination mode.",
		}, []string{"target", "to"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_upstream_attempts_total",
			Help: "Individual upstream attempts by target, first tries and retries alike.",
		}, []string{"target"}),
	}

	reg.MustRegister(h.requests, h.duration, h.attempts, h.retries, h.circuit, h.mode)
	return h
}

// OnRequestStart counts upstream attempts.
func (h *MetricsHook) OnRequestStart(e core.RequestStartEvent) {
	h.attempts.WithLabelValues(e.Target).Inc()
}

// OnRequestEnd records the operation outcome and duration.
func (h *MetricsHook) OnRequestEnd(e core.RequestEndEvent) {
	h.requests.WithLabelValues(
		e.Target,
		string(e.Kind),
		strconv.FormatBool(e.Live),
		strconv.FormatBool(e.Err == nil),
	).Inc()
	h.duration.WithLabelValues(e.Target, string(e.Kind)).Observe(e.Duration().Seconds())
}

// OnRetry counts retry decisions.
func (h *MetricsHook) OnRetry(e core.RetryEvent) {
	h.retries.WithLabelValues(e.Target, e.Class.String()).Inc()
}

// OnCircuitChange counts circuit transitions.
func (h *MetricsHook) OnCircuitChange(e core.CircuitChangeEvent) {
	h.circuit.WithLabelValues(e.Target, e.To.String()).Inc()
}

// OnModeChange counts mode transitions.
func (h *MetricsHook) OnModeChange(e core.ModeChangeEvent) {
	h.mode.WithLabelValues(e.Target, e.To.String()).Inc()
}

// Compile-time check that MetricsHook implements TelemetryHook.
var _ core.TelemetryHook = (*MetricsHook)(nil)
