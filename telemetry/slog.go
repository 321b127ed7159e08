// Package telemetry provides ready-made core.TelemetryHook
// implementations: structured logging via log/slog and Prometheus
// metrics.
package telemetry

import (
	"log/slog"

	"github.com/petal-labs/relay/core"
)

// LogHook emits one structured log line per telemetry event. It carries
// the fields the observability contract requires: target id, old/new
// state, reason, and timestamp.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook creates a hook writing to the given logger. A nil logger
// uses slog.Default.
func NewLogHook(logger *slog.Logger) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHook{logger: logger}
}

// OnRequestStart logs the start of an upstream attempt at debug level.
func (h *LogHook) OnRequestStart(e core.RequestStartEvent) {
	h.logger.Debug("upstream attempt started",
		"target", e.Target,
		"kind", string(e.Kind),
		"streaming", e.Streaming,
		"attempt", e.Attempt,
	)
}

// OnRequestEnd logs the outcome of a logical operation.
func (h *LogHook) OnRequestEnd(e core.RequestEndEvent) {
	attrs := []any{
		"target", e.Target,
		"kind", string(e.Kind),
		"streaming", e.Streaming,
		"live", e.Live,
		"duration", e.Duration(),
	}
	if e.Err != nil {
		h.logger.Error("operation failed", append(attrs, "error", e.Err)...)
		return
	}
	h.logger.Info("operation completed", attrs...)
}

// OnRetry logs a retry decision.
func (h *LogHook) OnRetry(e core.RetryEvent) {
	h.logger.Info("retry scheduled",
		"target", e.Target,
		"class", e.Class.String(),
		"attempt", e.Attempt,
		"delay", e.Delay,
		"at", e.At,
	)
}

// OnCircuitChange logs a circuit breaker transition.
func (h *LogHook) OnCircuitChange(e core.CircuitChangeEvent) {
	h.logger.Warn("circuit transition",
		"target", e.Target,
		"from", e.From.String(),
		"to", e.To.String(),
		"reason", e.Reason,
		"at", e.At,
	)
}

// OnModeChange logs a live/fallback mode transition.
func (h *LogHook) OnModeChange(e core.ModeChangeEvent) {
	h.logger.Warn("mode transition",
		"target", e.Target,
		"from", e.From.String(),
		"to", e.To.String(),
		"reason", e.Reason,
		"at", e.At,
	)
}

// Compile-time check that LogHook implements TelemetryHook.
var _ core.TelemetryHook = (*LogHook)(nil)
