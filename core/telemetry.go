package core

import "time"

// TelemetryHook receives notifications about the integration layer's
// lifecycle events: requests, retries, circuit transitions, and mode
// transitions. Implementations can use it for logging, metrics, or
// tracing.
//
// Event types carry only operational metadata. Message content, upstream
// payloads, and credentials are never included, so telemetry data is safe
// to ship to external monitoring systems.
type TelemetryHook interface {
	// OnRequestStart is called when an upstream attempt begins.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called when a logical operation completes, on
	// either the live or the fallback path.
	OnRequestEnd(e RequestEndEvent)

	// OnRetry is called for every retry decision that allows another
	// attempt.
	OnRetry(e RetryEvent)

	// OnCircuitChange is called on every circuit breaker transition.
	OnCircuitChange(e CircuitChangeEvent)

	// OnModeChange is called on every live/fallback mode transition.
	OnModeChange(e ModeChangeEvent)
}

// RequestStartEvent contains metadata about a starting upstream attempt.
type RequestStartEvent struct {
	Target    string
	Kind      OperationKind
	Streaming bool
	Attempt   int // 0 for the first attempt
	Start     time.Time
}

// RequestEndEvent contains metadata about a completed logical operation.
type RequestEndEvent struct {
	Target    string
	Kind      OperationKind
	Streaming bool
	Live      bool // false when the fallback responder answered
	Start     time.Time
	End       time.Time
	Err       error // non-nil only for hard failures surfaced to the caller
}

// Duration returns the elapsed time for the operation.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// RetryEvent describes one retry decision.
type RetryEvent struct {
	Target  string
	Class   ErrorClass
	Attempt int // attempts already made
	Delay   time.Duration
	At      time.Time
}

// CircuitChangeEvent describes a circuit breaker transition.
type CircuitChangeEvent struct {
	Target string
	From   CircuitState
	To     CircuitState
	Reason string
	At     time.Time
}

// ModeChangeEvent describes a live/fallback mode transition.
type ModeChangeEvent struct {
	Target string
	From   ServiceMode
	To     ServiceMode
	Reason string
	At     time.Time
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
// Use this as a default when no telemetry is configured.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

// OnRetry does nothing.
func (NoopTelemetryHook) OnRetry(RetryEvent) {}

// OnCircuitChange does nothing.
func (NoopTelemetryHook) OnCircuitChange(CircuitChangeEvent) {}

// OnModeChange does nothing.
func (NoopTelemetryHook) OnModeChange(ModeChangeEvent) {}

// Compile-time check that NoopTelemetryHook implements TelemetryHook.
var _ TelemetryHook = NoopTelemetryHook{}
