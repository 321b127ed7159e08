package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Responder executes operations against one backend. Both the live
// upstream client and the local fallback responder implement it, which is
// what lets the orchestrator swap one for the other without changing the
// result shape.
type Responder interface {
	// ID returns the responder identifier (e.g. "agentapi", "fallback").
	ID() string

	// Send executes a non-streaming operation.
	Send(ctx context.Context, op *Operation) (*Result, error)

	// Stream executes a streaming operation.
	Stream(ctx context.Context, op *Operation) (*EventStream, error)
}

// HealthChecker is an optional interface for responders that can probe
// their backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthStatus reports the orchestrator's view of one target.
type HealthStatus struct {
	Target       string `json:"target"`
	Mode         string `json:"mode"`
	ModeReason   string `json:"mode_reason,omitempty"`
	CircuitState string `json:"circuit_state"`
	Upstream     string `json:"upstream"` // "reachable", "not probed", or the probe error
}

// Orchestrator executes logical operations against upstream targets,
// degrading to the fallback responder when the target's mode, circuit
// breaker, or error classification says the upstream should not (or
// could not) serve the call.
//
// The external contract never differs between live and fallback
// execution: callers always receive the same Result or EventStream
// shape, with Live as the only provenance marker.
//
// Orchestrator is safe for concurrent use; overlapping operations share
// only the per-target breaker and mode state, which serialize internally.
type Orchestrator struct {
	upstream Responder
	fallback Responder

	registry          *TargetRegistry
	retry             RetryPolicy
	telemetry         TelemetryHook
	logger            *slog.Logger
	countClientErrors bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRegistry sets the shared target registry. Pass the same registry to
// every orchestrator that must share circuit and mode state.
func WithRegistry(r *TargetRegistry) OrchestratorOption {
	return func(o *Orchestrator) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p RetryPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		if p != nil {
			o.retry = p
		}
	}
}

// WithTelemetry sets the telemetry hook for request and retry events.
func WithTelemetry(h TelemetryHook) OrchestratorOption {
	return func(o *Orchestrator) {
		if h != nil {
			o.telemetry = h
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClientErrorCounting controls whether client errors count toward the
// circuit failure threshold. Off by default: a 4xx indicates a caller
// bug, not upstream unhealthiness.
func WithClientErrorCounting(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.countClientErrors = enabled
	}
}

// withSleep overrides the inter-retry sleep. Used by tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// NewOrchestrator creates an orchestrator over the given upstream and
// fallback responders.
func NewOrchestrator(upstream, fallback Responder, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		upstream:  upstream,
		fallback:  fallback,
		retry:     DefaultRetryPolicy(),
		telemetry: NoopTelemetryHook{},
		logger:    slog.Default(),
		now:       time.Now,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = NewTargetRegistry(
			WithRegistryTelemetry(o.telemetry),
			WithRegistryLogger(o.logger),
		)
	}
	return o
}

// Registry returns the registry holding per-target circuit and mode
// state, for health surfaces and operator tooling.
func (o *Orchestrator) Registry() *TargetRegistry {
	return o.registry
}

// Execute runs one non-streaming operation against the given target,
// retrying transient failures and degrading to the fallback responder
// according to the error classification.
func (o *Orchestrator) Execute(ctx context.Context, target string, op *Operation) (*Result, error) {
	start := o.now()
	t := o.registry.Target(target)

	if reason, skip := o.shortCircuit(t); skip {
		res, err := o.fallbackSend(ctx, target, op, reason)
		o.finish(target, op, false, true, start, err)
		return res, err
	}

	for attempt := 0; ; attempt++ {
		o.telemetry.OnRequestStart(RequestStartEvent{
			Target: target, Kind: op.Kind, Attempt: attempt, Start: o.now(),
		})

		res, err := o.upstream.Send(ctx, op)
		if err == nil {
			t.Breaker.RecordSuccess()
			res.OK = true
			res.Live = true
			o.finish(target, op, false, false, start, nil)
			return res, nil
		}

		next, reason, herr := o.handleFailure(ctx, t, op, attempt, err)
		switch next {
		case failureRetry:
			continue
		case failureFallback:
			res, ferr := o.fallbackSend(ctx, target, op, reason)
			o.finish(target, op, false, true, start, ferr)
			return res, ferr
		default:
			o.finish(target, op, false, false, start, herr)
			return nil, herr
		}
	}
}

// ExecuteStream runs one streaming operation against the given target.
// Failures to establish the stream follow the same retry and fallback
// rules as Execute; failures after the stream is established surface as
// an EventError on the stream itself.
func (o *Orchestrator) ExecuteStream(ctx context.Context, target string, op *Operation) (*EventStream, error) {
	start := o.now()
	t := o.registry.Target(target)

	if reason, skip := o.shortCircuit(t); skip {
		s, err := o.fallbackStream(ctx, target, op, reason)
		o.finish(target, op, true, true, start, err)
		return s, err
	}

	for attempt := 0; ; attempt++ {
		o.telemetry.OnRequestStart(RequestStartEvent{
			Target: target, Kind: op.Kind, Streaming: true, Attempt: attempt, Start: o.now(),
		})

		s, err := o.upstream.Stream(ctx, op)
		if err == nil {
			t.Breaker.RecordSuccess()
			s.Live = true
			o.finish(target, op, true, false, start, nil)
			return s, nil
		}

		next, reason, herr := o.handleFailure(ctx, t, op, attempt, err)
		switch next {
		case failureRetry:
			continue
		case failureFallback:
			s, ferr := o.fallbackStream(ctx, target, op, reason)
			o.finish(target, op, true, true, start, ferr)
			return s, ferr
		default:
			o.finish(target, op, true, false, start, herr)
			return nil, herr
		}
	}
}

// Health reports the target's mode and circuit state and, when the mode
// is live, probes the upstream if it supports probing.
func (o *Orchestrator) Health(ctx context.Context, target string) *HealthStatus {
	t := o.registry.Target(target)
	mode, reason, _ := t.Mode.Status()

	status := &HealthStatus{
		Target:       target,
		Mode:         mode.String(),
		ModeReason:   reason,
		CircuitState: t.Breaker.State().String(),
		Upstream:     "not probed",
	}

	if mode == ModeLive {
		if hc, ok := o.upstream.(HealthChecker); ok {
			if err := hc.CheckHealth(ctx); err != nil {
				status.Upstream = err.Error()
			} else {
				status.Upstream = "reachable"
			}
		}
	}
	return status
}

type failureNext int

const (
	failureSurface failureNext = iota
	failureRetry
	failureFallback
)

// shortCircuit decides whether the call must skip the network entirely.
func (o *Orchestrator) shortCircuit(t *Target) (reason string, skip bool) {
	if t.Mode.Current() == ModeFallback {
		return "target in fallback mode", true
	}
	if !t.Breaker.Allow() {
		return "circuit breaker open", true
	}
	return "", false
}

// handleFailure classifies one failed attempt and decides what happens
// next: retry, degrade to fallback (with the reason), or surface the
// returned error to the caller.
func (o *Orchestrator) handleFailure(ctx context.Context, t *Target, op *Operation, attempt int, err error) (failureNext, string, error) {
	// A cancelled caller is not an upstream failure: release any trial
	// permit without touching the counters and surface the context error.
	if ctx.Err() != nil {
		t.Breaker.CancelTrial()
		return failureSurface, "", ctx.Err()
	}

	class := Classify(err)
	o.logger.Warn("upstream attempt failed",
		"target", t.ID,
		"kind", string(op.Kind),
		"class", class.String(),
		"attempt", attempt,
		"error", err,
	)

	switch class {
	case ClassClient:
		if o.countClientErrors {
			t.Breaker.RecordFailure()
		} else {
			t.Breaker.CancelTrial()
		}
		return failureSurface, "", err

	case ClassNetwork:
		// A broken transport will not self-heal within this call; do not
		// spend the retry budget on it.
		t.Breaker.RecordFailure()
		t.Mode.SwitchToFallback("network failure: " + err.Error())
		return failureFallback, "network failure", nil

	default: // ClassServer, ClassTimeout
		t.Breaker.RecordFailure()
		tried := attempt + 1
		if !o.retry.ShouldRetry(class, tried) {
			t.Mode.SwitchToFallback(fmt.Sprintf("retries exhausted after %s errors", class))
			return failureFallback, "retries exhausted", nil
		}
		if !t.Breaker.Allow() {
			// The failure we just recorded tripped the breaker; stop
			// retrying and degrade without switching mode.
			return failureFallback, "circuit breaker open", nil
		}
		delay := o.retry.NextDelay(attempt)
		at := o.now()
		o.logger.Info("retrying upstream attempt",
			"target", t.ID,
			"class", class.String(),
			"attempt", tried,
			"delay", delay,
			"at", at,
		)
		o.telemetry.OnRetry(RetryEvent{
			Target: t.ID, Class: class, Attempt: tried, Delay: delay, At: at,
		})
		if serr := o.sleep(ctx, delay); serr != nil {
			t.Breaker.CancelTrial()
			return failureSurface, "", serr
		}
		return failureRetry, "", nil
	}
}

// fallbackSend delegates a non-streaming operation to the fallback
// responder. A fallback failure is unrecoverable and surfaces hard.
func (o *Orchestrator) fallbackSend(ctx context.Context, target string, op *Operation, reason string) (*Result, error) {
	o.logger.Info("serving operation from fallback",
		"target", target, "kind", string(op.Kind), "reason", reason)

	res, err := o.fallback.Send(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFallbackFailed, err)
	}
	res.OK = true
	res.Live = false
	return res, nil
}

// fallbackStream delegates a streaming operation to the fallback
// responder.
func (o *Orchestrator) fallbackStream(ctx context.Context, target string, op *Operation, reason string) (*EventStream, error) {
	o.logger.Info("serving stream from fallback",
		"target", target, "kind", string(op.Kind), "reason", reason)

	s, err := o.fallback.Stream(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFallbackFailed, err)
	}
	s.Live = false
	return s, nil
}

// finish emits the end-of-operation telemetry event.
func (o *Orchestrator) finish(target string, op *Operation, streaming, degraded bool, start time.Time, err error) {
	o.telemetry.OnRequestEnd(RequestEndEvent{
		Target:    target,
		Kind:      op.Kind,
		Streaming: streaming,
		Live:      err == nil && !degraded,
		Start:     start,
		End:       o.now(),
		Err:       err,
	})
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
