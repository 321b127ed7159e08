package core

import (
	"log/slog"
	"sync"
	"time"
)

// Target bundles the two pieces of shared mutable state owned per
// upstream target: its circuit breaker and its operating mode.
type Target struct {
	ID      string
	Breaker *CircuitBreaker
	Mode    *ModeSelector
}

// TargetRegistry owns one Target per upstream target id. It replaces the
// module-level singletons of earlier designs with explicitly owned state
// that is passed to the orchestrator. Safe for concurrent use.
type TargetRegistry struct {
	breakerCfg BreakerConfig
	telemetry  TelemetryHook
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	targets map[string]*Target
}

// RegistryOption customizes a TargetRegistry.
type RegistryOption func(*TargetRegistry)

// WithBreakerConfig sets the breaker configuration applied to every
// target created by the registry.
func WithBreakerConfig(cfg BreakerConfig) RegistryOption {
	return func(r *TargetRegistry) {
		r.breakerCfg = cfg
	}
}

// WithRegistryTelemetry sets the telemetry hook notified of circuit and
// mode transitions.
func WithRegistryTelemetry(h TelemetryHook) RegistryOption {
	return func(r *TargetRegistry) {
		if h != nil {
			r.telemetry = h
		}
	}
}

// WithRegistryLogger sets the logger for transition log lines.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *TargetRegistry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRegistryClock overrides the time source. Intended for tests.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *TargetRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewTargetRegistry creates an empty registry.
func NewTargetRegistry(opts ...RegistryOption) *TargetRegistry {
	r := &TargetRegistry{
		breakerCfg: DefaultBreakerConfig(),
		telemetry:  NoopTelemetryHook{},
		logger:     slog.Default(),
		now:        time.Now,
		targets:    make(map[string]*Target),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Target returns the state for the given target id, creating it on first
// use. Every transition of the created breaker and mode selector is
// logged with target id, old and new state, reason, and timestamp, and
// forwarded to the telemetry hook.
func (r *TargetRegistry) Target(id string) *Target {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.targets[id]; ok {
		return t
	}

	breaker := NewCircuitBreaker(id, r.breakerCfg,
		WithBreakerClock(r.now),
		WithBreakerOnChange(func(from, to CircuitState, reason string) {
			at := r.now()
			r.logger.Info("circuit state changed",
				"target", id,
				"from", from.String(),
				"to", to.String(),
				"reason", reason,
				"at", at,
			)
			r.telemetry.OnCircuitChange(CircuitChangeEvent{
				Target: id, From: from, To: to, Reason: reason, At: at,
			})
		}),
	)

	mode := NewModeSelector(id,
		WithModeClock(r.now),
		WithModeOnChange(func(from, to ServiceMode, reason string) {
			at := r.now()
			r.logger.Info("service mode changed",
				"target", id,
				"from", from.String(),
				"to", to.String(),
				"reason", reason,
				"at", at,
			)
			r.telemetry.OnModeChange(ModeChangeEvent{
				Target: id, From: from, To: to, Reason: reason, At: at,
			})
		}),
	)

	t := &Target{ID: id, Breaker: breaker, Mode: mode}
	r.targets[id] = t
	return t
}

// Targets returns a snapshot of the known target ids.
func (r *TargetRegistry) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.targets))
	for id := range r.targets {
		ids = append(ids, id)
	}
	return ids
}
