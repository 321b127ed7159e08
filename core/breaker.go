package core

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed is normal operation; calls pass through.
	StateClosed CircuitState = iota
	// StateOpen short-circuits all calls to the fallback path.
	StateOpen
	// StateHalfOpen admits a single trial call at a time.
	StateHalfOpen
)

// String returns the string representation of a CircuitState.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	FailureThreshold int           // Consecutive failures before opening (default: 5)
	SuccessThreshold int           // Half-open successes before closing (default: 3)
	OpenTimeout      time.Duration // Cooldown before admitting a trial (default: 60s)
}

// DefaultBreakerConfig returns the default breaker thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		OpenTimeout:      60 * time.Second,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	return c
}

// CircuitBreaker tracks consecutive failures against one upstream target
// and gates calls accordingly. It is safe for concurrent use.
//
// In the half-open state exactly one trial call is admitted at a time:
// Allow issues a trial permit under the lock, and the permit is released
// by RecordSuccess, RecordFailure, or CancelTrial.
type CircuitBreaker struct {
	target string
	cfg    BreakerConfig

	mu            sync.Mutex
	state         CircuitState
	failures      int
	successes     int
	openedAt      time.Time
	trialInFlight bool

	now      func() time.Time
	onChange func(old, new CircuitState, reason string)
}

// BreakerOption customizes a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithBreakerClock overrides the time source. Intended for tests.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBreakerOnChange registers a callback invoked (outside the lock is
// NOT guaranteed; keep it cheap) on every state transition.
func WithBreakerOnChange(fn func(old, new CircuitState, reason string)) BreakerOption {
	return func(b *CircuitBreaker) {
		b.onChange = fn
	}
}

// NewCircuitBreaker creates a breaker for the given target.
func NewCircuitBreaker(target string, cfg BreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		target: target,
		cfg:    cfg.withDefaults(),
		state:  StateClosed,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Target returns the upstream target this breaker guards.
func (b *CircuitBreaker) Target() string {
	return b.target
}

// State returns the current circuit state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether the caller may proceed to the network. In the
// half-open state a true return also claims the single trial permit; the
// caller must follow up with RecordSuccess, RecordFailure, or
// CancelTrial.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen, "open timeout elapsed")
		b.successes = 0
		b.trialInFlight = false
	}

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful upstream call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trialInFlight = false
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed, "trial successes reached threshold")
			b.failures = 0
			b.successes = 0
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure records a failed upstream call. Reaching the failure
// threshold while closed, or any failure while half-open, opens the
// circuit and restarts the cooldown.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trialInFlight = false
		b.successes = 0
		b.openedAt = b.now()
		b.transition(StateOpen, "trial call failed")
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen, "failure threshold reached")
		}
	}
}

// CancelTrial releases a trial permit claimed by Allow without counting
// the call either way. Used when the caller abandons the call (context
// cancellation) so an interrupted trial does not wedge the breaker.
func (b *CircuitBreaker) CancelTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

// transition must be called with the lock held.
func (b *CircuitBreaker) transition(to CircuitState, reason string) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to, reason)
	}
}
