package core

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether a failed attempt should be retried and how
// long to wait before doing so. Implementations must be pure functions of
// their inputs (modulo jitter) and safe for concurrent use.
type RetryPolicy interface {
	// ShouldRetry reports whether another attempt is allowed after
	// `attempt` attempts have already been made.
	ShouldRetry(class ErrorClass, attempt int) bool

	// NextDelay returns the backoff delay before retry number attempt+1.
	// attempt starts at 0 for the delay after the first failure.
	NextDelay(attempt int) time.Duration
}

// RetryConfig configures exponential backoff behavior.
type RetryConfig struct {
	MaxAttempts int           // Total attempts before giving up (default: 3)
	BaseDelay   time.Duration // Delay before the first retry (default: 1s)
	MaxDelay    time.Duration // Cap applied before jitter (default: 30s)
	Multiplier  float64       // Exponential base (default: 2.0)

	// JitterFraction bounds the uniformly-random jitter added on top of
	// the capped delay, as a fraction of it (default: 0.1). Zero disables
	// jitter entirely; set it explicitly negative to get the default in
	// a zero-value config.
	JitterFraction float64
}

// DefaultRetryPolicy returns a policy with the default configuration:
// 3 attempts, 1s base delay doubling per attempt, capped at 30s, with up
// to 10% jitter to avoid synchronized retry storms.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(RetryConfig{})
}

// NewRetryPolicy creates a retry policy, filling unset fields with
// defaults.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction == 0 {
		cfg.JitterFraction = 0.1
	} else if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg RetryConfig
}

// ShouldRetry never allows retrying client errors; all other classes
// retry while the attempt budget lasts.
func (e *exponentialBackoff) ShouldRetry(class ErrorClass, attempt int) bool {
	if class == ClassClient {
		return false
	}
	return attempt < e.cfg.MaxAttempts
}

// NextDelay returns min(maxDelay, baseDelay * multiplier^attempt) plus a
// uniformly-random jitter in [0, delay*jitterFraction].
func (e *exponentialBackoff) NextDelay(attempt int) time.Duration {
	d := e.backoff(attempt)
	if e.cfg.JitterFraction > 0 {
		d += time.Duration(rand.Float64() * e.cfg.JitterFraction * float64(d))
	}
	return d
}

// backoff is the deterministic pre-jitter delay, monotonically
// non-decreasing in attempt and capped at MaxDelay.
func (e *exponentialBackoff) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(e.cfg.BaseDelay) * math.Pow(e.cfg.Multiplier, float64(attempt))
	if d > float64(e.cfg.MaxDelay) || math.IsInf(d, 1) {
		d = float64(e.cfg.MaxDelay)
	}
	return time.Duration(d)
}
