package core

import (
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	if policy == nil {
		t.Fatal("DefaultRetryPolicy() returned nil")
	}

	// Defaults: 3 attempts total.
	if !policy.ShouldRetry(ClassServer, 1) {
		t.Error("ShouldRetry(server, 1) = false, want true")
	}
	if !policy.ShouldRetry(ClassServer, 2) {
		t.Error("ShouldRetry(server, 2) = false, want true")
	}
	if policy.ShouldRetry(ClassServer, 3) {
		t.Error("ShouldRetry(server, 3) = true, want false")
	}
}

func TestRetryPolicyClientErrorsNeverRetry(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxAttempts: 10})

	for attempt := 0; attempt < 5; attempt++ {
		if policy.ShouldRetry(ClassClient, attempt) {
			t.Errorf("ShouldRetry(client, %d) = true, want false", attempt)
		}
	}
}

func TestRetryPolicyRetryableClasses(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxAttempts: 3})

	for _, class := range []ErrorClass{ClassServer, ClassTimeout, ClassNetwork} {
		if !policy.ShouldRetry(class, 1) {
			t.Errorf("ShouldRetry(%s, 1) = false, want true", class)
		}
		if policy.ShouldRetry(class, 3) {
			t.Errorf("ShouldRetry(%s, 3) = true, want false", class)
		}
	}
}

func TestRetryPolicyExponentialBackoff(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxAttempts:    5,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: -1, // disable jitter for predictable testing
	})

	var lastDelay time.Duration
	for attempt := 0; attempt < 4; attempt++ {
		delay := policy.NextDelay(attempt)

		// Expected delays: 100ms, 200ms, 400ms, 800ms (base * 2^attempt)
		expected := 100 * time.Millisecond * time.Duration(1<<attempt)
		if delay != expected {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, delay, expected)
		}

		if attempt > 0 && delay <= lastDelay {
			t.Errorf("attempt %d: delay %v should be greater than previous %v", attempt, delay, lastDelay)
		}
		lastDelay = delay
	}
}

func TestRetryPolicyMaxDelayCap(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxAttempts:    10,
		BaseDelay:      time.Second,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: -1,
	})

	// At attempt 5, exponential would be 32s; capped at 5s.
	if delay := policy.NextDelay(5); delay != 5*time.Second {
		t.Errorf("delay = %v, want 5s (max cap)", delay)
	}

	// Stays capped for absurdly large attempts.
	if delay := policy.NextDelay(500); delay != 5*time.Second {
		t.Errorf("delay = %v, want 5s (max cap)", delay)
	}
}

func TestRetryPolicyJitterBounds(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	})

	delays := make(map[time.Duration]bool)

	for i := 0; i < 100; i++ {
		delay := policy.NextDelay(0)
		delays[delay] = true

		// With 50% jitter on a 1s base the delay is in [1s, 1.5s]:
		// jitter is additive, never subtractive.
		if delay < time.Second || delay > 1500*time.Millisecond {
			t.Errorf("delay %v outside expected jitter range [1s, 1.5s]", delay)
		}
	}

	if len(delays) < 2 {
		t.Error("jitter should produce varying delays")
	}
}

func TestRetryPolicyConfigDefaults(t *testing.T) {
	// Zero config fills in defaults: 3 attempts, 1s base, 30s cap, 2x, 10% jitter.
	policy := NewRetryPolicy(RetryConfig{})

	if !policy.ShouldRetry(ClassServer, 2) {
		t.Error("ShouldRetry(server, 2) = false, want true with default max attempts")
	}
	if policy.ShouldRetry(ClassServer, 3) {
		t.Error("ShouldRetry(server, 3) = true, want false with default max attempts")
	}

	delay := policy.NextDelay(0)
	if delay < time.Second || delay > 1100*time.Millisecond {
		t.Errorf("delay = %v, want within [1s, 1.1s] (base plus default jitter)", delay)
	}
}

func TestRetryPolicyNegativeAttempt(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		BaseDelay:      time.Second,
		JitterFraction: -1,
	})

	if delay := policy.NextDelay(-3); delay != time.Second {
		t.Errorf("NextDelay(-3) = %v, want base delay", delay)
	}
}
