package core

import (
	"sync"
	"time"
)

// ServiceMode is the operating mode for one upstream target.
type ServiceMode int

const (
	// ModeLive routes operations to the upstream service.
	ModeLive ServiceMode = iota
	// ModeFallback routes operations to the local fallback responder.
	ModeFallback
)

// String returns the string representation of a ServiceMode.
func (m ServiceMode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ModeSelector holds the operating mode for one target together with the
// reason for the last transition. It is safe for concurrent use.
//
// There is no automatic switch back to live: SwitchToLive must be driven
// by an operator or an external health check, which avoids oscillation
// between modes under flapping failures.
type ModeSelector struct {
	target string

	mu     sync.RWMutex
	mode   ServiceMode
	reason string
	since  time.Time

	now      func() time.Time
	onChange func(old, new ServiceMode, reason string)
}

// ModeOption customizes a ModeSelector.
type ModeOption func(*ModeSelector)

// WithModeClock overrides the time source. Intended for tests.
func WithModeClock(now func() time.Time) ModeOption {
	return func(m *ModeSelector) {
		if now != nil {
			m.now = now
		}
	}
}

// WithModeOnChange registers a callback invoked on every mode transition.
func WithModeOnChange(fn func(old, new ServiceMode, reason string)) ModeOption {
	return func(m *ModeSelector) {
		m.onChange = fn
	}
}

// NewModeSelector creates a selector for the given target, starting live.
func NewModeSelector(target string, opts ...ModeOption) *ModeSelector {
	m := &ModeSelector{
		target: target,
		mode:   ModeLive,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.since = m.now()
	return m
}

// Current returns the current mode.
func (m *ModeSelector) Current() ServiceMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// Status returns the current mode, the reason for the last transition,
// and when it happened.
func (m *ModeSelector) Status() (mode ServiceMode, reason string, since time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode, m.reason, m.since
}

// SwitchToFallback moves the target into fallback mode. It never fails
// and is a no-op if the target is already in fallback.
func (m *ModeSelector) SwitchToFallback(reason string) {
	m.switchTo(ModeFallback, reason)
}

// SwitchToLive moves the target back to live mode. This is an explicit
// operator or health-check action; nothing in this package calls it
// automatically.
func (m *ModeSelector) SwitchToLive() {
	m.switchTo(ModeLive, "explicit switch to live")
}

func (m *ModeSelector) switchTo(mode ServiceMode, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == mode {
		return
	}
	old := m.mode
	m.mode = mode
	m.reason = reason
	m.since = m.now()
	if m.onChange != nil {
		m.onChange(old, mode, reason)
	}
}
