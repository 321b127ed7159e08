package core

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorClass is the failure taxonomy driving retry and fallback decisions.
type ErrorClass int

const (
	// ClassClient is a caller-caused failure (4xx). Never retried.
	ClassClient ErrorClass = iota
	// ClassServer is an upstream-caused failure (5xx). Retried, then
	// degraded to fallback.
	ClassServer
	// ClassNetwork is a transport failure (dial, DNS, TLS, reset).
	// Triggers immediate fallback without retrying.
	ClassNetwork
	// ClassTimeout means the call exceeded its deadline. Treated as
	// transient and retried up to the policy limit.
	ClassTimeout
)

// String returns the log-friendly name of the class.
func (c ErrorClass) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	case ClassNetwork:
		return "network"
	case ClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// networkFailureMarkers are substrings identifying transport-level
// failures in error text. Matched only when no HTTP status is available.
var networkFailureMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"dial tcp",
	"tls:",
	"x509:",
}

// Classify maps a raw failure to exactly one ErrorClass.
//
// Rules, in priority order: a 4xx status is a client error; a 5xx status
// is a server error; a transport-level failure is a network error; a
// deadline failure is a timeout; anything else defaults to a server error
// so unknown failures stay retryable rather than being dropped silently.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassServer
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch {
		case ue.Status >= 400 && ue.Status < 500:
			return ClassClient
		case ue.Status >= 500 && ue.Status < 600:
			return ClassServer
		case ue.Network:
			return ClassNetwork
		}
	}

	if isNetworkFailure(err) {
		return ClassNetwork
	}
	if isTimeout(err) {
		return ClassTimeout
	}
	return ClassServer
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") || strings.Contains(s, "deadline exceeded")
}

func isNetworkFailure(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	// A timed-out net.Error is a timeout, not a transport failure.
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, marker := range networkFailureMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
