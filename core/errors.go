package core

import (
	"errors"
	"fmt"
)

// UpstreamError represents a failure reported by (or while reaching) an
// upstream target, with enough context to classify and log it.
type UpstreamError struct {
	Target    string
	Status    int    // HTTP status, 0 when the request never completed
	RequestID string // upstream request ID when available
	Code      string // upstream error code when available
	Message   string
	Network   bool // transport-level failure (dial, TLS, DNS, reset)
	Err       error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Target, e.Message, e.Status, e.Code, e.RequestID)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status=%d, code=%s)", e.Target, e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Target, e.Message)
}

// Unwrap returns the underlying error for error chaining.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Sentinel errors for classification and caller-side matching.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrServer               = errors.New("server error")
	ErrNetwork              = errors.New("network error")
	ErrTimeout              = errors.New("timeout")
	ErrDecode               = errors.New("decode error")
)

// ErrFallbackFailed indicates that the fallback responder itself failed.
// This is a configuration error, not a transient condition, and is always
// surfaced to the caller.
var ErrFallbackFailed = errors.New("fallback responder failed")
