package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeNetError struct {
	msg     string
	timeout bool
}

func (e *fakeNetError) Error() string   { return e.msg }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ClassClient},
		{401, ClassClient},
		{403, ClassClient},
		{404, ClassClient},
		{422, ClassClient},
		{429, ClassClient},
		{500, ClassServer},
		{502, ClassServer},
		{503, ClassServer},
		{504, ClassServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := &UpstreamError{Target: "test", Status: tt.status, Message: "boom"}
			if got := Classify(err); got != tt.want {
				t.Errorf("Classify(status %d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestClassifyStatusBeatsText(t *testing.T) {
	// A status code wins over whatever the message text looks like.
	err := &UpstreamError{Target: "test", Status: 400, Message: "connection refused while validating"}
	if got := Classify(err); got != ClassClient {
		t.Errorf("Classify() = %v, want ClassClient", got)
	}
}

func TestClassifyNetworkErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"sentinel", ErrNetwork},
		{"wrapped sentinel", &UpstreamError{Target: "test", Network: true, Err: ErrNetwork}},
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connect: connection refused")},
		{"connection reset", errors.New("read: connection reset by peer")},
		{"no such host", errors.New("dial tcp: lookup api.example.invalid: no such host")},
		{"tls failure", errors.New("tls: handshake failure")},
		{"cert failure", errors.New("x509: certificate signed by unknown authority")},
		{"broken pipe", errors.New("write: broken pipe")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != ClassNetwork {
				t.Errorf("Classify(%v) = %v, want ClassNetwork", tt.err, got)
			}
		})
	}
}

func TestClassifyTimeouts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline exceeded", context.DeadlineExceeded},
		{"sentinel", ErrTimeout},
		{"wrapped sentinel", &UpstreamError{Target: "test", Err: ErrTimeout}},
		{"net.Error timeout", &fakeNetError{msg: "i/o timeout", timeout: true}},
		{"text timeout", errors.New("request timeout after 30s")},
		{"wrapped deadline", fmt.Errorf("calling upstream: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != ClassTimeout {
				t.Errorf("Classify(%v) = %v, want ClassTimeout", tt.err, got)
			}
		})
	}
}

func TestClassifyTimedOutDialIsTimeout(t *testing.T) {
	// "dial tcp" appears in the text, but the timeout flag decides.
	err := &fakeNetError{msg: "dial tcp 10.0.0.1:443: i/o timeout", timeout: true}
	if got := Classify(err); got != ClassTimeout {
		t.Errorf("Classify() = %v, want ClassTimeout", got)
	}
}

func TestClassifyDefaultsToServer(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"nil", nil},
		{"unknown", errors.New("something unexpected happened")},
		{"statusless upstream error", &UpstreamError{Target: "test", Message: "odd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != ClassServer {
				t.Errorf("Classify(%v) = %v, want ClassServer", tt.err, got)
			}
		})
	}
}

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ClassClient, "client"},
		{ClassServer, "server"},
		{ClassNetwork, "network"},
		{ClassTimeout, "timeout"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
