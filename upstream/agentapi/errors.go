package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/petal-labs/relay/core"
)

// normalizeError converts an HTTP error response into an UpstreamError
// wrapping the appropriate sentinel.
func normalizeError(status int, body []byte, requestID string) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)

	message := errResp.Message
	if message == "" {
		message = http.StatusText(status)
	}

	var sentinel error
	switch {
	case status == http.StatusNotFound:
		sentinel = core.ErrConversationNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = core.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		sentinel = core.ErrRateLimited
	case status >= 400 && status < 500:
		sentinel = core.ErrBadRequest
	default:
		sentinel = core.ErrServer
	}

	return &core.UpstreamError{
		Target:    "agentapi",
		Status:    status,
		RequestID: requestID,
		Code:      errResp.Code,
		Message:   message,
		Err:       sentinel,
	}
}

// newTransportError wraps a failure that occurred before an HTTP status
// was available, distinguishing deadline failures from transport faults.
func newTransportError(err error) error {
	var ne net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())

	ue := &core.UpstreamError{
		Target:  "agentapi",
		Message: err.Error(),
	}
	if timedOut {
		ue.Err = core.ErrTimeout
	} else {
		ue.Network = true
		ue.Err = core.ErrNetwork
	}
	return ue
}

// newDecodeError wraps a response-body decode failure.
func newDecodeError(err error) error {
	return &core.UpstreamError{
		Target:  "agentapi",
		Message: err.Error(),
		Err:     core.ErrDecode,
	}
}
