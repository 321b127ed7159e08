package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/petal-labs/relay/core"
)

// doStream performs a streaming chat-messages request and pipes the
// response body through the stream processor.
//
// The configured per-request timeout deliberately does not apply here: a
// healthy generation stream can legitimately outlive any single-call
// deadline. The caller's context bounds the stream instead, and
// cancelling it closes the response body.
func (a *Agent) doStream(ctx context.Context, op *core.Operation) (*core.EventStream, error) {
	body, err := json.Marshal(a.buildRequest(op, responseModeStreaming))
	if err != nil {
		return nil, newDecodeError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+chatMessagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, newTransportError(err)
	}
	httpReq.Header = a.buildHeaders()

	resp, err := a.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, newTransportError(err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, normalizeError(resp.StatusCode, respBody, resp.Header.Get("x-request-id"))
	}

	// The processor owns the body from here and closes it when the
	// stream terminates, including on cancellation.
	return a.processor.Process(ctx, resp.Body), nil
}
