package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/petal-labs/relay/core"
)

// doSend performs a blocking chat-messages request.
func (a *Agent) doSend(ctx context.Context, op *core.Operation) (*core.Result, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(a.buildRequest(op, responseModeBlocking))
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
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	requestID := resp.Header.Get("x-request-id")
	if resp.StatusCode >= 400 {
		return nil, normalizeError(resp.StatusCode, respBody, requestID)
	}

	var cResp chatResponse
	if err := json.Unmarshal(respBody, &cResp); err != nil {
		return nil, newDecodeError(err)
	}

	return mapResponse(op, &cResp), nil
}

// doHealth probes the parameters endpoint.
func (a *Agent) doHealth(ctx context.Context) error {
	timeout := a.config.Timeout
	if timeout == 0 {
		timeout = healthProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+parametersPath, nil)
	if err != nil {
		return newTransportError(err)
	}
	httpReq.Header = a.buildHeaders()

	resp, err := a.config.HTTPClient.Do(httpReq)
	if err != nil {
		return newTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return normalizeError(resp.StatusCode, respBody, resp.Header.Get("x-request-id"))
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// buildRequest maps an Operation onto the chat-messages wire shape. The
// operation metadata is passed through as inputs without interpretation.
func (a *Agent) buildRequest(op *core.Operation, mode string) chatRequest {
	inputs := make(map[string]any, len(op.Metadata))
	for k, v := range op.Metadata {
		inputs[k] = v
	}

	user := a.config.User
	if u, ok := op.Metadata["user"].(string); ok && u != "" {
		user = u
	}

	query := op.Message
	if query == "" {
		switch op.Kind {
		case core.KindAnalyze:
			query = "Analyze the uploaded files."
		case core.KindGenerate:
			query = "Generate the test cases."
		}
	}

	return chatRequest{
		Inputs:         inputs,
		Query:          query,
		ResponseMode:   mode,
		ConversationID: op.ConversationID,
		User:           user,
	}
}
