// Package agentapi implements the live upstream responder for the
// conversational agent backend's chat-messages API.
package agentapi

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/petal-labs/relay/core"
)

// DefaultTokenEnvVar is the environment variable holding the API token.
const DefaultTokenEnvVar = "RELAY_AGENT_TOKEN"

// ErrTokenNotFound is returned when the token environment variable is not set.
var ErrTokenNotFound = errors.New("agentapi: RELAY_AGENT_TOKEN environment variable not set")

// Agent is a client for the agent backend's chat-messages API.
// Agent is safe for concurrent use; the underlying HTTP client and its
// connection pool are created once and shared across calls.
type Agent struct {
	config    Config
	processor *core.StreamProcessor
}

// NewFromEnv creates an Agent using the RELAY_AGENT_TOKEN environment
// variable.
func NewFromEnv(baseURL string, opts ...Option) (*Agent, error) {
	token := os.Getenv(DefaultTokenEnvVar)
	if token == "" {
		return nil, ErrTokenNotFound
	}
	return New(baseURL, token, opts...), nil
}

// New creates an Agent with the given base URL, token, and options.
func New(baseURL, token string, opts ...Option) *Agent {
	cfg := Config{
		BaseURL:    baseURL,
		Token:      core.NewSecret(token),
		HTTPClient: http.DefaultClient,
		User:       DefaultUser,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	streamOpts := []core.StreamOption{}
	if cfg.Logger != nil {
		streamOpts = append(streamOpts, core.WithStreamLogger(cfg.Logger))
	}

	return &Agent{
		config:    cfg,
		processor: core.NewStreamProcessor(streamOpts...),
	}
}

// ID returns the responder identifier.
func (a *Agent) ID() string {
	return "agentapi"
}

// Send executes a non-streaming operation.
func (a *Agent) Send(ctx context.Context, op *core.Operation) (*core.Result, error) {
	return a.doSend(ctx, op)
}

// Stream executes a streaming operation.
func (a *Agent) Stream(ctx context.Context, op *core.Operation) (*core.EventStream, error) {
	return a.doStream(ctx, op)
}

// CheckHealth probes the backend's parameters endpoint.
func (a *Agent) CheckHealth(ctx context.Context) error {
	return a.doHealth(ctx)
}

// Close releases idle connections held by the client's HTTP transport.
// Call it on shutdown; leaked upstream connections are a first-class bug
// for this component.
func (a *Agent) Close() {
	a.config.HTTPClient.CloseIdleConnections()
}

// buildHeaders constructs the HTTP headers for an API request.
func (a *Agent) buildHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+a.config.Token.Expose())
	headers.Set("Content-Type", "application/json")
	for key, values := range a.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

// Compile-time checks against the core interfaces.
var (
	_ core.Responder     = (*Agent)(nil)
	_ core.HealthChecker = (*Agent)(nil)
)
