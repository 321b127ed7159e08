package agentapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/petal-labs/relay/core"
)

// DefaultUser is the user identifier reported to the backend when the
// operation metadata does not carry one.
const DefaultUser = "relay"

// Config holds the configuration for the agent backend client.
type Config struct {
	// BaseURL is the base URL of the backend API, e.g.
	// "https://agent.internal/v1".
	BaseURL string

	// Token is the bearer token for authentication.
	Token core.Secret

	// HTTPClient is the HTTP client used for all requests. It is shared
	// across calls; configure its Timeout for per-call deadlines on
	// non-streaming requests.
	HTTPClient *http.Client

	// Headers are additional headers to include in requests.
	Headers http.Header

	// Timeout is the per-request deadline applied via context. Zero
	// means no client-side deadline beyond the caller's context.
	Timeout time.Duration

	// User identifies the end user to the backend.
	User string

	// Logger is used for stream processing warnings.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithHeaders sets additional headers to include in requests.
func WithHeaders(headers http.Header) Option {
	return func(c *Config) {
		c.Headers = headers
	}
}

// WithTimeout sets the per-request deadline. The deadline applies to each
// individual upstream call, not to a logical operation with retries.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithUser sets the user identifier sent to the backend.
func WithUser(user string) Option {
	return func(c *Config) {
		c.User = user
	}
}

// WithLogger sets the logger for stream processing warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
