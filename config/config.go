// Package config handles service configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/relay/core"
)

// Duration wraps time.Duration with YAML support for values like "30s".
type Duration time.Duration

// UnmarshalYAML parses a duration string or a bare number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := node.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value on line %d", node.Line)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TargetConfig holds the upstream settings for one target id.
type TargetConfig struct {
	// BaseURL is the backend API base URL.
	BaseURL string `yaml:"base_url"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env,omitempty"`

	// Timeout is the per-request deadline for non-streaming calls.
	Timeout Duration `yaml:"timeout,omitempty"`

	// User identifies the end user to the backend.
	User string `yaml:"user,omitempty"`
}

// RetryConfig tunes the retry policy.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts,omitempty"`
	BaseDelay   Duration `yaml:"base_delay,omitempty"`
	MaxDelay    Duration `yaml:"max_delay,omitempty"`
	Multiplier  float64  `yaml:"multiplier,omitempty"`
}

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int      `yaml:"failure_threshold,omitempty"`
	SuccessThreshold int      `yaml:"success_threshold,omitempty"`
	OpenTimeout      Duration `yaml:"open_timeout,omitempty"`
}

// Config is the service configuration.
type Config struct {
	// DefaultTarget is the target id used when the caller names none.
	DefaultTarget string `yaml:"default_target,omitempty"`

	Targets map[string]TargetConfig `yaml:"targets"`

	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Breaker BreakerConfig `yaml:"breaker,omitempty"`

	// CountClientErrors makes 4xx responses count toward the circuit
	// failure threshold. Off by default.
	CountClientErrors bool `yaml:"count_client_errors,omitempty"`

	// FallbackOnly forces every target into fallback mode at startup,
	// for local development without a backend.
	FallbackOnly bool `yaml:"fallback_only,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// DefaultConfigPath returns the default configuration file path.
//   - macOS/Linux: ~/.relay/config.yaml
//   - Windows: %USERPROFILE%\.relay\config.yaml
func DefaultConfigPath() string {
	var homeDir string
	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".relay", "config.yaml")
}

// LoadConfig loads configuration from the specified path. A missing file
// yields the zero config without error; a file that exists but cannot be
// read or parsed is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Targets: make(map[string]TargetConfig),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Targets == nil {
		cfg.Targets = make(map[string]TargetConfig)
	}
	return cfg, nil
}

// Target returns the config for the given target id, or nil when the
// target is not configured.
func (c *Config) Target(id string) *TargetConfig {
	if c.Targets == nil {
		return nil
	}
	if tc, ok := c.Targets[id]; ok {
		return &tc
	}
	return nil
}

// CoreRetryConfig maps the YAML retry settings onto the core config,
// leaving zero fields for the core defaults to fill.
func (c *Config) CoreRetryConfig() core.RetryConfig {
	return core.RetryConfig{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay.Std(),
		MaxDelay:    c.Retry.MaxDelay.Std(),
		Multiplier:  c.Retry.Multiplier,
	}
}

// CoreBreakerConfig maps the YAML breaker settings onto the core config.
func (c *Config) CoreBreakerConfig() core.BreakerConfig {
	return core.BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		SuccessThreshold: c.Breaker.SuccessThreshold,
		OpenTimeout:      c.Breaker.OpenTimeout.Std(),
	}
}
