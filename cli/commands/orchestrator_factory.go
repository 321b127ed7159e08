package commands

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/petal-labs/relay/config"
	"github.com/petal-labs/relay/core"
	"github.com/petal-labs/relay/fallback"
	"github.com/petal-labs/relay/telemetry"
	"github.com/petal-labs/relay/upstream/agentapi"
)

// newOrchestrator wires the orchestrator from the loaded configuration:
// the live agent client, the fallback responder, per-target circuit and
// mode state, and the logging telemetry hook.
//
// The returned cleanup releases the upstream connection pool and must be
// called on exit.
func newOrchestrator() (*core.Orchestrator, func(), error) {
	tc := cfg.Target(target)
	if tc == nil {
		if cfg.FallbackOnly {
			tc = &config.TargetConfig{}
		} else {
			return nil, nil, fmt.Errorf("target %q is not configured; add it to the config file or set fallback_only", target)
		}
	}

	agent, err := newAgent(tc)
	if err != nil {
		return nil, nil, err
	}

	hook := telemetry.NewLogHook(logger)

	registry := core.NewTargetRegistry(
		core.WithBreakerConfig(cfg.CoreBreakerConfig()),
		core.WithRegistryTelemetry(hook),
		core.WithRegistryLogger(logger),
	)

	orch := core.NewOrchestrator(agent, fallback.New(fallback.WithLogger(logger)),
		core.WithRegistry(registry),
		core.WithRetryPolicy(core.NewRetryPolicy(cfg.CoreRetryConfig())),
		core.WithTelemetry(hook),
		core.WithLogger(logger),
		core.WithClientErrorCounting(cfg.CountClientErrors),
	)

	if cfg.FallbackOnly {
		registry.Target(target).Mode.SwitchToFallback("fallback_only set in config")
	}

	return orch, agent.Close, nil
}

// newAgent builds the upstream client, resolving the token from the
// configured environment variable and falling back to an interactive
// prompt on a terminal.
func newAgent(tc *config.TargetConfig) (*agentapi.Agent, error) {
	tokenEnv := tc.TokenEnv
	if tokenEnv == "" {
		tokenEnv = agentapi.DefaultTokenEnvVar
	}

	token := os.Getenv(tokenEnv)
	if token == "" && !cfg.FallbackOnly {
		var err error
		token, err = promptToken(tokenEnv)
		if err != nil {
			return nil, err
		}
	}

	opts := []agentapi.Option{
		agentapi.WithLogger(logger),
	}
	if tc.Timeout > 0 {
		opts = append(opts, agentapi.WithTimeout(tc.Timeout.Std()))
	}
	if tc.User != "" {
		opts = append(opts, agentapi.WithUser(tc.User))
	}

	return agentapi.New(tc.BaseURL, token, opts...), nil
}

// promptToken reads the API token from the terminal without echo.
func promptToken(tokenEnv string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%s is not set and stdin is not a terminal", tokenEnv)
	}
	fmt.Fprintf(os.Stderr, "Enter API token (%s): ", tokenEnv)
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(tokenBytes), nil
}
