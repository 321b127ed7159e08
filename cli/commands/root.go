// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/petal-labs/relay/config"
)

var (
	// Global flags
	cfgFile    string
	target     string
	jsonOutput bool
	verbose    bool

	// Loaded configuration
	cfg *config.Config

	logger *slog.Logger
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - resilient client for the test-case agent backend",
	Long: `Relay talks to a conversational agent backend that turns test-case
templates into structured test cases. It degrades to a deterministic
local responder when the backend is unhealthy, so every command works
with or without a live backend.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.relay/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&target, "target", "", "upstream target id (default from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

// initConfig loads .env, the config file, and sets up logging.
func initConfig() error {
	// A missing .env file is fine; explicit env vars win either way.
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	var err error
	cfg, err = config.LoadConfig(path)
	if err != nil {
		return err
	}

	if target == "" {
		target = cfg.DefaultTarget
	}
	if target == "" {
		target = "default"
	}

	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(),
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	return nil
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
