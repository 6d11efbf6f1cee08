package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadence-hq/cadence/internal/config"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence - sales automation plan orchestrator",
	Long: `Cadence turns a sales goal into a budgeted, approval-gated plan of
tool invocations and executes it with retry and partial-failure handling.

Plans come from an LLM decomposer when one is configured, with a
deterministic rule-based fallback that always produces the canonical
prospecting sequence.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and installs the process logger before any
// command runs.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}

	logger, err = newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func newLogger(lc config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", lc.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch lc.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", lc.Format)
	}
	return slog.New(handler), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cadence.yaml", "Path to the configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(versionCmd)
}
