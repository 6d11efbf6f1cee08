// Package config defines the runtime configuration model and its
// viper-based loader. Configuration comes from a YAML file with
// ${VAR_NAME} environment interpolation plus CADENCE_* environment
// overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Core     CoreConfig     `mapstructure:"core"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Budget   BudgetConfig   `mapstructure:"budget"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CoreConfig holds top-level settings.
type CoreConfig struct {
	// Profile selects the execution profile from the registry.
	Profile string `mapstructure:"profile"`

	// RegistryPath is the tool and profile registry YAML file.
	RegistryPath string `mapstructure:"registry_path"`
}

// PlannerConfig controls plan generation.
type PlannerConfig struct {
	// UseLLM enables LLM-backed decomposition; rule-based planning is
	// always available as a fallback.
	UseLLM bool `mapstructure:"use_llm"`

	// Model is the model identifier passed to the LLM provider.
	Model string `mapstructure:"model"`

	// Temperature for LLM generation.
	Temperature float64 `mapstructure:"temperature"`
}

// ApprovalConfig controls the approval gate.
type ApprovalConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	Timeout              time.Duration `mapstructure:"timeout"`
	AutoApproveOnTimeout bool          `mapstructure:"auto_approve_on_timeout"`
	RequireReason        bool          `mapstructure:"require_reason"`

	// Mode selects the resolver: "auto" approves after AutoDelay,
	// "channel" waits for an external decision.
	Mode      string        `mapstructure:"mode"`
	AutoDelay time.Duration `mapstructure:"auto_delay"`
}

// RetryConfig controls the retry executor.
type RetryConfig struct {
	// Strategy is "exponential", "linear", or "none".
	Strategy    string `mapstructure:"strategy"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// BudgetConfig controls budget enforcement.
type BudgetConfig struct {
	// WarnThreshold is the fraction of the ceiling that triggers a
	// warning, in (0, 1].
	WarnThreshold float64 `mapstructure:"warn_threshold"`
}

// ServerConfig controls the HTTP observability server.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `mapstructure:"level"`

	// Format is "json" or "text".
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Profile:      "sales_default",
			RegistryPath: "registry.yaml",
		},
		Planner: PlannerConfig{
			UseLLM:      false,
			Temperature: 0.2,
		},
		Approval: ApprovalConfig{
			Enabled:              true,
			Timeout:              30 * time.Second,
			AutoApproveOnTimeout: false,
			RequireReason:        true,
			Mode:                 "auto",
			AutoDelay:            0,
		},
		Retry: RetryConfig{
			Strategy:    "exponential",
			MaxAttempts: 3,
		},
		Budget: BudgetConfig{
			WarnThreshold: 0.8,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8321",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks semantic constraints on the configuration.
func (c *Config) Validate() error {
	if c.Core.Profile == "" {
		return fmt.Errorf("core.profile is required")
	}
	if c.Core.RegistryPath == "" {
		return fmt.Errorf("core.registry_path is required")
	}

	switch c.Retry.Strategy {
	case "exponential", "linear", "none":
	default:
		return fmt.Errorf("retry.strategy must be exponential, linear, or none, got %q", c.Retry.Strategy)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be non-negative, got %d", c.Retry.MaxAttempts)
	}

	if c.Budget.WarnThreshold <= 0 || c.Budget.WarnThreshold > 1 {
		return fmt.Errorf("budget.warn_threshold must be in (0, 1], got %v", c.Budget.WarnThreshold)
	}

	switch c.Approval.Mode {
	case "auto", "channel":
	default:
		return fmt.Errorf("approval.mode must be auto or channel, got %q", c.Approval.Mode)
	}
	if c.Approval.Enabled && c.Approval.Timeout <= 0 {
		return fmt.Errorf("approval.timeout must be positive when gating is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}
