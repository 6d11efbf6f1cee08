package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides: CADENCE_CORE_PROFILE,
// CADENCE_RETRY_STRATEGY, and so on.
const envPrefix = "CADENCE"

// Load reads configuration from path. The file must exist and parse;
// values pass through ${VAR_NAME} interpolation, then CADENCE_*
// environment overrides, then validation.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v)
}

// LoadWithDefaults behaves like Load but falls back to DefaultConfig when
// the file does not exist.
func LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("default configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("core.profile", defaults.Core.Profile)
	v.SetDefault("core.registry_path", defaults.Core.RegistryPath)
	v.SetDefault("planner.use_llm", defaults.Planner.UseLLM)
	v.SetDefault("planner.temperature", defaults.Planner.Temperature)
	v.SetDefault("approval.enabled", defaults.Approval.Enabled)
	v.SetDefault("approval.timeout", defaults.Approval.Timeout)
	v.SetDefault("approval.auto_approve_on_timeout", defaults.Approval.AutoApproveOnTimeout)
	v.SetDefault("approval.require_reason", defaults.Approval.RequireReason)
	v.SetDefault("approval.mode", defaults.Approval.Mode)
	v.SetDefault("retry.strategy", defaults.Retry.Strategy)
	v.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("budget.warn_threshold", defaults.Budget.WarnThreshold)
	v.SetDefault("server.listen", defaults.Server.Listen)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	for _, key := range v.AllKeys() {
		if s, ok := v.Get(key).(string); ok {
			v.Set(key, interpolateString(s))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// envVarPattern matches ${VAR_NAME} references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as-is.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if value := os.Getenv(name); value != "" {
			return value
		}
		return match
	})
}
