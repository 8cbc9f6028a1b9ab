// Package config handles configuration loading and management for maestro.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfigName is the file searched for in the working directory and its parents.
const ProjectConfigName = ".maestro.yaml"

// Config holds all configuration for maestro.
type Config struct {
	ProjectRoot  string            `mapstructure:"project_root"`
	AgentsDir    string            `mapstructure:"agents_dir"`
	WorkflowsDir string            `mapstructure:"workflows_dir"`
	Concurrency  ConcurrencyConfig `mapstructure:"concurrency"`
	Timeouts     TimeoutsConfig    `mapstructure:"timeouts"`
	History      HistoryConfig     `mapstructure:"history"`
	Scheduler    SchedulerConfig   `mapstructure:"scheduler"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Telemetry    TelemetryConfig   `mapstructure:"telemetry"`
	Anthropic    AnthropicConfig   `mapstructure:"anthropic"`
}

// ConcurrencyConfig bounds agent invocations.
type ConcurrencyConfig struct {
	// MaxInFlight is the global limit on concurrent agent invocations.
	MaxInFlight int `mapstructure:"max_in_flight"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Step is applied to steps that do not set their own timeout.
	Step time.Duration `mapstructure:"step"`
}

// HistoryConfig controls how many finished runs are retained.
type HistoryConfig struct {
	Size int `mapstructure:"size"`
}

// SchedulerConfig holds scheduler policy toggles.
type SchedulerConfig struct {
	// CancelInFlightOnFailure cancels running steps when a required step fails.
	CancelInFlightOnFailure bool `mapstructure:"cancel_in_flight_on_failure"`
}

// LoggingConfig controls the debug log file.
type LoggingConfig struct {
	// File is the log path. Empty disables file logging.
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	// OTLPEndpoint is host:port of the collector. Empty disables export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
}

// AnthropicConfig holds Anthropic API settings for prompt-backed agents.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	BaseURL    string `mapstructure:"base_url"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (MAESTRO_*, ANTHROPIC_API_KEY)
// 2. Project config (.maestro.yaml in current directory or parent)
// 3. User config (~/.config/maestro/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom is Load with the project config searched upward from dir.
func LoadFrom(dir string) (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig(dir)
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	// Relative directories in a project file are relative to that file.
	if cfg.ProjectRoot == "" {
		if projectConfig != "" {
			cfg.ProjectRoot = filepath.Dir(projectConfig)
		} else {
			cfg.ProjectRoot = dir
		}
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic.api_key", "MAESTRO_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Keys returns every known configuration key, sorted.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a configuration key maestro reads.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the effective value of key as loaded from dir.
func Get(dir, key string) (any, error) {
	if !IsKnownKey(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	_ = v.ReadInConfig()
	if p := findProjectConfig(dir); p != "" {
		pv := viper.New()
		pv.SetConfigFile(p)
		if err := pv.ReadInConfig(); err == nil {
			_ = v.MergeConfigMap(pv.AllSettings())
		}
	}
	return v.Get(key), nil
}

// SetUserValue writes key=value into the user config file, creating it if needed.
func SetUserValue(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading user config: %w", err)
		}
	}
	v.Set(key, value)
	return v.WriteConfigAs(configPath)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the project config found from dir, or "".
func GetProjectConfigPath(dir string) string {
	return findProjectConfig(dir)
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project_root", "")
	v.SetDefault("agents_dir", ".maestro/agents")
	v.SetDefault("workflows_dir", ".maestro/workflows")

	v.SetDefault("concurrency.max_in_flight", 4)
	v.SetDefault("timeouts.step", "60s")
	v.SetDefault("history.size", 50)
	v.SetDefault("scheduler.cancel_in_flight_on_failure", false)

	v.SetDefault("logging.file", "")
	v.SetDefault("logging.level", "info")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", false)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")
}

// getUserConfigDir returns the XDG config directory for maestro.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "maestro")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "maestro")
	}
	return filepath.Join(home, ".config", "maestro")
}

// findProjectConfig searches for .maestro.yaml in dir and its parents.
func findProjectConfig(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		AgentsDir:    ".maestro/agents",
		WorkflowsDir: ".maestro/workflows",
		Concurrency:  ConcurrencyConfig{MaxInFlight: 4},
		Timeouts:     TimeoutsConfig{Step: 60 * time.Second},
		History:      HistoryConfig{Size: 50},
		Logging:      LoggingConfig{Level: "info"},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
	}
}
