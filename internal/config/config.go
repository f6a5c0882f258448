// Package config loads dreamplan configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dreamplan configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Text-generation provider
	LLM LLMConfig `yaml:"llm"`

	// Goal/roadmap/task persistence
	Store StoreConfig `yaml:"store"`

	// Progress backing stores
	Progress ProgressConfig `yaml:"progress"`

	// Roadmap and task generation tuning
	Planner PlannerConfig `yaml:"planner"`

	// LLM call statistics
	Usage UsageConfig `yaml:"usage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Name:    "dreamplan",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:   "gemini",
			Model:      "gemini-2.0-flash",
			Timeout:    "60s",
			MaxRetries: 2,
			Backoff:    "500ms",
		},

		Store: StoreConfig{
			Driver: "sqlite3",
			Path:   filepath.Join(dataDir, "dreamplan.db"),
		},

		Progress: ProgressConfig{
			Mode:      ProgressModeFallback,
			CachePath: filepath.Join(dataDir, "progress.json"),
		},

		Planner: PlannerConfig{
			GuidanceCap:     3,
			AutoRollover:    true,
			GenerateTimeout: "90s",
		},

		Usage: UsageConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "usage.json"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dreamplan.yaml"
	}
	return filepath.Join(dir, "dreamplan", "config.yaml")
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dreamplan"
	}
	return filepath.Join(dir, "dreamplan")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honour the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// LLM API key from environment (later entries win)
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openrouter"
	}
	if provider := os.Getenv("DREAMPLAN_LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if path := os.Getenv("DREAMPLAN_DB"); path != "" {
		c.Store.Path = path
	}
	if mode := os.Getenv("DREAMPLAN_PROGRESS_MODE"); mode != "" {
		c.Progress.Mode = mode
	}
	if level := os.Getenv("DREAMPLAN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetLLMTimeout returns the per-call LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetLLMBackoff returns the initial retry backoff as a duration.
func (c *Config) GetLLMBackoff() time.Duration {
	d, err := time.ParseDuration(c.LLM.Backoff)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetGenerateTimeout returns the per-generation budget as a duration.
func (c *Config) GetGenerateTimeout() time.Duration {
	d, err := time.ParseDuration(c.Planner.GenerateTimeout)
	if err != nil || d <= 0 {
		return 90 * time.Second
	}
	return d
}

// Validate validates the configuration. A missing API key is not an error:
// generation then always takes the offline fallback path.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if !contains(ValidDrivers, c.Store.Driver) {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidDrivers)
	}
	if c.Store.Driver != "memory" && c.Store.Path == "" {
		return fmt.Errorf("store path required for driver %s", c.Store.Driver)
	}
	if !contains(ValidProgressModes, c.Progress.Mode) {
		return fmt.Errorf("invalid progress mode: %s (valid: %v)", c.Progress.Mode, ValidProgressModes)
	}
	if c.Progress.Mode != ProgressModeRemote && c.Progress.CachePath == "" {
		return fmt.Errorf("progress cache path required for mode %s", c.Progress.Mode)
	}
	if c.Usage.Enabled && c.Usage.Path == "" {
		return fmt.Errorf("usage path required when usage tracking is enabled")
	}
	if c.Planner.GuidanceCap < 1 {
		return fmt.Errorf("planner guidance_cap must be positive, got %d", c.Planner.GuidanceCap)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
