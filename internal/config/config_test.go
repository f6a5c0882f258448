package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "DREAMPLAN_LLM_PROVIDER",
		"DREAMPLAN_DB", "DREAMPLAN_PROGRESS_MODE", "DREAMPLAN_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "dreamplan" {
		t.Errorf("expected Name=dreamplan, got %s", cfg.Name)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected Provider=gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.Planner.GuidanceCap != 3 {
		t.Errorf("expected GuidanceCap=3, got %d", cfg.Planner.GuidanceCap)
	}
	if cfg.Progress.Mode != ProgressModeFallback {
		t.Errorf("expected fallback progress mode, got %s", cfg.Progress.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "openrouter"
	cfg.LLM.Model = "google/gemma-3-27b-it:free"
	cfg.Store.Driver = "sqlite"
	cfg.Planner.AutoRollover = false

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Provider != "openrouter" {
		t.Errorf("expected provider openrouter, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.Model != "google/gemma-3-27b-it:free" {
		t.Errorf("model not round-tripped: %s", loaded.LLM.Model)
	}
	if loaded.Store.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %s", loaded.Store.Driver)
	}
	if loaded.Planner.AutoRollover {
		t.Error("expected AutoRollover=false after load")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "sqlite3" {
		t.Errorf("expected default driver, got %s", cfg.Store.Driver)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: none\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "none" {
		t.Errorf("expected provider none, got %s", cfg.LLM.Provider)
	}
	if cfg.Planner.GuidanceCap != 3 {
		t.Errorf("expected default GuidanceCap, got %d", cfg.Planner.GuidanceCap)
	}
}

func TestGetGenerateTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetGenerateTimeout(); got != 90*time.Second {
		t.Errorf("expected default 90s, got %v", got)
	}
	cfg.Planner.GenerateTimeout = "20s"
	if got := cfg.GetGenerateTimeout(); got != 20*time.Second {
		t.Errorf("expected 20s, got %v", got)
	}
	cfg.Planner.GenerateTimeout = "-1s"
	if got := cfg.GetGenerateTimeout(); got != 90*time.Second {
		t.Errorf("expected fallback to 90s, got %v", got)
	}
}

func TestGetLLMTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "15s"
	if got := cfg.GetLLMTimeout(); got != 15*time.Second {
		t.Errorf("expected 15s, got %v", got)
	}
	cfg.LLM.Timeout = "soon"
	if got := cfg.GetLLMTimeout(); got != 60*time.Second {
		t.Errorf("expected fallback 60s, got %v", got)
	}
	cfg.LLM.Backoff = "nope"
	if got := cfg.GetLLMBackoff(); got != 500*time.Millisecond {
		t.Errorf("expected fallback backoff, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad provider", func(c *Config) { c.LLM.Provider = "palm" }, true},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"memory needs no path", func(c *Config) { c.Store.Driver = "memory"; c.Store.Path = "" }, false},
		{"sqlite needs path", func(c *Config) { c.Store.Path = "" }, true},
		{"bad progress mode", func(c *Config) { c.Progress.Mode = "cloud" }, true},
		{"local mode needs cache", func(c *Config) { c.Progress.Mode = ProgressModeLocal; c.Progress.CachePath = "" }, true},
		{"remote mode needs no cache", func(c *Config) { c.Progress.Mode = ProgressModeRemote; c.Progress.CachePath = "" }, false},
		{"zero guidance cap", func(c *Config) { c.Planner.GuidanceCap = 0 }, true},
		{"usage needs path", func(c *Config) { c.Usage.Path = "" }, true},
		{"usage disabled needs no path", func(c *Config) { c.Usage.Enabled = false; c.Usage.Path = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
