package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("GEMINI_API_KEY keeps configured provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := &Config{LLM: LLMConfig{Provider: "gemini"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("GEMINI_API_KEY sets provider if empty", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("Precedence: OPENROUTER overrides OPENAI", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("OPENROUTER_API_KEY", "or-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "or-key", cfg.LLM.APIKey)
		assert.Equal(t, "openrouter", cfg.LLM.Provider)
	})

	t.Run("explicit provider wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("DREAMPLAN_LLM_PROVIDER", "none")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "none", cfg.LLM.Provider)
		assert.False(t, cfg.LLM.HasCredentials())
	})
}

func TestEnvOverrides_Paths(t *testing.T) {
	clearEnv(t)
	t.Setenv("DREAMPLAN_DB", "/tmp/goals.db")
	t.Setenv("DREAMPLAN_PROGRESS_MODE", "local")
	t.Setenv("DREAMPLAN_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/goals.db", cfg.Store.Path)
	assert.Equal(t, ProgressModeLocal, cfg.Progress.Mode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "debug", cfg.Logging.ToLogging().Level)
}
