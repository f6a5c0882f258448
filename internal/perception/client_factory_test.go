package perception

import (
	"context"
	"testing"

	"dreamplan/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFromConfig(t *testing.T) {
	t.Run("no credentials is offline", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.APIKey = ""
		c, err := NewClientFromConfig(context.Background(), cfg)
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("provider none ignores key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "none"
		cfg.LLM.APIKey = "k"
		c, err := NewClientFromConfig(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, OfflineClient{}, c)
	})

	t.Run("openrouter wraps resilient", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "openrouter"
		cfg.LLM.APIKey = "k"
		c, err := NewClientFromConfig(context.Background(), cfg)
		require.NoError(t, err)
		rc, ok := c.(*ResilientClient)
		require.True(t, ok)
		oc, ok := rc.inner.(*OpenAIClient)
		require.True(t, ok)
		assert.Equal(t, "https://openrouter.ai/api/v1", oc.baseURL)
		assert.Equal(t, "google/gemini-2.0-flash-001", oc.model)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "mystery"
		cfg.LLM.APIKey = "k"
		_, err := NewClientFromConfig(context.Background(), cfg)
		assert.Error(t, err)
	})
}
