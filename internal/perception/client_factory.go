package perception

import (
	"context"
	"fmt"

	"dreamplan/internal/config"
	"dreamplan/internal/logging"
)

// NewClientFromConfig builds the configured provider wrapped in a
// ResilientClient. A missing key or provider "none" yields an offline
// client rather than an error so the planner can still run on heuristics.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	llm := cfg.LLM
	if !llm.HasCredentials() {
		logging.Get(logging.CategoryBoot).Info("no LLM credentials for provider %q, using offline fallbacks", llm.Provider)
		return OfflineClient{}, nil
	}

	var inner LLMClient
	switch Provider(llm.Provider) {
	case ProviderGemini:
		c, err := NewGenAIClient(ctx, llm.APIKey, llm.Model)
		if err != nil {
			return nil, err
		}
		inner = c

	case ProviderOpenAI, ProviderOpenRouter:
		oc := DefaultOpenAIConfig(llm.APIKey)
		if Provider(llm.Provider) == ProviderOpenRouter {
			oc = DefaultOpenRouterConfig(llm.APIKey)
		}
		if llm.BaseURL != "" {
			oc.BaseURL = llm.BaseURL
		}
		if llm.Model != "" && !isGeminiModel(llm.Model) {
			oc.Model = llm.Model
		}
		oc.Timeout = cfg.GetLLMTimeout()
		inner = NewOpenAIClientWithConfig(oc)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid: gemini, openai, openrouter, none)", llm.Provider)
	}

	logging.Get(logging.CategoryBoot).Info("LLM provider %s ready", llm.Provider)
	return NewResilientClient(inner, RetryConfig{
		Timeout:        cfg.GetLLMTimeout(),
		MaxRetries:     llm.MaxRetries,
		InitialBackoff: cfg.GetLLMBackoff(),
	}), nil
}

// isGeminiModel guards against the gemini default model leaking into an
// OpenAI request when only the provider was switched by env.
func isGeminiModel(model string) bool {
	return len(model) >= 7 && model[:7] == "gemini-"
}
