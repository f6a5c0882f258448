// Package perception wraps the text-completion providers that draft
// roadmaps and daily tasks. Callers treat every error as "fall back to a
// local heuristic"; nothing here is fatal to a goal operation.
package perception

import (
	"context"
	"errors"
)

// LLMClient is the text-completion collaborator.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider names a completion backend.
type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderNone       Provider = "none"
)

// ErrUnavailable is returned when no provider is configured. It is never
// retried.
var ErrUnavailable = errors.New("llm provider unavailable")

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

const defaultSystemPrompt = "You are a concise planning assistant. Answer with JSON only when asked for JSON."
