package usage

import (
	"context"
	"time"

	"dreamplan/internal/perception"
)

// Instrument wraps an LLM client so every call is recorded on t.
func Instrument(inner perception.LLMClient, t *Tracker, provider, model string) perception.LLMClient {
	if t == nil {
		return inner
	}
	return &instrumented{inner: inner, tracker: t, provider: provider, model: model}
}

type instrumented struct {
	inner    perception.LLMClient
	tracker  *Tracker
	provider string
	model    string
}

func (c *instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.inner.Complete(ctx, prompt)
	c.tracker.Track(ctx, c.provider, c.model, len(prompt), len(out), err, time.Since(start))
	return out, err
}

func (c *instrumented) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	out, err := c.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	c.tracker.Track(ctx, c.provider, c.model, len(systemPrompt)+len(userPrompt), len(out), err, time.Since(start))
	return out, err
}
