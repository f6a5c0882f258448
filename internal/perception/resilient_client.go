package perception

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"dreamplan/internal/logging"

	"golang.org/x/sync/singleflight"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	Timeout        time.Duration // per attempt; zero means none
	MaxRetries     int           // attempts after the first
	InitialBackoff time.Duration // doubles each retry
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:        60 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// ErrMaxRetriesExceeded indicates all retry attempts failed.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

// ResilientClient decorates an LLMClient with per-attempt timeouts,
// exponential backoff and de-duplication of identical in-flight prompts.
type ResilientClient struct {
	inner  LLMClient
	cfg    RetryConfig
	flight singleflight.Group
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewResilientClient wraps inner.
func NewResilientClient(inner LLMClient, cfg RetryConfig) *ResilientClient {
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultRetryConfig().MaxBackoff
	}
	return &ResilientClient{inner: inner, cfg: cfg, sleep: sleepCtx}
}

// Complete sends a prompt and returns the completion.
func (c *ResilientClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem retries the inner client until it answers, the
// context ends or the retry budget is spent. Concurrent identical prompts
// share one upstream call.
func (c *ResilientClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	key := systemPrompt + "\x00" + userPrompt
	v, err, shared := c.flight.Do(key, func() (interface{}, error) {
		return c.withRetry(ctx, systemPrompt, userPrompt)
	})
	if shared {
		logging.APIDebug("shared in-flight completion for prompt len=%d", len(userPrompt))
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *ResilientClient) withRetry(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := c.attempt(ctx, systemPrompt, userPrompt)
		if err == nil {
			if attempt > 0 {
				logging.API("completion succeeded on attempt %d", attempt+1)
			}
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
		logging.Get(logging.CategoryAPI).Warn("attempt %d/%d failed: %v", attempt+1, c.cfg.MaxRetries+1, err)

		if attempt < c.cfg.MaxRetries {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func (c *ResilientClient) attempt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
}

// backoff computes initial * 2^attempt, capped.
func (c *ResilientClient) backoff(attempt int) time.Duration {
	b := float64(c.cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if b > float64(c.cfg.MaxBackoff) {
		b = float64(c.cfg.MaxBackoff)
	}
	return time.Duration(b)
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
