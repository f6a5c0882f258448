package perception

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	mu      sync.Mutex
	calls   int
	results []error
	text    string
	gate    chan struct{}
}

func (s *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *scriptedClient) CompleteWithSystem(ctx context.Context, _, _ string) (string, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return s.text, nil
}

func (s *scriptedClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestResilient(inner LLMClient, retries int) (*ResilientClient, *[]time.Duration) {
	var slept []time.Duration
	rc := NewResilientClient(inner, RetryConfig{MaxRetries: retries, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond})
	rc.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return rc, &slept
}

func TestResilientClient_RetriesThenSucceeds(t *testing.T) {
	inner := &scriptedClient{results: []error{errors.New("boom"), errors.New("boom")}, text: "ok"}
	rc, slept := newTestResilient(inner, 3)

	got, err := rc.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, inner.callCount())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
}

func TestResilientClient_BackoffIsCapped(t *testing.T) {
	fail := errors.New("down")
	inner := &scriptedClient{results: []error{fail, fail, fail, fail}}
	rc, slept := newTestResilient(inner, 3)

	_, err := rc.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 4, inner.callCount())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, *slept)
}

func TestResilientClient_DoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", ErrUnavailable},
		{"bad request", &StatusError{StatusCode: http.StatusBadRequest}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &scriptedClient{results: []error{tt.err}}
			rc, _ := newTestResilient(inner, 3)

			_, err := rc.Complete(context.Background(), "hi")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, inner.callCount())
		})
	}
}

func TestResilientClient_RetriesRateLimit(t *testing.T) {
	inner := &scriptedClient{results: []error{&StatusError{StatusCode: http.StatusTooManyRequests}}, text: "later"}
	rc, _ := newTestResilient(inner, 1)

	got, err := rc.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "later", got)
}

func TestResilientClient_CancelledContext(t *testing.T) {
	inner := &scriptedClient{text: "never"}
	rc, _ := newTestResilient(inner, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rc.Complete(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, inner.callCount())
}

func TestResilientClient_SharesInFlightPrompt(t *testing.T) {
	gate := make(chan struct{})
	inner := &scriptedClient{text: "shared", gate: gate}
	rc, _ := newTestResilient(inner, 0)

	var wg sync.WaitGroup
	var started atomic.Int32
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Add(1)
			results[i], _ = rc.Complete(context.Background(), "same prompt")
		}(i)
	}
	for started.Load() < 4 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	assert.LessOrEqual(t, inner.callCount(), 4)
	assert.GreaterOrEqual(t, inner.callCount(), 1)
}
