// Package usage records how roadmap and task generation uses the LLM
// provider: call counts, failures, heuristic fallbacks and sizes.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dreamplan/internal/logging"
)

type operationKey struct{}

// Tracker aggregates generation usage and persists it as JSON.
// A nil *Tracker is valid and records nothing.
type Tracker struct {
	mu       sync.Mutex
	data     Data
	filePath string
	dirty    bool
	now      func() time.Time
}

// NewTracker opens the usage file at path. A missing or corrupt file
// starts empty.
func NewTracker(path string) (*Tracker, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}

	t := &Tracker{filePath: path, now: time.Now, data: emptyData()}
	if err := t.Load(); err != nil {
		logging.Get(logging.CategoryAPI).Warn("usage file %s unreadable, starting empty: %v", path, err)
		t.data = emptyData()
	}
	return t, nil
}

func emptyData() Data {
	return Data{
		Version: "1.0",
		Aggregate: Stats{
			ByProvider:  make(map[string]Counts),
			ByModel:     make(map[string]Counts),
			ByOperation: make(map[string]Counts),
		},
	}
}

// Path returns the usage file location.
func (t *Tracker) Path() string { return t.filePath }

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	loaded := emptyData()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	// Partial files may lack maps
	if loaded.Aggregate.ByProvider == nil {
		loaded.Aggregate.ByProvider = make(map[string]Counts)
	}
	if loaded.Aggregate.ByModel == nil {
		loaded.Aggregate.ByModel = make(map[string]Counts)
	}
	if loaded.Aggregate.ByOperation == nil {
		loaded.Aggregate.ByOperation = make(map[string]Counts)
	}
	t.data = loaded
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

// Flush saves only when something was recorded since the last save.
func (t *Tracker) Flush() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := t.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write usage: %w", err)
	}
	if err := os.Rename(tmp, t.filePath); err != nil {
		return fmt.Errorf("failed to replace usage: %w", err)
	}
	t.dirty = false
	return nil
}

// Track records one LLM call. The operation comes from ctx.
func (t *Tracker) Track(ctx context.Context, provider, model string, promptChars, responseChars int, callErr error, latency time.Duration) {
	if t == nil {
		return
	}
	op := OperationFrom(ctx)
	failed := callErr != nil

	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.addCall(promptChars, responseChars, failed, latency)
	addCall(t.data.Aggregate.ByProvider, provider, promptChars, responseChars, failed, latency)
	addCall(t.data.Aggregate.ByModel, model, promptChars, responseChars, failed, latency)
	addCall(t.data.Aggregate.ByOperation, op, promptChars, responseChars, failed, latency)
	t.data.Aggregate.LastCall = t.now()
	t.dirty = true
}

// TrackFallback records that an operation ended on heuristic output.
func (t *Tracker) TrackFallback(op string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.Fallbacks++
	c := t.data.Aggregate.ByOperation[op]
	c.Fallbacks++
	t.data.Aggregate.ByOperation[op] = c
	t.dirty = true
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyCounts(stats.ByProvider)
	stats.ByModel = copyCounts(stats.ByModel)
	stats.ByOperation = copyCounts(stats.ByOperation)
	return stats
}

func copyCounts(src map[string]Counts) map[string]Counts {
	dst := make(map[string]Counts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addCall(m map[string]Counts, key string, prompt, response int, failed bool, latency time.Duration) {
	if key == "" {
		key = OpUnknown
	}
	entry := m[key]
	entry.addCall(prompt, response, failed, latency)
	m[key] = entry
}

// WithOperation tags ctx with the planner operation driving an LLM call.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom returns the operation tagged on ctx.
func OperationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return OpUnknown
}
