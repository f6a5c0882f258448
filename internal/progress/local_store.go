package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dreamplan/internal/logging"
	"dreamplan/internal/types"
)

// Entry is one cached progress value.
type Entry struct {
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocalStore caches progress in a JSON file keyed by goal id.
type LocalStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	now     func() time.Time
}

// NewLocalStore opens the cache at path, creating the directory if
// needed. A missing file is an empty cache.
func NewLocalStore(path string, now func() time.Time) (*LocalStore, error) {
	if path == "" {
		return nil, errors.New("progress cache path is required")
	}
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	s := &LocalStore{path: path, entries: make(map[string]Entry), now: now}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the cache file path.
func (s *LocalStore) Path() string { return s.path }

func (s *LocalStore) Save(_ context.Context, goalID string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[goalID] = Entry{Progress: progress, UpdatedAt: s.now()}
	return s.flushLocked()
}

func (s *LocalStore) Load(_ context.Context, goalID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[goalID]
	if !ok {
		return 0, types.NotFound("progress", goalID)
	}
	return e.Progress, nil
}

func (s *LocalStore) Delete(_ context.Context, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[goalID]; !ok {
		return nil
	}
	delete(s.entries, goalID)
	return s.flushLocked()
}

// Snapshot returns a copy of every cached entry.
func (s *LocalStore) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Reload replaces the in-memory cache with the file contents.
func (s *LocalStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read progress cache: %w", err)
	}

	entries := make(map[string]Entry)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to parse progress cache: %w", err)
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	logging.ProgressDebug("progress cache loaded: %d entries", len(entries))
	return nil
}

// flushLocked writes the cache through a temp file so readers never see a
// partial document.
func (s *LocalStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode progress cache: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace progress cache: %w", err)
	}
	return nil
}
