package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_WatchReloadsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	s, err := NewLocalStore(path, fixedNow)
	require.NoError(t, err)

	reloaded := make(chan map[string]Entry, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := s.Watch(ctx, func(entries map[string]Entry) {
		select {
		case reloaded <- entries:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"g9": {"progress": 80}}`), 0644))

	select {
	case entries := <-reloaded:
		assert.Equal(t, 80, entries["g9"].Progress)
	case <-time.After(5 * time.Second):
		t.Fatal("cache was not reloaded")
	}

	p, err := s.Load(context.Background(), "g9")
	require.NoError(t, err)
	assert.Equal(t, 80, p)
}

func TestWatcher_StopAfterCancel(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "progress.json"), fixedNow)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := s.Watch(ctx, nil)
	require.NoError(t, err)
	cancel()
	w.Stop()
	w.Stop()
}
