package progress

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"dreamplan/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a LocalStore when its file is changed by another
// process. Events are debounced so a burst of writes reloads once.
type Watcher struct {
	mu       sync.Mutex
	store    *LocalStore
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(map[string]Entry)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for store. onReload, if set, receives the
// cache contents after each reload.
func NewWatcher(store *LocalStore, onReload func(map[string]Entry)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:    store,
		watcher:  fw,
		debounce: 100 * time.Millisecond,
		onReload: onReload,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches the cache directory until ctx ends or Stop is called.
// The directory is watched rather than the file because saves replace
// the file by rename.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.store.Path())); err != nil {
		return err
	}
	w.running = true
	go w.run(ctx)
	logging.Progress("watching progress cache %s", w.store.Path())
	return nil
}

// Stop ends the watch loop and releases the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryProgress).Error("error closing cache watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	name := filepath.Clean(w.store.Path())
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				pending = time.After(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryProgress).Error("cache watcher error: %v", err)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	if err := w.store.Reload(); err != nil {
		logging.Get(logging.CategoryProgress).Warn("progress cache reload failed: %v", err)
		return
	}
	if w.onReload != nil {
		w.onReload(w.store.Snapshot())
	}
}

// Watch is a shorthand for NewWatcher followed by Start.
func (s *LocalStore) Watch(ctx context.Context, onReload func(map[string]Entry)) (*Watcher, error) {
	w, err := NewWatcher(s, onReload)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
