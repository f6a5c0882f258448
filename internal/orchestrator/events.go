package orchestrator

import (
	"context"
	"sync"

	"dreamplan/internal/logging"
)

// Event is a domain event published on the Bus.
type Event interface {
	EventName() string
}

// AllTasksCompletedForDay fires when the last open task of a day is
// completed.
type AllTasksCompletedForDay struct {
	GoalID string
	Day    int
}

func (AllTasksCompletedForDay) EventName() string { return "all_tasks_completed_for_day" }

// ProgressUpdated fires when a goal's progress percentage changes.
type ProgressUpdated struct {
	GoalID   string
	Progress int
}

func (ProgressUpdated) EventName() string { return "progress_updated" }

// Handler reacts to an event. Errors are logged by the Bus.
type Handler func(ctx context.Context, e Event) error

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for every event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish calls every handler with e.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("handler for %s failed: %v", e.EventName(), err)
		}
	}
}
