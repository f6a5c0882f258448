package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.EventName())
		return errors.New("ignored")
	})
	bus.Subscribe(func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.EventName())
		return nil
	})

	bus.Publish(context.Background(), ProgressUpdated{GoalID: "g", Progress: 10})
	bus.Publish(context.Background(), AllTasksCompletedForDay{GoalID: "g", Day: 1})

	assert.Equal(t, []string{
		"first:progress_updated", "second:progress_updated",
		"first:all_tasks_completed_for_day", "second:all_tasks_completed_for_day",
	}, got)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	counter := map[string]*int{"a": new(int), "b": new(int)}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			defer unlock()
			*counter[key]++
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, *counter["a"])
	assert.Equal(t, 25, *counter["b"])
	assert.Equal(t, 0, k.size())
}
