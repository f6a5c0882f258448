package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dreamplan/internal/progress"
	"dreamplan/internal/store"
	"dreamplan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledLLM never answers before its context ends.
type stalledLLM struct{}

func (stalledLLM) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (s stalledLLM) CompleteWithSystem(ctx context.Context, _, user string) (string, error) {
	return s.Complete(ctx, user)
}

// rowsDown rejects progress writes on the goal row.
type rowsDown struct {
	*store.MemoryStore
}

func (rowsDown) UpdateGoalProgress(context.Context, string, int, time.Time) error {
	return errors.New("remote down")
}

// progressDown is a progress store that cannot save.
type progressDown struct{}

func (progressDown) Save(context.Context, string, int) error { return errors.New("progress down") }

func (progressDown) Load(_ context.Context, goalID string) (int, error) {
	return 0, types.NotFound("progress", goalID)
}

func (progressDown) Delete(context.Context, string) error { return nil }

func TestGeneration_CallerDeadlineYieldsFallback(t *testing.T) {
	o := New(store.NewMemoryStore(), nil, stalledLLM{}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	snap, err := o.CreateGoal(ctx, GoalInput{OwnerID: "u1", Title: "Learn piano", TimeframeDays: 10})
	require.NoError(t, err)
	assert.Len(t, snap.Items, 3)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel2()
	day1, err := o.RequestTasksForDay(ctx2, snap.Goal.ID, 1, RequestOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, day1)
}

func TestGeneration_OwnTimeout(t *testing.T) {
	o := New(store.NewMemoryStore(), nil, stalledLLM{}, Options{GenerateTimeout: 20 * time.Millisecond})

	start := time.Now()
	snap, err := o.CreateGoal(context.Background(), GoalInput{OwnerID: "u1", Title: "Learn piano", TimeframeDays: 10})
	require.NoError(t, err)
	assert.Len(t, snap.Items, 3)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestToggleTask_RemoteDownInFallbackMode(t *testing.T) {
	ctx := context.Background()
	st := rowsDown{store.NewMemoryStore()}
	local, err := progress.NewLocalStore(filepath.Join(t.TempDir(), "progress.json"), nil)
	require.NoError(t, err)
	ps := progress.NewFallbackStore(progress.NewRemoteStore(st, nil), local)
	o := New(st, ps, &scriptLLM{tasks: `["a", "b"]`, roadmap: "[]"}, Options{})

	snap, err := o.CreateGoal(ctx, GoalInput{OwnerID: "u1", Title: "Garden", TimeframeDays: 3})
	require.NoError(t, err)
	day1, err := o.RequestTasksForDay(ctx, snap.Goal.ID, 1, RequestOptions{})
	require.NoError(t, err)
	require.Len(t, day1, 2)

	task, err := o.ToggleTask(ctx, day1[0].ID, true)
	require.NoError(t, err)
	assert.True(t, task.Completed)

	p, err := local.Load(ctx, snap.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, p)
}

func TestLocalMode_ProgressComesFromCache(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	local, err := progress.NewLocalStore(filepath.Join(t.TempDir(), "progress.json"), nil)
	require.NoError(t, err)
	o := New(st, local, &scriptLLM{tasks: `["a", "b"]`, roadmap: "[]"}, Options{})

	snap, err := o.CreateGoal(ctx, GoalInput{OwnerID: "u1", Title: "Garden", TimeframeDays: 3})
	require.NoError(t, err)
	day1, err := o.RequestTasksForDay(ctx, snap.Goal.ID, 1, RequestOptions{})
	require.NoError(t, err)
	_, err = o.ToggleTask(ctx, day1[0].ID, true)
	require.NoError(t, err)

	row, err := st.GetGoal(ctx, snap.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Progress, "local mode leaves the goal row alone")

	got, err := o.GetGoal(ctx, snap.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Goal.Progress)

	goals, err := o.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 50, goals[0].Progress)
}

func TestToggle_RevertedWhenProgressCannotBeSaved(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	o := New(st, progressDown{}, &scriptLLM{tasks: `["a", "b"]`, roadmap: "[]"}, Options{})

	snap, err := o.CreateGoal(ctx, GoalInput{OwnerID: "u1", Title: "Garden", TimeframeDays: 3})
	require.NoError(t, err)
	day1, err := o.RequestTasksForDay(ctx, snap.Goal.ID, 1, RequestOptions{})
	require.NoError(t, err)

	_, err = o.ToggleTask(ctx, day1[0].ID, true)
	require.Error(t, err)
	stored, err := st.GetTask(ctx, day1[0].ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)

	// items drive progress only on a goal without tasks
	bare, err := o.CreateGoal(ctx, GoalInput{OwnerID: "u1", Title: "Pottery", TimeframeDays: 3})
	require.NoError(t, err)
	_, err = o.ToggleRoadmapItem(ctx, bare.Items[0].ID, true)
	require.Error(t, err)
	item, err := st.GetRoadmapItem(ctx, bare.Items[0].ID)
	require.NoError(t, err)
	assert.False(t, item.Completed)
}
