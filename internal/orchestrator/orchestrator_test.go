package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dreamplan/internal/progress"
	"dreamplan/internal/store"
	"dreamplan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptLLM answers roadmap prompts and task prompts separately.
type scriptLLM struct {
	mu      sync.Mutex
	roadmap string
	tasks   string
	err     error
	calls   int
}

func (s *scriptLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *scriptLLM) CompleteWithSystem(_ context.Context, _, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(user, "structured roadmap") {
		return s.roadmap, nil
	}
	return s.tasks, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	orch  *Orchestrator
	store *store.MemoryStore
	prog  *progress.LocalStore
	clock *clock
	llm   *scriptLLM
	mu    sync.Mutex
	seen  []Event
}

func newHarness(t *testing.T, llm *scriptLLM, autoRollover bool) *harness {
	t.Helper()
	st := store.NewMemoryStore()
	c := &clock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	local, err := progress.NewLocalStore(filepath.Join(t.TempDir(), "progress.json"), c.Now)
	require.NoError(t, err)
	ps := progress.NewFallbackStore(progress.NewRemoteStore(st, c.Now), local)

	n := 0
	var idMu sync.Mutex
	h := &harness{store: st, prog: local, clock: c, llm: llm}
	h.orch = New(st, ps, llm, Options{
		Clock: c.Now,
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		},
		AutoRollover: autoRollover,
	})
	h.orch.Bus().Subscribe(func(_ context.Context, e Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.seen = append(h.seen, e)
		return nil
	})
	return h
}

func (h *harness) events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.seen...)
}

func (h *harness) create(t *testing.T, title string, tf int) *Snapshot {
	t.Helper()
	snap, err := h.orch.CreateGoal(context.Background(), GoalInput{OwnerID: "u1", Title: title, Description: "because", TimeframeDays: tf})
	require.NoError(t, err)
	return snap
}

func completeAll(t *testing.T, h *harness, ts []types.Task) {
	t.Helper()
	for _, task := range ts {
		_, err := h.orch.ToggleTask(context.Background(), task.ID, true)
		require.NoError(t, err)
	}
}

func TestCreateGoal_Validation(t *testing.T) {
	h := newHarness(t, &scriptLLM{}, false)
	_, err := h.orch.CreateGoal(context.Background(), GoalInput{TimeframeDays: 0})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3, "every bad field is reported")
	assert.Equal(t, 0, h.llm.calls, "nothing generated before validation")

	goals, err := h.store.ListGoals(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestCreateGoal_UsesLLMRoadmap(t *testing.T) {
	llm := &scriptLLM{roadmap: "```json\n" + `[{"timePeriod":"Day 1-2","tasks":["a"]},{"timePeriod":"Day 3-4","tasks":["b"]}]` + "\n```"}
	h := newHarness(t, llm, false)

	snap := h.create(t, "Learn Go", 4)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "Day 1-2", snap.Items[0].Label)
	assert.Equal(t, types.StateRoadmapReady, snap.State)
	assert.Equal(t, 0, snap.Goal.Progress)
	assert.Equal(t, 1, snap.CurrentDay)

	p, err := h.prog.Load(context.Background(), snap.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p)
}

func TestCreateGoal_DuplicateTitle(t *testing.T) {
	h := newHarness(t, &scriptLLM{err: errors.New("offline")}, false)
	h.create(t, "Run 5k", 7)

	_, err := h.orch.CreateGoal(context.Background(), GoalInput{OwnerID: "u1", Title: " run 5K ", TimeframeDays: 3})
	assert.True(t, types.IsStateConflict(err))
	assert.ErrorIs(t, err, types.ErrDuplicateGoal)

	_, err = h.orch.CreateGoal(context.Background(), GoalInput{OwnerID: "u2", Title: "Run 5k", TimeframeDays: 3})
	assert.NoError(t, err, "titles are unique per owner only")
}

// End to end: failing LLM, fallback roadmap and tasks, day gating and
// override.
func TestEndToEnd_FallbackAndDayGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{err: errors.New("llm down")}, false)

	snap := h.create(t, "Write a novel", 10)
	goalID := snap.Goal.ID
	assert.GreaterOrEqual(t, len(snap.Items), 3)
	assert.LessOrEqual(t, len(snap.Items), 5)
	assert.Equal(t, 1, snap.Items[0].Range.Start)
	assert.Equal(t, 10, snap.Items[len(snap.Items)-1].Range.End)

	day1, err := h.orch.RequestTasksForDay(ctx, goalID, 1, RequestOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, day1)
	for _, task := range day1 {
		assert.Equal(t, 1, task.Day)
	}
	// guidance from the first section plus the tracking task
	assert.Equal(t, "Track progress and review what you've learned today", day1[len(day1)-1].Description)

	again, err := h.orch.RequestTasksForDay(ctx, goalID, 1, RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, day1, again, "existing tasks are returned unchanged")

	_, err = h.orch.RequestTasksForDay(ctx, goalID, 2, RequestOptions{})
	require.Error(t, err)
	assert.True(t, types.IsStateConflict(err))
	assert.ErrorIs(t, err, types.ErrDayNotReady)

	day2, err := h.orch.RequestTasksForDay(ctx, goalID, 2, RequestOptions{Override: true})
	require.NoError(t, err)
	require.NotEmpty(t, day2)
	assert.Equal(t, 2, day2[0].Day)

	snap, err = h.orch.GetGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, types.StateInProgress, snap.State)
	assert.Len(t, snap.Tasks, len(day1)+len(day2))
	assert.Equal(t, day1, snap.TasksForCurrentDay())
}

func TestRequestTasksForDay_Rules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{tasks: `["one", "two"]`, roadmap: "nope"}, false)
	snap := h.create(t, "Garden", 3)

	_, err := h.orch.RequestTasksForDay(ctx, snap.Goal.ID, 0, RequestOptions{})
	assert.True(t, types.IsValidation(err))

	_, err = h.orch.RequestTasksForDay(ctx, "missing", 1, RequestOptions{})
	assert.True(t, types.IsNotFound(err))

	clamped, err := h.orch.RequestTasksForDay(ctx, snap.Goal.ID, 99, RequestOptions{Override: true})
	require.NoError(t, err)
	require.Len(t, clamped, 2)
	assert.Equal(t, 3, clamped[0].Day, "day is clamped to the timeframe")
	assert.Equal(t, "one", clamped[0].Description)

	// the current day has no tasks, which does not count as finished
	_, err = h.orch.RequestTasksForDay(ctx, snap.Goal.ID, 2, RequestOptions{})
	assert.ErrorIs(t, err, types.ErrDayNotReady)
	assert.Contains(t, err.Error(), "day 1 has no tasks yet")
}

func TestRequestTasksForDay_AfterTimePasses(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{tasks: `["x"]`}, false)
	snap := h.create(t, "Meditate", 5)

	h.clock.Advance(48 * time.Hour)
	ts, err := h.orch.RequestTasksForDay(ctx, snap.Goal.ID, 3, RequestOptions{})
	require.NoError(t, err, "day 3 is the current day")
	assert.Equal(t, 3, ts[0].Day)
}

func TestToggleTask_ProgressAndEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{tasks: `["a", "b", "c"]`, roadmap: "[]"}, false)
	snap := h.create(t, "Bake bread", 2)
	goalID := snap.Goal.ID

	day1, err := h.orch.RequestTasksForDay(ctx, goalID, 1, RequestOptions{})
	require.NoError(t, err)
	require.Len(t, day1, 3)

	_, err = h.orch.ToggleTask(ctx, day1[0].ID, true)
	require.NoError(t, err)
	_, err = h.orch.ToggleTask(ctx, day1[1].ID, true)
	require.NoError(t, err)

	g, err := h.store.GetGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, 67, g.Progress)
	p, err := h.prog.Load(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, 67, p)

	_, err = h.orch.ToggleTask(ctx, day1[2].ID, true)
	require.NoError(t, err)

	var completed []AllTasksCompletedForDay
	var updates []int
	for _, e := range h.events() {
		switch ev := e.(type) {
		case AllTasksCompletedForDay:
			completed = append(completed, ev)
		case ProgressUpdated:
			updates = append(updates, ev.Progress)
		}
	}
	assert.Equal(t, []AllTasksCompletedForDay{{GoalID: goalID, Day: 1}}, completed)
	assert.Equal(t, []int{33, 67, 100}, updates)

	// untoggle is a plain update with no completion event
	_, err = h.orch.ToggleTask(ctx, day1[2].ID, false)
	require.NoError(t, err)
	assert.Len(t, h.events(), 5)

	_, err = h.orch.ToggleTask(ctx, "missing", true)
	assert.True(t, types.IsNotFound(err))
}

func TestAutoRollover(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{err: errors.New("offline")}, true)
	snap := h.create(t, "Learn chess", 2)
	goalID := snap.Goal.ID

	day1, err := h.orch.RequestTasksForDay(ctx, goalID, 1, RequestOptions{})
	require.NoError(t, err)
	completeAll(t, h, day1)

	all, err := h.store.ListTasks(ctx, goalID)
	require.NoError(t, err)
	day2 := types.TasksForDay(all, 2)
	require.NotEmpty(t, day2, "completing day 1 generated day 2")

	// finishing the last day does not roll over
	completeAll(t, h, day2)
	snap, err = h.orch.GetGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, types.StateCompleted, snap.State)
	assert.Equal(t, 100, snap.Goal.Progress)
}

func TestToggleRoadmapItem(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{err: errors.New("offline")}, false)
	snap := h.create(t, "Paint", 12)
	require.Len(t, snap.Items, 3)

	item, err := h.orch.ToggleRoadmapItem(ctx, snap.Items[0].ID, true)
	require.NoError(t, err)
	assert.True(t, item.Completed)

	g, err := h.store.GetGoal(ctx, snap.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, g.Progress, "items drive progress while there are no tasks")

	_, err = h.orch.ToggleRoadmapItem(ctx, "missing", true)
	assert.True(t, types.IsNotFound(err))
}

func TestSetStartDate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{err: errors.New("offline")}, false)
	snap := h.create(t, "Swim", 10)

	start := time.Date(2026, 3, 28, 17, 45, 0, 0, time.UTC)
	g, err := h.orch.SetStartDate(ctx, snap.Goal.ID, start)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC), *g.StartDate)
	assert.Equal(t, time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC), g.Deadline())
	assert.Equal(t, 5, h.orch.CurrentDay(g))

	_, err = h.orch.SetStartDate(ctx, snap.Goal.ID, time.Time{})
	assert.True(t, types.IsValidation(err))
	_, err = h.orch.SetStartDate(ctx, "missing", start)
	assert.True(t, types.IsNotFound(err))
}

func TestDeleteGoal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{err: errors.New("offline")}, false)
	snap := h.create(t, "Knit", 3)
	_, err := h.orch.RequestTasksForDay(ctx, snap.Goal.ID, 1, RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, h.orch.DeleteGoal(ctx, snap.Goal.ID))
	_, err = h.orch.GetGoal(ctx, snap.Goal.ID)
	assert.True(t, types.IsNotFound(err))
	_, err = h.prog.Load(ctx, snap.Goal.ID)
	assert.True(t, types.IsNotFound(err))
	assert.True(t, types.IsNotFound(h.orch.DeleteGoal(ctx, snap.Goal.ID)))
	assert.Equal(t, 0, h.orch.locks.size())
}

func TestListGoalsAndProfiles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{err: errors.New("offline")}, false)
	h.create(t, "One", 3)
	h.clock.Advance(time.Minute)
	h.create(t, "Two", 3)

	goals, err := h.orch.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "Two", goals[0].Title)

	_, err = h.orch.ListGoals(ctx, "")
	assert.True(t, types.IsValidation(err))

	p, created, err := h.orch.SaveProfile(ctx, ProfileInput{ID: "u1", FullName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ada", p.FullName)

	_, created, err = h.orch.SaveProfile(ctx, ProfileInput{ID: "u1", FullName: "Ada L", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = h.orch.SaveProfile(ctx, ProfileInput{Email: "nope"})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)

	got, err := h.orch.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L", got.FullName)
}

func TestConcurrentRequestsGenerateOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &scriptLLM{tasks: `["only"]`}, false)
	snap := h.create(t, "Focus", 5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.orch.RequestTasksForDay(ctx, snap.Goal.ID, 1, RequestOptions{})
		}()
	}
	wg.Wait()

	all, err := h.store.ListTasks(ctx, snap.Goal.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
