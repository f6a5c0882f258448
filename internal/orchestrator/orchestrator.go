// Package orchestrator coordinates the goal lifecycle: roadmap creation,
// daily task requests, completion toggles and progress reconciliation.
//
// Every mutation of one goal runs under that goal's lock. LLM output is
// always validated and normalized before anything is written, and events
// are published only after the lock is released so handlers may call
// back into the Orchestrator.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dreamplan/internal/logging"
	"dreamplan/internal/perception"
	"dreamplan/internal/progress"
	"dreamplan/internal/roadmap"
	"dreamplan/internal/store"
	"dreamplan/internal/tasks"
	"dreamplan/internal/types"
	"dreamplan/internal/usage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultGenerateTimeout bounds one roadmap or task generation when
// Options.GenerateTimeout is zero.
const DefaultGenerateTimeout = 90 * time.Second

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	Clock        func() time.Time
	NewID        func() string
	GuidanceCap  int
	AutoRollover bool // request the next day's tasks when a day completes
	Bus          *Bus
	Usage        *usage.Tracker // fallback counters; nil disables

	// GenerateTimeout caps one generation. It is shortened further to
	// three quarters of whatever time the caller's context has left.
	GenerateTimeout time.Duration
}

// Orchestrator is the entry point for every goal operation.
type Orchestrator struct {
	store      store.Store
	progress   progress.Store
	llm        perception.LLMClient
	normalizer *roadmap.Normalizer
	synth      *tasks.Synthesizer
	bus        *Bus
	usage      *usage.Tracker
	locks      *keyedMutex
	now        func() time.Time
	newID      func() string
	genTimeout time.Duration
}

// New wires an Orchestrator. llm may be nil, in which case every
// generation takes its fallback. ps may be nil, in which case progress
// lives on the goal row only.
func New(st store.Store, ps progress.Store, llm perception.LLMClient, opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Bus == nil {
		opts.Bus = NewBus()
	}
	if llm == nil {
		llm = perception.OfflineClient{}
	}
	if ps == nil {
		ps = progress.NewRemoteStore(st, opts.Clock)
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}

	o := &Orchestrator{
		store:      st,
		progress:   ps,
		llm:        llm,
		normalizer: roadmap.NewNormalizerWithIDs(opts.NewID),
		synth: tasks.NewSynthesizer(llm,
			tasks.WithClock(opts.Clock),
			tasks.WithIDGenerator(opts.NewID),
			tasks.WithGuidanceCap(opts.GuidanceCap),
		),
		bus:   opts.Bus,
		usage: opts.Usage,
		locks: newKeyedMutex(),
		now:        opts.Clock,
		newID:      opts.NewID,
		genTimeout: opts.GenerateTimeout,
	}
	if opts.AutoRollover {
		o.bus.Subscribe(func(ctx context.Context, e Event) error {
			if ev, ok := e.(AllTasksCompletedForDay); ok {
				return o.HandleAllTasksCompleted(ctx, ev)
			}
			return nil
		})
	}
	return o
}

// Bus returns the event bus, for subscribing to domain events.
func (o *Orchestrator) Bus() *Bus { return o.bus }

// GoalInput is the caller-supplied part of a new goal.
type GoalInput struct {
	OwnerID       string
	Title         string
	Description   string
	TimeframeDays int
}

func (in GoalInput) validate() error {
	ve := &types.ValidationError{}
	if strings.TrimSpace(in.OwnerID) == "" {
		ve.Add("owner_id", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		ve.Add("title", "is required")
	}
	if in.TimeframeDays <= 0 {
		ve.Add("timeframe", "must be a positive number of days")
	}
	return ve.OrNil()
}

// Snapshot is a consistent view of one goal.
type Snapshot struct {
	Goal       types.Goal
	Items      []types.RoadmapItem
	Tasks      []types.Task
	CurrentDay int
	Deadline   time.Time
	State      types.GoalState
}

// TasksForCurrentDay returns the tasks of the snapshot's current day.
func (s *Snapshot) TasksForCurrentDay() []types.Task {
	return types.TasksForDay(s.Tasks, s.CurrentDay)
}

// CreateGoal validates input, generates and normalizes a roadmap and
// stores goal and roadmap together. A failed or unusable generation yields
// the fallback roadmap, not an error.
func (o *Orchestrator) CreateGoal(ctx context.Context, in GoalInput) (*Snapshot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	unlock := o.locks.Lock("owner:" + in.OwnerID)
	defer unlock()

	existing, err := o.store.FindGoalByTitle(ctx, in.OwnerID, in.Title)
	switch {
	case err == nil:
		return nil, &types.StateConflictError{Reason: types.ErrDuplicateGoal, Detail: fmt.Sprintf("%q (%s)", existing.Title, existing.ID)}
	case !types.IsNotFound(err):
		return nil, fmt.Errorf("failed to check duplicate goal: %w", err)
	}

	now := o.now()
	goal := &types.Goal{
		ID:            o.newID(),
		OwnerID:       in.OwnerID,
		Title:         in.Title,
		Description:   in.Description,
		TimeframeDays: in.TimeframeDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var result roadmap.Result
	gctx, cancel := o.generationContext(usage.WithOperation(ctx, usage.OpRoadmap))
	raw, err := o.llm.CompleteWithSystem(gctx, roadmap.SystemPrompt, roadmap.BuildPrompt(goal))
	cancel()
	if err != nil {
		result = o.normalizer.Fallback(goal, fmt.Sprintf("generate: %v", err))
	} else {
		result = o.normalizer.Normalize(goal, raw)
	}
	if result.Fallback {
		o.usage.TrackFallback(usage.OpRoadmap)
	}

	if err := o.store.CreateGoal(ctx, goal, result.Items); err != nil {
		return nil, fmt.Errorf("failed to store goal: %w", err)
	}
	o.seedProgress(ctx, goal.ID)

	logging.Orchestrator("created goal %s %q: %d days, %d roadmap items (fallback=%t)",
		goal.ID, goal.Title, goal.TimeframeDays, len(result.Items), result.Fallback)

	return o.snapshot(*goal, result.Items, nil), nil
}

// SetStartDate stores the goal's day-1 date at day precision.
func (o *Orchestrator) SetStartDate(ctx context.Context, goalID string, date time.Time) (*types.Goal, error) {
	if date.IsZero() {
		return nil, types.Invalid("start_date", "is required")
	}
	unlock := o.locks.Lock(goalID)
	defer unlock()

	goal, err := o.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	d := types.TruncateDay(date)
	goal.StartDate = &d
	goal.UpdatedAt = o.now()
	if err := o.store.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to set start date: %w", err)
	}
	logging.Orchestrator("goal %s starts %s, deadline %s", goalID, d.Format(types.DateLayout), goal.Deadline().Format(types.DateLayout))
	return goal, nil
}

// CurrentDay is the goal's logical day at now.
func (o *Orchestrator) CurrentDay(goal *types.Goal) int {
	return goal.DayAt(o.now())
}

// RequestOptions modifies RequestTasksForDay.
type RequestOptions struct {
	// Override skips the check that the current day is finished.
	Override bool
}

// RequestTasksForDay returns the tasks of day, generating and storing them
// on first request. Asking ahead of an unfinished current day is a
// *types.StateConflictError matching types.ErrDayNotReady unless
// opts.Override is set.
func (o *Orchestrator) RequestTasksForDay(ctx context.Context, goalID string, day int, opts RequestOptions) ([]types.Task, error) {
	if day < 1 {
		return nil, types.Invalid("day", "must be at least 1")
	}

	unlock := o.locks.Lock(goalID)
	created, progressed, err := o.requestTasksLocked(ctx, goalID, day, opts)
	unlock()
	if err != nil {
		return nil, err
	}
	if progressed != nil {
		o.bus.Publish(ctx, *progressed)
	}
	return created, nil
}

func (o *Orchestrator) requestTasksLocked(ctx context.Context, goalID string, day int, opts RequestOptions) ([]types.Task, *ProgressUpdated, error) {
	goal, err := o.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, nil, err
	}
	if day > goal.TimeframeDays {
		day = goal.TimeframeDays
	}
	goal.Progress = o.currentProgress(ctx, goal)

	all, err := o.store.ListTasks(ctx, goalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if existing := types.TasksForDay(all, day); len(existing) > 0 {
		return existing, nil, nil
	}

	current := goal.DayAt(o.now())
	if day > current && !opts.Override {
		if open := types.TasksForDay(all, current); !types.AllCompleted(open) {
			return nil, nil, &types.StateConflictError{Reason: types.ErrDayNotReady, Detail: describeOpen(current, open)}
		}
	}

	items, err := o.store.ListRoadmapItems(ctx, goalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load roadmap: %w", err)
	}

	gctx, cancel := o.generationContext(usage.WithOperation(ctx, usage.OpTasks))
	res := o.synth.Synthesize(gctx, goal, day, tasks.GuidanceForDay(items, day))
	cancel()
	if res.Fallback {
		o.usage.TrackFallback(usage.OpTasks)
	}
	if err := o.store.CreateTasks(ctx, res.Tasks); err != nil {
		return nil, nil, fmt.Errorf("failed to store tasks: %w", err)
	}
	logging.Orchestrator("goal %s day %d: %d tasks (fallback=%t, override=%t)", goalID, day, len(res.Tasks), res.Fallback, opts.Override)

	all = append(all, res.Tasks...)
	ev, err := o.reconcileProgress(ctx, goal, all, items)
	if err != nil {
		// the tasks are stored; progress catches up on the next toggle
		logging.Get(logging.CategoryProgress).Warn("goal %s: %v", goalID, err)
		return res.Tasks, nil, nil
	}
	return res.Tasks, ev, nil
}

func describeOpen(day int, dayTasks []types.Task) string {
	if len(dayTasks) == 0 {
		return fmt.Sprintf("day %d has no tasks yet", day)
	}
	open := 0
	for _, t := range dayTasks {
		if !t.Completed {
			open++
		}
	}
	return fmt.Sprintf("day %d has %d of %d tasks open", day, open, len(dayTasks))
}

// generationContext bounds one generation. It ends before ctx does, so a
// stalled provider still leaves time to store the fallback.
func (o *Orchestrator) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := o.genTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline) * 3 / 4; left < budget {
			budget = left
		}
	}
	return context.WithTimeout(ctx, budget)
}

// ToggleTask sets a task's completion and recomputes progress. Completing
// the last open task of a day publishes AllTasksCompletedForDay.
func (o *Orchestrator) ToggleTask(ctx context.Context, taskID string, completed bool) (*types.Task, error) {
	probe, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	unlock := o.locks.Lock(probe.GoalID)
	task, events, err := o.toggleTaskLocked(ctx, taskID, completed)
	unlock()
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		o.bus.Publish(ctx, e)
	}
	return task, nil
}

func (o *Orchestrator) toggleTaskLocked(ctx context.Context, taskID string, completed bool) (*types.Task, []Event, error) {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task.Completed == completed {
		return task, nil, nil
	}
	goal, err := o.store.GetGoal(ctx, task.GoalID)
	if err != nil {
		return nil, nil, err
	}
	goal.Progress = o.currentProgress(ctx, goal)

	task.Completed = completed
	if err := o.store.UpdateTask(ctx, task); err != nil {
		return nil, nil, fmt.Errorf("failed to update task: %w", err)
	}

	all, items, err := o.loadChildren(ctx, goal.ID)
	var ev *ProgressUpdated
	if err == nil {
		ev, err = o.reconcileProgress(ctx, goal, all, items)
	}
	if err != nil {
		task.Completed = !completed
		if rerr := o.store.UpdateTask(ctx, task); rerr != nil {
			logging.Get(logging.CategoryOrchestrator).Error("task %s: revert after failed toggle: %v", task.ID, rerr)
		}
		return nil, nil, err
	}

	var events []Event
	if ev != nil {
		events = append(events, *ev)
	}
	if completed && types.AllCompleted(types.TasksForDay(all, task.Day)) {
		logging.Orchestrator("goal %s: all tasks of day %d completed", goal.ID, task.Day)
		events = append(events, AllTasksCompletedForDay{GoalID: goal.ID, Day: task.Day})
	}
	return task, events, nil
}

// HandleAllTasksCompleted rolls a goal over to the next day by requesting
// its tasks. It is a no-op on the last day.
func (o *Orchestrator) HandleAllTasksCompleted(ctx context.Context, ev AllTasksCompletedForDay) error {
	goal, err := o.store.GetGoal(ctx, ev.GoalID)
	if err != nil {
		return err
	}
	if ev.Day >= goal.TimeframeDays {
		logging.Orchestrator("goal %s: final day %d completed", goal.ID, ev.Day)
		return nil
	}
	_, err = o.RequestTasksForDay(ctx, ev.GoalID, ev.Day+1, RequestOptions{})
	if errors.Is(err, types.ErrDayNotReady) {
		// a day ahead of the current one was finished early
		logging.OrchestratorDebug("goal %s: rollover to day %d deferred: %v", goal.ID, ev.Day+1, err)
		return nil
	}
	return err
}

// ToggleRoadmapItem sets a roadmap item's completion flag and recomputes
// progress.
func (o *Orchestrator) ToggleRoadmapItem(ctx context.Context, itemID string, completed bool) (*types.RoadmapItem, error) {
	probe, err := o.store.GetRoadmapItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	unlock := o.locks.Lock(probe.GoalID)
	item, ev, err := o.toggleItemLocked(ctx, itemID, completed)
	unlock()
	if err != nil {
		return nil, err
	}
	if ev != nil {
		o.bus.Publish(ctx, *ev)
	}
	return item, nil
}

func (o *Orchestrator) toggleItemLocked(ctx context.Context, itemID string, completed bool) (*types.RoadmapItem, *ProgressUpdated, error) {
	item, err := o.store.GetRoadmapItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	goal, err := o.store.GetGoal(ctx, item.GoalID)
	if err != nil {
		return nil, nil, err
	}
	goal.Progress = o.currentProgress(ctx, goal)

	was := item.Completed
	item.Completed = completed
	if err := o.store.UpdateRoadmapItem(ctx, item); err != nil {
		return nil, nil, fmt.Errorf("failed to update roadmap item: %w", err)
	}

	all, items, err := o.loadChildren(ctx, goal.ID)
	var ev *ProgressUpdated
	if err == nil {
		ev, err = o.reconcileProgress(ctx, goal, all, items)
	}
	if err != nil {
		item.Completed = was
		if rerr := o.store.UpdateRoadmapItem(ctx, item); rerr != nil {
			logging.Get(logging.CategoryOrchestrator).Error("roadmap item %s: revert after failed toggle: %v", item.ID, rerr)
		}
		return nil, nil, err
	}
	return item, ev, nil
}

// reconcileProgress recomputes the goal's progress and saves it through
// the progress store, returning an event when the value changed. goal
// must carry the current stored value.
func (o *Orchestrator) reconcileProgress(ctx context.Context, goal *types.Goal, all []types.Task, items []types.RoadmapItem) (*ProgressUpdated, error) {
	p := progress.Calculate(all, items)
	if p == goal.Progress {
		return nil, nil
	}
	if err := o.progress.Save(ctx, goal.ID, p); err != nil {
		return nil, fmt.Errorf("failed to store progress: %w", err)
	}
	logging.OrchestratorDebug("goal %s progress %d%% -> %d%%", goal.ID, goal.Progress, p)
	goal.Progress = p
	return &ProgressUpdated{GoalID: goal.ID, Progress: p}, nil
}

// currentProgress reads the goal's progress from the progress store. The
// goal row value is used when the store has none or cannot be read.
func (o *Orchestrator) currentProgress(ctx context.Context, goal *types.Goal) int {
	p, err := o.progress.Load(ctx, goal.ID)
	if err != nil {
		if !types.IsNotFound(err) {
			logging.Get(logging.CategoryProgress).Warn("goal %s: progress load failed: %v", goal.ID, err)
		}
		return goal.Progress
	}
	return p
}

// seedProgress records 0% for a new goal. Failures only cost the cache
// entry, which the first toggle writes anyway.
func (o *Orchestrator) seedProgress(ctx context.Context, goalID string) {
	if err := o.progress.Save(ctx, goalID, 0); err != nil {
		logging.Get(logging.CategoryProgress).Warn("goal %s: progress store save failed: %v", goalID, err)
	}
}

// DeleteGoal removes a goal with its roadmap and tasks.
func (o *Orchestrator) DeleteGoal(ctx context.Context, goalID string) error {
	unlock := o.locks.Lock(goalID)
	defer unlock()

	if err := o.store.DeleteGoal(ctx, goalID); err != nil {
		return err
	}
	if err := o.progress.Delete(ctx, goalID); err != nil {
		logging.Get(logging.CategoryProgress).Warn("goal %s: progress store delete failed: %v", goalID, err)
	}
	logging.Orchestrator("deleted goal %s", goalID)
	return nil
}

// GetGoal returns a snapshot of the goal, its roadmap and its tasks.
func (o *Orchestrator) GetGoal(ctx context.Context, goalID string) (*Snapshot, error) {
	unlock := o.locks.Lock(goalID)
	defer unlock()

	goal, err := o.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	goal.Progress = o.currentProgress(ctx, goal)
	all, items, err := o.loadChildren(ctx, goalID)
	if err != nil {
		return nil, err
	}
	return o.snapshot(*goal, items, all), nil
}

// loadChildren reads tasks and roadmap items concurrently.
func (o *Orchestrator) loadChildren(ctx context.Context, goalID string) ([]types.Task, []types.RoadmapItem, error) {
	var all []types.Task
	var items []types.RoadmapItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = o.store.ListTasks(gctx, goalID)
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = o.store.ListRoadmapItems(gctx, goalID)
		if err != nil {
			return fmt.Errorf("failed to load roadmap: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return all, items, nil
}

func (o *Orchestrator) snapshot(goal types.Goal, items []types.RoadmapItem, all []types.Task) *Snapshot {
	return &Snapshot{
		Goal:       goal,
		Items:      items,
		Tasks:      all,
		CurrentDay: goal.DayAt(o.now()),
		Deadline:   goal.Deadline(),
		State:      types.DeriveState(goal.TimeframeDays, items, all),
	}
}

// ListGoals returns the owner's goals, newest first.
func (o *Orchestrator) ListGoals(ctx context.Context, ownerID string) ([]types.Goal, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, types.Invalid("owner_id", "is required")
	}
	goals, err := o.store.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		goals[i].Progress = o.currentProgress(ctx, &goals[i])
	}
	return goals, nil
}

// ProfileInput is the identity-provider data saved on sign-in.
type ProfileInput struct {
	ID        string
	FullName  string
	Email     string
	AvatarURL string
	Phone     string
}

// SaveProfile upserts a profile and reports whether it was created.
func (o *Orchestrator) SaveProfile(ctx context.Context, in ProfileInput) (*types.Profile, bool, error) {
	ve := &types.ValidationError{}
	if strings.TrimSpace(in.ID) == "" {
		ve.Add("id", "is required")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		ve.Add("email", "is not an email address")
	}
	if err := ve.OrNil(); err != nil {
		return nil, false, err
	}

	now := o.now()
	p := &types.Profile{
		ID:        strings.TrimSpace(in.ID),
		FullName:  strings.TrimSpace(in.FullName),
		Email:     strings.TrimSpace(in.Email),
		AvatarURL: in.AvatarURL,
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := o.store.SaveProfile(ctx, p)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, created, nil
}

// GetProfile loads a profile.
func (o *Orchestrator) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	return o.store.GetProfile(ctx, id)
}
