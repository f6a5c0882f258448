package progress

import (
	"context"
	"fmt"
	"time"

	"dreamplan/internal/config"
	"dreamplan/internal/logging"
	"dreamplan/internal/types"
)

// Store keeps the last computed progress of each goal.
type Store interface {
	Save(ctx context.Context, goalID string, progress int) error
	// Load returns a *types.NotFoundError for unknown goals.
	Load(ctx context.Context, goalID string) (int, error)
	Delete(ctx context.Context, goalID string) error
}

// GoalRecords is the slice of the persistence store RemoteStore needs.
type GoalRecords interface {
	GetGoal(ctx context.Context, id string) (*types.Goal, error)
	UpdateGoalProgress(ctx context.Context, id string, progress int, at time.Time) error
}

// RemoteStore keeps progress on the goal row itself.
type RemoteStore struct {
	goals GoalRecords
	now   func() time.Time
}

// NewRemoteStore creates a RemoteStore over goals.
func NewRemoteStore(goals GoalRecords, now func() time.Time) *RemoteStore {
	if now == nil {
		now = time.Now
	}
	return &RemoteStore{goals: goals, now: now}
}

func (r *RemoteStore) Save(ctx context.Context, goalID string, progress int) error {
	if err := r.goals.UpdateGoalProgress(ctx, goalID, progress, r.now()); err != nil {
		return fmt.Errorf("failed to save remote progress: %w", err)
	}
	return nil
}

func (r *RemoteStore) Load(ctx context.Context, goalID string) (int, error) {
	g, err := r.goals.GetGoal(ctx, goalID)
	if err != nil {
		return 0, err
	}
	return g.Progress, nil
}

// Delete is a no-op: the value goes away with the goal row.
func (r *RemoteStore) Delete(context.Context, string) error { return nil }

// FallbackStore writes to both stores and reads from the primary, using
// the secondary whenever the primary fails.
type FallbackStore struct {
	primary   Store
	secondary Store
}

// NewFallbackStore creates a FallbackStore.
func NewFallbackStore(primary, secondary Store) *FallbackStore {
	return &FallbackStore{primary: primary, secondary: secondary}
}

// Save mirrors to the secondary first so a primary outage loses nothing.
func (f *FallbackStore) Save(ctx context.Context, goalID string, progress int) error {
	localErr := f.secondary.Save(ctx, goalID, progress)
	if err := f.primary.Save(ctx, goalID, progress); err != nil {
		if localErr != nil {
			return fmt.Errorf("progress not saved: %w (local: %v)", err, localErr)
		}
		logging.Get(logging.CategoryProgress).Warn("goal %s: remote progress save failed, kept locally: %v", goalID, err)
	}
	return nil
}

func (f *FallbackStore) Load(ctx context.Context, goalID string) (int, error) {
	p, err := f.primary.Load(ctx, goalID)
	if err == nil {
		return p, nil
	}
	if types.IsNotFound(err) {
		return 0, err
	}
	logging.Get(logging.CategoryProgress).Warn("goal %s: remote progress load failed, using local: %v", goalID, err)
	return f.secondary.Load(ctx, goalID)
}

func (f *FallbackStore) Delete(ctx context.Context, goalID string) error {
	if err := f.secondary.Delete(ctx, goalID); err != nil {
		return err
	}
	return f.primary.Delete(ctx, goalID)
}

// NewStore builds the store selected by cfg.Mode.
func NewStore(cfg config.ProgressConfig, goals GoalRecords, now func() time.Time) (Store, error) {
	switch cfg.Mode {
	case config.ProgressModeRemote:
		return NewRemoteStore(goals, now), nil
	case config.ProgressModeLocal:
		return NewLocalStore(cfg.CachePath, now)
	case config.ProgressModeFallback, "":
		local, err := NewLocalStore(cfg.CachePath, now)
		if err != nil {
			return nil, err
		}
		return NewFallbackStore(NewRemoteStore(goals, now), local), nil
	default:
		return nil, fmt.Errorf("unknown progress mode: %s", cfg.Mode)
	}
}

// LocalOf returns the local cache behind s, if it has one.
func LocalOf(s Store) (*LocalStore, bool) {
	switch v := s.(type) {
	case *LocalStore:
		return v, true
	case *FallbackStore:
		return LocalOf(v.secondary)
	}
	return nil, false
}

var (
	_ Store = (*RemoteStore)(nil)
	_ Store = (*LocalStore)(nil)
	_ Store = (*FallbackStore)(nil)
)
