// Package store persists goals, roadmap items, tasks and profiles.
//
// Two implementations are provided: SQLStore on database/sql (SQLite through
// either the cgo mattn driver or the pure-Go modernc driver) and MemoryStore
// for tests and ephemeral runs. Lookups of missing ids return a
// *types.NotFoundError.
package store

import (
	"context"
	"fmt"
	"time"

	"dreamplan/internal/config"
	"dreamplan/internal/types"
)

// Store is the persistence collaborator used by the orchestrator.
type Store interface {
	// CreateGoal inserts the goal and its roadmap in one transaction.
	CreateGoal(ctx context.Context, goal *types.Goal, items []types.RoadmapItem) error
	GetGoal(ctx context.Context, id string) (*types.Goal, error)
	// FindGoalByTitle matches titles case-insensitively within one owner.
	FindGoalByTitle(ctx context.Context, ownerID, title string) (*types.Goal, error)
	ListGoals(ctx context.Context, ownerID string) ([]types.Goal, error)
	UpdateGoal(ctx context.Context, goal *types.Goal) error
	UpdateGoalProgress(ctx context.Context, id string, progress int, at time.Time) error
	// DeleteGoal removes the goal with its roadmap items and tasks.
	DeleteGoal(ctx context.Context, id string) error

	ListRoadmapItems(ctx context.Context, goalID string) ([]types.RoadmapItem, error)
	GetRoadmapItem(ctx context.Context, id string) (*types.RoadmapItem, error)
	UpdateRoadmapItem(ctx context.Context, item *types.RoadmapItem) error

	CreateTasks(ctx context.Context, tasks []types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, goalID string) ([]types.Task, error)
	UpdateTask(ctx context.Context, task *types.Task) error

	// SaveProfile upserts by id and reports whether a row was created.
	SaveProfile(ctx context.Context, p *types.Profile) (bool, error)
	GetProfile(ctx context.Context, id string) (*types.Profile, error)

	Close() error
}

// Open builds the store selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite3", "sqlite", "":
		driver := cfg.Driver
		if driver == "" {
			driver = "sqlite3"
		}
		return NewSQLStore(driver, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
