package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dreamplan/internal/types"
)

// MemoryStore is an in-process Store. Values are copied on the way in and
// out so callers never share memory with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	goals    map[string]types.Goal
	items    map[string]types.RoadmapItem
	tasks    map[string]types.Task
	profiles map[string]types.Profile
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		goals:    make(map[string]types.Goal),
		items:    make(map[string]types.RoadmapItem),
		tasks:    make(map[string]types.Task),
		profiles: make(map[string]types.Profile),
	}
}

func (m *MemoryStore) CreateGoal(_ context.Context, goal *types.Goal, items []types.RoadmapItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.goals[goal.ID] = copyGoal(*goal)
	for _, item := range items {
		item.GoalID = goal.ID
		m.items[item.ID] = copyItem(item)
	}
	return nil
}

func (m *MemoryStore) GetGoal(_ context.Context, id string) (*types.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.goals[id]
	if !ok {
		return nil, types.NotFound("goal", id)
	}
	g = copyGoal(g)
	return &g, nil
}

func (m *MemoryStore) FindGoalByTitle(_ context.Context, ownerID, title string) (*types.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title = strings.TrimSpace(title)
	for _, g := range m.goals {
		if g.OwnerID == ownerID && strings.EqualFold(g.Title, title) {
			g = copyGoal(g)
			return &g, nil
		}
	}
	return nil, types.NotFound("goal", title)
}

func (m *MemoryStore) ListGoals(_ context.Context, ownerID string) ([]types.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Goal
	for _, g := range m.goals {
		if ownerID == "" || g.OwnerID == ownerID {
			out = append(out, copyGoal(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) UpdateGoal(_ context.Context, goal *types.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.goals[goal.ID]
	if !ok {
		return types.NotFound("goal", goal.ID)
	}
	updated := copyGoal(*goal)
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	m.goals[goal.ID] = updated
	return nil
}

func (m *MemoryStore) UpdateGoalProgress(_ context.Context, id string, progress int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.goals[id]
	if !ok {
		return types.NotFound("goal", id)
	}
	g.Progress = progress
	g.UpdatedAt = at
	m.goals[id] = g
	return nil
}

func (m *MemoryStore) DeleteGoal(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.goals[id]; !ok {
		return types.NotFound("goal", id)
	}
	delete(m.goals, id)
	for k, item := range m.items {
		if item.GoalID == id {
			delete(m.items, k)
		}
	}
	for k, t := range m.tasks {
		if t.GoalID == id {
			delete(m.tasks, k)
		}
	}
	return nil
}

func (m *MemoryStore) ListRoadmapItems(_ context.Context, goalID string) ([]types.RoadmapItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.RoadmapItem
	for _, item := range m.items {
		if item.GoalID == goalID {
			out = append(out, copyItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetRoadmapItem(_ context.Context, id string) (*types.RoadmapItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, types.NotFound("roadmap item", id)
	}
	item = copyItem(item)
	return &item, nil
}

func (m *MemoryStore) UpdateRoadmapItem(_ context.Context, item *types.RoadmapItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[item.ID]
	if !ok {
		return types.NotFound("roadmap item", item.ID)
	}
	existing.Completed = item.Completed
	m.items[item.ID] = existing
	return nil
}

func (m *MemoryStore) CreateTasks(_ context.Context, tasks []types.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tasks {
		if _, ok := m.goals[t.GoalID]; !ok {
			return types.NotFound("goal", t.GoalID)
		}
	}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return nil
}

func (m *MemoryStore) GetTask(_ context.Context, id string) (*types.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, types.NotFound("task", id)
	}
	return &t, nil
}

func (m *MemoryStore) ListTasks(_ context.Context, goalID string) ([]types.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Task
	for _, t := range m.tasks {
		if t.GoalID == goalID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, task *types.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[task.ID]
	if !ok {
		return types.NotFound("task", task.ID)
	}
	existing.Description = task.Description
	existing.Completed = task.Completed
	m.tasks[task.ID] = existing
	return nil
}

func (m *MemoryStore) SaveProfile(_ context.Context, p *types.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.profiles[p.ID]
	if ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	m.profiles[p.ID] = *p
	return !ok, nil
}

func (m *MemoryStore) GetProfile(_ context.Context, id string) (*types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, types.NotFound("profile", id)
	}
	return &p, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func copyGoal(g types.Goal) types.Goal {
	if g.StartDate != nil {
		d := *g.StartDate
		g.StartDate = &d
	}
	return g
}

func copyItem(item types.RoadmapItem) types.RoadmapItem {
	if item.Range != nil {
		r := *item.Range
		item.Range = &r
	}
	item.Tasks = append([]string{}, item.Tasks...)
	return item
}
