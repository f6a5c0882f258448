package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dreamplan/internal/config"
	"dreamplan/internal/logging"
	"dreamplan/internal/orchestrator"
	"dreamplan/internal/perception"
	"dreamplan/internal/progress"
	"dreamplan/internal/store"
	"dreamplan/internal/types"
	"dreamplan/internal/usage"
)

// app is the wired set of collaborators behind every command.
type app struct {
	cfg      *config.Config
	store    store.Store
	progress progress.Store
	orch     *orchestrator.Orchestrator
	usage    *usage.Tracker // nil when disabled
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	ps, err := progress.NewStore(cfg.Progress, st, time.Now)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to open progress store: %w", err)
	}

	llm, err := perception.NewClientFromConfig(ctx, cfg)
	if err != nil {
		logging.Get(logging.CategoryBoot).Warn("LLM client unavailable, using offline fallbacks: %v", err)
		llm = perception.OfflineClient{}
	}

	var tracker *usage.Tracker
	if cfg.Usage.Enabled {
		if tracker, err = usage.NewTracker(cfg.Usage.Path); err != nil {
			logging.Get(logging.CategoryBoot).Warn("usage tracking disabled: %v", err)
			tracker = nil
		}
	}

	orch := orchestrator.New(st, ps, usage.Instrument(llm, tracker, cfg.LLM.Provider, cfg.LLM.Model), orchestrator.Options{
		GuidanceCap:     cfg.Planner.GuidanceCap,
		AutoRollover:    cfg.Planner.AutoRollover,
		Usage:           tracker,
		GenerateTimeout: cfg.GetGenerateTimeout(),
	})

	logging.Boot("opened store driver=%s progress=%s", cfg.Store.Driver, cfg.Progress.Mode)
	return &app{cfg: cfg, store: st, progress: ps, orch: orch, usage: tracker}, nil
}

func (a *app) Close() {
	if err := a.usage.Flush(); err != nil {
		logging.Get(logging.CategoryAPI).Warn("save usage: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logging.Get(logging.CategoryStore).Warn("close store: %v", err)
	}
}

// resolveGoal accepts a goal id, a unique id prefix or a title among the
// owner's goals.
func (a *app) resolveGoal(ctx context.Context, owner, ref string) (*orchestrator.Snapshot, error) {
	ref = strings.TrimSpace(ref)
	goals, err := a.store.ListGoals(ctx, owner)
	if err != nil {
		return nil, err
	}
	g, err := matchRef(goals, "goal", ref, func(g types.Goal) string { return g.ID })
	if types.IsNotFound(err) {
		found, ferr := a.store.FindGoalByTitle(ctx, owner, ref)
		if ferr != nil {
			return nil, err
		}
		g = *found
	} else if err != nil {
		return nil, err
	}
	return a.orch.GetGoal(ctx, g.ID)
}

// resolveTask finds a task by id or unique id prefix across the owner's
// goals.
func (a *app) resolveTask(ctx context.Context, owner, ref string) (types.Task, error) {
	goals, err := a.store.ListGoals(ctx, owner)
	if err != nil {
		return types.Task{}, err
	}
	var all []types.Task
	for _, g := range goals {
		list, err := a.store.ListTasks(ctx, g.ID)
		if err != nil {
			return types.Task{}, err
		}
		all = append(all, list...)
	}
	return matchRef(all, "task", strings.TrimSpace(ref), func(t types.Task) string { return t.ID })
}

// resolveItem finds a roadmap item by id or unique id prefix across the
// owner's goals.
func (a *app) resolveItem(ctx context.Context, owner, ref string) (types.RoadmapItem, error) {
	goals, err := a.store.ListGoals(ctx, owner)
	if err != nil {
		return types.RoadmapItem{}, err
	}
	var all []types.RoadmapItem
	for _, g := range goals {
		list, err := a.store.ListRoadmapItems(ctx, g.ID)
		if err != nil {
			return types.RoadmapItem{}, err
		}
		all = append(all, list...)
	}
	return matchRef(all, "roadmap item", strings.TrimSpace(ref), func(r types.RoadmapItem) string { return r.ID })
}

func matchRef[T any](list []T, kind, ref string, id func(T) string) (T, error) {
	var zero T
	if ref == "" {
		return zero, types.Invalid(kind, "reference is required")
	}
	var matches []T
	for _, v := range list {
		switch {
		case id(v) == ref:
			return v, nil
		case strings.HasPrefix(id(v), ref):
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return zero, &types.NotFoundError{Kind: kind, ID: ref}
	case 1:
		return matches[0], nil
	}
	return zero, types.Invalid(kind, fmt.Sprintf("prefix %q matches %d entries", ref, len(matches)))
}
