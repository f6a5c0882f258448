// Package tasks produces the concrete tasks of one logical day, from LLM
// output when it is usable and from deterministic heuristics otherwise.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dreamplan/internal/logging"
	"dreamplan/internal/perception"
	"dreamplan/internal/types"

	"github.com/google/uuid"
)

// DefaultGuidanceCap is how many guidance items the fallback uses.
const DefaultGuidanceCap = 3

// TrackProgressTask closes every guidance-based fallback list.
const TrackProgressTask = "Track progress and review what you've learned today"

// Result is the outcome of synthesis. Tasks is never empty.
type Result struct {
	Tasks    []types.Task
	Fallback bool
	Reason   string
}

// Synthesizer generates day tasks. It does not persist anything.
type Synthesizer struct {
	llm         perception.LLMClient
	now         func() time.Time
	newID       func() string
	guidanceCap int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// WithIDGenerator sets the task id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Synthesizer) { s.newID = newID }
}

// WithGuidanceCap limits how many guidance items the fallback copies.
func WithGuidanceCap(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.guidanceCap = n
		}
	}
}

// NewSynthesizer creates a Synthesizer around llm.
func NewSynthesizer(llm perception.LLMClient, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		llm:         llm,
		now:         time.Now,
		newID:       uuid.NewString,
		guidanceCap: DefaultGuidanceCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns the tasks for day. Generation and decode failures are
// logged and answered with the fallback, never returned.
func (s *Synthesizer) Synthesize(ctx context.Context, goal *types.Goal, day int, guidance []string) Result {
	descriptions, err := s.generate(ctx, goal, day, guidance)
	if err == nil && len(descriptions) == 0 {
		err = errors.New("no tasks in response")
	}
	if err != nil {
		logging.Tasks("goal %s day %d: using fallback tasks (%v)", goal.ID, day, err)
		return Result{
			Tasks:    s.build(goal, day, s.fallback(goal, day, guidance)),
			Fallback: true,
			Reason:   err.Error(),
		}
	}
	logging.TasksDebug("goal %s day %d: %d generated tasks", goal.ID, day, len(descriptions))
	return Result{Tasks: s.build(goal, day, descriptions)}
}

func (s *Synthesizer) generate(ctx context.Context, goal *types.Goal, day int, guidance []string) ([]string, error) {
	if s.llm == nil {
		return nil, perception.ErrUnavailable
	}
	raw, err := s.llm.Complete(ctx, BuildPrompt(goal, day, guidance))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return DecodeDescriptions(raw)
}

func (s *Synthesizer) fallback(goal *types.Goal, day int, guidance []string) []string {
	var clean []string
	for _, g := range guidance {
		if g = strings.TrimSpace(g); g != "" {
			clean = append(clean, g)
		}
	}
	if len(clean) == 0 {
		return HeuristicTasks(goal.Title, goal.Progress, day, goal.TimeframeDays)
	}
	if len(clean) > s.guidanceCap {
		clean = clean[:s.guidanceCap]
	}
	return append(clean, TrackProgressTask)
}

func (s *Synthesizer) build(goal *types.Goal, day int, descriptions []string) []types.Task {
	now := s.now()
	out := make([]types.Task, len(descriptions))
	for i, d := range descriptions {
		out[i] = types.Task{
			ID:          s.newID(),
			GoalID:      goal.ID,
			Day:         day,
			Position:    i,
			Description: d,
			CreatedAt:   now,
		}
	}
	return out
}

// dayTodos is the object shape some models return instead of a bare list.
type dayTodos struct {
	Date  string          `json:"date"`
	Day   json.RawMessage `json:"day"`
	Todos []string        `json:"todos"`
	Tasks []string        `json:"tasks"`
}

func (d dayTodos) items() []string {
	if len(d.Todos) > 0 {
		return d.Todos
	}
	return d.Tasks
}

// DecodeDescriptions accepts a JSON array of strings, a {date, day, todos}
// object, or an array of such objects, optionally fenced. The result is
// flattened, trimmed and free of empty entries.
func DecodeDescriptions(raw string) ([]string, error) {
	body := perception.StripCodeFences(raw)
	if body == "" {
		return nil, errors.New("empty response")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(body), &elems); err != nil {
		var obj dayTodos
		if objErr := json.Unmarshal([]byte(body), &obj); objErr != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return clean(obj.items()), nil
	}

	var out []string
	for _, elem := range elems {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj dayTodos
		if err := json.Unmarshal(elem, &obj); err == nil {
			out = append(out, obj.items()...)
		}
	}
	return clean(out), nil
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
