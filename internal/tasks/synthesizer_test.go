package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dreamplan/internal/dayrange"
	"dreamplan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	answer string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, _, user string) (string, error) {
	return f.Complete(ctx, user)
}

var fixedNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func newTestSynth(llm *fakeLLM) *Synthesizer {
	n := 0
	return NewSynthesizer(llm,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("t%d", n) }),
	)
}

func goal() *types.Goal {
	return &types.Goal{ID: "g1", Title: "Learn Go", TimeframeDays: 20, Progress: 10}
}

func descriptions(ts []types.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Description
	}
	return out
}

func TestSynthesize_FlatArray(t *testing.T) {
	llm := &fakeLLM{answer: "```json\n[\" Read chapter 1 \", \"\", \"Write hello world\"]\n```"}
	res := newTestSynth(llm).Synthesize(context.Background(), goal(), 2, []string{"Install Go"})

	require.False(t, res.Fallback)
	assert.Equal(t, []string{"Read chapter 1", "Write hello world"}, descriptions(res.Tasks))
	for i, task := range res.Tasks {
		assert.Equal(t, fmt.Sprintf("t%d", i+1), task.ID)
		assert.Equal(t, "g1", task.GoalID)
		assert.Equal(t, 2, task.Day)
		assert.Equal(t, i, task.Position)
		assert.False(t, task.Completed)
		assert.Equal(t, fixedNow, task.CreatedAt)
	}
	assert.Contains(t, llm.prompt, "Install Go")
	assert.Contains(t, llm.prompt, "Day 2")
}

func TestSynthesize_DayTodosObject(t *testing.T) {
	llm := &fakeLLM{answer: `{"date": "2026-05-04", "day": "Day 3", "todos": ["a", "b"]}`}
	res := newTestSynth(llm).Synthesize(context.Background(), goal(), 3, nil)

	require.False(t, res.Fallback)
	assert.Equal(t, []string{"a", "b"}, descriptions(res.Tasks))
}

func TestSynthesize_FallbackWithGuidance(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota")}
	guidance := []string{"g-1", " ", "g-2", "g-3", "g-4"}
	res := newTestSynth(llm).Synthesize(context.Background(), goal(), 1, guidance)

	require.True(t, res.Fallback)
	assert.Contains(t, res.Reason, "quota")
	assert.Equal(t, []string{"g-1", "g-2", "g-3", TrackProgressTask}, descriptions(res.Tasks))
}

func TestSynthesize_FallbackWithoutGuidance(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"error", &fakeLLM{err: errors.New("down")}},
		{"garbage", &fakeLLM{answer: "I cannot help with that"}},
		{"empty list", &fakeLLM{answer: "[]"}},
		{"blank strings", &fakeLLM{answer: `["  ", ""]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := goal()
			res := newTestSynth(tt.llm).Synthesize(context.Background(), g, 4, nil)
			require.True(t, res.Fallback)
			assert.Equal(t, HeuristicTasks(g.Title, g.Progress, 4, g.TimeframeDays), descriptions(res.Tasks))
		})
	}
}

func TestSynthesize_GuidanceCapOption(t *testing.T) {
	s := NewSynthesizer(&fakeLLM{err: errors.New("x")}, WithGuidanceCap(1))
	res := s.Synthesize(context.Background(), goal(), 1, []string{"a", "b"})
	assert.Equal(t, []string{"a", TrackProgressTask}, descriptions(res.Tasks))
}

func TestSynthesize_NilClient(t *testing.T) {
	res := NewSynthesizer(nil).Synthesize(context.Background(), goal(), 1, nil)
	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Tasks)
}

func TestDecodeDescriptions(t *testing.T) {
	got, err := DecodeDescriptions(`[{"day": 1, "tasks": ["x"]}, "y", 7, {"todos": ["z"]}]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, got)

	_, err = DecodeDescriptions("")
	assert.Error(t, err)

	_, err = DecodeDescriptions("nope")
	assert.Error(t, err)
}

func TestHeuristicTasks(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		day      int
		total    int
		count    int
		contains string
	}{
		{"early low progress researches", 10, 1, 20, 3, "Research best practices"},
		{"early high progress plans", 50, 3, 20, 2, "milestones"},
		{"middle executes", 50, 8, 20, 4, "Implement"},
		{"late reviews", 80, 19, 20, 3, "Review progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicTasks("Go", tt.progress, tt.day, tt.total)
			require.Len(t, got, tt.count)
			assert.Contains(t, got[0], fmt.Sprintf("Task 1 for day %d: ", tt.day))
			joined := fmt.Sprint(got)
			assert.Contains(t, joined, tt.contains)
			assert.Equal(t, got, HeuristicTasks("Go", tt.progress, tt.day, tt.total), "deterministic")
		})
	}
}

func TestHeuristicTasks_CountRange(t *testing.T) {
	for day := 1; day <= 30; day++ {
		n := len(HeuristicTasks("x", 0, day, 30))
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 4)
	}
}

func TestHeuristicTasks_DayBelowOne(t *testing.T) {
	for _, day := range []int{0, -1, -7} {
		var got []string
		require.NotPanics(t, func() { got = HeuristicTasks("x", 0, day, 10) })
		assert.Equal(t, HeuristicTasks("x", 0, 1, 10), got)
	}
}

func TestStageOf(t *testing.T) {
	assert.Equal(t, StageEarly, StageOf(5, 20))
	assert.Equal(t, StageMiddle, StageOf(6, 20))
	assert.Equal(t, StageMiddle, StageOf(15, 20))
	assert.Equal(t, StageLate, StageOf(16, 20))
	assert.Equal(t, StageLate, StageOf(1, 1))
}

func TestGuidanceForDay(t *testing.T) {
	items := []types.RoadmapItem{
		{Label: "Day 1-3", Range: &dayrange.Range{Start: 1, End: 3}, Tasks: []string{"a", "b"}},
		{Label: "Day 3-5", Range: &dayrange.Range{Start: 3, End: 5}, Tasks: []string{"c"}},
		{Label: "Someday", Tasks: []string{"never"}},
		{Label: "Day 9-7", Range: &dayrange.Range{Start: 9, End: 7}, Tasks: []string{"reversed"}},
	}
	assert.Equal(t, []string{"a", "b", "c"}, GuidanceForDay(items, 3))
	assert.Equal(t, []string{"c"}, GuidanceForDay(items, 5))
	assert.Empty(t, GuidanceForDay(items, 8))
}
