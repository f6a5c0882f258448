package roadmap

import (
	"fmt"

	"dreamplan/internal/dayrange"
	"dreamplan/internal/types"
)

// SectionCount returns how many fallback sections a timeframe gets:
// about one per week, between 3 and 5, never more than the days available.
func SectionCount(timeframe int) int {
	if timeframe < 1 {
		timeframe = 1
	}
	n := (timeframe + 6) / 7
	if n < 3 {
		n = 3
	}
	if n > 5 {
		n = 5
	}
	if n > timeframe {
		n = timeframe
	}
	return n
}

// Sections tiles [1, timeframe] into SectionCount contiguous ranges of equal
// width, giving the remainder to the first sections.
func Sections(timeframe int) []dayrange.Range {
	if timeframe < 1 {
		timeframe = 1
	}
	n := SectionCount(timeframe)
	base, rem := timeframe/n, timeframe%n

	out := make([]dayrange.Range, 0, n)
	start := 1
	for i := 0; i < n; i++ {
		width := base
		if i < rem {
			width++
		}
		out = append(out, dayrange.Range{Start: start, End: start + width - 1})
		start += width
	}
	return out
}

// FallbackItems builds the deterministic roadmap used when the LLM output
// is unusable. Ids come from newID; everything else depends only on the
// goal's title and timeframe.
func FallbackItems(goal *types.Goal, newID func() string) []types.RoadmapItem {
	sections := Sections(goal.TimeframeDays)
	items := make([]types.RoadmapItem, 0, len(sections))
	for i, r := range sections {
		r := r
		items = append(items, types.RoadmapItem{
			ID:       newID(),
			GoalID:   goal.ID,
			Position: i,
			Label:    r.SpanLabel(),
			Range:    &r,
			Tasks:    sectionTasks(goal.Title, i, len(sections)),
		})
	}
	return items
}

func sectionTasks(title string, i, n int) []string {
	var tasks []string
	if i == 0 {
		tasks = append(tasks,
			fmt.Sprintf("Research the fundamentals of %s", title),
			fmt.Sprintf("Set up your tools and a plan for %s", title),
		)
	}
	if i > 0 && i < n-1 {
		tasks = append(tasks,
			fmt.Sprintf("Continue steady daily work on %s", title),
			"Check what is working and adjust your approach",
		)
	}
	if i == n-1 {
		tasks = append(tasks,
			fmt.Sprintf("Review everything you have accomplished on %s", title),
			"Reflect on the journey and plan your next steps",
		)
	}
	return tasks
}
