// Package progress derives a goal's completion percentage and keeps it in
// a remote store, a local JSON cache, or both.
package progress

import (
	"math"

	"dreamplan/internal/types"
)

// Calculate returns the rounded completion percentage. Tasks take
// precedence; roadmap items are used only when there are no tasks yet.
func Calculate(tasks []types.Task, items []types.RoadmapItem) int {
	if len(tasks) > 0 {
		done := 0
		for _, t := range tasks {
			if t.Completed {
				done++
			}
		}
		return percent(done, len(tasks))
	}
	if len(items) > 0 {
		done := 0
		for _, item := range items {
			if item.Completed {
				done++
			}
		}
		return percent(done, len(items))
	}
	return 0
}

func percent(done, total int) int {
	return int(math.Round(100 * float64(done) / float64(total)))
}
