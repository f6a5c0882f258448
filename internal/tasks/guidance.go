package tasks

import "dreamplan/internal/types"

// GuidanceForDay flattens the roadmap tasks of every item whose range
// contains day, in roadmap order. Items without a parsed range are
// skipped.
func GuidanceForDay(items []types.RoadmapItem, day int) []string {
	var out []string
	for _, item := range items {
		if item.Covers(day) {
			out = append(out, item.Tasks...)
		}
	}
	return out
}
