package roadmap

import (
	"sort"
	"strings"

	"dreamplan/internal/dayrange"
	"dreamplan/internal/types"
)

// Period is one group of roadmap items sharing a time period.
type Period struct {
	Label     string          // normalized, e.g. "Day 4-6"
	Range     *dayrange.Range // nil for labels without digits
	Items     []types.RoadmapItem
	Current   bool // contains the goal's current day
	Completed bool // every item is completed
}

// Group collects items by time period, orders the periods by start day
// (periods without a parsed range last, in roadmap order) and flags the
// one containing currentDay.
func Group(items []types.RoadmapItem, currentDay int) []Period {
	var periods []*Period
	index := make(map[string]*Period)

	for _, item := range items {
		key, label := strings.ToLower(strings.TrimSpace(item.Label)), strings.TrimSpace(item.Label)
		if item.Range != nil {
			label = item.Range.Label()
			key = label
		}
		p, ok := index[key]
		if !ok {
			p = &Period{Label: label, Range: item.Range, Completed: true}
			index[key] = p
			periods = append(periods, p)
		}
		p.Items = append(p.Items, item)
		if !item.Completed {
			p.Completed = false
		}
	}

	sort.SliceStable(periods, func(i, j int) bool {
		a, b := periods[i].Range, periods[j].Range
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Start < b.Start
		}
	})

	out := make([]Period, len(periods))
	for i, p := range periods {
		p.Current = p.Range != nil && p.Range.Contains(currentDay)
		out[i] = *p
	}
	return out
}
