package tasks

import "fmt"

// Stage is the phase of a goal's timeline a day falls in.
type Stage string

const (
	StageEarly  Stage = "early"  // first quarter: research, planning, setup
	StageMiddle Stage = "middle" // second and third quarters: execution
	StageLate   Stage = "late"   // last quarter: refinement and review
)

// StageOf places day within a timeline of totalDays.
func StageOf(day, totalDays int) Stage {
	switch {
	case day*4 <= totalDays:
		return StageEarly
	case day*4 <= totalDays*3:
		return StageMiddle
	default:
		return StageLate
	}
}

var (
	researchTasks = []string{
		"Research best practices for %s",
		"Find resources about %s",
		"Study successful examples of %s",
		"Look for tools that can help with %s",
		"Create a list of references for %s",
	}
	planningTasks = []string{
		"Create a detailed plan for today's work on %s",
		"Break down today's goals for %s into smaller steps",
		"Set specific milestones for %s",
		"Schedule time blocks for working on %s",
		"Prioritize today's actions for %s",
	}
	executionTasks = []string{
		"Implement key aspects of %s",
		"Work on the core components of %s",
		"Execute the main tasks for %s",
		"Focus on building the essential parts of %s",
		"Complete the primary objectives for %s today",
	}
	reviewTasks = []string{
		"Review progress on %s",
		"Identify areas of improvement for %s",
		"Get feedback on your work on %s",
		"Evaluate the results of %s so far",
		"Assess what's working and what's not for %s",
	}
)

// HeuristicTasks returns 2 to 4 task descriptions for a day without any
// outside input. The result depends only on its arguments. Days below 1
// are treated as day 1.
func HeuristicTasks(title string, progress, day, totalDays int) []string {
	if day < 1 {
		day = 1
	}
	pool := executionTasks
	switch StageOf(day, totalDays) {
	case StageEarly:
		if progress < 30 {
			pool = researchTasks
		} else {
			pool = planningTasks
		}
	case StageLate:
		pool = reviewTasks
	}

	count := 2 + day%3
	out := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		tmpl := pool[(day+i-2)%len(pool)]
		out = append(out, fmt.Sprintf("Task %d for day %d: %s", i, day, fmt.Sprintf(tmpl, title)))
	}
	return out
}
