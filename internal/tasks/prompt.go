package tasks

import (
	"fmt"
	"strings"

	"dreamplan/internal/types"
)

var stageHints = map[Stage]string{
	StageEarly:  "This is an early day: focus on research, planning and setup.",
	StageMiddle: "This is a middle day: focus on implementation and execution.",
	StageLate:   "This is a late day: focus on refinement, testing and review.",
}

// BuildPrompt asks for the tasks of one day.
func BuildPrompt(goal *types.Goal, day int, guidance []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate a list of specific tasks for Day %d of my goal: %q.\n\n", day, goal.Title))
	desc := strings.TrimSpace(goal.Description)
	if desc == "" {
		desc = "No specific description provided"
	}
	sb.WriteString(fmt.Sprintf("Goal Description: %s\n", desc))
	sb.WriteString(fmt.Sprintf("Overall Timeframe: %d days\n", goal.TimeframeDays))
	sb.WriteString(fmt.Sprintf("Current Progress: %d%% complete\n", goal.Progress))
	if len(guidance) > 0 {
		sb.WriteString("Roadmap Guidance for This Period:\n")
		for _, g := range guidance {
			sb.WriteString("- ")
			sb.WriteString(g)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nGuidelines:\n")
	sb.WriteString(fmt.Sprintf("1. Create 3-5 specific, actionable tasks for Day %d (day %d of %d).\n", day, day, goal.TimeframeDays))
	sb.WriteString("2. Each task must be one clear action achievable within a day.\n")
	sb.WriteString("3. " + stageHints[StageOf(day, goal.TimeframeDays)] + "\n")
	sb.WriteString("4. Tasks should relate directly to the roadmap guidance when given.\n\n")
	sb.WriteString("Return ONLY a JSON array of task descriptions, for example:\n")
	sb.WriteString("[\"Task 1 description\", \"Task 2 description\", \"Task 3 description\"]\n")

	return sb.String()
}
