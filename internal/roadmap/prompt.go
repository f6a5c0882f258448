package roadmap

import (
	"fmt"
	"strings"

	"dreamplan/internal/types"
)

// SystemPrompt frames every roadmap request.
const SystemPrompt = "You are an expert coach who breaks goals into realistic day-by-day roadmaps. Respond with valid JSON only."

// BuildPrompt asks for a roadmap covering the goal's whole timeframe.
func BuildPrompt(goal *types.Goal) string {
	var sb strings.Builder

	sb.WriteString("Generate a structured roadmap as a JSON array of objects for the goal below.\n\n")
	sb.WriteString("### Input Details:\n")
	sb.WriteString(fmt.Sprintf("- Title: %q\n", goal.Title))
	if d := strings.TrimSpace(goal.Description); d != "" {
		sb.WriteString(fmt.Sprintf("- Description: %q\n", d))
	}
	sb.WriteString(fmt.Sprintf("- Timeframe: %d days\n\n", goal.TimeframeDays))

	sb.WriteString("### Instructions:\n")
	sb.WriteString(fmt.Sprintf("- Divide days 1 to %d into logical periods (e.g. \"Day 1-3\", \"Day 4-6\") with no gaps.\n", goal.TimeframeDays))
	sb.WriteString("- Each period has a \"tasks\" array of short, concrete actions.\n")
	sb.WriteString("- Respect user preferences in the description, such as days off or limited hours.\n")
	sb.WriteString("- Output ONLY valid JSON with no extra text.\n\n")

	sb.WriteString("### Expected Format:\n")
	sb.WriteString("[\n")
	sb.WriteString("  { \"timePeriod\": \"Day 1-3\", \"tasks\": [\"Task 1\", \"Task 2\"] },\n")
	sb.WriteString("  { \"timePeriod\": \"Day 4-6\", \"tasks\": [\"Task 3\", \"Task 4\"] }\n")
	sb.WriteString("]\n")

	return sb.String()
}
