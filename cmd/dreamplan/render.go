package main

import (
	"fmt"
	"io"
	"strings"

	"dreamplan/internal/orchestrator"
	"dreamplan/internal/roadmap"
	"dreamplan/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#8BC34A")
	muted   = lipgloss.Color("#6b7280")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#e53935")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	doneStyle    = lipgloss.NewStyle().Foreground(muted).Strikethrough(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	barFullStyle = lipgloss.NewStyle().Foreground(accent)
	barRestStyle = lipgloss.NewStyle().Foreground(muted)
)

const barWidth = 20

// progressBar renders p (0-100) as a fixed-width bar.
func progressBar(p int) string {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	full := p * barWidth / 100
	return barFullStyle.Render(strings.Repeat("█", full)) +
		barRestStyle.Render(strings.Repeat("░", barWidth-full)) +
		fmt.Sprintf(" %3d%%", p)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func stateLabel(s types.GoalState) string {
	switch s {
	case types.StateUninitialized:
		return "no roadmap"
	case types.StateRoadmapReady:
		return "roadmap ready"
	case types.StateInProgress:
		return "in progress"
	case types.StateCompleted:
		return "completed"
	}
	return string(s)
}

// writeGoalLine prints one row of `goal list`.
func writeGoalLine(w io.Writer, g types.Goal, day int) {
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		mutedStyle.Render(shortID(g.ID)),
		titleStyle.Render(g.Title),
		progressBar(g.Progress),
		mutedStyle.Render(fmt.Sprintf("day %d/%d", day, g.TimeframeDays)),
	)
}

// writeTasks prints a numbered checklist of tasks.
func writeTasks(w io.Writer, day int, list []types.Task) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Day %d", day)))
	if len(list) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no tasks yet"))
		return
	}
	for _, t := range list {
		desc := t.Description
		if t.Completed {
			desc = doneStyle.Render(desc)
		}
		fmt.Fprintf(w, "  %s %s  %s\n", checkbox(t.Completed), desc, mutedStyle.Render(shortID(t.ID)))
	}
}

// roadmapMarkdown renders a goal snapshot as markdown, grouped by period
// with the current period marked.
func roadmapMarkdown(snap *orchestrator.Snapshot) string {
	var sb strings.Builder
	g := snap.Goal

	fmt.Fprintf(&sb, "# %s\n\n", g.Title)
	if g.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", g.Description)
	}
	fmt.Fprintf(&sb, "**Progress:** %d%% · **Day** %d of %d · **State:** %s\n\n",
		g.Progress, snap.CurrentDay, g.TimeframeDays, stateLabel(snap.State))
	if g.StartDate != nil {
		fmt.Fprintf(&sb, "**Started:** %s · **Deadline:** %s\n\n",
			g.StartDate.Format(types.DateLayout), snap.Deadline.Format(types.DateLayout))
	} else {
		fmt.Fprintf(&sb, "_No start date set. Days count from %s._\n\n", g.Anchor().Format(types.DateLayout))
	}

	sb.WriteString("## Roadmap\n\n")
	if len(snap.Items) == 0 {
		sb.WriteString("_No roadmap yet._\n\n")
	}
	for _, period := range roadmap.Group(snap.Items, snap.CurrentDay) {
		heading := period.Label
		if period.Current {
			heading += " (current)"
		}
		if period.Completed {
			heading += " ✓"
		}
		fmt.Fprintf(&sb, "### %s\n\n", heading)
		for _, item := range period.Items {
			for _, task := range item.Tasks {
				fmt.Fprintf(&sb, "- %s %s\n", checkbox(item.Completed), task)
			}
			fmt.Fprintf(&sb, "\n`item %s`\n\n", shortID(item.ID))
		}
	}

	today := snap.TasksForCurrentDay()
	if len(today) > 0 {
		fmt.Fprintf(&sb, "## Today (day %d)\n\n", snap.CurrentDay)
		for _, t := range today {
			fmt.Fprintf(&sb, "- %s %s\n", checkbox(t.Completed), t.Description)
		}
	}
	return sb.String()
}

// renderMarkdown styles md for the terminal. plain selects the no-color
// style used for pipes and tests.
func renderMarkdown(md string, width int, plain bool) (string, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStylePath("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// shortID trims uuids for display; any unique prefix is accepted back.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
