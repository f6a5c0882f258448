package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dreamplan/internal/orchestrator"
	"dreamplan/internal/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

type checklistKeys struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Next    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k checklistKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Quit}
}

func (k checklistKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Toggle}, {k.Next, k.Refresh, k.Quit}}
}

var defaultChecklistKeys = checklistKeys{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys(" ", "enter", "x"), key.WithHelp("space", "toggle")),
	Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "plan next day")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type (
	snapshotMsg struct {
		snap *orchestrator.Snapshot
		day  int
	}
	checklistErrMsg struct{ err error }
	// progressReloadMsg is sent when the local progress cache changed on disk.
	progressReloadMsg struct{}
)

// checklistModel is the interactive task list of `dreamplan today`.
type checklistModel struct {
	ctx    context.Context
	orch   *orchestrator.Orchestrator
	goalID string

	snap   *orchestrator.Snapshot
	day    int
	cursor int
	status string

	keys     checklistKeys
	help     help.Model
	bar      progress.Model
	quitting bool
}

func newChecklistModel(ctx context.Context, orch *orchestrator.Orchestrator, goalID string) checklistModel {
	return checklistModel{
		ctx:    ctx,
		orch:   orch,
		goalID: goalID,
		keys:   defaultChecklistKeys,
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth*2)),
	}
}

func (m checklistModel) Init() tea.Cmd {
	return m.request(0, false)
}

// request loads (generating if needed) the tasks of day, 0 meaning the
// goal's current day.
func (m checklistModel) request(day int, override bool) tea.Cmd {
	ctx, orch, goalID := m.ctx, m.orch, m.goalID
	return func() tea.Msg {
		if day == 0 {
			snap, err := orch.GetGoal(ctx, goalID)
			if err != nil {
				return checklistErrMsg{err}
			}
			day = snap.CurrentDay
		}
		if _, err := orch.RequestTasksForDay(ctx, goalID, day, orchestrator.RequestOptions{Override: override}); err != nil {
			return checklistErrMsg{err}
		}
		snap, err := orch.GetGoal(ctx, goalID)
		if err != nil {
			return checklistErrMsg{err}
		}
		return snapshotMsg{snap: snap, day: day}
	}
}

func (m checklistModel) refresh() tea.Cmd {
	ctx, orch, goalID, day := m.ctx, m.orch, m.goalID, m.day
	return func() tea.Msg {
		snap, err := orch.GetGoal(ctx, goalID)
		if err != nil {
			return checklistErrMsg{err}
		}
		return snapshotMsg{snap: snap, day: day}
	}
}

func (m checklistModel) toggle(task types.Task) tea.Cmd {
	ctx, orch, goalID, day := m.ctx, m.orch, m.goalID, m.day
	return func() tea.Msg {
		if _, err := orch.ToggleTask(ctx, task.ID, !task.Completed); err != nil {
			return checklistErrMsg{err}
		}
		snap, err := orch.GetGoal(ctx, goalID)
		if err != nil {
			return checklistErrMsg{err}
		}
		return snapshotMsg{snap: snap, day: day}
	}
}

func (m checklistModel) tasks() []types.Task {
	if m.snap == nil {
		return nil
	}
	return types.TasksForDay(m.snap.Tasks, m.day)
}

func (m checklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap, m.day = msg.snap, msg.day
		if n := len(m.tasks()); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		m.status = ""
		if m.snap.State == types.StateCompleted {
			m.status = "Goal completed!"
		}
		return m, nil

	case checklistErrMsg:
		m.status = errorText(msg.err)
		return m, nil

	case progressReloadMsg:
		return m, m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.tasks())-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Toggle):
			if list := m.tasks(); m.cursor < len(list) {
				return m, m.toggle(list[m.cursor])
			}
		case key.Matches(msg, m.keys.Next):
			if m.snap != nil && m.day < m.snap.Goal.TimeframeDays {
				m.cursor = 0
				return m, m.request(m.day+1, false)
			}
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		}
	}
	return m, nil
}

func errorText(err error) string {
	if errors.Is(err, types.ErrDayNotReady) {
		return "Finish today's tasks first."
	}
	return err.Error()
}

func (m checklistModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		if m.status != "" {
			return errorStyle.Render(m.status) + "\n"
		}
		return mutedStyle.Render("Planning your day...") + "\n"
	}

	var sb strings.Builder
	g := m.snap.Goal
	sb.WriteString(titleStyle.Render(g.Title) + "\n")
	sb.WriteString(m.bar.ViewAs(float64(g.Progress)/100) + "\n\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("Day %d of %d", m.day, g.TimeframeDays)) + "\n\n")

	list := m.tasks()
	if len(list) == 0 {
		sb.WriteString(mutedStyle.Render("No tasks for this day.") + "\n")
	}
	for i, t := range list {
		cursor := "  "
		if i == m.cursor {
			cursor = titleStyle.Render("> ")
		}
		desc := t.Description
		if t.Completed {
			desc = doneStyle.Render(desc)
		}
		fmt.Fprintf(&sb, "%s%s %s\n", cursor, checkbox(t.Completed), desc)
	}

	if m.status != "" {
		sb.WriteString("\n" + warnStyle.Render(m.status) + "\n")
	}
	sb.WriteString("\n" + m.help.View(m.keys) + "\n")
	return sb.String()
}
