// Package types provides the goal, roadmap and task records shared across
// dreamplan packages, plus the error taxonomy callers switch on.
// It has no dependencies beyond dayrange so every layer can import it.
package types

import (
	"time"

	"dreamplan/internal/dayrange"
)

// DateLayout is the day-precision format used for start dates.
const DateLayout = "2006-01-02"

// Goal is a user goal with a fixed day budget.
type Goal struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	TimeframeDays int        `json:"timeframe"`
	StartDate     *time.Time `json:"start_date,omitempty"` // day precision, UTC
	Progress      int        `json:"progress"`             // 0-100, derived
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Anchor returns the date counted as day 1: the chosen start date, or the
// creation date when none was picked.
func (g *Goal) Anchor() time.Time {
	if g.StartDate != nil {
		return truncateDay(*g.StartDate)
	}
	return truncateDay(g.CreatedAt)
}

// Deadline is derived from the anchor and the timeframe.
func (g *Goal) Deadline() time.Time {
	return g.Anchor().AddDate(0, 0, g.TimeframeDays)
}

// DayAt returns the logical day for now, clamped to [1, TimeframeDays].
// Days are counted on calendar dates so DST shifts do not skew them.
func (g *Goal) DayAt(now time.Time) int {
	anchor := g.Anchor()
	today := truncateDay(now)
	day := int(today.Sub(anchor).Hours()/24) + 1
	if day < 1 {
		day = 1
	}
	if g.TimeframeDays > 0 && day > g.TimeframeDays {
		day = g.TimeframeDays
	}
	return day
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TruncateDay drops the clock part of t, keeping its calendar date.
func TruncateDay(t time.Time) time.Time { return truncateDay(t) }

// RoadmapItem is one period of a goal's roadmap.
type RoadmapItem struct {
	ID        string          `json:"id"`
	GoalID    string          `json:"goal_id"`
	Position  int             `json:"position"`
	Label     string          `json:"time_period"`     // as authored, e.g. "Day 1-3"
	Range     *dayrange.Range `json:"range,omitempty"` // nil when Label has no digits
	Tasks     []string        `json:"tasks"`
	Completed bool            `json:"completed"`
}

// Covers reports whether the item's parsed range contains day.
func (r RoadmapItem) Covers(day int) bool {
	return r.Range != nil && r.Range.Contains(day)
}

// Task is one concrete action for one logical day.
type Task struct {
	ID          string    `json:"id"`
	GoalID      string    `json:"goal_id"`
	Day         int       `json:"day"`
	Position    int       `json:"position"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// TasksForDay filters tasks to one logical day, preserving order.
func TasksForDay(tasks []Task, day int) []Task {
	var out []Task
	for _, t := range tasks {
		if t.Day == day {
			out = append(out, t)
		}
	}
	return out
}

// AllCompleted reports whether tasks is non-empty and fully completed.
func AllCompleted(tasks []Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !t.Completed {
			return false
		}
	}
	return true
}

// Profile is the locally stored view of an identity-provider user.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GoalState is the lifecycle position of a goal, derived from its data.
type GoalState string

const (
	StateUninitialized GoalState = "uninitialized" // no roadmap
	StateRoadmapReady  GoalState = "roadmap_ready" // roadmap, no tasks
	StateInProgress    GoalState = "in_progress"   // tasks for at least one day
	StateCompleted     GoalState = "completed"     // every day has tasks, all done
)

// DeriveState computes the goal state from its roadmap and tasks.
func DeriveState(timeframe int, items []RoadmapItem, tasks []Task) GoalState {
	if len(items) == 0 {
		return StateUninitialized
	}
	if len(tasks) == 0 {
		return StateRoadmapReady
	}
	byDay := make(map[int][]Task)
	for _, t := range tasks {
		byDay[t.Day] = append(byDay[t.Day], t)
	}
	for day := 1; day <= timeframe; day++ {
		if !AllCompleted(byDay[day]) {
			return StateInProgress
		}
	}
	return StateCompleted
}
