package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dreamplan/internal/orchestrator"
	"dreamplan/internal/types"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newGoalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Create, inspect and delete goals",
	}
	cmd.AddCommand(
		newGoalCreateCmd(opts),
		newGoalListCmd(opts),
		newGoalShowCmd(opts),
		newGoalStartCmd(opts),
		newGoalDeleteCmd(opts),
	)
	return cmd
}

func newGoalCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		timeframe   int
		start       string
		plain       bool
	)
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a goal and generate its roadmap",
		Long: `Creates a goal and asks the LLM for a day-by-day roadmap covering the
timeframe. Constraints in the description ("no work on weekends") are passed
along. When generation fails an evenly split roadmap is used instead.

Example:
  dreamplan goal create "Run a 5K" -t 30 -d "I can only run mornings"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}

			snap, err := a.orch.CreateGoal(ctx, orchestrator.GoalInput{
				OwnerID:       opts.user,
				Title:         strings.Join(args, " "),
				Description:   description,
				TimeframeDays: timeframe,
			})
			if err != nil {
				return err
			}
			if start != "" {
				date, err := parseDate(start, time.Now())
				if err != nil {
					return err
				}
				if _, err := a.orch.SetStartDate(ctx, snap.Goal.ID, date); err != nil {
					return err
				}
				if snap, err = a.orch.GetGoal(ctx, snap.Goal.ID); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created goal %s\n\n", snap.Goal.ID)
			return printSnapshot(out, snap, plain)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Goal description and constraints")
	cmd.Flags().IntVarP(&timeframe, "timeframe", "t", 30, "Timeframe in days")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colors and styling")
	return cmd
}

func newGoalListCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your goals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}

			var goals []types.Goal
			if all {
				goals, err = a.store.ListGoals(ctx, "")
			} else {
				goals, err = a.orch.ListGoals(ctx, opts.user)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(goals) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No goals yet. Try `dreamplan suggest`."))
				return nil
			}
			for _, g := range goals {
				writeGoalLine(out, g, a.orch.CurrentDay(&g))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List goals of every owner")
	return cmd
}

func newGoalShowCmd(opts *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "show [goal]",
		Short: "Show a goal's roadmap and today's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			snap, err := a.resolveGoal(ctx, opts.user, args[0])
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colors and styling")
	return cmd
}

func newGoalStartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start [goal] [date]",
		Short: "Set the day-1 date of a goal",
		Long: `Sets the date counted as day 1. The date may be YYYY-MM-DD, "today" or
"tomorrow"; it defaults to today. Goals without a start date count days from
their creation.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			snap, err := a.resolveGoal(ctx, opts.user, args[0])
			if err != nil {
				return err
			}

			when := "today"
			if len(args) == 2 {
				when = args[1]
			}
			date, err := parseDate(when, time.Now())
			if err != nil {
				return err
			}
			goal, err := a.orch.SetStartDate(ctx, snap.Goal.ID, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s starts %s, deadline %s\n",
				goal.Title, goal.StartDate.Format(types.DateLayout), goal.Deadline().Format(types.DateLayout))
			return nil
		},
	}
}

func newGoalDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [goal]",
		Aliases: []string{"rm"},
		Short:   "Delete a goal with its roadmap and tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			snap, err := a.resolveGoal(ctx, opts.user, args[0])
			if err != nil {
				return err
			}
			if err := a.orch.DeleteGoal(ctx, snap.Goal.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", snap.Goal.Title)
			return nil
		},
	}
}

// parseDate accepts YYYY-MM-DD, "today" and "tomorrow".
func parseDate(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "":
		return types.TruncateDay(now), nil
	case "tomorrow":
		return types.TruncateDay(now).AddDate(0, 0, 1), nil
	}
	t, err := time.Parse(types.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, types.Invalid("start_date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return t, nil
}

func printSnapshot(w io.Writer, snap *orchestrator.Snapshot, plain bool) error {
	plain = plain || !isTerminal(w)
	out, err := renderMarkdown(roadmapMarkdown(snap), 80, plain)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
