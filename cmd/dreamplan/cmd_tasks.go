package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"dreamplan/internal/orchestrator"
	"dreamplan/internal/types"

	"github.com/spf13/cobra"
)

func newTasksCmd(opts *rootOptions) *cobra.Command {
	var override bool
	cmd := &cobra.Command{
		Use:   "tasks [goal] [day]",
		Short: "Show or generate the tasks for a day",
		Long: `Prints the tasks of a day, generating them first if the day has none.

The day defaults to the goal's current day. Tasks for a later day are only
generated once every task of the current day is done, unless --override is
given.`,
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

			day := snap.CurrentDay
			if len(args) == 2 {
				if day, err = strconv.Atoi(args[1]); err != nil {
					return types.Invalid("day", fmt.Sprintf("%q is not a number", args[1]))
				}
			}

			list, err := a.orch.RequestTasksForDay(ctx, snap.Goal.ID, day, orchestrator.RequestOptions{Override: override})
			if errors.Is(err, types.ErrDayNotReady) {
				return fmt.Errorf("%w (pass --override to plan ahead)", err)
			}
			if err != nil {
				return err
			}
			writeTasks(cmd.OutOrStdout(), day, list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&override, "override", false, "Generate tasks even if earlier days are unfinished")
	return cmd
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "toggle [task]",
		Short: "Mark a task done (or not done with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			task, err := a.resolveTask(ctx, opts.user, args[0])
			if err != nil {
				return err
			}
			updated, err := a.orch.ToggleTask(ctx, task.ID, !undo)
			if err != nil {
				return err
			}
			return printProgress(ctx, cmd, a, updated.GoalID, fmt.Sprintf("%s %s", checkbox(updated.Completed), updated.Description))
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the task as not done")
	return cmd
}

func newRoadmapCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Work with roadmap items",
	}

	var undo bool
	toggle := &cobra.Command{
		Use:   "toggle [item]",
		Short: "Mark a roadmap item done (or not done with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			item, err := a.resolveItem(ctx, opts.user, args[0])
			if err != nil {
				return err
			}
			updated, err := a.orch.ToggleRoadmapItem(ctx, item.ID, !undo)
			if err != nil {
				return err
			}
			return printProgress(ctx, cmd, a, updated.GoalID, fmt.Sprintf("%s %s", checkbox(updated.Completed), updated.Label))
		},
	}
	toggle.Flags().BoolVar(&undo, "undo", false, "Mark the item as not done")
	cmd.AddCommand(toggle)
	return cmd
}

func printProgress(ctx context.Context, cmd *cobra.Command, a *app, goalID, line string) error {
	snap, err := a.orch.GetGoal(ctx, goalID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(snap.Goal.Title), progressBar(snap.Goal.Progress))
	if snap.State == types.StateCompleted {
		fmt.Fprintln(out, titleStyle.Render("Goal completed!"))
	}
	return nil
}
