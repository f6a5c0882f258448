package main

import (
	"context"
	"fmt"

	"dreamplan/internal/logging"
	"dreamplan/internal/progress"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newTodayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "today [goal]",
		Short: "Work through today's tasks interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The checklist lives as long as the user keeps it open.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			snap, err := a.resolveGoal(ctx, opts.user, args[0])
			if err != nil {
				return err
			}

			p := tea.NewProgram(
				newChecklistModel(ctx, a.orch, snap.Goal.ID),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)

			if a.cfg.Progress.Watch {
				if local, ok := progress.LocalOf(a.progress); ok {
					w, err := local.Watch(ctx, func(map[string]progress.Entry) {
						p.Send(progressReloadMsg{})
					})
					if err != nil {
						logging.Get(logging.CategoryProgress).Warn("progress watch disabled: %v", err)
					} else {
						defer w.Stop()
					}
				}
			}

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("checklist: %w", err)
			}
			return nil
		},
	}
}
