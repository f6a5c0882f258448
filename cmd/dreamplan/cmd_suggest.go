package main

import (
	"fmt"
	"strings"

	"dreamplan/internal/orchestrator"
	"dreamplan/internal/suggestions"
	"dreamplan/internal/types"

	"github.com/spf13/cobra"
)

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Browse curated goal ideas",
		Long: `Lists curated goal templates. Filter with --category (` + strings.Join(suggestions.Categories, ", ") + `)
and adopt one with "dreamplan suggest add <id>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := suggestions.Default()
			if err != nil {
				return err
			}
			list := catalog.List(category)
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(out, "No suggestions in category %q\n", category)
				return nil
			}
			for _, s := range list {
				fmt.Fprintf(out, "%s  %s  %s\n", titleStyle.Render(s.Title), mutedStyle.Render(s.Category), mutedStyle.Render(fmt.Sprintf("%d days", s.Timeframe)))
				fmt.Fprintf(out, "  %s\n", s.Description)
				for _, step := range s.Steps {
					fmt.Fprintf(out, "  · %s\n", step)
				}
				fmt.Fprintf(out, "  %s\n\n", mutedStyle.Render("id: "+s.ID))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only show one category")

	var timeframe int
	add := &cobra.Command{
		Use:   "add [id]",
		Short: "Create a goal from a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := suggestions.Default()
			if err != nil {
				return err
			}
			s, ok := catalog.Get(args[0])
			if !ok {
				return &types.NotFoundError{Kind: "suggestion", ID: args[0]}
			}
			if timeframe > 0 {
				s.Timeframe = timeframe
			}

			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			snap, err := a.orch.CreateGoal(ctx, orchestrator.GoalInput{
				OwnerID:       opts.user,
				Title:         s.Title,
				Description:   s.GoalDescription(),
				TimeframeDays: s.Timeframe,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s (%s) with %d roadmap items\n", snap.Goal.Title, shortID(snap.Goal.ID), len(snap.Items))
			return nil
		},
	}
	add.Flags().IntVarP(&timeframe, "timeframe", "t", 0, "Override the suggested timeframe in days")
	cmd.AddCommand(add)
	return cmd
}
