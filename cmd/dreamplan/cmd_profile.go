package main

import (
	"fmt"

	"dreamplan/internal/orchestrator"

	"github.com/spf13/cobra"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile of the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			p, err := a.orch.GetProfile(ctx, opts.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(p.FullName))
			fmt.Fprintf(out, "id:     %s\n", p.ID)
			fmt.Fprintf(out, "email:  %s\n", p.Email)
			if p.Phone != "" {
				fmt.Fprintf(out, "phone:  %s\n", p.Phone)
			}
			fmt.Fprintf(out, "since:  %s\n", p.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}

	var in orchestrator.ProfileInput
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or update the current user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			in.ID = opts.user
			p, created, err := a.orch.SaveProfile(ctx, in)
			if err != nil {
				return err
			}
			verb := "Updated"
			if created {
				verb = "Created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s profile %s\n", verb, p.ID)
			return nil
		},
	}
	set.Flags().StringVar(&in.FullName, "name", "", "Full name")
	set.Flags().StringVar(&in.Email, "email", "", "Email address")
	set.Flags().StringVar(&in.AvatarURL, "avatar", "", "Avatar URL")
	set.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.AddCommand(set)
	return cmd
}
