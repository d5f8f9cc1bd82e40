package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewIgnoreCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage apps whose notifications are skipped",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List ignored apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			apps, err := c.Ignored(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(apps) == 0 {
				fmt.Fprintln(w, dim.Sprint("No ignored apps."))
			}
			for _, a := range apps {
				fmt.Fprintln(w, a)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <app-key>",
		Short: "Ignore an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.Ignore(cmd.Context(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <app-key>",
		Short: "Stop ignoring an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			removed, err := c.Unignore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s was not ignored\n", args[0])
			}
			return nil
		},
	})
	return cmd
}

func NewContextCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage per-app context given to the classifier",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List per-app contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			list, err := c.Contexts(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, dim.Sprint("No app contexts."))
			}
			for _, ac := range list {
				fmt.Fprintf(w, "%s\n  %s\n", header.Sprint(ac.AppKey), ac.Context)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <app-key> <context...>",
		Short: "Set the context for an app",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.SetContext(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <app-key>",
		Short: "Delete the context for an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			removed, err := c.DeleteContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s had no context\n", args[0])
			}
			return nil
		},
	})
	return cmd
}
