package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and per-tier counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			mode := dim.Sprint("inactive")
			if st.InFocus {
				mode = header.Sprint("active")
			}
			fmt.Fprintf(w, "focus:      %s\n", mode)
			fmt.Fprintf(w, "classifier: %s\n", st.Backend)
			fmt.Fprintf(w, "cursor:     %d\n", st.Cursor)
			fmt.Fprintf(w, "cycles:     %d (%d failed)\n", st.Cycles, st.Failures)
			if st.LastError != "" {
				fmt.Fprintf(w, "last error: %s\n", bad.Sprint(st.LastError))
			}
			printCounts(w, st.Counts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func NewGroupsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"groups"},
		Short:   "List stored notifications grouped by app",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			groups, err := c.Groups(cmd.Context())
			if err != nil {
				return err
			}
			printGroups(cmd.OutOrStdout(), groups)
			return nil
		},
	}
}

func NewClearCommand(opts *RootOptions) *cobra.Command {
	var (
		id  int64
		app string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored notifications (--id, --app or --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var n int
			switch {
			case cmd.Flags().Changed("id"):
				n, err = c.ClearOne(ctx, id)
			case app != "":
				n, err = c.ClearApp(ctx, app)
			default:
				n, err = c.ClearAll(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d\n", n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "notification id")
	cmd.Flags().StringVar(&app, "app", "", "app key")
	cmd.Flags().BoolVar(&all, "all", false, "everything")
	cmd.MarkFlagsMutuallyExclusive("id", "app", "all")
	cmd.MarkFlagsOneRequired("id", "app", "all")
	return cmd
}

func NewInjectCommand(opts *RootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Add synthetic demo notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			n, err := c.Inject(cmd.Context(), count)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "injected %d\n", n)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of notifications (default 8)")
	return cmd
}

func NewSummaryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize stored notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
