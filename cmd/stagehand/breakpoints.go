package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/metalagman/stagehand/internal/store"
	"github.com/spf13/cobra"
)

func breakpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breakpoints",
		Short: "List pending approval gates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			pending, err := store.New(storeDB).ListPendingBreakpoints(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("no pending breakpoints")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BREAKPOINT\tRUN\tRAISED\tQUESTION")
			for _, bp := range pending {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", bp.BreakpointID, bp.RunID, bp.RaisedAt, bp.Question)
			}
			return w.Flush()
		},
	}
}
