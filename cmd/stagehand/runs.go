package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/metalagman/stagehand/internal/store"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := store.New(storeDB).ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tPROCESS\tSTATUS\tPHASE\tITER\tVERDICT\tCREATED")
			for _, r := range runs {
				verdict := ""
				if r.Verdict != nil {
					verdict = *r.Verdict
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					r.RunID, r.ProcessID, r.Status, r.Phase, r.Iteration, verdict, r.CreatedAt)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
