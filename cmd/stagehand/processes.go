package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/metalagman/stagehand/internal/process"
	"github.com/spf13/cobra"
)

func processesCmd() *cobra.Command {
	var showDefaults bool
	cmd := &cobra.Command{
		Use:   "processes",
		Short: "List registered processes",
		RunE: func(_ *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROCESS\tTASKS\tDESCRIPTION")
			for _, p := range process.All() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", p.ID, len(p.Registry.Names()), p.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !showDefaults {
				return nil
			}
			for _, p := range process.All() {
				defaults, err := json.MarshalIndent(p.Defaults, "", "  ")
				if err != nil {
					return err
				}
				fmt.Printf("\n%s defaults:\n%s\n", p.ID, defaults)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDefaults, "defaults", false, "also print each process's default inputs")
	return cmd
}
