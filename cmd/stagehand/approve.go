package main

import (
	"encoding/json"
	"fmt"

	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/spf13/cobra"
)

func approveCmd() *cobra.Command {
	var decision string
	var note string
	var modifyPairs []string
	cmd := &cobra.Command{
		Use:          "approve <breakpoint-id>",
		Short:        "Record a decision for a pending breakpoint",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var action spec.DecisionAction
			switch decision {
			case "proceed":
				action = spec.DecisionProceed
			case "reject":
				action = spec.DecisionReject
			default:
				return fmt.Errorf("unknown decision %q, want proceed or reject", decision)
			}

			modifiedJSON := ""
			if len(modifyPairs) > 0 {
				if action != spec.DecisionProceed {
					return fmt.Errorf("--set requires --decision proceed")
				}
				modified, err := collectInputs("", modifyPairs)
				if err != nil {
					return err
				}
				data, err := json.Marshal(modified)
				if err != nil {
					return fmt.Errorf("marshal modified inputs: %w", err)
				}
				modifiedJSON = string(data)
			}

			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.New(storeDB).RecordDecision(cmd.Context(), args[0], string(action), note, modifiedJSON); err != nil {
				return err
			}
			fmt.Printf("recorded %s for %s\n", decision, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "proceed", "decision: proceed or reject")
	cmd.Flags().StringVar(&note, "note", "", "optional note for the audit trail")
	cmd.Flags().StringArrayVar(&modifyPairs, "set", nil, "modified process input as key=value (repeatable, implies proceed with changes)")
	return cmd
}
