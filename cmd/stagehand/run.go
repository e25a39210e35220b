package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/metalagman/stagehand/internal/engine"
	"github.com/metalagman/stagehand/internal/process"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runCmd() *cobra.Command {
	var inputsFile string
	var inputPairs []string
	var autoApprove bool
	cmd := &cobra.Command{
		Use:          "run <process-id>",
		Short:        "Run a process by id",
		Long:         "Run a registered process. Inputs come from --inputs (YAML file) and --input key=value overrides, merged over the process defaults.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := process.Lookup(args[0])
			if err != nil {
				return err
			}

			storeDB, repoRoot, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := loadConfig(repoRoot)
			if err != nil {
				return err
			}
			if autoApprove {
				cfg.Approvals.AutoApprove = true
			}

			inputs, err := collectInputs(inputsFile, inputPairs)
			if err != nil {
				return err
			}

			runner, err := engine.NewRunner(repoRoot, cfg, store.New(storeDB), nil)
			if err != nil {
				return err
			}

			report, err := runner.Run(cmd.Context(), proc, inputs)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Println(string(out))
			if !report.Success {
				return fmt.Errorf("run %s finished with status %s", report.RunID, report.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inputsFile, "inputs", "", "YAML file with process inputs")
	cmd.Flags().StringArrayVar(&inputPairs, "input", nil, "process input override as key=value (repeatable)")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "auto-approve all breakpoints")
	return cmd
}

func collectInputs(inputsFile string, pairs []string) (map[string]any, error) {
	inputs := map[string]any{}
	if inputsFile != "" {
		data, err := os.ReadFile(inputsFile)
		if err != nil {
			return nil, fmt.Errorf("read inputs file: %w", err)
		}
		if err := yaml.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("parse inputs file: %w", err)
		}
	}
	for _, pair := range pairs {
		key, rawValue, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q, want key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(rawValue), &value); err != nil {
			value = rawValue
		}
		inputs[key] = value
	}
	return inputs, nil
}
