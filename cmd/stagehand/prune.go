package main

import (
	"fmt"
	"path/filepath"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/engine"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func pruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	var dryRun bool
	var all bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune old runs from disk and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, repoRoot, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			st := store.New(storeDB)
			dataDir := filepath.Join(repoRoot, ".stagehand")

			lock, err := engine.AcquireRunLock(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			if all {
				if err := engine.PruneAll(cmd.Context(), st, dataDir); err != nil {
					return fmt.Errorf("prune failed: %w", err)
				}
				fmt.Println("removed all runs")
				return nil
			}

			cfg, err := loadConfig(repoRoot)
			if err != nil {
				return err
			}

			policy := config.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = cfg.Retention
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in .stagehand/config.json)")
			}

			res, err := engine.PruneRuns(cmd.Context(), st, filepath.Join(dataDir, "runs"), policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d, skipped %d)", mode, res.Deleted, res.Kept, res.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	cmd.Flags().BoolVar(&all, "all", false, "remove every run and reset the database")
	return cmd
}
