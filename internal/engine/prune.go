package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
)

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
	Skipped    int
}

// PruneRuns deletes old run records and their directories according to
// the retention policy. Running runs are always kept.
func PruneRuns(ctx context.Context, st *store.Store, runsDir string, policy config.RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	db := st.DB()
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}
	rows, err := db.QueryContext(ctx, `SELECT run_id, created_at, status, run_dir FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type runRow struct {
		id        string
		createdAt time.Time
		status    string
		runDir    string
		parseErr  error
	}
	var runs []runRow
	for rows.Next() {
		var id, createdAt, status, runDir string
		if err := rows.Scan(&id, &createdAt, &status, &runDir); err != nil {
			return PruneResult{}, fmt.Errorf("scan run: %w", err)
		}
		parsed, parseErr := time.Parse(time.RFC3339, createdAt)
		runs = append(runs, runRow{id: id, createdAt: parsed, status: status, runDir: runDir, parseErr: parseErr})
	}
	if err := rows.Err(); err != nil {
		return PruneResult{}, fmt.Errorf("iterate runs: %w", err)
	}

	res := PruneResult{Considered: len(runs)}
	for idx, row := range runs {
		keep := false
		if row.status == spec.StatusRunning || row.status == spec.StatusAwaitingApproval {
			keep = true
		}
		if !keep && policy.KeepLast > 0 && idx < policy.KeepLast {
			keep = true
		}
		if !keep && policy.KeepDays > 0 {
			if row.parseErr != nil {
				keep = true
			} else if row.createdAt.After(cutoff) {
				keep = true
			}
		}
		if keep {
			res.Kept++
			continue
		}
		if dryRun {
			res.Deleted++
			continue
		}
		targetDir := row.runDir
		if targetDir == "" {
			targetDir = filepath.Join(runsDir, row.id)
		}
		if err := os.RemoveAll(targetDir); err != nil && !os.IsNotExist(err) {
			res.Skipped++
			continue
		}
		if err := deleteRun(ctx, db, row.id); err != nil {
			return res, err
		}
		res.Deleted++
	}
	return res, nil
}

// PruneAll removes every run, its directory, and all run records.
func PruneAll(ctx context.Context, st *store.Store, dataDir string) error {
	runsDir := filepath.Join(dataDir, "runs")
	if err := os.RemoveAll(runsDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove runs dir: %w", err)
	}
	db := st.DB()
	for _, table := range []string{"breakpoints", "steps", "events", "runs"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s table: %w", table, err)
		}
	}
	return nil
}

func deleteRun(ctx context.Context, db *sql.DB, runID string) error {
	for _, query := range []string{
		`DELETE FROM breakpoints WHERE run_id=?`,
		`DELETE FROM steps WHERE run_id=?`,
		`DELETE FROM events WHERE run_id=?`,
		`DELETE FROM runs WHERE run_id=?`,
	} {
		if _, err := db.ExecContext(ctx, query, runID); err != nil {
			return fmt.Errorf("delete run %s: %w", runID, err)
		}
	}
	return nil
}
