// Package store persists runs, steps, events, and breakpoints.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Store struct {
	db *sql.DB
}

// New creates a store for run/step/breakpoint persistence.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID     string
	ProcessID string
	CreatedAt string
	Status    string
	Phase     string
	Iteration int
	Verdict   *string
	RunDir    string
}

// StepRecord is one row of the steps table.
type StepRecord struct {
	RunID     string
	EffectID  string
	Name      string
	Status    string
	StepDir   string
	StartedAt string
	EndedAt   string
	Summary   string
}

// RunUpdate mutates the live columns of a run row.
type RunUpdate struct {
	Phase     string
	Iteration int
	Status    string
	Verdict   *string
}

// Event is one audit-trail entry for a run.
type Event struct {
	Type     string
	Message  string
	DataJSON string
}

// CreateRun inserts the run record and a run_started event.
func (s *Store) CreateRun(ctx context.Context, runID, processID, runDir string) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, process_id, created_at, status, phase, iteration, verdict, run_dir)
		VALUES(?, ?, ?, ?, '', 0, NULL, ?)`,
		runID, processID, createdAt, "running", runDir); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_started", "run started", ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create run: %w", err)
	}
	return nil
}

// UpdateRun applies a run update and optional event without inserting a step.
func (s *Store) UpdateRun(ctx context.Context, runID string, update RunUpdate, event *Event) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin update run: %w", err)
	}
	if event != nil {
		if err := insertEvent(ctx, tx, runID, event.Type, event.Message, event.DataJSON); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := applyRunUpdate(ctx, tx, runID, update); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update run: %w", err)
	}
	return nil
}

// CommitStep inserts the step record, events, and the run update in one
// transaction.
func (s *Store) CommitStep(ctx context.Context, step StepRecord, events []Event, update RunUpdate) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit step: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO steps(run_id, effect_id, name, status, step_dir, started_at, ended_at, summary)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		step.RunID, step.EffectID, step.Name, step.Status, step.StepDir, step.StartedAt, step.EndedAt, step.Summary); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert step: %w", err)
	}
	for _, ev := range events {
		if err := insertEvent(ctx, tx, step.RunID, ev.Type, ev.Message, ev.DataJSON); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := applyRunUpdate(ctx, tx, step.RunID, update); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit step: %w", err)
	}
	return nil
}

// FinishRun records the terminal status and the final report JSON.
func (s *Store) FinishRun(ctx context.Context, runID, status, reportJSON string, verdict *string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin finish run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, verdict=?, report_json=? WHERE run_id=?`,
		status, nullableStringPtr(verdict), nullableString(reportJSON), runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("finish run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_finished", "run finished: "+status, ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish run: %w", err)
	}
	return nil
}

// GetRunStatus returns the status for a run id, or empty if missing.
func (s *Store) GetRunStatus(ctx context.Context, runID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id=?`, runID)
	var status string
	if err := row.Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("read run status: %w", err)
	}
	return status, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, process_id, created_at, status, phase, iteration, verdict, run_dir
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var verdict sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.ProcessID, &rec.CreatedAt, &rec.Status, &rec.Phase, &rec.Iteration, &verdict, &rec.RunDir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if verdict.Valid {
			rec.Verdict = &verdict.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func applyRunUpdate(ctx context.Context, tx *sql.Tx, runID string, update RunUpdate) error {
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET phase=?, iteration=?, status=?, verdict=? WHERE run_id=?`,
		update.Phase, update.Iteration, update.Status, nullableStringPtr(update.Verdict), runID); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runID, typ, message, dataJSON string) error {
	seq, err := nextSeq(ctx, tx, runID)
	if err != nil {
		return err
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(run_id, seq, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		runID, seq, ts, typ, message, nullableString(dataJSON)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// AppendEvent records a standalone audit event for a run.
func (s *Store) AppendEvent(ctx context.Context, runID string, event Event) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append event: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, event.Type, event.Message, event.DataJSON); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append event: %w", err)
	}
	return nil
}

func nextSeq(ctx context.Context, tx *sql.Tx, runID string) (int, error) {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id=?`, runID)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("read event seq: %w", err)
	}
	return seq + 1, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
