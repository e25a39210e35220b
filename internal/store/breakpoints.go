package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BreakpointRecord is one row of the breakpoints table.
type BreakpointRecord struct {
	BreakpointID       string
	RunID              string
	Title              string
	Question           string
	ContextJSON        string
	FilesJSON          string
	Status             string
	Decision           *string
	Note               *string
	ModifiedInputsJSON *string
	RaisedAt           string
	DecidedAt          *string
}

// Breakpoint statuses.
const (
	BreakpointPending = "pending"
	BreakpointDecided = "decided"
)

// RaiseBreakpoint persists a pending breakpoint and its audit event.
func (s *Store) RaiseBreakpoint(ctx context.Context, rec BreakpointRecord) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin raise breakpoint: %w", err)
	}
	raisedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO breakpoints(breakpoint_id, run_id, title, question, context_json, files_json, status, raised_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BreakpointID, rec.RunID, rec.Title, rec.Question,
		nullableString(rec.ContextJSON), nullableString(rec.FilesJSON), BreakpointPending, raisedAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert breakpoint: %w", err)
	}
	if err := insertEvent(ctx, tx, rec.RunID, "breakpoint_raised", rec.Question, rec.ContextJSON); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit raise breakpoint: %w", err)
	}
	return nil
}

// RecordDecision resolves a pending breakpoint. It fails if the
// breakpoint is unknown or already decided, so a decision is recorded
// exactly once.
func (s *Store) RecordDecision(ctx context.Context, breakpointID, decision, note, modifiedInputsJSON string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin record decision: %w", err)
	}
	var runID string
	row := tx.QueryRowContext(ctx, `SELECT run_id FROM breakpoints WHERE breakpoint_id=? AND status=?`, breakpointID, BreakpointPending)
	if err := row.Scan(&runID); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return fmt.Errorf("breakpoint %s: not pending", breakpointID)
		}
		return fmt.Errorf("read breakpoint: %w", err)
	}
	decidedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `UPDATE breakpoints SET status=?, decision=?, note=?, modified_inputs_json=?, decided_at=? WHERE breakpoint_id=?`,
		BreakpointDecided, decision, nullableString(note), nullableString(modifiedInputsJSON), decidedAt, breakpointID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update breakpoint: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "decision_recorded", fmt.Sprintf("%s: %s", breakpointID, decision), nullableStringJSON(note)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record decision: %w", err)
	}
	return nil
}

// GetBreakpoint returns one breakpoint row by id.
func (s *Store) GetBreakpoint(ctx context.Context, breakpointID string) (BreakpointRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT breakpoint_id, run_id, title, question, context_json, files_json, status, decision, note, modified_inputs_json, raised_at, decided_at
		FROM breakpoints WHERE breakpoint_id=?`, breakpointID)
	return scanBreakpoint(row)
}

// ListPendingBreakpoints returns all undecided breakpoints, oldest first.
func (s *Store) ListPendingBreakpoints(ctx context.Context) ([]BreakpointRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT breakpoint_id, run_id, title, question, context_json, files_json, status, decision, note, modified_inputs_json, raised_at, decided_at
		FROM breakpoints WHERE status=? ORDER BY raised_at ASC`, BreakpointPending)
	if err != nil {
		return nil, fmt.Errorf("list breakpoints: %w", err)
	}
	defer rows.Close()

	var out []BreakpointRecord
	for rows.Next() {
		rec, err := scanBreakpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBreakpoint(row rowScanner) (BreakpointRecord, error) {
	var rec BreakpointRecord
	var contextJSON, filesJSON, decision, note, modified, decidedAt sql.NullString
	if err := row.Scan(&rec.BreakpointID, &rec.RunID, &rec.Title, &rec.Question,
		&contextJSON, &filesJSON, &rec.Status, &decision, &note, &modified, &rec.RaisedAt, &decidedAt); err != nil {
		if err == sql.ErrNoRows {
			return BreakpointRecord{}, fmt.Errorf("breakpoint not found")
		}
		return BreakpointRecord{}, fmt.Errorf("scan breakpoint: %w", err)
	}
	rec.ContextJSON = contextJSON.String
	rec.FilesJSON = filesJSON.String
	if decision.Valid {
		rec.Decision = &decision.String
	}
	if note.Valid {
		rec.Note = &note.String
	}
	if modified.Valid {
		rec.ModifiedInputsJSON = &modified.String
	}
	if decidedAt.Valid {
		rec.DecidedAt = &decidedAt.String
	}
	return rec, nil
}

func nullableStringJSON(note string) string {
	if note == "" {
		return ""
	}
	return fmt.Sprintf(`{"note":%q}`, note)
}
