package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/rs/zerolog/log"
)

// Gate suspends a workflow until an external decision is recorded.
type Gate interface {
	Await(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error)
}

type storeGateOpts struct {
	pollInterval time.Duration
	timeout      time.Duration
}

func storeGateOptions(cfg config.ApprovalsConfig) storeGateOpts {
	opts := storeGateOpts{pollInterval: 2 * time.Second}
	if cfg.PollSeconds > 0 {
		opts.pollInterval = time.Duration(cfg.PollSeconds) * time.Second
	}
	if cfg.TimeoutMinutes > 0 {
		opts.timeout = time.Duration(cfg.TimeoutMinutes) * time.Minute
	}
	return opts
}

// StoreGate persists the pending breakpoint and polls the store until
// a decision is recorded externally (CLI or web UI). The pending row
// makes the awaiting-approval state durable: a restarted approver
// tooling still sees the gate, and the request/decision pair is the
// audit trail of human judgment.
type StoreGate struct {
	store *store.Store
	opts  storeGateOpts
}

// NewStoreGate creates a store-backed gate.
func NewStoreGate(st *store.Store, opts storeGateOpts) *StoreGate {
	if opts.pollInterval <= 0 {
		opts.pollInterval = 2 * time.Second
	}
	return &StoreGate{store: st, opts: opts}
}

// Await implements Gate.
func (g *StoreGate) Await(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error) {
	if err := raiseBreakpoint(ctx, g.store, runID, breakpointID, req); err != nil {
		return spec.Decision{}, err
	}

	log.Info().
		Str("run_id", runID).
		Str("breakpoint_id", breakpointID).
		Str("question", req.Question).
		Msg("awaiting approval")

	var deadline <-chan time.Time
	if g.opts.timeout > 0 {
		timer := time.NewTimer(g.opts.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(g.opts.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return spec.Decision{}, ctx.Err()
		case <-deadline:
			// Resolve the row so the gate stops showing as pending.
			if err := g.store.RecordDecision(ctx, breakpointID, string(spec.DecisionTimeout), "approval window expired", ""); err != nil {
				// A decision may have landed as the deadline fired.
				rec, getErr := g.store.GetBreakpoint(ctx, breakpointID)
				if getErr == nil && rec.Status == store.BreakpointDecided && rec.Decision != nil {
					return decisionFromRecord(rec), nil
				}
				return spec.Decision{}, err
			}
			return spec.Decision{Action: spec.DecisionTimeout, Note: "approval window expired", DecidedAt: time.Now().UTC()}, nil
		case <-ticker.C:
			rec, err := g.store.GetBreakpoint(ctx, breakpointID)
			if err != nil {
				return spec.Decision{}, err
			}
			if rec.Status != store.BreakpointDecided || rec.Decision == nil {
				continue
			}
			return decisionFromRecord(rec), nil
		}
	}
}

// AutoGate records the request and immediately proceeds. Used for
// unattended runs; the audit trail still captures that the gate was
// auto-approved.
type AutoGate struct {
	store *store.Store
}

// NewAutoGate creates an auto-approving gate.
func NewAutoGate(st *store.Store) *AutoGate {
	return &AutoGate{store: st}
}

// Await implements Gate.
func (g *AutoGate) Await(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error) {
	if err := raiseBreakpoint(ctx, g.store, runID, breakpointID, req); err != nil {
		return spec.Decision{}, err
	}
	if err := g.store.RecordDecision(ctx, breakpointID, string(spec.DecisionProceed), "auto-approved", ""); err != nil {
		return spec.Decision{}, err
	}
	log.Info().
		Str("run_id", runID).
		Str("breakpoint_id", breakpointID).
		Msg("breakpoint auto-approved")
	return spec.Decision{Action: spec.DecisionProceed, Note: "auto-approved", DecidedAt: time.Now().UTC()}, nil
}

// GateFunc adapts a function to the Gate interface. Used in tests.
type GateFunc func(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error)

// Await implements Gate.
func (f GateFunc) Await(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error) {
	return f(ctx, runID, breakpointID, req)
}

func raiseBreakpoint(ctx context.Context, st *store.Store, runID, breakpointID string, req spec.BreakpointRequest) error {
	contextJSON, err := json.Marshal(req.Context)
	if err != nil {
		return fmt.Errorf("marshal breakpoint context: %w", err)
	}
	filesJSON, err := json.Marshal(req.Files)
	if err != nil {
		return fmt.Errorf("marshal breakpoint files: %w", err)
	}
	return st.RaiseBreakpoint(ctx, store.BreakpointRecord{
		BreakpointID: breakpointID,
		RunID:        runID,
		Title:        req.Title,
		Question:     req.Question,
		ContextJSON:  string(contextJSON),
		FilesJSON:    string(filesJSON),
	})
}

func decisionFromRecord(rec store.BreakpointRecord) spec.Decision {
	d := spec.Decision{Action: spec.DecisionAction(*rec.Decision)}
	if rec.Note != nil {
		d.Note = *rec.Note
	}
	if rec.ModifiedInputsJSON != nil && *rec.ModifiedInputsJSON != "" {
		_ = json.Unmarshal([]byte(*rec.ModifiedInputsJSON), &d.ModifiedInputs)
		if d.Action == spec.DecisionProceed && len(d.ModifiedInputs) > 0 {
			d.Action = spec.DecisionModify
		}
	}
	if rec.DecidedAt != nil {
		if ts, err := time.Parse(time.RFC3339, *rec.DecidedAt); err == nil {
			d.DecidedAt = ts
		}
	}
	return d
}

// Breakpoint suspends the run at an approval gate. Execution does not
// proceed until a decision is recorded; each call is an independent
// suspension point even when the request content repeats. Modified
// inputs from a proceed-with-changes decision are merged into the
// process inputs before the run resumes.
func (pc *ProcContext) Breakpoint(ctx context.Context, req spec.BreakpointRequest) (spec.Decision, error) {
	pc.bpIndex++
	breakpointID := fmt.Sprintf("%s-bp%02d", pc.runID, pc.bpIndex)

	if err := pc.runner.store.UpdateRun(ctx, pc.runID, pc.runUpdate(spec.StatusAwaitingApproval), nil); err != nil {
		pc.log.Error().Err(err).Msg("failed to persist awaiting_approval")
	}

	decision, err := pc.runner.gate.Await(ctx, pc.runID, breakpointID, req)
	if err != nil {
		return spec.Decision{}, err
	}

	if decision.Action == spec.DecisionModify {
		for k, v := range decision.ModifiedInputs {
			pc.inputs[k] = v
		}
	}

	status := spec.StatusRunning
	if !decision.Proceeding() {
		status = spec.StatusAborted
	}
	if err := pc.runner.store.UpdateRun(ctx, pc.runID, pc.runUpdate(status), nil); err != nil {
		pc.log.Error().Err(err).Msg("failed to persist decision status")
	}
	return decision, nil
}
