package engine

import (
	"context"
	"testing"
	"time"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpointAutoGateProceeds(t *testing.T) {
	agent := &fakeAgent{}
	r, st := newTestRunner(t, agent)

	proc := Process{
		ID:       "demo",
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			decision, err := pc.Breakpoint(ctx, spec.BreakpointRequest{
				Title:    "Apply changes?",
				Question: "Proceed with the proposed optimizations?",
			})
			require.NoError(t, err)
			assert.True(t, decision.Proceeding())
			return pc.Complete(nil), nil
		},
	}

	report, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
	assert.True(t, report.Success)

	// The auto decision is still audited in the store.
	pending, err := st.ListPendingBreakpoints(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	bp, err := st.GetBreakpoint(context.Background(), report.RunID+"-bp01")
	require.NoError(t, err)
	assert.Equal(t, store.BreakpointDecided, bp.Status)
	require.NotNil(t, bp.Decision)
	assert.Equal(t, string(spec.DecisionProceed), *bp.Decision)
}

func TestBreakpointStoreGateAwaitsDecision(t *testing.T) {
	agent := &fakeAgent{}
	r, st := newTestRunner(t, agent)
	r.gate = NewStoreGate(st, storeGateOpts{pollInterval: 20 * time.Millisecond})

	// Approver goroutine: wait for the pending row, then decide.
	go func() {
		for {
			pending, err := st.ListPendingBreakpoints(context.Background())
			if err == nil && len(pending) > 0 {
				_ = st.RecordDecision(context.Background(), pending[0].BreakpointID,
					string(spec.DecisionProceed), "looks good", "")
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	proc := Process{
		ID:       "demo",
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			decision, err := pc.Breakpoint(ctx, spec.BreakpointRequest{
				Title:    "Review",
				Question: "Apply?",
			})
			require.NoError(t, err)
			assert.Equal(t, spec.DecisionProceed, decision.Action)
			assert.Equal(t, "looks good", decision.Note)
			return pc.Complete(nil), nil
		},
	}

	report, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
	assert.True(t, report.Success)
}

func TestBreakpointRejectionAborts(t *testing.T) {
	agent := &fakeAgent{responses: map[string]map[string]any{
		"apply": {"applied": true},
	}}
	r, _ := newTestRunner(t, agent)
	r.gate = GateFunc(func(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error) {
		return spec.Decision{Action: spec.DecisionReject, Note: "too risky", DecidedAt: time.Now().UTC()}, nil
	})

	proc := Process{
		ID:       "demo",
		Registry: echoRegistry("apply"),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			decision, err := pc.Breakpoint(ctx, spec.BreakpointRequest{Question: "Apply?"})
			require.NoError(t, err)
			if !decision.Proceeding() {
				return pc.Rejected(decision), nil
			}
			if _, err := pc.Task(ctx, "apply", nil); err != nil {
				return spec.Report{}, err
			}
			return pc.Complete(nil), nil
		},
	}

	report, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, spec.StatusAborted, report.Status)
	assert.Empty(t, agent.calls)
}

func TestBreakpointModifiedInputsMerge(t *testing.T) {
	agent := &fakeAgent{}
	r, _ := newTestRunner(t, agent)
	r.gate = GateFunc(func(ctx context.Context, runID, breakpointID string, req spec.BreakpointRequest) (spec.Decision, error) {
		return spec.Decision{
			Action:         spec.DecisionModify,
			ModifiedInputs: map[string]any{"targetBuildTime": 900.0},
			DecidedAt:      time.Now().UTC(),
		}, nil
	})

	proc := Process{
		ID:       "demo",
		Defaults: map[string]any{"targetBuildTime": 300.0},
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			decision, err := pc.Breakpoint(ctx, spec.BreakpointRequest{Question: "Adjust target?"})
			require.NoError(t, err)
			require.True(t, decision.Proceeding())
			assert.Equal(t, 900.0, pc.InputNumber("targetBuildTime", 0))
			return pc.Complete(nil), nil
		},
	}

	_, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
}

func TestBreakpointIdenticalRequestsAreIndependent(t *testing.T) {
	agent := &fakeAgent{}
	r, st := newTestRunner(t, agent)

	req := spec.BreakpointRequest{Title: "Same", Question: "Same question?"}
	proc := Process{
		ID:       "demo",
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			for i := 0; i < 2; i++ {
				if _, err := pc.Breakpoint(ctx, req); err != nil {
					return spec.Report{}, err
				}
			}
			return pc.Complete(nil), nil
		},
	}

	report, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)

	// Two suspension points, two independent gate records.
	first, err := st.GetBreakpoint(context.Background(), report.RunID+"-bp01")
	require.NoError(t, err)
	second, err := st.GetBreakpoint(context.Background(), report.RunID+"-bp02")
	require.NoError(t, err)
	assert.NotEqual(t, first.BreakpointID, second.BreakpointID)
	assert.Equal(t, first.Question, second.Question)
}

func TestStoreGateTimeout(t *testing.T) {
	agent := &fakeAgent{}
	r, st := newTestRunner(t, agent)
	r.gate = NewStoreGate(st, storeGateOpts{pollInterval: 20 * time.Millisecond, timeout: 50 * time.Millisecond})

	proc := Process{
		ID:       "demo",
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			decision, err := pc.Breakpoint(ctx, spec.BreakpointRequest{Question: "Nobody home?"})
			require.NoError(t, err)
			assert.Equal(t, spec.DecisionTimeout, decision.Action)
			return pc.Rejected(decision), nil
		},
	}

	report, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
	assert.Equal(t, spec.StatusAborted, report.Status)

	// The expired gate must not linger as pending.
	pending, err := st.ListPendingBreakpoints(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	rec, err := st.GetBreakpoint(context.Background(), report.RunID+"-bp01")
	require.NoError(t, err)
	require.NotNil(t, rec.Decision)
	assert.Equal(t, string(spec.DecisionTimeout), *rec.Decision)
}

func TestStoreGateOptionsDefaults(t *testing.T) {
	opts := storeGateOptions(config.ApprovalsConfig{})
	assert.Equal(t, 2*time.Second, opts.pollInterval)
	assert.Zero(t, opts.timeout)

	opts = storeGateOptions(config.ApprovalsConfig{PollSeconds: 5, TimeoutMinutes: 1})
	assert.Equal(t, 5*time.Second, opts.pollInterval)
	assert.Equal(t, time.Minute, opts.timeout)
}
