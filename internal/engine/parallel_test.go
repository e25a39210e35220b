package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/executor"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelCollectAllKeepsSubmissionOrder(t *testing.T) {
	agent := &fakeAgent{responses: map[string]map[string]any{
		"build":  {"result": "build"},
		"deps":   {"result": "deps"},
		"config": {"result": "config"},
	}}
	r, _ := newTestRunner(t, agent)

	proc := Process{
		ID:       "demo",
		Registry: echoRegistry("build", "deps", "config"),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			outcomes, err := pc.Parallel(ctx, CollectAll,
				pc.Thunk("build", nil),
				pc.Thunk("deps", nil),
				pc.Thunk("config", nil),
			)
			require.NoError(t, err)
			require.Len(t, outcomes, 3)
			assert.Equal(t, "build", outcomes[0].Result.String("result"))
			assert.Equal(t, "deps", outcomes[1].Result.String("result"))
			assert.Equal(t, "config", outcomes[2].Result.String("result"))
			return pc.Complete(nil), nil
		},
	}

	_, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
}

func TestParallelCollectAllReportsFailuresAlongsideSuccesses(t *testing.T) {
	agent := &fakeAgent{
		responses: map[string]map[string]any{
			"build":  {"result": "build"},
			"config": {"result": "config"},
		},
		errors: map[string]error{"deps": errors.New("deps agent crashed")},
	}
	r, _ := newTestRunner(t, agent)

	proc := Process{
		ID:       "demo",
		Registry: echoRegistry("build", "deps", "config"),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			outcomes, err := pc.Parallel(ctx, CollectAll,
				pc.Thunk("build", nil),
				pc.Thunk("deps", nil),
				pc.Thunk("config", nil),
			)
			require.NoError(t, err)
			assert.True(t, outcomes[0].OK())
			assert.False(t, outcomes[1].OK())
			assert.True(t, outcomes[2].OK())
			assert.ErrorContains(t, outcomes[1].Err, "deps agent crashed")
			return pc.Complete(nil), nil
		},
	}

	_, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
}

func TestParallelFailFastPropagatesRealError(t *testing.T) {
	agent := &fakeAgent{
		responses: map[string]map[string]any{"ok": {"result": "ok"}},
		errors:    map[string]error{"boom": errors.New("boom exploded")},
	}
	r, _ := newTestRunner(t, agent)

	proc := Process{
		ID:       "demo",
		Registry: echoRegistry("ok", "boom"),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			_, err := pc.Parallel(ctx, FailFast,
				pc.Thunk("ok", nil),
				pc.Thunk("boom", nil),
			)
			require.Error(t, err)
			// The failing member's error must not be masked by
			// sibling cancellations.
			assert.ErrorContains(t, err, "boom exploded")
			return pc.Fail(err.Error(), nil), nil
		},
	}

	report, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
	assert.False(t, report.Success)
}

func TestParallelFailFastCancelsSlowSiblings(t *testing.T) {
	slowDone := make(chan struct{})
	reg := spec.NewRegistry()
	for _, name := range []string{"slow", "fail"} {
		taskName := name
		reg.MustDefine(taskName, func(_ map[string]any, _ spec.TaskContext) spec.TaskSpec {
			return spec.TaskSpec{Name: taskName, Agent: spec.AgentSpec{Role: "default"}}
		})
	}

	agent := &fakeAgent{}
	r, _ := newTestRunner(t, agent)
	r.WithExecutorFactory(func(_ config.AgentConfig) (executor.Executor, error) {
		return executor.Func(func(ctx context.Context, ts spec.TaskSpec) (map[string]any, error) {
			switch ts.Name {
			case "fail":
				return nil, errors.New("fast failure")
			default:
				select {
				case <-ctx.Done():
					close(slowDone)
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return map[string]any{"result": "too slow"}, nil
				}
			}
		}), nil
	})

	proc := Process{
		ID:       "demo",
		Registry: reg,
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			_, err := pc.Parallel(ctx, FailFast,
				pc.Thunk("slow", nil),
				pc.Thunk("fail", nil),
			)
			require.Error(t, err)
			assert.ErrorContains(t, err, "fast failure")
			return pc.Complete(nil), nil
		},
	}

	_, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)

	select {
	case <-slowDone:
	case <-time.After(2 * time.Second):
		t.Fatal("slow sibling was not cancelled")
	}
}

func TestParallelEmptyGroup(t *testing.T) {
	agent := &fakeAgent{}
	r, _ := newTestRunner(t, agent)

	proc := Process{
		ID:       "demo",
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			outcomes, err := pc.Parallel(ctx, CollectAll)
			require.NoError(t, err)
			assert.Empty(t, outcomes)
			return pc.Complete(nil), nil
		},
	}

	_, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
}

func TestResultsUnwrapsOutcomes(t *testing.T) {
	outcomes := []Outcome{
		{Result: spec.TaskResult{Task: "a"}},
		{Result: spec.TaskResult{Task: "b"}},
	}
	results, err := Results(outcomes)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Task)

	outcomes[1].Err = errors.New("nope")
	_, err = Results(outcomes)
	require.Error(t, err)
	assert.ErrorContains(t, err, "member 1")
}
