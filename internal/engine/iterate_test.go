package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/metalagman/stagehand/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runIterations(t *testing.T, max int, fn func(ctx context.Context, n int) (spec.IterationRecord, error), isDone func(spec.IterationRecord) bool) (IterationOutcome, error) {
	t.Helper()
	agent := &fakeAgent{}
	r, _ := newTestRunner(t, agent)

	var outcome IterationOutcome
	var loopErr error
	proc := Process{
		ID:       "demo",
		Registry: spec.NewRegistry(),
		Fn: func(ctx context.Context, pc *ProcContext) (spec.Report, error) {
			outcome, loopErr = pc.RunUntil(ctx, max, fn, isDone)
			return pc.Complete(nil), nil
		},
	}
	_, err := r.Run(context.Background(), proc, nil)
	require.NoError(t, err)
	return outcome, loopErr
}

func TestRunUntilExhaustsBudget(t *testing.T) {
	var ran []int
	outcome, err := runIterations(t, 3,
		func(_ context.Context, n int) (spec.IterationRecord, error) {
			ran = append(ran, n)
			return spec.IterationRecord{QualityScore: 0.5}, nil
		},
		func(rec spec.IterationRecord) bool { return rec.QualityScore >= 0.9 },
	)
	require.NoError(t, err)
	assert.False(t, outcome.Converged)
	assert.Equal(t, 3, outcome.Iterations())
	assert.Equal(t, []int{1, 2, 3}, ran)
	// Iteration numbering starts at 1.
	assert.Equal(t, 1, outcome.Records[0].Iteration)
	assert.Equal(t, 3, outcome.Last().Iteration)
}

func TestRunUntilStopsOnConvergence(t *testing.T) {
	var ran []int
	outcome, err := runIterations(t, 5,
		func(_ context.Context, n int) (spec.IterationRecord, error) {
			ran = append(ran, n)
			score := 0.4 * float64(n)
			return spec.IterationRecord{QualityScore: score}, nil
		},
		func(rec spec.IterationRecord) bool { return rec.QualityScore >= 0.8 },
	)
	require.NoError(t, err)
	assert.True(t, outcome.Converged)
	assert.Equal(t, 2, outcome.Iterations())
	assert.Equal(t, []int{1, 2}, ran)
}

func TestRunUntilNeverExceedsBudget(t *testing.T) {
	var ran []int
	outcome, err := runIterations(t, 3,
		func(_ context.Context, n int) (spec.IterationRecord, error) {
			ran = append(ran, n)
			return spec.IterationRecord{}, nil
		},
		func(spec.IterationRecord) bool { return false },
	)
	require.NoError(t, err)
	assert.False(t, outcome.Converged)
	assert.NotContains(t, ran, 4)
}

func TestRunUntilPropagatesIterationError(t *testing.T) {
	outcome, err := runIterations(t, 5,
		func(_ context.Context, n int) (spec.IterationRecord, error) {
			if n == 2 {
				return spec.IterationRecord{}, errors.New("measurement failed")
			}
			return spec.IterationRecord{Iteration: n}, nil
		},
		func(spec.IterationRecord) bool { return false },
	)
	require.Error(t, err)
	assert.ErrorContains(t, err, "iteration 2")
	assert.ErrorContains(t, err, "measurement failed")
	// Records gathered before the failure are preserved.
	assert.Equal(t, 1, outcome.Iterations())
}

func TestRunUntilRejectsZeroBudget(t *testing.T) {
	_, err := runIterations(t, 0,
		func(_ context.Context, _ int) (spec.IterationRecord, error) {
			t.Fatal("iteration must not run")
			return spec.IterationRecord{}, nil
		},
		func(spec.IterationRecord) bool { return true },
	)
	require.Error(t, err)
}
