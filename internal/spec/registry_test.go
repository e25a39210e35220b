package spec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRoundTrip(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	builder := func(args map[string]any, tc TaskContext) TaskSpec {
		return TaskSpec{Kind: KindAgent, Name: "analyze", Title: "Analyze"}
	}
	require.NoError(t, reg.Define("analyze", builder))

	got, ok := reg.Resolve("analyze")
	require.True(t, ok)
	ts := got(nil, TaskContext{RunID: "r1", Now: time.Now()})
	assert.Equal(t, "analyze", ts.Name)
	assert.Equal(t, KindAgent, ts.Kind)
}

func TestRegistryDuplicateName(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	builder := func(map[string]any, TaskContext) TaskSpec { return TaskSpec{} }
	require.NoError(t, reg.Define("analyze", builder))

	err := reg.Define("analyze", builder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTask))
}

func TestRegistryResolveMissing(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	_, ok := reg.Resolve("nope")
	assert.False(t, ok)
}

func TestTaskResultSuccess(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskResult{Data: map[string]any{}}.Success())
	assert.True(t, TaskResult{Data: map[string]any{"success": true}}.Success())
	assert.False(t, TaskResult{Data: map[string]any{"success": false}}.Success())
}

func TestIterationRecordGoalsRatio(t *testing.T) {
	t.Parallel()

	rec := IterationRecord{GoalsMet: 3, TotalGoals: 4}
	assert.InDelta(t, 0.75, rec.GoalsRatio(), 1e-9)
	assert.Zero(t, IterationRecord{}.GoalsRatio())
}
