package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/metalagman/stagehand/internal/spec"
)

// Policy selects how a parallel group treats member failures. The
// choice must be explicit at every call site.
type Policy int

const (
	// FailFast cancels the remaining members on the first failure and
	// propagates it.
	FailFast Policy = iota
	// CollectAll runs every member to completion and reports failures
	// alongside successes; the caller inspects each outcome.
	CollectAll
)

// Thunk is a deferred step invocation prepared for a parallel group.
type Thunk struct {
	spec     spec.TaskSpec
	effectID string
	err      error
}

// Outcome is one member's result in a parallel group.
type Outcome struct {
	Result spec.TaskResult
	Err    error
}

// OK reports whether the member completed and its result passed
// validation.
func (o Outcome) OK() bool { return o.Err == nil }

// Thunk prepares a task invocation for Parallel. Effect ids are
// assigned here, in submission order, so the persisted task directories
// stay deterministic regardless of completion order.
func (pc *ProcContext) Thunk(name string, args map[string]any) Thunk {
	ts, effectID, err := pc.buildSpec(name, args)
	return Thunk{spec: ts, effectID: effectID, err: err}
}

// Parallel executes the thunks concurrently and returns their outcomes
// in submission order. Concurrency is bounded by
// parallel.max_concurrent when configured. Under FailFast the first
// failure cancels the rest and is returned as the error; under
// CollectAll the error is nil and every outcome must be inspected.
func (pc *ProcContext) Parallel(ctx context.Context, policy Policy, thunks ...Thunk) ([]Outcome, error) {
	outcomes := make([]Outcome, len(thunks))
	if len(thunks) == 0 {
		return outcomes, nil
	}

	groupCtx := ctx
	var cancel context.CancelFunc
	if policy == FailFast {
		groupCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	var sem chan struct{}
	if limit := pc.runner.cfg.Parallel.MaxConcurrent; limit > 0 {
		sem = make(chan struct{}, limit)
	}

	done := make(chan int, len(thunks))
	for i := range thunks {
		go func(i int) {
			defer func() { done <- i }()
			if thunks[i].err != nil {
				outcomes[i] = Outcome{Err: thunks[i].err}
				return
			}
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-groupCtx.Done():
					outcomes[i] = Outcome{Err: groupCtx.Err()}
					return
				}
			}
			if groupCtx.Err() != nil {
				outcomes[i] = Outcome{Err: groupCtx.Err()}
				return
			}
			res, err := pc.executeStep(groupCtx, thunks[i].spec, thunks[i].effectID)
			outcomes[i] = Outcome{Result: res, Err: err}
		}(i)
	}

	// Full barrier: every member settles before any outcome is
	// observed, so no later phase sees partial results.
	var firstErr error
	for range thunks {
		i := <-done
		if policy == FailFast && outcomes[i].Err != nil && firstErr == nil && !errors.Is(outcomes[i].Err, context.Canceled) {
			firstErr = outcomes[i].Err
			cancel()
		}
	}

	if policy == FailFast {
		if firstErr == nil {
			// A member may have failed with a bare cancellation.
			for i := range outcomes {
				if outcomes[i].Err != nil {
					firstErr = outcomes[i].Err
					break
				}
			}
		}
		if firstErr != nil {
			return outcomes, fmt.Errorf("parallel group failed: %w", firstErr)
		}
	}
	return outcomes, nil
}

// Results unwraps a CollectAll outcome slice into results, failing if
// any member failed. Convenience for call sites that want aggregate
// success but collected execution.
func Results(outcomes []Outcome) ([]spec.TaskResult, error) {
	results := make([]spec.TaskResult, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			return nil, fmt.Errorf("member %d: %w", i, o.Err)
		}
		results[i] = o.Result
	}
	return results, nil
}
