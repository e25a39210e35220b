package engine

import (
	"context"
	"fmt"

	"github.com/metalagman/stagehand/internal/spec"
)

// IterationOutcome is the result of a bounded iteration loop.
type IterationOutcome struct {
	// Records holds one entry per executed iteration, in order.
	Records []spec.IterationRecord
	// Converged reports whether isDone stopped the loop before the
	// budget ran out.
	Converged bool
}

// Last returns the final iteration record.
func (o IterationOutcome) Last() spec.IterationRecord {
	if len(o.Records) == 0 {
		return spec.IterationRecord{}
	}
	return o.Records[len(o.Records)-1]
}

// Iterations returns how many iterations ran.
func (o IterationOutcome) Iterations() int { return len(o.Records) }

// RunUntil executes iterationFn up to max times, numbering iterations
// from 1, and stops early as soon as isDone accepts a record. The
// budget is a hard ceiling: iteration max+1 never starts, converged or
// not. An error from iterationFn aborts the loop and is returned with
// the records gathered so far.
func (pc *ProcContext) RunUntil(ctx context.Context, max int, iterationFn func(ctx context.Context, n int) (spec.IterationRecord, error), isDone func(spec.IterationRecord) bool) (IterationOutcome, error) {
	if max <= 0 {
		return IterationOutcome{}, fmt.Errorf("iteration budget must be positive, got %d", max)
	}

	var outcome IterationOutcome
	for n := 1; n <= max; n++ {
		pc.SetIteration(n)
		pc.log.Info().Int("iteration", n).Int("max", max).Msg("iteration started")

		rec, err := iterationFn(ctx, n)
		if err != nil {
			return outcome, fmt.Errorf("iteration %d: %w", n, err)
		}
		if rec.Iteration == 0 {
			rec.Iteration = n
		}
		outcome.Records = append(outcome.Records, rec)

		if isDone(rec) {
			outcome.Converged = true
			pc.log.Info().Int("iteration", n).Msg("iteration converged")
			return outcome, nil
		}
	}
	pc.log.Warn().Int("max", max).Msg("iteration budget exhausted")
	return outcome, nil
}
