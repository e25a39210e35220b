// Package pipeline defines the pipeline-optimization process: a
// bounded refinement loop that tunes a build pipeline until its
// measured time meets the target and enough goals are met.
package pipeline

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/stagehand/internal/engine"
	"github.com/metalagman/stagehand/internal/spec"
)

// goalsThreshold is the minimum fraction of scored goals that must be
// met before the loop may stop. Both this and the build-time target
// must hold; neither alone ends the loop.
const goalsThreshold = 0.8

// Options are the process inputs after decoding.
type Options struct {
	TargetBuildTime float64 `mapstructure:"targetBuildTime"`
	MaxIterations   int     `mapstructure:"maxIterations"`
}

// Process returns the pipeline-optimization process definition.
func Process() engine.Process {
	return engine.Process{
		ID:          "pipeline-optimization",
		Description: "Iteratively refine a build pipeline until the measured build time meets its target",
		Defaults: map[string]any{
			"targetBuildTime": 600.0,
		},
		Registry: registry(),
		Fn:       run,
	}
}

// isDone builds the composite stopping predicate for a target build
// time.
func isDone(targetBuildTime float64) func(spec.IterationRecord) bool {
	return func(rec spec.IterationRecord) bool {
		return rec.GoalsRatio() >= goalsThreshold && rec.Metrics["totalTime"] <= targetBuildTime
	}
}

func run(ctx context.Context, pc *engine.ProcContext) (spec.Report, error) {
	var opts Options
	if err := mapstructure.Decode(pc.Inputs(), &opts); err != nil {
		return spec.Report{}, fmt.Errorf("decode inputs: %w", err)
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = pc.MaxIterations()
	}

	pc.Phase(ctx, "baseline")
	baseline, err := pc.Task(ctx, "measure", map[string]any{
		"targetBuildTime": opts.TargetBuildTime,
	})
	if err != nil {
		return spec.Report{}, err
	}
	if !baseline.Success() {
		return pc.Fail(baseline.String("error"), baseline.Object("details")), nil
	}
	baselineTime := baseline.Number("totalTime")

	pc.Phase(ctx, "refine")
	outcome, err := pc.RunUntil(ctx, maxIterations,
		func(ctx context.Context, n int) (spec.IterationRecord, error) {
			return iterate(ctx, pc, opts, n)
		},
		isDone(opts.TargetBuildTime),
	)
	if err != nil {
		return spec.Report{}, err
	}

	last := outcome.Last()
	pc.AddArtifact(spec.Artifact{
		Path:   "artifacts/iterations.json",
		Format: "json",
		Label:  "iteration history",
	})
	if err := writeHistory(pc.RunDir(), outcome.Records); err != nil {
		return spec.Report{}, err
	}

	summary := map[string]any{
		"converged":         outcome.Converged,
		"iterations":        outcome.Iterations(),
		"baselineTime":      baselineTime,
		"finalTime":         last.Metrics["totalTime"],
		"targetBuildTime":   opts.TargetBuildTime,
		"goalsMet":          last.GoalsMet,
		"totalGoals":        last.TotalGoals,
		"finalGoalsRatio":   last.GoalsRatio(),
		"finalQualityScore": last.QualityScore,
	}

	report := pc.Complete(summary)
	if outcome.Converged {
		report.Verdict = "converged"
		return report, nil
	}
	// Budget exhaustion is a normal terminal state: report best-effort
	// results and the shortfall.
	report.Verdict = "best_effort"
	report.Recommendation = fmt.Sprintf(
		"budget of %d iterations exhausted: build time %.0fs against a %.0fs target, %d/%d goals met",
		maxIterations, last.Metrics["totalTime"], opts.TargetBuildTime, last.GoalsMet, last.TotalGoals)
	return report, nil
}

// iterate runs one optimize-then-measure pass and folds the results
// into an IterationRecord.
func iterate(ctx context.Context, pc *engine.ProcContext, opts Options, n int) (spec.IterationRecord, error) {
	optimized, err := pc.Task(ctx, "optimize", map[string]any{
		"iteration":       n,
		"targetBuildTime": opts.TargetBuildTime,
	})
	if err != nil {
		return spec.IterationRecord{}, err
	}
	if !optimized.Success() {
		return spec.IterationRecord{}, fmt.Errorf("optimize: %s", optimized.String("error"))
	}

	measured, err := pc.Task(ctx, "measure", map[string]any{
		"iteration":       n,
		"targetBuildTime": opts.TargetBuildTime,
	})
	if err != nil {
		return spec.IterationRecord{}, err
	}
	if !measured.Success() {
		return spec.IterationRecord{}, fmt.Errorf("measure: %s", measured.String("error"))
	}

	rec := spec.IterationRecord{
		Iteration: n,
		StepResults: map[string]spec.TaskResult{
			"optimize": optimized,
			"measure":  measured,
		},
		Metrics: map[string]float64{
			"totalTime": measured.Number("totalTime"),
		},
		QualityScore: measured.Number("qualityScore"),
		GoalsMet:     int(measured.Number("goalsMet")),
		TotalGoals:   int(measured.Number("totalGoals")),
	}
	return rec, nil
}
