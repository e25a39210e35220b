// Package costopt defines the cost-optimization process: inventory
// discovery, per-area analysis, an approval gate, and change
// application.
package costopt

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/stagehand/internal/engine"
	"github.com/metalagman/stagehand/internal/spec"
)

// Areas lists every optimization area this process understands. A run
// only executes the analysis phase of areas named in its
// optimizationAreas input.
var Areas = []string{"compute", "storage", "networking", "databases", "serverless"}

// Options are the process inputs after decoding.
type Options struct {
	OptimizationAreas []string `mapstructure:"optimizationAreas"`
	TargetSavings     float64  `mapstructure:"targetSavings"`
	AutoApply         bool     `mapstructure:"autoApply"`
}

// Process returns the cost-optimization process definition.
func Process() engine.Process {
	return engine.Process{
		ID:          "cost-optimization",
		Description: "Analyze infrastructure spend per area, gate on approval, apply accepted optimizations",
		Defaults: map[string]any{
			"optimizationAreas": Areas,
			"targetSavings":     25.0,
			"autoApply":         false,
		},
		Registry: registry(),
		Fn:       run,
	}
}

func run(ctx context.Context, pc *engine.ProcContext) (spec.Report, error) {
	var opts Options
	if err := mapstructure.Decode(pc.Inputs(), &opts); err != nil {
		return spec.Report{}, fmt.Errorf("decode inputs: %w", err)
	}

	pc.Phase(ctx, "discovery")
	inventory, err := pc.Task(ctx, "inventory", map[string]any{
		"areas": opts.OptimizationAreas,
	})
	if err != nil {
		return spec.Report{}, err
	}
	if !inventory.Success() {
		return pc.Fail(inventory.String("error"), inventory.Object("details")), nil
	}
	pc.AddArtifact(spec.Artifact{
		Path:   "tasks/001-inventory/result.json",
		Format: "json",
		Label:  "resource inventory",
	})

	// One analysis phase per selected area; absent areas leave no
	// trace in the artifact list.
	analyzed := 0
	for _, area := range Areas {
		if !pc.InputHas("optimizationAreas", area) {
			continue
		}
		pc.Phase(ctx, area+"-analysis")
		res, err := pc.Task(ctx, "analyze-"+area, map[string]any{
			"inventory":     inventory.Data,
			"targetSavings": opts.TargetSavings,
		})
		if err != nil {
			return spec.Report{}, err
		}
		if !res.Success() {
			return pc.Fail(res.String("error"), res.Object("details")), nil
		}
		analyzed++
		pc.AddRecommendations(res.Slice("recommendations")...)
		pc.AddArtifact(spec.Artifact{
			Path:   fmt.Sprintf("tasks/%03d-analyze-%s/result.json", analyzed+1, area),
			Format: "json",
			Label:  area + " analysis",
		})
	}

	pc.Phase(ctx, "planning")
	outcomes, err := pc.Parallel(ctx, engine.CollectAll,
		pc.Thunk("estimate-savings", map[string]any{
			"recommendations": pc.Recommendations(),
			"targetSavings":   opts.TargetSavings,
		}),
		pc.Thunk("assess-risk", map[string]any{
			"recommendations": pc.Recommendations(),
		}),
	)
	if err != nil {
		return spec.Report{}, err
	}
	planned, err := engine.Results(outcomes)
	if err != nil {
		return spec.Report{}, err
	}
	savings, risk := planned[0], planned[1]
	if !savings.Success() {
		return pc.Fail(savings.String("error"), savings.Object("details")), nil
	}
	if !risk.Success() {
		return pc.Fail(risk.String("error"), risk.Object("details")), nil
	}

	estimatedSavings := savings.Number("estimatedSavingsPercent")

	if !opts.AutoApply {
		pc.Phase(ctx, "approval")
		decision, err := pc.Breakpoint(ctx, spec.BreakpointRequest{
			Title:    "Apply cost optimizations?",
			Question: fmt.Sprintf("Estimated savings %.1f%% against a %.1f%% target. Apply the recommended changes?", estimatedSavings, opts.TargetSavings),
			Context: map[string]any{
				"estimatedSavingsPercent": estimatedSavings,
				"riskLevel":               risk.String("riskLevel"),
				"recommendationCount":     len(pc.Recommendations()),
			},
			Files: pc.Artifacts(),
		})
		if err != nil {
			return spec.Report{}, err
		}
		if !decision.Proceeding() {
			return pc.Rejected(decision), nil
		}
	}

	pc.Phase(ctx, "apply")
	var thunks []engine.Thunk
	for _, area := range Areas {
		if !pc.InputHas("optimizationAreas", area) {
			continue
		}
		thunks = append(thunks, pc.Thunk("apply-"+area, map[string]any{
			"recommendations": pc.Recommendations(),
		}))
	}
	// Applying changes mutates real infrastructure; one failure stops
	// the group.
	applied, err := pc.Parallel(ctx, engine.FailFast, thunks...)
	if err != nil {
		return spec.Report{}, err
	}
	appliedCount := 0
	for _, o := range applied {
		if !o.Result.Success() {
			return pc.Fail(o.Result.String("error"), o.Result.Object("details")), nil
		}
		appliedCount += int(o.Result.Number("appliedCount"))
		pc.AddOptimizations(o.Result.Slice("applied")...)
	}

	return pc.Complete(map[string]any{
		"areas":                   opts.OptimizationAreas,
		"estimatedSavingsPercent": estimatedSavings,
		"riskLevel":               risk.String("riskLevel"),
		"appliedCount":            appliedCount,
	}), nil
}
