package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/rs/zerolog"
)

// ProcContext is handed to a ProcessFunc and carries everything a
// process needs: inputs, the task registry, the accumulator, and the
// suspension primitives. It is owned by the single workflow goroutine;
// parallel task results are merged back only after the fan-in barrier.
type ProcContext struct {
	runner    *Runner
	runID     string
	processID string
	runDir    string
	phase     string
	iteration int
	stepIndex int
	bpIndex   int
	registry  *spec.Registry
	inputs    map[string]any
	acc       *Accumulator
	log       zerolog.Logger
}

// RunID returns the current run id.
func (pc *ProcContext) RunID() string { return pc.runID }

// ProcessID returns the process definition id.
func (pc *ProcContext) ProcessID() string { return pc.processID }

// RunDir returns the run's working directory.
func (pc *ProcContext) RunDir() string { return pc.runDir }

// Now returns the current UTC time.
func (pc *ProcContext) Now() time.Time { return time.Now().UTC() }

// Log returns the run-scoped logger.
func (pc *ProcContext) Log() *zerolog.Logger { return &pc.log }

// Inputs returns the merged process inputs (defaults plus overrides).
func (pc *ProcContext) Inputs() map[string]any { return pc.inputs }

// MaxIterations returns the configured iteration budget.
func (pc *ProcContext) MaxIterations() int {
	return pc.runner.cfg.Budgets.MaxIterations
}

// InputString returns a string input, or fallback when absent.
func (pc *ProcContext) InputString(key, fallback string) string {
	if v, ok := pc.inputs[key].(string); ok {
		return v
	}
	return fallback
}

// InputNumber returns a numeric input, or fallback when absent.
func (pc *ProcContext) InputNumber(key string, fallback float64) float64 {
	switch v := pc.inputs[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

// InputBool returns a boolean input, or fallback when absent.
func (pc *ProcContext) InputBool(key string, fallback bool) bool {
	if v, ok := pc.inputs[key].(bool); ok {
		return v
	}
	return fallback
}

// InputStrings returns a string-list input, or nil when absent.
func (pc *ProcContext) InputStrings(key string) []string {
	switch v := pc.inputs[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// InputHas reports whether a string-list input contains value.
func (pc *ProcContext) InputHas(key, value string) bool {
	for _, s := range pc.InputStrings(key) {
		if s == value {
			return true
		}
	}
	return false
}

// Phase marks the start of a named phase. Phases are the unit of
// sequencing and conditional skipping in a process definition.
func (pc *ProcContext) Phase(ctx context.Context, name string) {
	pc.phase = name
	pc.log.Info().Str("phase", name).Msg("phase started")
	if err := pc.runner.store.UpdateRun(ctx, pc.runID, pc.runUpdate(spec.StatusRunning), &store.Event{
		Type:    "phase_started",
		Message: name,
	}); err != nil {
		pc.log.Error().Err(err).Str("phase", name).Msg("failed to persist phase start")
	}
}

// SetIteration records the current loop iteration for run inspection.
func (pc *ProcContext) SetIteration(n int) {
	pc.iteration = n
}

func (pc *ProcContext) runUpdate(status string) store.RunUpdate {
	return store.RunUpdate{
		Phase:     pc.phase,
		Iteration: pc.iteration,
		Status:    status,
	}
}

// AddArtifact appends a produced file reference to the run's
// append-only artifact list.
func (pc *ProcContext) AddArtifact(a spec.Artifact) {
	pc.acc.AppendArtifact(a)
}

// AddRecommendations appends recommendation payloads produced by a step.
func (pc *ProcContext) AddRecommendations(items ...any) {
	pc.acc.AppendRecommendations(items...)
}

// AddOptimizations appends optimization payloads produced by a step.
func (pc *ProcContext) AddOptimizations(items ...any) {
	pc.acc.AppendOptimizations(items...)
}

// Artifacts returns a snapshot of the accumulated artifacts.
func (pc *ProcContext) Artifacts() []spec.Artifact {
	return pc.acc.Artifacts()
}

// Recommendations returns a snapshot of the accumulated recommendations.
func (pc *ProcContext) Recommendations() []any {
	return pc.acc.Recommendations()
}

// Optimizations returns a snapshot of the accumulated optimizations.
func (pc *ProcContext) Optimizations() []any {
	return pc.acc.Optimizations()
}

// Complete builds a success report carrying the accumulated state.
func (pc *ProcContext) Complete(summary map[string]any) spec.Report {
	return spec.Report{
		Success:         true,
		Status:          spec.StatusCompleted,
		Summary:         summary,
		Artifacts:       pc.acc.Artifacts(),
		Recommendations: pc.acc.Recommendations(),
		Optimizations:   pc.acc.Optimizations(),
	}
}

// Fail builds a soft-failure report: the run halts, prior artifacts
// are preserved, nothing is thrown.
func (pc *ProcContext) Fail(errMsg string, details map[string]any) spec.Report {
	return pc.failReport(errMsg, details)
}

// Rejected builds the report for a negative breakpoint decision.
func (pc *ProcContext) Rejected(d spec.Decision) spec.Report {
	report := pc.failReport("breakpoint rejected", map[string]any{
		"phase": pc.phase,
		"note":  d.Note,
	})
	report.Status = spec.StatusAborted
	report.Verdict = "rejected"
	return report
}

func (pc *ProcContext) failReport(errMsg string, details map[string]any) spec.Report {
	if details == nil {
		details = map[string]any{}
	}
	if _, ok := details["phase"]; !ok {
		details["phase"] = pc.phase
	}
	return spec.Report{
		Success:         false,
		Status:          spec.StatusFailed,
		Error:           errMsg,
		Details:         details,
		Artifacts:       pc.acc.Artifacts(),
		Recommendations: pc.acc.Recommendations(),
		Optimizations:   pc.acc.Optimizations(),
	}
}

// buildSpec resolves a registry builder and materializes the TaskSpec
// with its effect id and io paths.
func (pc *ProcContext) buildSpec(name string, args map[string]any) (spec.TaskSpec, string, error) {
	builder, ok := pc.registry.Resolve(name)
	if !ok {
		return spec.TaskSpec{}, "", fmt.Errorf("task %q is not defined", name)
	}

	pc.stepIndex++
	effectID := fmt.Sprintf("%03d-%s", pc.stepIndex, name)

	ts := builder(args, spec.TaskContext{
		RunID:     pc.runID,
		ProcessID: pc.processID,
		Now:       pc.Now(),
	})
	if ts.Kind == "" {
		ts.Kind = spec.KindAgent
	}
	if ts.Name == "" {
		ts.Name = name
	}
	return ts, effectID, nil
}
