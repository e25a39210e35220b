package spec

import "time"

// Artifact is a reference to a file produced by a step.
type Artifact struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Label  string `json:"label,omitempty"`
}

// BreakpointRequest is surfaced to an external approver at a gate.
type BreakpointRequest struct {
	Title    string         `json:"title"`
	Question string         `json:"question"`
	Context  map[string]any `json:"context,omitempty"`
	Files    []Artifact     `json:"files,omitempty"`
}

// DecisionAction enumerates the possible outcomes of a breakpoint.
type DecisionAction string

const (
	DecisionProceed   DecisionAction = "proceed"
	DecisionReject    DecisionAction = "reject"
	DecisionModify    DecisionAction = "proceed_with_changes"
	DecisionTimeout   DecisionAction = "timeout"
)

// Decision records how a breakpoint was resolved.
type Decision struct {
	Action         DecisionAction `json:"action"`
	Note           string         `json:"note,omitempty"`
	ModifiedInputs map[string]any `json:"modified_inputs,omitempty"`
	DecidedAt      time.Time      `json:"decided_at"`
}

// Proceeding reports whether the decision allows the run to continue.
func (d Decision) Proceeding() bool {
	return d.Action == DecisionProceed || d.Action == DecisionModify
}

// IterationRecord is one snapshot of a bounded refinement loop.
type IterationRecord struct {
	Iteration    int                   `json:"iteration"`
	StepResults  map[string]TaskResult `json:"step_results,omitempty"`
	Metrics      map[string]float64    `json:"metrics,omitempty"`
	QualityScore float64               `json:"quality_score"`
	GoalsMet     int                   `json:"goals_met"`
	TotalGoals   int                   `json:"total_goals"`
}

// GoalsRatio returns the fraction of scored goals met, or zero when no
// goals were scored.
func (r IterationRecord) GoalsRatio() float64 {
	if r.TotalGoals == 0 {
		return 0
	}
	return float64(r.GoalsMet) / float64(r.TotalGoals)
}

// Run statuses persisted for a process run.
const (
	StatusPending          = "pending"
	StatusRunning          = "running"
	StatusAwaitingApproval = "awaiting_approval"
	StatusCompleted        = "completed"
	StatusFailed           = "failed"
	StatusAborted          = "aborted"
)

// Report is the final aggregated result of one process run. Every
// terminal outcome (success, soft failure, non-convergence, rejection)
// is representable without consulting logs.
type Report struct {
	ProcessID       string         `json:"process_id"`
	RunID           string         `json:"run_id"`
	Success         bool           `json:"success"`
	Status          string         `json:"status"`
	Error           string         `json:"error,omitempty"`
	Verdict         string         `json:"verdict,omitempty"`
	Recommendation  string         `json:"recommendation,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	Summary         map[string]any `json:"summary,omitempty"`
	Artifacts       []Artifact     `json:"artifacts"`
	Recommendations []any          `json:"recommendations"`
	Optimizations   []any          `json:"optimizations"`
	StartedAt       time.Time      `json:"started_at"`
	EndedAt         time.Time      `json:"ended_at"`
	DurationMS      int64          `json:"duration_ms"`
}
