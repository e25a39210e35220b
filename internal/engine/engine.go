// Package engine implements the stagehand workflow runtime: step
// scheduling, parallel fan-out, breakpoint gates, bounded iteration,
// and the top-level process runner.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/executor"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/rs/zerolog/log"
)

// ProcessFunc is the entry point of one process definition. It drives
// phases through the ProcContext and returns the final report.
type ProcessFunc func(ctx context.Context, pc *ProcContext) (spec.Report, error)

// Process bundles a process definition: its id, input defaults, task
// registry, and entry function.
type Process struct {
	ID          string
	Description string
	Defaults    map[string]any
	Registry    *spec.Registry
	Fn          ProcessFunc
}

// Runner executes process definitions against the configured agent
// executors and the run store.
type Runner struct {
	repoRoot  string
	dataDir   string
	cfg       config.Config
	store     *store.Store
	gate      Gate
	executors map[string]executor.Executor
	newExec   func(config.AgentConfig) (executor.Executor, error)
}

// NewRunner constructs a Runner. The gate may be nil, in which case a
// store-backed gate with the configured approval policy is used.
func NewRunner(repoRoot string, cfg config.Config, st *store.Store, gate Gate) (*Runner, error) {
	r := &Runner{
		repoRoot:  repoRoot,
		dataDir:   filepath.Join(repoRoot, ".stagehand"),
		cfg:       cfg,
		store:     st,
		gate:      gate,
		executors: make(map[string]executor.Executor),
		newExec:   executor.New,
	}
	if r.gate == nil {
		if cfg.Approvals.AutoApprove {
			r.gate = NewAutoGate(st)
		} else {
			r.gate = NewStoreGate(st, storeGateOptions(cfg.Approvals))
		}
	}
	return r, nil
}

// WithGate overrides the breakpoint gate.
func (r *Runner) WithGate(gate Gate) *Runner {
	r.gate = gate
	return r
}

// WithExecutorFactory overrides executor construction. Used by tests to
// substitute deterministic executors.
func (r *Runner) WithExecutorFactory(factory func(config.AgentConfig) (executor.Executor, error)) *Runner {
	r.newExec = factory
	r.executors = make(map[string]executor.Executor)
	return r
}

func (r *Runner) executorFor(role string) (executor.Executor, error) {
	if role == "" {
		role = "default"
	}
	if exec, ok := r.executors[role]; ok {
		return exec, nil
	}
	agentCfg, ok := r.cfg.AgentFor(role)
	if !ok {
		return nil, fmt.Errorf("no agent configured for role %q", role)
	}
	exec, err := r.newExec(agentCfg)
	if err != nil {
		return nil, fmt.Errorf("init agent for role %q: %w", role, err)
	}
	r.executors[role] = exec
	return exec, nil
}

// Run executes one process with the given inputs and returns its
// report. Soft failures are reported in the Report, not as errors;
// the error return covers infrastructure faults only.
func (r *Runner) Run(ctx context.Context, proc Process, inputs map[string]any) (report spec.Report, err error) {
	startedAt := time.Now().UTC()

	lock, err := AcquireRunLock(r.dataDir)
	if err != nil {
		return spec.Report{}, err
	}
	defer func() { _ = lock.Release() }()

	runID, err := newRunID()
	if err != nil {
		return spec.Report{}, err
	}

	defer func() {
		event := log.Info().
			Str("run_id", runID).
			Str("process_id", proc.ID).
			Str("status", report.Status).
			Dur("duration", time.Since(startedAt))
		if err != nil {
			event = event.Err(err)
		}
		event.Msg("run finished")
	}()

	runDir := filepath.Join(r.dataDir, "runs", runID)
	for _, sub := range []string{"tasks", "artifacts"} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0o755); err != nil {
			return spec.Report{}, fmt.Errorf("create run dir: %w", err)
		}
	}

	if err := r.store.CreateRun(ctx, runID, proc.ID, runDir); err != nil {
		return spec.Report{}, err
	}

	pc := &ProcContext{
		runner:    r,
		runID:     runID,
		processID: proc.ID,
		runDir:    runDir,
		registry:  proc.Registry,
		inputs:    mergeInputs(proc.Defaults, inputs),
		acc:       NewAccumulator(),
		log:       log.With().Str("run_id", runID).Str("process_id", proc.ID).Logger(),
	}

	report, err = proc.Fn(ctx, pc)
	if err != nil {
		report = pc.failReport(err.Error(), nil)
		report.Status = spec.StatusFailed
	}
	report = r.finalize(ctx, pc, report, startedAt)
	return report, err
}

func (r *Runner) finalize(ctx context.Context, pc *ProcContext, report spec.Report, startedAt time.Time) spec.Report {
	report.ProcessID = pc.processID
	report.RunID = pc.runID
	report.StartedAt = startedAt
	report.EndedAt = time.Now().UTC()
	report.DurationMS = report.EndedAt.Sub(startedAt).Milliseconds()
	if report.Artifacts == nil {
		report.Artifacts = pc.acc.Artifacts()
	}
	if report.Recommendations == nil {
		report.Recommendations = pc.acc.Recommendations()
	}
	if report.Optimizations == nil {
		report.Optimizations = pc.acc.Optimizations()
	}
	if report.Status == "" {
		if report.Success {
			report.Status = spec.StatusCompleted
		} else {
			report.Status = spec.StatusFailed
		}
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		pc.log.Error().Err(err).Msg("failed to marshal report")
		reportJSON = []byte("{}")
	}
	if err := os.WriteFile(filepath.Join(pc.runDir, "report.json"), reportJSON, 0o644); err != nil {
		pc.log.Error().Err(err).Msg("failed to write report.json")
	}

	var verdict *string
	if report.Verdict != "" {
		verdict = &report.Verdict
	}
	if err := r.store.FinishRun(ctx, pc.runID, report.Status, string(reportJSON), verdict); err != nil {
		pc.log.Error().Err(err).Msg("failed to persist run finish")
	}
	return report
}

func mergeInputs(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func newRunID() (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s", ts, suffix), nil
}

func randomHex(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
