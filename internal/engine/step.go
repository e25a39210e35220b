package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/stagehand/internal/logging"
	"github.com/metalagman/stagehand/internal/schema"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
	"github.com/rs/zerolog/log"
)

// Task executes a single registered task and returns the validated
// result. No implicit retries happen here; retry policy belongs to the
// caller.
func (pc *ProcContext) Task(ctx context.Context, name string, args map[string]any) (spec.TaskResult, error) {
	ts, effectID, err := pc.buildSpec(name, args)
	if err != nil {
		return spec.TaskResult{}, err
	}
	return pc.executeStep(ctx, ts, effectID)
}

// executeStep persists the task input, invokes the agent executor,
// validates the raw result against the declared output schema, and
// persists the validated result.
func (pc *ProcContext) executeStep(ctx context.Context, ts spec.TaskSpec, effectID string) (spec.TaskResult, error) {
	stepDir := filepath.Join(pc.runDir, "tasks", effectID)
	if err := os.MkdirAll(filepath.Join(stepDir, "logs"), 0o755); err != nil {
		return spec.TaskResult{}, fmt.Errorf("create step dir: %w", err)
	}
	if ts.IO.InputJSONPath == "" {
		ts.IO.InputJSONPath = filepath.Join(stepDir, "input.json")
	}
	if ts.IO.OutputJSONPath == "" {
		ts.IO.OutputJSONPath = filepath.Join(stepDir, "result.json")
	}

	startedAt := time.Now().UTC()

	input := map[string]any{
		"task":         ts.Name,
		"title":        ts.Title,
		"role":         ts.Agent.Role,
		"instructions": ts.Agent.Instructions,
		"context":      ts.Agent.Context,
		"labels":       ts.Labels,
	}
	if err := writeJSON(ts.IO.InputJSONPath, input); err != nil {
		return spec.TaskResult{}, err
	}

	stdoutFile, err := os.Create(filepath.Join(stepDir, "logs", "stdout.txt"))
	if err != nil {
		return spec.TaskResult{}, fmt.Errorf("create stdout log: %w", err)
	}
	defer func() {
		if cErr := stdoutFile.Close(); cErr != nil {
			log.Warn().Err(cErr).Msg("failed to close stdout log")
		}
	}()
	stderrFile, err := os.Create(filepath.Join(stepDir, "logs", "stderr.txt"))
	if err != nil {
		return spec.TaskResult{}, fmt.Errorf("create stderr log: %w", err)
	}
	defer func() {
		if cErr := stderrFile.Close(); cErr != nil {
			log.Warn().Err(cErr).Msg("failed to close stderr log")
		}
	}()

	stdoutWriter := io.Writer(stdoutFile)
	stderrWriter := io.Writer(stderrFile)
	if logging.DebugEnabled() {
		stdoutWriter = io.MultiWriter(stdoutFile, os.Stderr)
		stderrWriter = io.MultiWriter(stderrFile, os.Stderr)
	}

	exec, err := pc.runner.executorFor(ts.Agent.Role)
	if err != nil {
		return spec.TaskResult{}, err
	}

	pc.log.Info().
		Str("task", ts.Name).
		Str("effect_id", effectID).
		Str("role", ts.Agent.Role).
		Msg("agent start")

	raw, execErr := exec.Execute(ctx, ts, stepDir, stdoutWriter, stderrWriter)
	duration := time.Since(startedAt)

	finishEvent := pc.log.Info().
		Str("task", ts.Name).
		Str("effect_id", effectID).
		Dur("duration", duration)
	if execErr != nil {
		finishEvent = finishEvent.Err(execErr)
	}
	finishEvent.Msg("agent finished")

	if execErr != nil {
		pc.commitStep(ctx, ts, effectID, stepDir, startedAt, "fail", execErr.Error())
		return spec.TaskResult{}, fmt.Errorf("task %q: %w", ts.Name, execErr)
	}

	data, parseErr := parseResult(raw)
	if parseErr != nil {
		// Agents sometimes wrap the document in prose; recover the
		// outermost JSON object before giving up.
		if recovered, ok := extractJSON(raw); ok {
			data, parseErr = parseResult(recovered)
		}
	}
	if parseErr != nil {
		pc.commitStep(ctx, ts, effectID, stepDir, startedAt, "fail", "result is not valid JSON")
		return spec.TaskResult{}, fmt.Errorf("task %q: result is not valid JSON: %w", ts.Name, parseErr)
	}

	if err := schema.Validate(ts.Name, data, ts.Agent.OutputSchema); err != nil {
		pc.commitStep(ctx, ts, effectID, stepDir, startedAt, "fail", err.Error())
		return spec.TaskResult{}, err
	}

	if err := writeJSON(ts.IO.OutputJSONPath, data); err != nil {
		return spec.TaskResult{}, err
	}

	pc.commitStep(ctx, ts, effectID, stepDir, startedAt, "ok", "")
	return spec.TaskResult{Task: ts.Name, Data: data}, nil
}

func (pc *ProcContext) commitStep(ctx context.Context, ts spec.TaskSpec, effectID, stepDir string, startedAt time.Time, status, summary string) {
	rec := store.StepRecord{
		RunID:     pc.runID,
		EffectID:  effectID,
		Name:      ts.Name,
		Status:    status,
		StepDir:   stepDir,
		StartedAt: startedAt.Format(time.RFC3339),
		EndedAt:   time.Now().UTC().Format(time.RFC3339),
		Summary:   summary,
	}
	events := []store.Event{{Type: "step_committed", Message: fmt.Sprintf("%s: %s", effectID, status)}}
	if err := pc.runner.store.CommitStep(ctx, rec, events, pc.runUpdate(spec.StatusRunning)); err != nil {
		pc.log.Error().Err(err).Str("effect_id", effectID).Msg("failed to commit step")
	}
}

func parseResult(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func extractJSON(data []byte) ([]byte, bool) {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start == -1 || end == -1 || start >= end {
		return nil, false
	}
	return data[start : end+1], true
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
