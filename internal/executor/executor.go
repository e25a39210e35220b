// Package executor provides implementations of the opaque agent
// boundary that fulfils task specs.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
)

// Executor produces a raw JSON result for a task spec. How the result
// is produced (CLI agent, LLM API, deterministic function) is opaque to
// the runtime; the contract is a JSON document or a failure.
type Executor interface {
	Execute(ctx context.Context, ts spec.TaskSpec, stepDir string, stdout, stderr io.Writer) ([]byte, error)
	Describe() Info
}

// Info describes how an executor is invoked.
type Info struct {
	Type  string
	Cmd   []string
	Model string
}

// New constructs an executor for the given agent config.
func New(cfg config.AgentConfig) (Executor, error) {
	switch cfg.Type {
	case "exec", "codex", "opencode", "gemini", "claude":
		return newInvokeExecutor(cfg)
	case "adk":
		return newADKExecutor(cfg)
	case "openai":
		return newOpenAIExecutor(cfg)
	default:
		return nil, fmt.Errorf("unknown agent type %q", cfg.Type)
	}
}

// Func adapts a plain function to the Executor interface. Used in
// tests and for deterministic tasks.
type Func func(ctx context.Context, ts spec.TaskSpec) (map[string]any, error)

// Execute marshals the function's result to JSON.
func (f Func) Execute(ctx context.Context, ts spec.TaskSpec, _ string, _, _ io.Writer) ([]byte, error) {
	out, err := f(ctx, ts)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

// Describe implements Executor.
func (f Func) Describe() Info {
	return Info{Type: "func"}
}
