package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/metalagman/ainvoke"
	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
)

type agentCLISpec struct {
	defaultSubcommand string
	extraFlags        []string
}

var agentCLISpecs = map[string]agentCLISpec{
	"codex": {
		defaultSubcommand: "exec",
		extraFlags:        []string{"--full-auto", "--skip-git-repo-check"},
	},
	"opencode": {
		defaultSubcommand: "run",
	},
	"gemini": {
		extraFlags: []string{"--output-format", "text", "--approval-mode", "yolo"},
	},
	"claude": {
		extraFlags: []string{"--output-format", "text", "--print", "--dangerously-skip-permissions"},
	},
}

// ResolveCmd returns the command line for a CLI agent config.
func ResolveCmd(cfg config.AgentConfig) ([]string, error) {
	if cfg.Type == "exec" {
		if len(cfg.Cmd) == 0 {
			return nil, fmt.Errorf("exec agent requires cmd")
		}
		return cfg.Cmd, nil
	}
	cliSpec, ok := agentCLISpecs[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown CLI agent type %q", cfg.Type)
	}
	out := []string{cfg.Type}
	if cliSpec.defaultSubcommand != "" {
		out = append(out, cliSpec.defaultSubcommand)
	}
	if cfg.Model != "" {
		out = append(out, "--model", cfg.Model)
	}
	out = append(out, cliSpec.extraFlags...)
	return out, nil
}

// invokeExecutor runs a CLI agent subprocess through ainvoke. ainvoke
// handles writing input.json, schema hand-off, and process management.
type invokeExecutor struct {
	cfg    config.AgentConfig
	runner ainvoke.Runner
	info   Info
}

func newInvokeExecutor(cfg config.AgentConfig) (Executor, error) {
	cmd, err := ResolveCmd(cfg)
	if err != nil {
		return nil, err
	}

	useTTY := cfg.UseTTY != nil && *cfg.UseTTY
	ar, err := ainvoke.NewRunner(ainvoke.AgentConfig{
		Cmd:    cmd,
		UseTTY: useTTY,
	})
	if err != nil {
		return nil, err
	}

	return &invokeExecutor{
		cfg:    cfg,
		runner: ar,
		info: Info{
			Type:  cfg.Type,
			Cmd:   cmd,
			Model: cfg.Model,
		},
	}, nil
}

func (e *invokeExecutor) Execute(ctx context.Context, ts spec.TaskSpec, stepDir string, stdout, stderr io.Writer) ([]byte, error) {
	inv := ainvoke.Invocation{
		RunDir:       stepDir,
		SystemPrompt: agentPrompt(ts, e.cfg.Model),
		Input:        ts.Agent.Context,
		InputSchema:  taskInputSchema,
		OutputSchema: ts.Agent.OutputSchema,
	}

	out, _, exitCode, err := e.runner.Run(ctx, inv, ainvoke.WithStdout(orDiscard(stdout)), ainvoke.WithStderr(orDiscard(stderr)))
	if err != nil {
		return nil, fmt.Errorf("run %s agent: %w", e.cfg.Type, err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("%s agent exited with code %d", e.cfg.Type, exitCode)
	}
	return out, nil
}

func (e *invokeExecutor) Describe() Info {
	return e.info
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
