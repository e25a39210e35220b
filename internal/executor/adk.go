package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	adkagent "github.com/metalagman/ainvoke/adk"
	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
	"google.golang.org/adk/agent"
	adkrunner "google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// adkExecutor wraps a CLI agent command in an ADK runner session. The
// final event's text content is the agent's result document.
type adkExecutor struct {
	cfg  config.AgentConfig
	cmd  []string
	info Info
}

func newADKExecutor(cfg config.AgentConfig) (Executor, error) {
	if len(cfg.Cmd) == 0 {
		return nil, fmt.Errorf("adk agent requires cmd")
	}
	return &adkExecutor{
		cfg: cfg,
		cmd: cfg.Cmd,
		info: Info{
			Type:  cfg.Type,
			Cmd:   cfg.Cmd,
			Model: cfg.Model,
		},
	}, nil
}

func (e *adkExecutor) Execute(ctx context.Context, ts spec.TaskSpec, stepDir string, stdout, stderr io.Writer) ([]byte, error) {
	inputJSON, err := json.Marshal(ts.Agent.Context)
	if err != nil {
		return nil, fmt.Errorf("marshal task context: %w", err)
	}

	execAgent, err := adkagent.NewExecAgent(
		"stagehand_task",
		ts.Title,
		e.cmd,
		adkagent.WithExecAgentPrompt(agentPrompt(ts, e.cfg.Model)),
		adkagent.WithExecAgentInputSchema(taskInputSchema),
		adkagent.WithExecAgentOutputSchema(ts.Agent.OutputSchema),
		adkagent.WithExecAgentRunDir(stepDir),
		adkagent.WithExecAgentUseTTY(e.cfg.UseTTY != nil && *e.cfg.UseTTY),
		adkagent.WithExecAgentStdout(orDiscard(stdout)),
		adkagent.WithExecAgentStderr(orDiscard(stderr)),
	)
	if err != nil {
		return nil, fmt.Errorf("create exec agent: %w", err)
	}

	sessionService := session.InMemoryService()
	runner, err := adkrunner.New(adkrunner.Config{
		AppName:        "stagehand",
		Agent:          execAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("create ADK runner: %w", err)
	}

	sess, err := sessionService.Create(ctx, &session.CreateRequest{
		AppName: "stagehand",
		UserID:  "stagehand-user",
	})
	if err != nil {
		return nil, fmt.Errorf("create ADK session: %w", err)
	}

	userContent := genai.NewContentFromText(string(inputJSON), genai.RoleUser)
	var lastOut []byte
	for ev, runErr := range runner.Run(ctx, "stagehand-user", sess.Session.ID(), userContent, agent.RunConfig{}) {
		if runErr != nil {
			return nil, fmt.Errorf("adk agent run failed: %w", runErr)
		}
		if ev.Content != nil && len(ev.Content.Parts) > 0 {
			lastOut = []byte(ev.Content.Parts[0].Text)
		}
	}
	if len(lastOut) == 0 {
		return nil, fmt.Errorf("adk agent produced empty output")
	}
	return lastOut, nil
}

func (e *adkExecutor) Describe() Info {
	return e.info
}
