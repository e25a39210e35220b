package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/executor/openaiapi"
	"github.com/metalagman/stagehand/internal/spec"
)

// openAIExecutor fulfils a task with one Responses API call.
type openAIExecutor struct {
	cfg    config.AgentConfig
	client *openaiapi.Client
}

func newOpenAIExecutor(cfg config.AgentConfig) (Executor, error) {
	client, err := openaiapi.NewClient(openaiapi.Config{
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		APIKeyEnv: cfg.APIKeyEnv,
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
	}, nil)
	if err != nil {
		return nil, err
	}

	return &openAIExecutor{
		cfg:    cfg,
		client: client,
	}, nil
}

func (e *openAIExecutor) Execute(ctx context.Context, ts spec.TaskSpec, _ string, stdout, stderr io.Writer) ([]byte, error) {
	inputJSON, err := json.Marshal(ts.Agent.Context)
	if err != nil {
		return nil, fmt.Errorf("marshal task context: %w", err)
	}

	out, err := e.client.Complete(ctx, openaiapi.TaskCall{
		Prompt:       agentPrompt(ts, e.cfg.Model),
		OutputSchema: ts.Agent.OutputSchema,
		ContextJSON:  string(inputJSON),
	})
	if err != nil {
		if stderr != nil {
			_, _ = fmt.Fprintln(stderr, err)
		}
		return nil, fmt.Errorf("run openai agent: %w", err)
	}

	raw := []byte(out.OutputText)
	if stdout != nil {
		_, _ = stdout.Write(raw)
	}
	return raw, nil
}

func (e *openAIExecutor) Describe() Info {
	return Info{Type: e.cfg.Type, Model: e.cfg.Model}
}
