package executor

import (
	"context"
	"testing"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/metalagman/stagehand/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCmdExec(t *testing.T) {
	t.Parallel()

	cmd, err := ResolveCmd(config.AgentConfig{Type: "exec", Cmd: []string{"sh", "-c", "cat"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sh", "-c", "cat"}, cmd)

	_, err = ResolveCmd(config.AgentConfig{Type: "exec"})
	require.Error(t, err)
}

func TestResolveCmdKnownCLI(t *testing.T) {
	t.Parallel()

	cmd, err := ResolveCmd(config.AgentConfig{Type: "codex", Model: "o4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"codex", "exec", "--model", "o4", "--full-auto", "--skip-git-repo-check"}, cmd)
}

func TestResolveCmdUnknownType(t *testing.T) {
	t.Parallel()

	_, err := ResolveCmd(config.AgentConfig{Type: "carrier-pigeon"})
	require.Error(t, err)
}

func TestNewRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := New(config.AgentConfig{Type: "carrier-pigeon"})
	require.Error(t, err)
}

func TestFuncExecutor(t *testing.T) {
	t.Parallel()

	exec := Func(func(_ context.Context, ts spec.TaskSpec) (map[string]any, error) {
		return map[string]any{"success": true, "task": ts.Name}, nil
	})

	out, err := exec.Execute(context.Background(), spec.TaskSpec{Name: "analyze"}, t.TempDir(), nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"task":"analyze"}`, string(out))
}

func TestAgentPromptContainsRoleAndInstructions(t *testing.T) {
	t.Parallel()

	ts := spec.TaskSpec{
		Title: "Analyze compute spend",
		Agent: spec.AgentSpec{
			Role:         "cost analyst",
			Instructions: []string{"Review utilization", "Flag idle resources"},
		},
	}
	prompt := agentPrompt(ts, "gpt-5")
	assert.Contains(t, prompt, "cost analyst")
	assert.Contains(t, prompt, "Analyze compute spend")
	assert.Contains(t, prompt, "Flag idle resources")
	assert.Contains(t, prompt, "gpt-5")
}
