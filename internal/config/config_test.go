package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() map[string]any {
	return map[string]any{
		"agents": map[string]any{
			"default": map[string]any{
				"type": "exec",
				"cmd":  []any{"sh", "-c", "cat"},
			},
		},
		"budgets": map[string]any{
			"max_iterations": 3,
		},
	}
}

func TestValidateSettingsAccepts(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsUnknownAgentType(t *testing.T) {
	t.Parallel()

	settings := validSettings()
	settings["agents"].(map[string]any)["default"].(map[string]any)["type"] = "carrier-pigeon"
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agents.default.type")
}

func TestValidateSettingsRequiresBudgets(t *testing.T) {
	t.Parallel()

	settings := validSettings()
	delete(settings, "budgets")
	require.Error(t, ValidateSettings(settings))
}

func TestAgentForFallsBackToDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	a, ok := cfg.AgentFor("analyst")
	require.True(t, ok)
	assert.Equal(t, "exec", a.Type)

	cfg.Agents["analyst"] = AgentConfig{Type: "openai", Model: "gpt-5"}
	a, ok = cfg.AgentFor("analyst")
	require.True(t, ok)
	assert.Equal(t, "openai", a.Type)
}
