package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectInputsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targetBuildTime: 600\noptimizationAreas:\n  - compute\n  - storage\n"), 0o644))

	inputs, err := collectInputs(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 600, inputs["targetBuildTime"])
	assert.Equal(t, []any{"compute", "storage"}, inputs["optimizationAreas"])
}

func TestCollectInputsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targetBuildTime: 600\n"), 0o644))

	inputs, err := collectInputs(path, []string{"targetBuildTime=300", "autoApply=true", "name=rel-1"})
	require.NoError(t, err)
	assert.Equal(t, 300, inputs["targetBuildTime"])
	assert.Equal(t, true, inputs["autoApply"])
	assert.Equal(t, "rel-1", inputs["name"])
}

func TestCollectInputsBadPair(t *testing.T) {
	_, err := collectInputs("", []string{"nokey"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")
}
