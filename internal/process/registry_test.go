package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllListsBuiltins(t *testing.T) {
	procs := All()
	require.Len(t, procs, 2)
	assert.Equal(t, "cost-optimization", procs[0].ID)
	assert.Equal(t, "pipeline-optimization", procs[1].ID)
	for _, p := range procs {
		assert.NotNil(t, p.Fn, p.ID)
		assert.NotNil(t, p.Registry, p.ID)
		assert.NotEmpty(t, p.Description, p.ID)
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup("cost-optimization")
	require.NoError(t, err)
	assert.Equal(t, "cost-optimization", p.ID)

	_, err = Lookup("nope")
	require.Error(t, err)
}
