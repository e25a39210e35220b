// Package process registers the built-in workflow definitions.
package process

import (
	"fmt"
	"sort"

	"github.com/metalagman/stagehand/internal/engine"
	"github.com/metalagman/stagehand/internal/process/costopt"
	"github.com/metalagman/stagehand/internal/process/pipeline"
)

// All returns every built-in process definition, sorted by id.
func All() []engine.Process {
	procs := []engine.Process{
		costopt.Process(),
		pipeline.Process(),
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].ID < procs[j].ID })
	return procs
}

// Lookup resolves a process definition by id.
func Lookup(id string) (engine.Process, error) {
	for _, p := range All() {
		if p.ID == id {
			return p, nil
		}
	}
	return engine.Process{}, fmt.Errorf("unknown process %q", id)
}
