package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/stagehand/internal/spec"
)

const measureSchema = `{
  "type": "object",
  "required": ["success", "totalTime"],
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": "string"},
    "totalTime": {"type": "number"},
    "qualityScore": {"type": "number"},
    "goalsMet": {"type": "number"},
    "totalGoals": {"type": "number"}
  }
}`

const optimizeSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": "string"},
    "changes": {"type": "array"}
  }
}`

func registry() *spec.Registry {
	reg := spec.NewRegistry()

	reg.MustDefine("measure", func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
		return spec.TaskSpec{
			Name:  "measure",
			Title: "Measure pipeline timings",
			Agent: spec.AgentSpec{
				Role:         "analyst",
				Instructions: []string{
					"Run the build pipeline and report the total wall time in seconds.",
					"Score the build quality and count how many of the configured goals are currently met.",
				},
				Context:      args,
				OutputSchema: measureSchema,
			},
		}
	})

	reg.MustDefine("optimize", func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
		return spec.TaskSpec{
			Name:  "optimize",
			Title: "Tune the pipeline",
			Agent: spec.AgentSpec{
				Role:         "operator",
				Instructions: []string{
					"Apply one round of pipeline improvements: caching, parallelism, and stage reordering.",
					"Describe each change.",
				},
				Context:      args,
				OutputSchema: optimizeSchema,
			},
		}
	})

	return reg
}

func writeHistory(runDir string, records []spec.IterationRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal iteration history: %w", err)
	}
	path := filepath.Join(runDir, "artifacts", "iterations.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write iteration history: %w", err)
	}
	return nil
}
