package costopt

import (
	"github.com/metalagman/stagehand/internal/spec"
)

const analysisSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": "string"},
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["resource", "action"],
        "properties": {
          "resource": {"type": "string"},
          "action": {"type": "string"},
          "monthlySavings": {"type": "number"}
        }
      }
    }
  }
}`

const inventorySchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": "string"},
    "resources": {"type": "array"}
  }
}`

const savingsSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "estimatedSavingsPercent": {"type": "number"}
  }
}`

const riskSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "riskLevel": {"type": "string", "enum": ["low", "medium", "high"]}
  }
}`

const applySchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": "string"},
    "appliedCount": {"type": "number"},
    "applied": {"type": "array"}
  }
}`

func registry() *spec.Registry {
	reg := spec.NewRegistry()

	reg.MustDefine("inventory", func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
		return spec.TaskSpec{
			Name:  "inventory",
			Title: "Discover billable resources",
			Agent: spec.AgentSpec{
				Role:         "analyst",
				Instructions: []string{
					"Enumerate every billable resource in the selected optimization areas.",
					"Report each resource with its type, region, and monthly cost.",
				},
				Context:      args,
				OutputSchema: inventorySchema,
			},
		}
	})

	for _, area := range Areas {
		area := area
		reg.MustDefine("analyze-"+area, func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
			return spec.TaskSpec{
				Name:  "analyze-" + area,
				Title: "Analyze " + area + " spend",
				Agent: spec.AgentSpec{
					Role:         "analyst",
					Instructions: []string{
						"Review the " + area + " resources in the inventory and propose concrete cost optimizations.",
						"Each recommendation names the resource, the action, and the expected monthly savings.",
					},
					Context:      args,
					OutputSchema: analysisSchema,
				},
				Labels: []string{"analysis", area},
			}
		})
		reg.MustDefine("apply-"+area, func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
			return spec.TaskSpec{
				Name:  "apply-" + area,
				Title: "Apply " + area + " optimizations",
				Agent: spec.AgentSpec{
					Role:         "operator",
					Instructions: []string{
						"Apply the approved " + area + " recommendations.",
						"Report each change made and stop at the first irrecoverable failure.",
					},
					Context:      args,
					OutputSchema: applySchema,
				},
				Labels: []string{"apply", area},
			}
		})
	}

	reg.MustDefine("estimate-savings", func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
		return spec.TaskSpec{
			Name:  "estimate-savings",
			Title: "Estimate aggregate savings",
			Agent: spec.AgentSpec{
				Role:         "analyst",
				Instructions: []string{
					"Aggregate the per-area recommendations into a single estimated savings percentage against current spend.",
				},
				Context:      args,
				OutputSchema: savingsSchema,
			},
		}
	})

	reg.MustDefine("assess-risk", func(args map[string]any, _ spec.TaskContext) spec.TaskSpec {
		return spec.TaskSpec{
			Name:  "assess-risk",
			Title: "Assess rollout risk",
			Agent: spec.AgentSpec{
				Role:         "analyst",
				Instructions: []string{
					"Judge the operational risk of applying the recommendations as a whole.",
					"Answer with a low, medium, or high risk level.",
				},
				Context:      args,
				OutputSchema: riskSchema,
			},
		}
	})

	return reg
}
