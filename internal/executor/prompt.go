package executor

import (
	"strings"

	"github.com/metalagman/stagehand/internal/spec"
)

// agentPrompt renders the system prompt for a task. The agent receives
// the task context as its input JSON and must answer with a single JSON
// document matching the declared output schema.
func agentPrompt(ts spec.TaskSpec, modelName string) string {
	var b strings.Builder
	b.WriteString("You are a stagehand agent acting as: ")
	b.WriteString(ts.Agent.Role)
	b.WriteString("\n")
	b.WriteString("Task: ")
	b.WriteString(ts.Title)
	b.WriteString("\n")
	b.WriteString("- Your input is the task context JSON on stdin (also written to input.json in your run directory).\n")
	b.WriteString("- Output ONLY a single valid JSON document matching the provided output schema.\n")
	b.WriteString("- Do not include markdown, comments, or prose outside JSON.\n")
	b.WriteString("- Write the same JSON document to output.json in your run directory.\n")

	if len(ts.Agent.Instructions) > 0 {
		b.WriteString("Instructions:\n")
		for _, line := range ts.Agent.Instructions {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if modelName != "" {
		b.WriteString("- Use model hint: ")
		b.WriteString(modelName)
		b.WriteString(" (if relevant).\n")
	}

	return b.String()
}

// taskInputSchema is the generic schema for the input document handed
// to agents: the task's declared context object.
const taskInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object"
}`
