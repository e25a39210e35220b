// Package spec defines the task and report value types shared by the
// stagehand runtime.
package spec

import "time"

// Task kinds. Only agent tasks exist today; the tag keeps the wire
// format open for other executors.
const (
	KindAgent = "agent"
)

// TaskSpec is an immutable description of one unit of work.
type TaskSpec struct {
	Kind   string    `json:"kind"`
	Name   string    `json:"name"`
	Title  string    `json:"title"`
	Agent  AgentSpec `json:"agent"`
	IO     TaskIO    `json:"io"`
	Labels []string  `json:"labels,omitempty"`
}

// AgentSpec describes how an agent should fulfil a task.
type AgentSpec struct {
	Role         string         `json:"role"`
	Instructions []string       `json:"instructions"`
	Context      map[string]any `json:"context,omitempty"`
	OutputSchema string         `json:"output_schema"`
}

// TaskIO holds the paths where the resolved input and validated output
// of a task execution are persisted.
type TaskIO struct {
	InputJSONPath  string `json:"input_json_path"`
	OutputJSONPath string `json:"output_json_path"`
}

// TaskContext is passed to registry builders when a TaskSpec is created.
type TaskContext struct {
	RunID     string
	ProcessID string
	Now       time.Time
}

// HasLabel reports whether the spec carries the given label.
func (t TaskSpec) HasLabel(name string) bool {
	for _, l := range t.Labels {
		if l == name {
			return true
		}
	}
	return false
}
