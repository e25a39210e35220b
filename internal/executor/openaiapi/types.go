package openaiapi

import "time"

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultAPIKeyEnv = "OPENAI_API_KEY"
	defaultTimeout   = 120 * time.Second
)

// Config selects the model and credentials backing a task agent.
type Config struct {
	Model     string
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	Timeout   time.Duration
}

// TaskCall carries one delegated task to the model: the assembled agent
// prompt, the JSON schema the reply must satisfy, and the task context
// serialized as JSON.
type TaskCall struct {
	Prompt       string
	OutputSchema string
	ContextJSON  string
}

// TaskReply is the raw model output for a task call. Schema validation
// happens at the step level, not here.
type TaskReply struct {
	OutputText string
}
