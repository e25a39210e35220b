// Package config provides configuration loading and management for stagehand.
package config

// Config is the root configuration.
type Config struct {
	Agents    map[string]AgentConfig `json:"agents"    mapstructure:"agents"`
	Budgets   Budgets                `json:"budgets"   mapstructure:"budgets"`
	Parallel  ParallelConfig         `json:"parallel"  mapstructure:"parallel"`
	Approvals ApprovalsConfig        `json:"approvals" mapstructure:"approvals"`
	Retention RetentionPolicy        `json:"retention" mapstructure:"retention"`
}

// AgentConfig describes how to run an agent executor.
type AgentConfig struct {
	Type      string   `json:"type"                  mapstructure:"type"`
	Cmd       []string `json:"cmd,omitempty"         mapstructure:"cmd"`
	Model     string   `json:"model,omitempty"       mapstructure:"model"`
	BaseURL   string   `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKey    string   `json:"api_key,omitempty"     mapstructure:"api_key"`
	APIKeyEnv string   `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	Timeout   int      `json:"timeout,omitempty"     mapstructure:"timeout"`
	UseTTY    *bool    `json:"use_tty,omitempty"     mapstructure:"use_tty"`
}

// Budgets defines run limits.
type Budgets struct {
	MaxIterations int `json:"max_iterations" mapstructure:"max_iterations"`
}

// ParallelConfig bounds concurrent task execution inside a parallel group.
// Zero means unbounded.
type ParallelConfig struct {
	MaxConcurrent int `json:"max_concurrent,omitempty" mapstructure:"max_concurrent"`
}

// ApprovalsConfig controls the breakpoint gate.
type ApprovalsConfig struct {
	TimeoutMinutes int  `json:"timeout_minutes,omitempty" mapstructure:"timeout_minutes"`
	PollSeconds    int  `json:"poll_seconds,omitempty"    mapstructure:"poll_seconds"`
	AutoApprove    bool `json:"auto_approve,omitempty"    mapstructure:"auto_approve"`
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Agents: map[string]AgentConfig{
			"default": {Type: "exec", Cmd: []string{"cat"}},
		},
		Budgets:   Budgets{MaxIterations: 3},
		Approvals: ApprovalsConfig{PollSeconds: 2},
		Retention: RetentionPolicy{KeepLast: 20},
	}
}

// AgentFor returns the agent config for a role, falling back to "default".
func (c Config) AgentFor(role string) (AgentConfig, bool) {
	if a, ok := c.Agents[role]; ok {
		return a, true
	}
	a, ok := c.Agents["default"]
	return a, ok
}
