package config

// LLMConfig controls provider routing and credentials for internal/llm.
type LLMConfig struct {
	// Provider is the default/preferred provider: "ollama", "claude", or
	// "kimi". Overridden per-task by the router's task-type table.
	Provider string `yaml:"provider"`

	// ForceProvider, if set, bypasses routing and the fallback ladder
	// entirely and pins every request to this provider. Empty means
	// routing is active.
	ForceProvider string `yaml:"force_provider,omitempty"`

	EnableFallback bool `yaml:"enable_fallback"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`

	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	MoonshotAPIKey  string `yaml:"-"`

	OllamaHost  string `yaml:"ollama_host"`
	OllamaModel string `yaml:"ollama_model"`

	ClaudeModel string `yaml:"claude_model,omitempty"`
	KimiModel   string `yaml:"kimi_model,omitempty"`

	// Debug/test affordances consumed from env. Out of scope as
	// features but the variables are honored so downstream tooling that
	// sets them does not silently no-op.
	FakeResponse   string `yaml:"-"`
	FakeCommands   string `yaml:"-"`
	SkipOllamaInit bool   `yaml:"-"`
}
