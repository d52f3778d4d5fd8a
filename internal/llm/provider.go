// Package llm implements the provider-routed LLM client: an
// abstract provider interface, a task-type routing table, a fallback
// ladder across providers, cost accounting, and concurrency-bounded
// batching.
package llm

import "context"

// ProviderName identifies a concrete backend. "claude" is canonical;
// "anthropic" is accepted as an input alias and normalized at the
// internal/config boundary (Open Question decision, see DESIGN.md).
type ProviderName string

const (
	ProviderOllama ProviderName = "ollama"
	ProviderClaude ProviderName = "claude"
	ProviderKimi   ProviderName = "kimi"
)

// TaskType classifies the kind of request being routed, driving the
// TaskRouting table.
type TaskType string

const (
	TaskUserChat             TaskType = "user_chat"
	TaskRequirementParsing   TaskType = "requirement_parsing"
	TaskSystemOperation      TaskType = "system_operation"
	TaskErrorDebugging       TaskType = "error_debugging"
	TaskCodeGeneration       TaskType = "code_generation"
	TaskDependencyResolution TaskType = "dependency_resolution"
	TaskConfiguration        TaskType = "configuration"
	TaskToolExecution        TaskType = "tool_execution"
)

// TaskRouting maps every TaskType to its default provider. All task types
// default to Ollama; ForceProvider at the Router level
// overrides this entirely.
var TaskRouting = map[TaskType]ProviderName{
	TaskUserChat:             ProviderOllama,
	TaskRequirementParsing:   ProviderOllama,
	TaskSystemOperation:      ProviderOllama,
	TaskErrorDebugging:       ProviderOllama,
	TaskCodeGeneration:       ProviderOllama,
	TaskDependencyResolution: ProviderOllama,
	TaskConfiguration:        ProviderOllama,
	TaskToolExecution:        ProviderOllama,
}

// FallbackOrder is the provider order used when routing fails over,
// starting after the failed provider.
var FallbackOrder = []ProviderName{ProviderOllama, ProviderClaude, ProviderKimi}

// Message is one chat turn. Role is "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Tool describes a callable tool forwarded to providers that support tool
// use. Cortex's coordinator executes a fixed plan rather than
// LLM-dispatched tool calls, so this is carried for completeness of the
// provider interface but is typically empty in practice.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Response is a provider's completion result.
type Response struct {
	Content      string
	Provider     ProviderName
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Raw          interface{}
}

// Request is one completion call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Tools       []Tool
}

// Provider is the abstract LLM backend interface.
type Provider interface {
	Name() ProviderName
	Model() string
	// Available reports whether this provider can currently serve
	// requests: Ollama checks its local HTTP endpoint; cloud providers
	// check that an API key is configured.
	Available(ctx context.Context) bool
	Complete(ctx context.Context, req Request) (Response, error)
}
