package daemon

import "context"

// StatusResult is the decoded "status" result: the daemon's uptime, PID
// and connection state, and its reported operating mode.
type StatusResult struct {
	Uptime    float64 `json:"uptime_seconds"`
	Mode      string  `json:"mode"`
	PID       int     `json:"pid"`
	Connected bool    `json:"connected"`
}

// Status queries the daemon's overall status.
func (c *Client) Status(ctx context.Context) (StatusResult, error) {
	var result StatusResult
	err := c.Call(ctx, MethodStatus, nil, &result)
	return result, err
}

// HealthResult is the decoded "health" result.
type HealthResult struct {
	Healthy bool     `json:"healthy"`
	Checks  []string `json:"checks,omitempty"`
}

// Health runs the daemon's self health check.
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	var result HealthResult
	err := c.Call(ctx, MethodHealth, nil, &result)
	return result, err
}

// VersionResult is the decoded "version" result.
type VersionResult struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// Version fetches the daemon's build version.
func (c *Client) Version(ctx context.Context) (VersionResult, error) {
	var result VersionResult
	err := c.Call(ctx, MethodVersion, nil, &result)
	return result, err
}

// ConfigGetParams selects a config subtree by dotted key, or the whole
// config when empty.
type ConfigGetParams struct {
	Key string `json:"key,omitempty"`
}

// ConfigGetResult carries the raw config value, left undecoded since
// the daemon's config shape isn't this package's concern.
type ConfigGetResult struct {
	Value map[string]interface{} `json:"value"`
}

// ConfigGet fetches the daemon's live configuration (or a subtree of it).
func (c *Client) ConfigGet(ctx context.Context, key string) (ConfigGetResult, error) {
	var result ConfigGetResult
	err := c.Call(ctx, MethodConfigGet, ConfigGetParams{Key: key}, &result)
	return result, err
}

// ConfigReload asks the daemon to re-read its configuration file from
// disk, the server-side counterpart of internal/config's own
// file-watch hot reload.
func (c *Client) ConfigReload(ctx context.Context) error {
	return c.Call(ctx, MethodConfigReload, nil, nil)
}

// Shutdown asks the daemon to terminate gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.Call(ctx, MethodShutdown, nil, nil)
}

// LLMStatusResult mirrors the fields of internal/degradation's Status
// plus model-load state, since the daemon owns the live model process
// that the degradation layer's mode depends on.
type LLMStatusResult struct {
	Mode        string `json:"mode"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelName   string `json:"model_name,omitempty"`
	APIHealthy  bool   `json:"api_healthy"`
	APIFailures int    `json:"api_failures"`
}

// LLMStatus reports the daemon-managed model's load state.
func (c *Client) LLMStatus(ctx context.Context) (LLMStatusResult, error) {
	var result LLMStatusResult
	err := c.Call(ctx, MethodLLMStatus, nil, &result)
	return result, err
}

// LLMLoadParams selects which model to load.
type LLMLoadParams struct {
	ModelName string `json:"model_name"`
}

// LLMLoad asks the daemon to load a model, using the extended
// model-load deadline.
func (c *Client) LLMLoad(ctx context.Context, modelName string) error {
	return c.Call(ctx, MethodLLMLoad, LLMLoadParams{ModelName: modelName}, nil)
}

// LLMUnload asks the daemon to unload its currently loaded model.
func (c *Client) LLMUnload(ctx context.Context) error {
	return c.Call(ctx, MethodLLMUnload, nil, nil)
}

// LLMInferParams is a raw inference request forwarded to the
// daemon-managed model.
type LLMInferParams struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// LLMInferResult is the decoded inference response.
type LLMInferResult struct {
	Completion string `json:"completion"`
	TokensUsed int    `json:"tokens_used"`
}

// LLMInfer runs an inference request through the daemon-managed model,
// using the extended inference deadline.
func (c *Client) LLMInfer(ctx context.Context, params LLMInferParams) (LLMInferResult, error) {
	var result LLMInferResult
	err := c.Call(ctx, MethodLLMInfer, params, &result)
	return result, err
}
