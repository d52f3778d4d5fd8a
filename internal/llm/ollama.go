package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cortex/internal/logging"
)

// OllamaProvider serves completions from a local Ollama daemon through
// its HTTP chat endpoint, using net/http and encoding/json.
type OllamaProvider struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaProvider builds an Ollama provider. endpoint/model default to
// "http://localhost:11434" / "llama3" when empty.
func NewOllamaProvider(endpoint, model string) *OllamaProvider {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaProvider{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OllamaProvider) Name() ProviderName { return ProviderOllama }
func (p *OllamaProvider) Model() string      { return p.model }

// Available checks that the local Ollama HTTP API responds to a
// tags-endpoint listing with HTTP 200.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaChatOptions   `json:"options,omitempty"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string            `json:"model"`
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// Complete sends the chat request to Ollama's /api/chat endpoint. Ollama
// does not report token counts on non-streamed chat responses in the way
// cloud providers do, so tokens are approximated by a word-count
// heuristic, and cost is always zero.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (Response, error) {
	log := logging.Get(logging.CategoryRouter)

	messages := make([]ollamaChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaChatOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	})
	if err != nil {
		return Response{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	estTokens := int(float64(len(strings.Fields(result.Message.Content))) * 1.3)
	log.Debug("ollama completion: model=%s estimated_tokens=%d", result.Model, estTokens)

	return Response{
		Content:      result.Message.Content,
		Provider:     ProviderOllama,
		Model:        result.Model,
		InputTokens:  0,
		OutputTokens: estTokens,
		CostUSD:      0,
		Raw:          result,
	}, nil
}
