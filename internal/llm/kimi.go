package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cortex/internal/logging"
)

// KimiProvider serves completions via Moonshot's Kimi K2, an
// OpenAI-compatible chat completions API. There is no ecosystem Go SDK
// for Moonshot in the example pack, so this talks the OpenAI-compatible
// wire format directly with net/http and encoding/json, as ollama.go
// does (see DESIGN.md).
type KimiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewKimiProvider builds a Kimi provider bound to apiKey/model.
func NewKimiProvider(apiKey, model string) *KimiProvider {
	if model == "" {
		model = "kimi-k2-instruct"
	}
	return &KimiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.moonshot.ai/v1",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *KimiProvider) Name() ProviderName { return ProviderKimi }
func (p *KimiProvider) Model() string      { return p.model }

func (p *KimiProvider) Available(ctx context.Context) bool {
	return p.apiKey != ""
}

type kimiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type kimiChatRequest struct {
	Model       string            `json:"model"`
	Messages    []kimiChatMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type kimiChatResponse struct {
	Choices []struct {
		Message kimiChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete scales temperature by 0.6 per Kimi K2's recommended sampling
// range.
func (p *KimiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	log := logging.Get(logging.CategoryRouter)

	messages := make([]kimiChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, kimiChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(kimiChatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature * 0.6,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("kimi: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("kimi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("kimi: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("kimi: read response: %w", err)
	}

	var result kimiChatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return Response{}, fmt.Errorf("kimi: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return Response{}, fmt.Errorf("kimi: status %d: %s", resp.StatusCode, result.Error.Message)
		}
		return Response{}, fmt.Errorf("kimi: status %d: %s", resp.StatusCode, string(raw))
	}
	if len(result.Choices) == 0 {
		return Response{}, fmt.Errorf("kimi: no choices in response")
	}

	cost := costUSD(ProviderKimi, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	log.Debug("kimi completion: model=%s input_tokens=%d output_tokens=%d cost_usd=%.6f", p.model, result.Usage.PromptTokens, result.Usage.CompletionTokens, cost)

	return Response{
		Content:      result.Choices[0].Message.Content,
		Provider:     ProviderKimi,
		Model:        p.model,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		CostUSD:      cost,
		Raw:          result,
	}, nil
}
