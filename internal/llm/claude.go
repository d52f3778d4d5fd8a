package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"cortex/internal/logging"
)

// ClaudeProvider serves completions via the Anthropic Messages API.
type ClaudeProvider struct {
	client *anthropic.Client
	model  string
	apiKey string
}

// NewClaudeProvider builds a Claude provider bound to apiKey/model. The
// client is constructed even with an empty apiKey; Available reports
// false in that case rather than NewClaudeProvider returning an error, so
// callers can build the full provider map unconditionally and let the
// router skip unconfigured providers.
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeProvider{client: &client, model: model, apiKey: apiKey}
}

func (p *ClaudeProvider) Name() ProviderName { return ProviderClaude }
func (p *ClaudeProvider) Model() string      { return p.model }

// Available reports whether an API key was configured. The SDK has no
// cheap connectivity probe, so presence of credentials is the signal.
func (p *ClaudeProvider) Available(ctx context.Context) bool {
	return p.apiKey != ""
}

func (p *ClaudeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	log := logging.Get(logging.CategoryRouter)

	var systemPrompt string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemPrompt = m.Content
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: param.NewOpt(req.Temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("claude: %w", err)
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	inputTokens := int(message.Usage.InputTokens)
	outputTokens := int(message.Usage.OutputTokens)
	cost := costUSD(ProviderClaude, inputTokens, outputTokens)

	log.Debug("claude completion: model=%s input_tokens=%d output_tokens=%d cost_usd=%.6f", p.model, inputTokens, outputTokens, cost)

	return Response{
		Content:      content,
		Provider:     ProviderClaude,
		Model:        p.model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
		Raw:          message,
	}, nil
}
