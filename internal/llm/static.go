package llm

import "context"

// StaticProvider returns a fixed completion for every request. It backs
// the CORTEX_FAKE_RESPONSE debug affordance so the full pipeline can be
// driven without a live model.
type StaticProvider struct {
	name    ProviderName
	content string
}

// NewStaticProvider builds a provider that always answers with content.
func NewStaticProvider(name ProviderName, content string) *StaticProvider {
	return &StaticProvider{name: name, content: content}
}

func (p *StaticProvider) Name() ProviderName { return p.name }

func (p *StaticProvider) Model() string { return "static" }

func (p *StaticProvider) Available(ctx context.Context) bool { return true }

func (p *StaticProvider) Complete(ctx context.Context, req Request) (Response, error) {
	return Response{Content: p.content, Provider: p.name, Model: "static"}, nil
}
