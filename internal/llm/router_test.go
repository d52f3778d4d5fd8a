package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type fakeProvider struct {
	name      ProviderName
	available bool
	err       error
	resp      Response
}

func (f *fakeProvider) Name() ProviderName                 { return f.name }
func (f *fakeProvider) Model() string                      { return "fake-model" }
func (f *fakeProvider) Available(ctx context.Context) bool { return f.available }
func (f *fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if f.err != nil {
		return Response{}, f.err
	}
	resp := f.resp
	resp.Provider = f.name
	return resp, nil
}

func TestRouter_RoutesDefaultTaskToOllama(t *testing.T) {
	ollama := &fakeProvider{name: ProviderOllama, available: true, resp: Response{Content: "hi"}}
	r := NewRouter(map[ProviderName]Provider{ProviderOllama: ollama}, RouterConfig{EnableFallback: true}, nil)

	resp, err := r.Complete(context.Background(), TaskUserChat, Request{Messages: []Message{{Role: "user", Content: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, resp.Provider)
}

func TestRouter_FallsBackWhenPreferredUnavailable(t *testing.T) {
	ollama := &fakeProvider{name: ProviderOllama, available: false}
	claude := &fakeProvider{name: ProviderClaude, available: true, resp: Response{Content: "hi from claude"}}
	r := NewRouter(map[ProviderName]Provider{ProviderOllama: ollama, ProviderClaude: claude}, RouterConfig{EnableFallback: true}, nil)

	resp, err := r.Complete(context.Background(), TaskUserChat, Request{})
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, resp.Provider)
}

func TestRouter_FallsBackOnProviderError(t *testing.T) {
	ollama := &fakeProvider{name: ProviderOllama, available: true, err: errors.New("boom")}
	claude := &fakeProvider{name: ProviderClaude, available: true, resp: Response{Content: "recovered"}}
	r := NewRouter(map[ProviderName]Provider{ProviderOllama: ollama, ProviderClaude: claude}, RouterConfig{EnableFallback: true}, nil)

	resp, err := r.Complete(context.Background(), TaskUserChat, Request{})
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, resp.Provider, "should recover via fallback")
}

func TestRouter_NoProviderAvailable(t *testing.T) {
	r := NewRouter(map[ProviderName]Provider{}, RouterConfig{EnableFallback: true}, nil)

	_, err := r.Complete(context.Background(), TaskUserChat, Request{})
	require.ErrorIs(t, err, ErrNoProviderAvailable)
}

func TestRouter_ForceProviderOverridesRouting(t *testing.T) {
	ollama := &fakeProvider{name: ProviderOllama, available: true, resp: Response{Content: "ollama"}}
	kimi := &fakeProvider{name: ProviderKimi, available: true, resp: Response{Content: "kimi"}}
	r := NewRouter(map[ProviderName]Provider{ProviderOllama: ollama, ProviderKimi: kimi}, RouterConfig{ForceProvider: ProviderKimi}, nil)

	resp, err := r.Complete(context.Background(), TaskUserChat, Request{})
	require.NoError(t, err)
	assert.Equal(t, ProviderKimi, resp.Provider)
}

func TestRouter_ForceProviderFailsWithoutFallback(t *testing.T) {
	r := NewRouter(map[ProviderName]Provider{}, RouterConfig{ForceProvider: ProviderClaude}, nil)

	_, err := r.Complete(context.Background(), TaskUserChat, Request{})
	require.Error(t, err)
}

func TestRouter_CompleteBatchPreservesOrder(t *testing.T) {
	ollama := &fakeProvider{name: ProviderOllama, available: true, resp: Response{Content: "ok"}}
	r := NewRouter(map[ProviderName]Provider{ProviderOllama: ollama}, RouterConfig{EnableFallback: true}, nil)

	reqs := make([]BatchRequest, 5)
	for i := range reqs {
		reqs[i] = BatchRequest{TaskType: TaskUserChat, Request: Request{}}
	}
	results := r.CompleteBatch(context.Background(), reqs, 2)
	require.Len(t, results, 5)
	for i, resp := range results {
		assert.Equal(t, "ok", resp.Content, "results[%d]", i)
	}
}

func TestRouter_CompleteBatchReportsPerRequestErrors(t *testing.T) {
	failing := &fakeProvider{name: ProviderOllama, available: true, err: errors.New("boom")}
	r := NewRouter(map[ProviderName]Provider{ProviderOllama: failing}, RouterConfig{EnableFallback: false}, nil)

	results := r.CompleteBatch(context.Background(), []BatchRequest{{TaskType: TaskUserChat}}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Model)
	assert.Empty(t, results[0].Content)
}
