package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"cortex/internal/cache"
	"cortex/internal/config"
	"cortex/internal/daemon"
	"cortex/internal/degradation"
	"cortex/internal/depgraph"
	"cortex/internal/embedding"
	"cortex/internal/history"
	"cortex/internal/impact"
	"cortex/internal/interpreter"
	"cortex/internal/llm"
	"cortex/internal/memory"
	"cortex/internal/usage"
)

// App bundles every engine component the CLI commands call into, built
// once at startup from the resolved configuration.
type App struct {
	Config       *config.Config
	Router       *llm.Router
	Interpreter  *interpreter.Interpreter
	Degradation  *degradation.Degradation
	DepGraph     *depgraph.Graph
	Impact       *impact.Analyzer
	Transactions *history.TransactionHistory
	Undo         *history.UndoManager
	Ledger       *history.InstallationLedger
	Memory       *memory.Memory
	Usage        *usage.Tracker
	Daemon       *daemon.Client
	Cache        *cache.Cache
}

// parseFakeCommands accepts either a JSON array of strings or a
// newline-separated list.
func parseFakeCommands(raw string) []string {
	var commands []string
	if err := json.Unmarshal([]byte(raw), &commands); err == nil {
		return commands
	}
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			commands = append(commands, trimmed)
		}
	}
	return commands
}

// buildApp constructs every engine component from cfg. Components that
// require network services (Ollama, cloud LLM providers) are
// constructed lazily/optimistically: failures to reach them surface
// later, at call time, rather than preventing the CLI from starting.
func buildApp(cfg *config.Config) (*App, error) {
	if err := config.EnsureHome(cfg.Home); err != nil {
		return nil, fmt.Errorf("create cortex home: %w", err)
	}

	tracker, err := usage.NewTracker(cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("usage tracker: %w", err)
	}

	providers := map[llm.ProviderName]llm.Provider{
		llm.ProviderOllama: llm.NewOllamaProvider(cfg.LLM.OllamaHost, cfg.LLM.OllamaModel),
	}
	if cfg.LLM.AnthropicAPIKey != "" {
		providers[llm.ProviderClaude] = llm.NewClaudeProvider(cfg.LLM.AnthropicAPIKey, cfg.LLM.ClaudeModel)
	}
	if cfg.LLM.MoonshotAPIKey != "" {
		providers[llm.ProviderKimi] = llm.NewKimiProvider(cfg.LLM.MoonshotAPIKey, cfg.LLM.KimiModel)
	}
	if cfg.LLM.FakeResponse != "" {
		providers[llm.ProviderOllama] = llm.NewStaticProvider(llm.ProviderOllama, cfg.LLM.FakeResponse)
	}

	router := llm.NewRouter(providers, llm.RouterConfig{
		ForceProvider:  llm.ProviderName(cfg.LLM.ForceProvider),
		EnableFallback: cfg.LLM.EnableFallback,
	}, tracker)

	embedder := embedding.NewHashEmbedder()

	respCache, err := cache.Open(cfg.Cache.DBPath, embedder, cache.Config{
		MaxEntries:          cfg.Cache.MaxEntries,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		CandidateLimit:      cfg.Cache.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("response cache: %w", err)
	}

	interpOpts := []interpreter.Option{interpreter.WithCache(respCache)}
	if cfg.LLM.FakeCommands != "" {
		interpOpts = append(interpOpts, interpreter.WithFakeCommands(parseFakeCommands(cfg.LLM.FakeCommands)))
	}
	if askOffline {
		interpOpts = append(interpOpts, interpreter.WithOffline(true))
	}
	interp := interpreter.New(router, interpOpts...)

	degr, err := degradation.New(cfg.Degradation.ResponseCacheDBPath)
	if err != nil {
		return nil, fmt.Errorf("degradation: %w", err)
	}

	graph := depgraph.New(cfg.DepGraph.CacheFilePath,
		depgraph.WithMaxDepth(cfg.DepGraph.MaxDepth),
	)

	txHistory, err := history.Open(cfg.History.TransactionDBPath)
	if err != nil {
		return nil, fmt.Errorf("transaction history: %w", err)
	}

	ledger, err := history.OpenLedger(cfg.History.InstallationDBPath)
	if err != nil {
		return nil, fmt.Errorf("installation ledger: %w", err)
	}

	mem, err := memory.Open(cfg.Memory.DBPath)
	if err != nil {
		return nil, fmt.Errorf("context memory: %w", err)
	}

	return &App{
		Config:       cfg,
		Router:       router,
		Interpreter:  interp,
		Degradation:  degr,
		DepGraph:     graph,
		Impact:       impact.New(graph),
		Transactions: txHistory,
		Undo:         history.NewUndoManager(txHistory),
		Ledger:       ledger,
		Memory:       mem,
		Usage:        tracker,
		Daemon:       daemon.NewClient(daemon.DefaultSocketPath),
		Cache:        respCache,
	}, nil
}
