package main

import (
	"path/filepath"
	"testing"

	"cortex/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	home := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Home = home
	cfg.Cache.DBPath = filepath.Join(home, "cache.db")
	cfg.Degradation.ResponseCacheDBPath = filepath.Join(home, "response_cache.db")
	cfg.DepGraph.CacheFilePath = filepath.Join(home, "dep_graph_cache.json")
	cfg.History.TransactionDBPath = filepath.Join(home, "transaction_history.db")
	cfg.History.InstallationDBPath = filepath.Join(home, "installation_history.db")
	cfg.Memory.DBPath = filepath.Join(home, "context_memory.db")

	built, err := buildApp(cfg)
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	return built
}

func TestBuildApp_WiresEveryComponent(t *testing.T) {
	a := newTestApp(t)
	if a.Router == nil || a.Interpreter == nil || a.Degradation == nil || a.DepGraph == nil ||
		a.Impact == nil || a.Transactions == nil || a.Undo == nil || a.Ledger == nil ||
		a.Memory == nil || a.Usage == nil || a.Daemon == nil || a.Cache == nil {
		t.Fatal("buildApp left a component nil")
	}
}
