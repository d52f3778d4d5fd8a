// Package config holds Cortex's configuration tree: a single yaml-tagged
// struct loaded from ~/.cortex/config.yaml with environment-variable
// overrides applied afterward.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all Cortex configuration.
type Config struct {
	// Home is the resolved ~/.cortex directory. Not serialized.
	Home string `yaml:"-"`

	LLM         LLMConfig         `yaml:"llm"`
	Cache       CacheConfig       `yaml:"cache"`
	Degradation DegradationConfig `yaml:"degradation"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	DepGraph    DepGraphConfig    `yaml:"depgraph"`
	History     HistoryConfig     `yaml:"history"`
	Memory      MemoryConfig      `yaml:"memory"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Logging     LoggingConfig     `yaml:"logging"`

	// senseHistory records whether CORTEX_SENSE_HISTORY was set. Shell
	// history scraping itself is out of scope (Non-goal); this only lets
	// callers detect the request was made.
	senseHistory bool
}

// SenseHistoryRequested reports whether CORTEX_SENSE_HISTORY was set.
func (c *Config) SenseHistoryRequested() bool {
	return c.senseHistory
}

// DefaultConfig returns the default configuration with the standard
// ~/.cortex on-disk layout.
func DefaultConfig() *Config {
	home := defaultHome()
	return &Config{
		Home: home,
		LLM: LLMConfig{
			Provider:       "ollama",
			EnableFallback: true,
			TimeoutSeconds: 60,
			OllamaHost:     "http://localhost:11434",
			OllamaModel:    "llama3",
		},
		Cache: CacheConfig{
			MaxEntries:          500,
			SimilarityThreshold: 0.86,
			CandidateLimit:      200,
			DBPath:              filepath.Join(home, "cache.db"),
		},
		Degradation: DegradationConfig{
			MaxFailuresBeforeFallback: 3,
			ResponseCacheDBPath:       filepath.Join(home, "response_cache.db"),
			StaleEntryDays:            30,
		},
		Coordinator: CoordinatorConfig{
			DefaultStepTimeoutSeconds: 300,
			VerifyTimeoutSeconds:      30,
		},
		DepGraph: DepGraphConfig{
			CacheMaxAgeSeconds: 3600,
			CacheFilePath:      filepath.Join(home, "dep_graph_cache.json"),
			MaxDepth:           10,
		},
		History: HistoryConfig{
			TransactionDBPath:  filepath.Join(home, "transaction_history.db"),
			InstallationDBPath: systemInstallationHistoryPath(home),
		},
		Memory: MemoryConfig{
			DBPath: filepath.Join(home, "context_memory.db"),
		},
		Persistence: PersistenceConfig{
			MaxConnectionsPerDB: 5,
			BusyTimeoutMs:       5000,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".cortex")
}

// systemInstallationHistoryPath picks the history DB location: the system-wide
// default for history.db is /var/lib/cortex/history.db; on permission
// failure, transparently fall back to ~/.cortex/history.db.
func systemInstallationHistoryPath(home string) string {
	const systemPath = "/var/lib/cortex"
	if err := os.MkdirAll(systemPath, 0755); err == nil {
		probe := filepath.Join(systemPath, ".write_probe")
		if f, werr := os.Create(probe); werr == nil {
			f.Close()
			os.Remove(probe)
			return filepath.Join(systemPath, "history.db")
		}
	}
	return filepath.Join(home, "history.db")
}

// Load reads a YAML config file, falling back to defaults for anything not
// present. A missing file is not an error; it yields DefaultConfig().
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		ApplyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes the config back to disk as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureHome creates the Cortex home directory (world-unreadable, since
// it holds .env credentials) if it does not already exist.
func EnsureHome(home string) error {
	return os.MkdirAll(home, 0700)
}
