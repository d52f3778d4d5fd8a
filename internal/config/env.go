package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides layers every recognized CORTEX_*/provider environment
// variable on top of a loaded Config. This runs after YAML parsing so
// environment variables always win over the config-file
// values.
func ApplyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("CORTEX_PROVIDER"); ok {
		cfg.LLM.Provider = normalizeProvider(v)
	}
	if v, ok := lookupEnv("ANTHROPIC_API_KEY"); ok {
		cfg.LLM.AnthropicAPIKey = v
	}
	if v, ok := lookupEnv("OPENAI_API_KEY"); ok {
		cfg.LLM.OpenAIAPIKey = v
	}
	if v, ok := lookupEnv("MOONSHOT_API_KEY"); ok {
		cfg.LLM.MoonshotAPIKey = v
	}
	if v, ok := lookupEnv("OLLAMA_HOST"); ok {
		cfg.LLM.OllamaHost = v
	}
	if v, ok := lookupEnv("OLLAMA_MODEL"); ok {
		cfg.LLM.OllamaModel = v
	}
	if v, ok := lookupEnvInt("CORTEX_CACHE_MAX_ENTRIES"); ok {
		cfg.Cache.MaxEntries = v
	}
	if v, ok := lookupEnvFloat("CORTEX_CACHE_SIMILARITY_THRESHOLD"); ok {
		cfg.Cache.SimilarityThreshold = v
	}
	if v, ok := lookupEnvBool("CORTEX_SENSE_HISTORY"); ok {
		// Shell-history scraping is out of scope (Non-goal); the flag is
		// still threaded through so callers can detect it was requested.
		cfg.senseHistory = v
	}
	if v, ok := lookupEnv("CORTEX_FAKE_RESPONSE"); ok {
		cfg.LLM.FakeResponse = v
	}
	if v, ok := lookupEnv("CORTEX_FAKE_COMMANDS"); ok {
		cfg.LLM.FakeCommands = v
	}
	if v, ok := lookupEnvBool("CORTEX_SKIP_OLLAMA_SETUP"); ok {
		cfg.LLM.SkipOllamaInit = v
	}
}

// normalizeProvider canonicalizes provider aliases. "anthropic" is accepted
// as an input alias for "claude" (Open Question decision, DESIGN.md).
func normalizeProvider(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "anthropic":
		return "claude"
	default:
		return strings.ToLower(strings.TrimSpace(v))
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func lookupEnvInt(key string) (int, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupEnvFloat(key string) (float64, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func lookupEnvBool(key string) (bool, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
