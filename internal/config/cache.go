package config

// CacheConfig tunes the semantic command cache.
type CacheConfig struct {
	MaxEntries          int     `yaml:"max_entries"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// CandidateLimit bounds the linear similarity scan;
	// a linear scan, not an ANN index.
	CandidateLimit int    `yaml:"candidate_limit"`
	DBPath         string `yaml:"db_path"`
}

// DegradationConfig tunes the graceful-degradation state machine and its
// own response cache, kept distinct from the semantic command cache.
type DegradationConfig struct {
	MaxFailuresBeforeFallback int    `yaml:"max_failures_before_fallback"`
	ResponseCacheDBPath       string `yaml:"response_cache_db_path"`
	StaleEntryDays            int    `yaml:"stale_entry_days"`
}
