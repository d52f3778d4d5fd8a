// Package cache implements the semantic command cache: a
// SQLite-backed prompt -> commands store with an exact-hash fast path, a
// hashed-embedding similarity fallback, LRU eviction, and hit/miss stats.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cortex/internal/embedding"
	"cortex/internal/persistence"
)

// Config tunes cache behavior, mirroring config.CacheConfig without
// importing internal/config (kept decoupled so internal/cache has no
// dependency on the ambient configuration package).
type Config struct {
	MaxEntries          int
	SimilarityThreshold float64
	CandidateLimit      int
}

// DefaultConfig returns the stock cache tuning.
func DefaultConfig() Config {
	return Config{MaxEntries: 500, SimilarityThreshold: 0.86, CandidateLimit: 200}
}

// Cache is the semantic command cache.
type Cache struct {
	db       *sql.DB
	embedder embedding.EmbeddingEngine
	cfg      Config

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

// Open opens (creating if absent) the cache database at path and ensures
// its schema exists.
func Open(path string, embedder embedding.EmbeddingEngine, cfg Config) (*Cache, error) {
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}

	c := &Cache{db: db, embedder: embedder, cfg: cfg}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	system_prompt_hash TEXT NOT NULL,
	prompt TEXT NOT NULL,
	prompt_hash TEXT NOT NULL,
	embedding TEXT NOT NULL,
	commands_json TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_accessed DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	hit_count INTEGER NOT NULL DEFAULT 0,
	UNIQUE(provider, model, system_prompt_hash, prompt_hash)
);
CREATE INDEX IF NOT EXISTS idx_cache_lookup ON cache_entries(provider, model, system_prompt_hash);
CREATE INDEX IF NOT EXISTS idx_cache_lru ON cache_entries(last_accessed);
`)
	if err != nil {
		return fmt.Errorf("cache: migrate: %w", err)
	}
	return nil
}

// HashKey returns the first 16 hex characters of
// SHA-256 over the lower-cased, trimmed string.
func HashKey(s string) string {
	normalized := strings.ToLower(strings.TrimSpace(s))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

func encodeEmbedding(vec []float32) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEmbedding(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// Close does not close the cache's database handle. Since
// internal/persistence keeps one handle per path process-wide, this is a
// no-op left for API symmetry; callers should use persistence.CloseAll
// at shutdown instead of closing per-component handles.
func (c *Cache) Close() error { return nil }
