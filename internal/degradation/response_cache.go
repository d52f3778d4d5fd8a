package degradation

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cortex/internal/cache"
	"cortex/internal/persistence"
)

// CachedResponse is one stored LLM response.
type CachedResponse struct {
	QueryHash string
	Query     string
	Response  string
	CreatedAt time.Time
	HitCount  int64
	LastUsed  *time.Time
}

// ResponseCacheStats summarizes the response-cache table.
type ResponseCacheStats struct {
	TotalEntries int64
	TotalHits    int64
}

// ResponseCache is the SQLite-backed offline response store,
// separate from internal/cache's command cache: this caches raw LLM text
// responses keyed by query hash only, with no embedding similarity path
// (keyword overlap is used instead, see GetSimilar).
type ResponseCache struct {
	db *sql.DB
}

// OpenResponseCache opens (creating if absent) the response cache
// database and ensures its schema exists.
func OpenResponseCache(path string) (*ResponseCache, error) {
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("degradation: open response cache %s: %w", path, err)
	}
	rc := &ResponseCache{db: db}
	if err := rc.migrate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *ResponseCache) migrate() error {
	_, err := rc.db.Exec(`
CREATE TABLE IF NOT EXISTS response_cache (
	query_hash TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	response TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	hit_count INTEGER NOT NULL DEFAULT 0,
	last_used DATETIME
);
CREATE INDEX IF NOT EXISTS idx_response_cache_last_used ON response_cache(last_used);
`)
	if err != nil {
		return fmt.Errorf("degradation: migrate response cache: %w", err)
	}
	return nil
}

// Get retrieves a cached response by query, bumping its hit count and
// last_used timestamp on a hit.
func (rc *ResponseCache) Get(query string) (CachedResponse, bool) {
	hash := cache.HashKey(query)

	var resp CachedResponse
	var createdAt time.Time
	row := rc.db.QueryRow(`SELECT query_hash, query, response, created_at, hit_count FROM response_cache WHERE query_hash = ?`, hash)
	if err := row.Scan(&resp.QueryHash, &resp.Query, &resp.Response, &createdAt, &resp.HitCount); err != nil {
		return CachedResponse{}, false
	}
	resp.CreatedAt = createdAt
	resp.HitCount++

	rc.db.Exec(`UPDATE response_cache SET hit_count = hit_count + 1, last_used = CURRENT_TIMESTAMP WHERE query_hash = ?`, hash)
	now := time.Now()
	resp.LastUsed = &now
	return resp, true
}

// Put stores (or overwrites) a query/response pair.
func (rc *ResponseCache) Put(query, response string) CachedResponse {
	hash := cache.HashKey(query)
	rc.db.Exec(`
INSERT INTO response_cache (query_hash, query, response, created_at, hit_count, last_used)
VALUES (?, ?, ?, CURRENT_TIMESTAMP, 0, NULL)
ON CONFLICT(query_hash) DO UPDATE SET query = excluded.query, response = excluded.response,
	created_at = CURRENT_TIMESTAMP, hit_count = 0, last_used = NULL`,
		hash, query, response)
	return CachedResponse{QueryHash: hash, Query: query, Response: response, CreatedAt: time.Now()}
}

// GetSimilar returns up to limit cached responses ranked by keyword
// overlap with query, scanning the 100 most-hit entries. This is a
// cheap fallback distinct from internal/cache's embedding similarity
// search; keyword set intersection only.
func (rc *ResponseCache) GetSimilar(query string, limit int) []CachedResponse {
	keywords := wordSet(query)
	if len(keywords) == 0 {
		return nil
	}

	rows, err := rc.db.Query(`SELECT query_hash, query, response, created_at, hit_count FROM response_cache ORDER BY hit_count DESC LIMIT 100`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	type scored struct {
		resp    CachedResponse
		overlap int
	}
	var candidates []scored
	for rows.Next() {
		var r CachedResponse
		var createdAt time.Time
		if err := rows.Scan(&r.QueryHash, &r.Query, &r.Response, &createdAt, &r.HitCount); err != nil {
			continue
		}
		r.CreatedAt = createdAt
		overlap := len(intersect(keywords, wordSet(r.Query)))
		if overlap > 0 {
			candidates = append(candidates, scored{resp: r, overlap: overlap})
		}
	}

	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].overlap > candidates[j-1].overlap; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]CachedResponse, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, candidates[i].resp)
	}
	return out
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func intersect(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for w := range a {
		if b[w] {
			out[w] = true
		}
	}
	return out
}

// ClearOldEntries deletes entries created more than days ago, returning
// the number of rows removed.
func (rc *ResponseCache) ClearOldEntries(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res, err := rc.db.Exec(`DELETE FROM response_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("degradation: clear old entries: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns entry count and total hit count.
func (rc *ResponseCache) Stats() (ResponseCacheStats, error) {
	var entries, hits sql.NullInt64
	row := rc.db.QueryRow(`SELECT COUNT(*), SUM(hit_count) FROM response_cache`)
	if err := row.Scan(&entries, &hits); err != nil {
		return ResponseCacheStats{}, fmt.Errorf("degradation: stats: %w", err)
	}
	return ResponseCacheStats{TotalEntries: entries.Int64, TotalHits: hits.Int64}, nil
}
