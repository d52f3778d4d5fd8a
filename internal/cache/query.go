package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cortex/internal/embedding"
	"cortex/internal/logging"
)

// Stats holds cache hit/miss/entry counters.
type Stats struct {
	Entries int64
	Hits    int64
	Misses  int64
}

// candidate is one row considered during the similarity fallback scan.
type candidate struct {
	id        int64
	embedding []float32
	commands  []string
}

// GetCommands performs the two-path lookup: an exact match on
// (provider, model, hash(system_prompt), hash(prompt)), falling back to a
// similarity scan over up to CandidateLimit rows sharing
// (provider, model, hash(system_prompt)) ordered by last_accessed DESC.
func (c *Cache) GetCommands(ctx context.Context, prompt, provider, model, systemPrompt string) ([]string, bool) {
	log := logging.Get(logging.CategoryCache)
	spHash := HashKey(systemPrompt)
	pHash := HashKey(prompt)

	if cmds, ok := c.exactLookup(provider, model, spHash, pHash); ok {
		return cmds, true
	}

	queryVec, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		log.Warn("failed to embed prompt for similarity lookup: %v", err)
		c.recordMiss()
		return nil, false
	}

	cands, err := c.loadCandidates(provider, model, spHash)
	if err != nil {
		log.Warn("failed to load candidates: %v", err)
		c.recordMiss()
		return nil, false
	}

	best, bestSim, ok := bestMatch(queryVec, cands)
	if !ok || bestSim < c.cfg.SimilarityThreshold {
		c.recordMiss()
		return nil, false
	}

	if err := c.bumpHit(best.id); err != nil {
		log.Warn("failed to bump hit counters for entry %d: %v", best.id, err)
	}
	c.recordHit()
	return best.commands, true
}

func (c *Cache) exactLookup(provider, model, spHash, pHash string) ([]string, bool) {
	row := c.db.QueryRow(`
SELECT id, commands_json FROM cache_entries
WHERE provider = ? AND model = ? AND system_prompt_hash = ? AND prompt_hash = ?`,
		provider, model, spHash, pHash)

	var id int64
	var commandsJSON string
	if err := row.Scan(&id, &commandsJSON); err != nil {
		return nil, false
	}

	var commands []string
	if err := json.Unmarshal([]byte(commandsJSON), &commands); err != nil || len(commands) == 0 {
		return nil, false
	}

	if err := c.bumpHit(id); err != nil {
		logging.Get(logging.CategoryCache).Warn("failed to bump hit counters for entry %d: %v", id, err)
	}
	c.recordHit()
	return commands, true
}

func (c *Cache) bumpHit(id int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE cache_entries SET last_accessed = CURRENT_TIMESTAMP, hit_count = hit_count + 1 WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Cache) loadCandidates(provider, model, spHash string) ([]candidate, error) {
	rows, err := c.db.Query(`
SELECT id, embedding, commands_json FROM cache_entries
WHERE provider = ? AND model = ? AND system_prompt_hash = ?
ORDER BY last_accessed DESC
LIMIT ?`, provider, model, spHash, c.cfg.CandidateLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var id int64
		var embJSON, commandsJSON string
		if err := rows.Scan(&id, &embJSON, &commandsJSON); err != nil {
			continue
		}
		vec, err := decodeEmbedding(embJSON)
		if err != nil {
			continue
		}
		var commands []string
		if err := json.Unmarshal([]byte(commandsJSON), &commands); err != nil || len(commands) == 0 {
			continue
		}
		out = append(out, candidate{id: id, embedding: vec, commands: commands})
	}
	return out, rows.Err()
}

func bestMatch(query []float32, cands []candidate) (candidate, float64, bool) {
	corpus := make([][]float32, len(cands))
	for i, cd := range cands {
		corpus[i] = cd.embedding
	}
	top := embedding.FindTopK(query, corpus, 1)
	if len(top) == 0 {
		return candidate{}, 0, false
	}
	return cands[top[0].Index], top[0].Similarity, true
}

// PutCommands stores a prompt -> commands mapping, computing and persisting
// the prompt's embedding for future similarity lookups, then evicts LRU
// rows past MaxEntries. Cache writes are advisory: any
// SQLite error here is swallowed upstream rather than propagated.
func (c *Cache) PutCommands(ctx context.Context, prompt, provider, model, systemPrompt string, commands []string) {
	log := logging.Get(logging.CategoryCache)
	if len(commands) == 0 {
		return
	}

	vec, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		log.Warn("failed to embed prompt for storage: %v", err)
		return
	}
	embJSON, err := encodeEmbedding(vec)
	if err != nil {
		log.Warn("failed to encode embedding: %v", err)
		return
	}
	commandsJSON, err := json.Marshal(commands)
	if err != nil {
		log.Warn("failed to encode commands: %v", err)
		return
	}

	spHash := HashKey(systemPrompt)
	pHash := HashKey(prompt)

	_, err = c.db.Exec(`
INSERT INTO cache_entries
	(provider, model, system_prompt_hash, prompt, prompt_hash, embedding, commands_json, last_accessed, hit_count)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, 0)
ON CONFLICT(provider, model, system_prompt_hash, prompt_hash) DO UPDATE SET
	embedding = excluded.embedding,
	commands_json = excluded.commands_json,
	created_at = CURRENT_TIMESTAMP,
	last_accessed = CURRENT_TIMESTAMP`,
		provider, model, spHash, prompt, pHash, embJSON, string(commandsJSON))
	if err != nil {
		log.Warn("failed to store cache entry: %v", err)
		return
	}

	c.evictLRU()
}

// evictLRU deletes the oldest-accessed rows once the table exceeds
// MaxEntries.
func (c *Cache) evictLRU() {
	log := logging.Get(logging.CategoryCache)
	var count int64
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		log.Warn("failed to count cache entries: %v", err)
		return
	}
	if count <= int64(c.cfg.MaxEntries) {
		return
	}

	overflow := count - int64(c.cfg.MaxEntries)
	_, err := c.db.Exec(`
DELETE FROM cache_entries WHERE id IN (
	SELECT id FROM cache_entries ORDER BY last_accessed ASC LIMIT ?
)`, overflow)
	if err != nil {
		log.Warn("failed to evict LRU cache entries: %v", err)
	}
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.misses++
	c.statsMu.Unlock()
}

// Stats returns cache entry count plus process-lifetime hit/miss counts.
func (c *Cache) Stats() (Stats, error) {
	var entries int64
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&entries); err != nil {
		if err == sql.ErrNoRows {
			entries = 0
		} else {
			return Stats{}, fmt.Errorf("cache: stats: %w", err)
		}
	}

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{Entries: entries, Hits: c.hits, Misses: c.misses}, nil
}
