// Package memory implements the context-memory learner: an
// interaction ledger, frequency-based pattern mining, a suggestion
// engine, and a small user-preference store, all backed by one SQLite
// database.
package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cortex/internal/logging"
	"cortex/internal/persistence"
)

// Entry is one recorded interaction.
type Entry struct {
	ID         int64
	Timestamp  time.Time
	Category   string
	Context    string
	Action     string
	Result     string
	Success    bool
	Confidence float64
	Frequency  int
	Metadata   map[string]interface{}
}

// Pattern is a mined recurring (category, action) pair.
type Pattern struct {
	PatternID   string
	PatternType string
	Description string
	Frequency   int
	LastSeen    time.Time
	Confidence  float64
	Actions     []string
	Context     map[string]interface{}
}

// SuggestionType classifies a generated suggestion.
type SuggestionType string

const (
	SuggestionOptimization SuggestionType = "optimization"
	SuggestionAlternative  SuggestionType = "alternative"
	SuggestionWarning      SuggestionType = "warning"
)

// Suggestion is an AI-generated recommendation surfaced to the user.
type Suggestion struct {
	SuggestionID string
	Type         SuggestionType
	Title        string
	Description  string
	Confidence   float64
	BasedOn      []string
	CreatedAt    time.Time
	Dismissed    bool
}

// Memory is the SQLite-backed context memory store.
type Memory struct {
	db *sql.DB
}

// Open opens (creating if absent) the context memory database at path
// and ensures its schema exists.
func Open(path string) (*Memory, error) {
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", path, err)
	}
	m := &Memory{db: db}
	if err := m.migrate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) migrate() error {
	_, err := m.db.Exec(`
CREATE TABLE IF NOT EXISTS memory_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	category TEXT NOT NULL,
	context TEXT,
	action TEXT NOT NULL,
	result TEXT,
	success INTEGER NOT NULL DEFAULT 1,
	confidence REAL NOT NULL DEFAULT 1.0,
	frequency INTEGER NOT NULL DEFAULT 1,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_memory_category ON memory_entries(category);
CREATE INDEX IF NOT EXISTS idx_memory_timestamp ON memory_entries(timestamp);

CREATE TABLE IF NOT EXISTS patterns (
	pattern_id TEXT PRIMARY KEY,
	pattern_type TEXT NOT NULL,
	description TEXT,
	frequency INTEGER NOT NULL DEFAULT 1,
	last_seen TEXT,
	confidence REAL NOT NULL DEFAULT 0.0,
	actions TEXT,
	context TEXT
);
CREATE INDEX IF NOT EXISTS idx_patterns_type ON patterns(pattern_type);

CREATE TABLE IF NOT EXISTS suggestions (
	suggestion_id TEXT PRIMARY KEY,
	suggestion_type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	confidence REAL NOT NULL DEFAULT 0.0,
	based_on TEXT,
	created_at TEXT,
	dismissed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_suggestions_type ON suggestions(suggestion_type);

CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT,
	category TEXT,
	updated_at TEXT
);
`)
	if err != nil {
		return fmt.Errorf("memory: migrate: %w", err)
	}
	return nil
}

// RecordInteraction inserts entry and triggers pattern mining over
// recent same-category entries, returning the new entry's row ID.
func (m *Memory) RecordInteraction(ctx context.Context, entry Entry) (int64, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Confidence == 0 {
		entry.Confidence = 1.0
	}
	if entry.Frequency == 0 {
		entry.Frequency = 1
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return 0, err
	}

	res, err := m.db.Exec(`
INSERT INTO memory_entries
	(timestamp, category, context, action, result, success, confidence, frequency, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.Category, entry.Context, entry.Action,
		entry.Result, boolToInt(entry.Success), entry.Confidence, entry.Frequency, string(metadataJSON),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := m.minePatterns(entry.Category, entry.Timestamp); err != nil {
		logging.Get(logging.CategoryMemory).Warn("pattern mining failed for category %q: %v", entry.Category, err)
	}

	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// minePatterns groups recent (<=30 day)
// actions within category by count, and upsert a patterns row for any
// (category, action) pair seen >= 3 times.
func (m *Memory) minePatterns(category string, at time.Time) error {
	cutoff := at.AddDate(0, 0, -30).Format(time.RFC3339Nano)

	rows, err := m.db.Query(`
SELECT action, COUNT(*) FROM memory_entries
WHERE category = ? AND timestamp > ?
GROUP BY action
HAVING COUNT(*) >= 3`, category, cutoff)
	if err != nil {
		return err
	}
	defer rows.Close()

	type hit struct {
		action string
		count  int
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.action, &h.count); err != nil {
			continue
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, h := range hits {
		patternID := generatePatternID(category, h.action)
		actionsJSON, _ := json.Marshal([]string{h.action})
		contextJSON, _ := json.Marshal(map[string]interface{}{"category": category})
		confidence := minFloat(1.0, float64(h.count)/10.0)

		_, err := m.db.Exec(`
INSERT INTO patterns (pattern_id, pattern_type, description, frequency, last_seen, confidence, actions, context)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(pattern_id) DO UPDATE SET
	frequency = excluded.frequency,
	last_seen = excluded.last_seen,
	confidence = MIN(1.0, patterns.confidence + 0.1)`,
			patternID, category, "Recurring pattern: "+h.action, h.count, at.Format(time.RFC3339Nano),
			confidence, string(actionsJSON), string(contextJSON),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func generatePatternID(category, action string) string {
	sum := sha256.Sum256([]byte(category + ":" + action))
	return hex.EncodeToString(sum[:])[:16]
}

// GetPatterns returns patterns at or above minConfidence, optionally
// restricted to patternType, ordered by confidence then frequency.
func (m *Memory) GetPatterns(patternType string, minConfidence float64) ([]Pattern, error) {
	query := `SELECT pattern_id, pattern_type, description, frequency, last_seen, confidence, actions, context FROM patterns WHERE confidence >= ?`
	args := []interface{}{minConfidence}
	if patternType != "" {
		query += ` AND pattern_type = ?`
		args = append(args, patternType)
	}
	query += ` ORDER BY confidence DESC, frequency DESC`

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		var lastSeen, actionsJSON, contextJSON string
		if err := rows.Scan(&p.PatternID, &p.PatternType, &p.Description, &p.Frequency, &lastSeen, &p.Confidence, &actionsJSON, &contextJSON); err != nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, lastSeen); err == nil {
			p.LastSeen = ts
		}
		_ = json.Unmarshal([]byte(actionsJSON), &p.Actions)
		_ = json.Unmarshal([]byte(contextJSON), &p.Context)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// GetSimilarInteractions finds past entries whose context or action
// shares a keyword with contextText, via a keyword LIKE scan.
func (m *Memory) GetSimilarInteractions(contextText string, limit int) ([]Entry, error) {
	keywords := extractKeywords(contextText)

	seen := map[int64]bool{}
	var results []Entry
	for _, kw := range keywords {
		rows, err := m.db.Query(`
SELECT id, timestamp, category, context, action, result, success, confidence, frequency, metadata
FROM memory_entries
WHERE context LIKE ? OR action LIKE ?
ORDER BY timestamp DESC
LIMIT ?`, "%"+kw+"%", "%"+kw+"%", limit)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				continue
			}
			if !seen[e.ID] {
				seen[e.ID] = true
				results = append(results, e)
			}
		}
		rows.Close()
		if len(results) >= limit {
			break
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

var wordPattern = regexp.MustCompile(`\w+`)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true, "with": true,
}

func extractKeywords(text string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if !stopwords[w] && len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scannable) (Entry, error) {
	var e Entry
	var timestamp, contextStr, action, result, metadataJSON sql.NullString
	var success int
	if err := row.Scan(&e.ID, &timestamp, &e.Category, &contextStr, &action, &result, &success, &e.Confidence, &e.Frequency, &metadataJSON); err != nil {
		return Entry{}, err
	}
	e.Context = contextStr.String
	e.Action = action.String
	e.Result = result.String
	e.Success = success != 0
	if ts, err := time.Parse(time.RFC3339Nano, timestamp.String); err == nil {
		e.Timestamp = ts
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		_ = json.Unmarshal([]byte(metadataJSON.String), &e.Metadata)
	}
	return e, nil
}
