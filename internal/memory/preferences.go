package memory

import (
	"database/sql"
	"encoding/json"
	"time"

	"cortex/internal/persistence"
)

// SetPreference stores or updates a user preference under category
// (default "general" if empty).
func (m *Memory) SetPreference(key string, value interface{}, category string) error {
	if category == "" {
		category = "general"
	}
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339Nano)

	_, err = m.db.Exec(`
INSERT INTO preferences (key, value, category, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at`,
		key, string(valueJSON), category, now,
	)
	return err
}

// GetPreference retrieves a preference's decoded value into out,
// reporting whether the key was found.
func (m *Memory) GetPreference(key string, out interface{}) (bool, error) {
	row := m.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, err
	}
	return true, nil
}

// ExportLearningHistory writes a JSON snapshot of all mined patterns
// (any confidence) and summary statistics to path (the learning_history.json
// file in the Cortex home), replacing any previous snapshot atomically.
func (m *Memory) ExportLearningHistory(path string) error {
	patterns, err := m.GetPatterns("", 0.0)
	if err != nil {
		return err
	}
	stats, err := m.GetStatistics()
	if err != nil {
		return err
	}

	snapshot := struct {
		ExportedAt time.Time `json:"exported_at"`
		Stats      Stats     `json:"stats"`
		Patterns   []Pattern `json:"patterns"`
	}{
		ExportedAt: time.Now(),
		Stats:      stats,
		Patterns:   patterns,
	}

	return persistence.LockedUpdate(path, func(existing []byte) ([]byte, error) {
		return json.MarshalIndent(snapshot, "", "  ")
	})
}

// Stats summarizes the memory store's contents.
type Stats struct {
	TotalEntries      int
	ByCategory        map[string]int
	SuccessRate       float64
	TotalPatterns     int
	ActiveSuggestions int
	RecentActivity    int
}

// GetStatistics computes summary counters over all three tables.
func (m *Memory) GetStatistics() (Stats, error) {
	stats := Stats{ByCategory: map[string]int{}}

	if err := m.db.QueryRow(`SELECT COUNT(*) FROM memory_entries`).Scan(&stats.TotalEntries); err != nil {
		return stats, err
	}

	rows, err := m.db.Query(`SELECT category, COUNT(*) FROM memory_entries GROUP BY category`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err == nil {
			stats.ByCategory[cat] = n
		}
	}
	rows.Close()

	if stats.TotalEntries > 0 {
		var successRate sql.NullFloat64
		err := m.db.QueryRow(`
SELECT SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) * 100.0 / COUNT(*) FROM memory_entries`).Scan(&successRate)
		if err != nil {
			return stats, err
		}
		stats.SuccessRate = successRate.Float64
	}

	if err := m.db.QueryRow(`SELECT COUNT(*) FROM patterns`).Scan(&stats.TotalPatterns); err != nil {
		return stats, err
	}
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM suggestions WHERE dismissed = 0`).Scan(&stats.ActiveSuggestions); err != nil {
		return stats, err
	}

	cutoff := time.Now().AddDate(0, 0, -7).Format(time.RFC3339Nano)
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM memory_entries WHERE timestamp > ?`, cutoff).Scan(&stats.RecentActivity); err != nil {
		return stats, err
	}

	return stats, nil
}
