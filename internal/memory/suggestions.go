package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenerateSuggestions combines high-confidence patterns with recent
// entries to produce optimization, alternative, and automation-proposal
// suggestions, then persists each with a dedup-safe INSERT OR IGNORE.
func (m *Memory) GenerateSuggestions() ([]Suggestion, error) {
	patterns, err := m.GetPatterns("", 0.7)
	if err != nil {
		return nil, err
	}

	recent, err := m.recentEntries(7*24*time.Hour, 50)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	suggestions = append(suggestions, suggestOptimizations(recent)...)

	alternatives, err := m.suggestAlternatives(recent)
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, alternatives...)

	suggestions = append(suggestions, suggestProactiveActions(patterns)...)

	for _, s := range suggestions {
		if err := m.storeSuggestion(s); err != nil {
			return nil, err
		}
	}
	return suggestions, nil
}

func (m *Memory) recentEntries(window time.Duration, limit int) ([]Entry, error) {
	cutoff := time.Now().Add(-window).Format(time.RFC3339Nano)
	rows, err := m.db.Query(`
SELECT id, timestamp, category, context, action, result, success, confidence, frequency, metadata
FROM memory_entries
WHERE timestamp > ?
ORDER BY timestamp DESC
LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// suggestOptimizations flags package-category actions that recurred at
// least 3 times in the recent window.
func suggestOptimizations(entries []Entry) []Suggestion {
	counts := map[string]int{}
	ids := map[string][]string{}
	for _, e := range entries {
		if e.Category != "package" {
			continue
		}
		counts[e.Action]++
		ids[e.Action] = append(ids[e.Action], fmt.Sprintf("%d", e.ID))
	}

	var out []Suggestion
	for action, count := range counts {
		if count < 3 {
			continue
		}
		out = append(out, Suggestion{
			SuggestionID: generateSuggestionID("optimization", action),
			Type:         SuggestionOptimization,
			Title:        fmt.Sprintf("Frequent Installation: %s", action),
			Description:  fmt.Sprintf("You've installed %s %d times recently. Consider adding it to your default setup script.", action, count),
			Confidence:   minFloat(1.0, float64(count)/5.0),
			BasedOn:      ids[action],
			CreatedAt:    time.Now(),
		})
	}
	return out
}

// suggestAlternatives proposes a different action for each failed entry
// that has a similar, successful entry in its recent history.
func (m *Memory) suggestAlternatives(entries []Entry) ([]Suggestion, error) {
	var out []Suggestion
	for _, e := range entries {
		if e.Success {
			continue
		}
		similar, err := m.GetSimilarInteractions(e.Context, 5)
		if err != nil {
			return nil, err
		}
		var alternative *Entry
		for i := range similar {
			if similar[i].Success && similar[i].Action != e.Action {
				alternative = &similar[i]
				break
			}
		}
		if alternative == nil {
			continue
		}
		out = append(out, Suggestion{
			SuggestionID: generateSuggestionID("alternative", e.Action),
			Type:         SuggestionAlternative,
			Title:        fmt.Sprintf("Alternative to: %s", e.Action),
			Description:  fmt.Sprintf("Based on your history, try: %s", alternative.Action),
			Confidence:   0.7,
			BasedOn:      []string{fmt.Sprintf("%d", e.ID)},
			CreatedAt:    time.Now(),
		})
	}
	return out, nil
}

// suggestProactiveActions proposes automation for high-confidence,
// high-frequency patterns.
func suggestProactiveActions(patterns []Pattern) []Suggestion {
	var out []Suggestion
	for _, p := range patterns {
		if p.Confidence > 0.8 && p.Frequency >= 5 {
			out = append(out, Suggestion{
				SuggestionID: generateSuggestionID("proactive", p.PatternID),
				Type:         SuggestionOptimization,
				Title:        fmt.Sprintf("Automate: %s", p.Description),
				Description:  fmt.Sprintf("You frequently do this (%d times). Would you like to automate it?", p.Frequency),
				Confidence:   p.Confidence,
				BasedOn:      []string{p.PatternID},
				CreatedAt:    time.Now(),
			})
		}
	}
	return out
}

// PlanWarnings flags packages in a planned operation whose recent track
// record is all failures: if the last 3 recorded interactions mentioning
// the package in category all failed, a Warning suggestion is emitted
// (and persisted) so the caller can surface it before executing.
func (m *Memory) PlanWarnings(category string, packages []string) ([]Suggestion, error) {
	var out []Suggestion
	for _, pkg := range packages {
		rows, err := m.db.Query(`
SELECT success FROM memory_entries
WHERE category = ? AND action LIKE ?
ORDER BY timestamp DESC
LIMIT 3`, category, "%"+pkg+"%")
		if err != nil {
			return nil, err
		}
		failures := 0
		seen := 0
		for rows.Next() {
			var success int
			if err := rows.Scan(&success); err != nil {
				continue
			}
			seen++
			if success == 0 {
				failures++
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if seen < 3 || failures < 3 {
			continue
		}
		s := Suggestion{
			SuggestionID: generateSuggestionID("warning", pkg),
			Type:         SuggestionWarning,
			Title:        fmt.Sprintf("Recent failures: %s", pkg),
			Description:  fmt.Sprintf("The last %d operations involving %s failed. Review before retrying.", failures, pkg),
			Confidence:   0.8,
			BasedOn:      []string{pkg},
			CreatedAt:    time.Now(),
		}
		if err := m.storeSuggestion(s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// generateSuggestionID builds the daily-deduplicating suggestion
// ID: a hash over type, identifier, and today's date.
func generateSuggestionID(suggestionType, identifier string) string {
	today := time.Now().Format("2006-01-02")
	sum := sha256.Sum256([]byte(suggestionType + ":" + identifier + ":" + today))
	return hex.EncodeToString(sum[:])[:16]
}

func (m *Memory) storeSuggestion(s Suggestion) error {
	basedOnJSON, err := json.Marshal(s.BasedOn)
	if err != nil {
		return err
	}
	_, err = m.db.Exec(`
INSERT OR IGNORE INTO suggestions
	(suggestion_id, suggestion_type, title, description, confidence, based_on, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.SuggestionID, string(s.Type), s.Title, s.Description, s.Confidence, string(basedOnJSON), s.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetActiveSuggestions returns up to limit non-dismissed suggestions,
// most confident first.
func (m *Memory) GetActiveSuggestions(limit int) ([]Suggestion, error) {
	rows, err := m.db.Query(`
SELECT suggestion_id, suggestion_type, title, description, confidence, based_on, created_at, dismissed
FROM suggestions
WHERE dismissed = 0
ORDER BY confidence DESC, created_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var s Suggestion
		var typ, basedOnJSON, createdAt string
		var dismissed int
		if err := rows.Scan(&s.SuggestionID, &typ, &s.Title, &s.Description, &s.Confidence, &basedOnJSON, &createdAt, &dismissed); err != nil {
			continue
		}
		s.Type = SuggestionType(typ)
		s.Dismissed = dismissed != 0
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			s.CreatedAt = ts
		}
		_ = json.Unmarshal([]byte(basedOnJSON), &s.BasedOn)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DismissSuggestion marks id as dismissed so it is excluded from
// GetActiveSuggestions.
func (m *Memory) DismissSuggestion(id string) error {
	_, err := m.db.Exec(`UPDATE suggestions SET dismissed = 1 WHERE suggestion_id = ?`, id)
	return err
}
