// Package usage tracks LLM token consumption and USD cost, keyed by
// provider/model/operation, for the router in internal/llm.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type contextKey struct{}

// Tracker manages usage recording and JSON persistence under the Cortex
// home directory, with debounced flushes.
type Tracker struct {
	mu            sync.Mutex
	data          UsageData
	filePath      string
	dirty         bool
	autoSaveTimer *time.Timer
}

// NewTracker creates a tracker persisting to <home>/usage.json.
func NewTracker(home string) (*Tracker, error) {
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cortex home: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(home, "usage.json"),
		data: UsageData{
			Version: "1.0",
			Aggregate: AggregatedStats{
				ByProvider:  make(map[string]TokenCounts),
				ByModel:     make(map[string]TokenCounts),
				ByOperation: make(map[string]TokenCounts),
			},
		},
	}

	if err := t.Load(); err != nil {
		return t, nil
	}

	return t, nil
}

// Load reads usage data from disk, tolerating a missing file.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &t.data); err != nil {
		return err
	}

	if t.data.Aggregate.ByProvider == nil {
		t.data.Aggregate.ByProvider = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByModel == nil {
		t.data.Aggregate.ByModel = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByOperation == nil {
		t.data.Aggregate.ByOperation = make(map[string]TokenCounts)
	}

	return nil
}

// Save writes usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0600)
}

// Track records one LLM completion's token usage and cost. cost is
// computed by
// the caller (internal/llm) via usage.CostUSD so the router's provider
// table stays the single source of pricing truth.
func (t *Tracker) Track(ctx context.Context, provider, model, operation string, inputTokens, outputTokens int, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.Add(inputTokens, outputTokens, cost)
	addToMap(t.data.Aggregate.ByProvider, provider, inputTokens, outputTokens, cost)
	addToMap(t.data.Aggregate.ByModel, model, inputTokens, outputTokens, cost)
	addToMap(t.data.Aggregate.ByOperation, operation, inputTokens, outputTokens, cost)

	if !t.dirty {
		t.dirty = true
		t.autoSaveTimer = time.AfterFunc(5*time.Second, func() {
			t.Save()
			t.mu.Lock()
			t.dirty = false
			t.mu.Unlock()
		})
	}
}

// Stats returns a snapshot copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByOperation = copyTokenCountsMap(stats.ByOperation)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int, cost float64) {
	entry := m[key]
	entry.Add(input, output, cost)
	m[key] = entry
}

// NewContext returns a context carrying the tracker, used by request-scoped
// code paths that need to record usage without threading the tracker
// through every function signature.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext retrieves the tracker from the context, or nil if absent.
func FromContext(ctx context.Context) *Tracker {
	val := ctx.Value(contextKey{})
	if val == nil {
		return nil
	}
	return val.(*Tracker)
}
