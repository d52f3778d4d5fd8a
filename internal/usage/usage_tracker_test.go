package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	home := t.TempDir()
	tracker, err := NewTracker(home)
	require.NoError(t, err)

	// Avoid background autosave during the test (debounce uses AfterFunc).
	tracker.dirty = true

	ctx := context.Background()
	cost1 := CostUSD("claude", 10, 5)
	cost2 := CostUSD("claude", 2, 3)
	tracker.Track(ctx, "claude", "claude-sonnet-4", "chat", 10, 5, cost1)
	tracker.Track(ctx, "claude", "claude-sonnet-4", "chat", 2, 3, cost2)

	stats := tracker.Stats()
	assert.Equal(t, int64(12), stats.Total.Input)
	assert.Equal(t, int64(8), stats.Total.Output)
	assert.Equal(t, int64(20), stats.Total.Total)
	assert.Equal(t, int64(20), stats.ByProvider["claude"].Total)
	assert.Equal(t, int64(2), stats.ByProvider["claude"].Requests)
	assert.Equal(t, int64(20), stats.ByModel["claude-sonnet-4"].Total)
	assert.Equal(t, int64(20), stats.ByOperation["chat"].Total)
	assert.Greater(t, stats.Total.CostUSD, 0.0)

	require.NoError(t, tracker.Save())

	data, err := os.ReadFile(filepath.Join(home, "usage.json"))
	require.NoError(t, err)
	var persisted UsageData
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, int64(20), persisted.Aggregate.Total.Total)
}

func TestTracker_OllamaIsFree(t *testing.T) {
	assert.Zero(t, CostUSD("ollama", 1_000_000, 1_000_000))
}

func TestTracker_ContextHelpers(t *testing.T) {
	home := t.TempDir()
	tracker, err := NewTracker(home)
	require.NoError(t, err)

	ctx := NewContext(context.Background(), tracker)
	require.NotNil(t, FromContext(ctx))
	assert.Same(t, tracker, FromContext(ctx))
}
