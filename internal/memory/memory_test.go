package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "context_memory.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

func TestRecordInteraction_ReturnsIncreasingIDs(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	id1, err := m.RecordInteraction(ctx, Entry{Category: "package", Action: "install nginx", Success: true})
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	id2, err := m.RecordInteraction(ctx, Entry{Category: "package", Action: "install curl", Success: true})
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("expected increasing IDs, got %d then %d", id1, id2)
	}
}

func TestMinePatterns_CreatesPatternAtThreeOccurrences(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.RecordInteraction(ctx, Entry{Category: "package", Action: "install docker-ce", Success: true}); err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
	}

	patterns, err := m.GetPatterns("", 0.0)
	if err != nil {
		t.Fatalf("GetPatterns: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("patterns = %v, want 1", patterns)
	}
	if patterns[0].Frequency != 3 {
		t.Fatalf("frequency = %d, want 3", patterns[0].Frequency)
	}
	wantConfidence := 0.3
	if patterns[0].Confidence != wantConfidence {
		t.Fatalf("confidence = %v, want %v", patterns[0].Confidence, wantConfidence)
	}
}

func TestMinePatterns_BumpsConfidenceOnRepeatedMining(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m.RecordInteraction(ctx, Entry{Category: "package", Action: "install docker-ce", Success: true})
	}
	patternsBefore, _ := m.GetPatterns("", 0.0)
	before := patternsBefore[0].Confidence

	m.RecordInteraction(ctx, Entry{Category: "package", Action: "install docker-ce", Success: true})

	patternsAfter, _ := m.GetPatterns("", 0.0)
	after := patternsAfter[0].Confidence
	if after <= before {
		t.Fatalf("expected confidence to increase from %v, got %v", before, after)
	}
}

func TestGetPatterns_FiltersByMinConfidence(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.RecordInteraction(ctx, Entry{Category: "package", Action: "install htop", Success: true})
	}

	high, err := m.GetPatterns("", 0.9)
	if err != nil {
		t.Fatalf("GetPatterns: %v", err)
	}
	if len(high) != 0 {
		t.Fatalf("expected no patterns above 0.9 confidence, got %v", high)
	}
}

func TestExtractKeywords_DropsStopwordsAndShortWords(t *testing.T) {
	got := extractKeywords("The user wants to install Docker and a web server")
	want := map[string]bool{"user": true, "wants": true, "install": true, "docker": true, "web": true, "server": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want keys of %v", got, want)
	}
	for _, w := range got {
		if !want[w] {
			t.Fatalf("unexpected keyword %q", w)
		}
	}
}

func TestGetSimilarInteractions_MatchesOnContextKeyword(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()
	m.RecordInteraction(ctx, Entry{Category: "package", Context: "User wants to install Docker", Action: "install docker-ce", Success: true})

	similar, err := m.GetSimilarInteractions("install docker please", 5)
	if err != nil {
		t.Fatalf("GetSimilarInteractions: %v", err)
	}
	if len(similar) == 0 {
		t.Fatal("expected at least one similar interaction")
	}
}

func TestSetAndGetPreference_RoundTrips(t *testing.T) {
	m := newTestMemory(t)
	if err := m.SetPreference("preferred_editor", "vim", "general"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}

	var got string
	found, err := m.GetPreference("preferred_editor", &got)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if !found || got != "vim" {
		t.Fatalf("found=%v got=%q", found, got)
	}
}

func TestGetPreference_MissingKeyReportsNotFound(t *testing.T) {
	m := newTestMemory(t)
	var got string
	found, err := m.GetPreference("does-not-exist", &got)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if found {
		t.Fatal("expected not found")
	}
}

func TestGetStatistics_TalliesEntriesAndSuccessRate(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()
	m.RecordInteraction(ctx, Entry{Category: "package", Action: "install nginx", Success: true})
	m.RecordInteraction(ctx, Entry{Category: "package", Action: "install broken-pkg", Success: false})

	stats, err := m.GetStatistics()
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Fatalf("total entries = %d, want 2", stats.TotalEntries)
	}
	if stats.SuccessRate != 50.0 {
		t.Fatalf("success rate = %v, want 50", stats.SuccessRate)
	}
	if stats.ByCategory["package"] != 2 {
		t.Fatalf("by category = %v", stats.ByCategory)
	}
}

func TestRecordInteraction_DefaultsTimestampAndConfidence(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()
	before := time.Now()

	id, err := m.RecordInteraction(ctx, Entry{Category: "package", Action: "install nginx"})
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	entries, err := m.recentEntries(time.Hour, 10)
	if err != nil {
		t.Fatalf("recentEntries: %v", err)
	}
	var found *Entry
	for i := range entries {
		if entries[i].ID == id {
			found = &entries[i]
		}
	}
	if found == nil {
		t.Fatal("expected the recorded entry to be found")
	}
	if found.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want default 1.0", found.Confidence)
	}
	if found.Timestamp.Before(before.Add(-time.Second)) {
		t.Fatalf("timestamp = %v, want near %v", found.Timestamp, before)
	}
}
