package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()

	v1, err := h.Embed(ctx, "install nginx please")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := h.Embed(ctx, "install nginx please")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(v1) != HashDimensions {
		t.Fatalf("len(v1) = %d, want %d", len(v1), HashDimensions)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embedding not deterministic at index %d: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestHashEmbedder_L2Normalized(t *testing.T) {
	h := NewHashEmbedder()
	v, err := h.Embed(context.Background(), "the quick brown fox jumps over the lazy dog")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if math.Abs(norm-1.0) > 1e-6 {
		t.Fatalf("norm = %v, want ~1.0", norm)
	}
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	h := NewHashEmbedder()
	v, err := h.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector for empty input, got nonzero at index %d", i)
		}
	}
}

func TestHashEmbedder_SimilarTextHasHighSimilarity(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()

	v1, _ := h.Embed(ctx, "install nginx web server")
	v2, _ := h.Embed(ctx, "install nginx web server now")
	v3, _ := h.Embed(ctx, "uninstall firefox entirely")

	simSame, err := CosineSimilarity(v1, v2)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	simDiff, err := CosineSimilarity(v1, v3)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}

	if simSame <= simDiff {
		t.Fatalf("expected near-duplicate phrasing to score higher similarity than unrelated text: same=%v diff=%v", simSame, simDiff)
	}
}

func TestHashEmbedder_EmbedBatchMatchesEmbed(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()
	texts := []string{"apt install vim", "apt remove vim"}

	batch, err := h.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("len(batch) = %d, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := h.Embed(ctx, text)
		for j := range single {
			if single[j] != batch[i][j] {
				t.Fatalf("EmbedBatch[%d][%d] = %v, want %v", i, j, batch[i][j], single[j])
			}
		}
	}
}

func TestFindTopK_RanksMostSimilarFirst(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()

	query, _ := h.Embed(ctx, "install nginx web server")
	corpus := make([][]float32, 3)
	corpus[0], _ = h.Embed(ctx, "uninstall firefox entirely")
	corpus[1], _ = h.Embed(ctx, "install nginx web server please")
	corpus[2], _ = h.Embed(ctx, "update the system")

	top := FindTopK(query, corpus, 2)
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top[0].Index != 1 {
		t.Fatalf("top[0].Index = %d, want 1 (near-duplicate phrasing)", top[0].Index)
	}
	if top[0].Similarity < top[1].Similarity {
		t.Fatalf("results not sorted: %v", top)
	}
}

func TestFindTopK_SkipsMismatchedDimensions(t *testing.T) {
	query := []float32{1, 0, 0}
	corpus := [][]float32{{1, 0}, {0, 1, 0}, {1, 0, 0}}

	top := FindTopK(query, corpus, 10)
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2 (mismatched vector skipped)", len(top))
	}
	if top[0].Index != 2 {
		t.Fatalf("top[0].Index = %d, want 2 (identical vector)", top[0].Index)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Install NGINX-1.18, please!")
	want := []string{"install", "nginx-1.18", "please"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokenize[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
