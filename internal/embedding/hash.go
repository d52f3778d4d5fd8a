package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashDimensions is the fixed dimensionality of deterministic hashed
// embeddings.
const HashDimensions = 128

// HashEmbedder is a deterministic, locale-free, model-free embedding
// engine: each token hashes to a dimension index with a signed
// contribution, and the resulting vector is L2-normalized. It requires no
// network call and is the engine behind the semantic cache.
type HashEmbedder struct{}

// NewHashEmbedder returns the deterministic hashed-token embedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (h *HashEmbedder) Name() string    { return "hash" }
func (h *HashEmbedder) Dimensions() int { return HashDimensions }

// Embed tokenizes text (lower-cased, split on any rune outside
// [a-z0-9._-]), hashes each token into one of 128 dimensions with a sign
// derived from the hash's high bit, and L2-normalizes the result so that
// cosine similarity reduces to a dot product.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float64, HashDimensions)

	for _, token := range tokenize(text) {
		sum := fnv.New64a()
		sum.Write([]byte(token))
		digest := sum.Sum64()

		dim := int(digest % HashDimensions)
		sign := float64(1)
		if digest&(1<<63) != 0 {
			sign = -1
		}
		vec[dim] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, HashDimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds each text independently.
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// tokenize lower-cases text and splits on any character outside
// [a-z0-9._-], dropping empty tokens.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range lower {
		if isTokenRune(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}
