// Package mock provides a deterministic embedder for tests.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder generates bag-of-words hash embeddings: each lowercased token is
// hashed into a handful of dimensions, so texts sharing words land near each
// other. Not a real semantic space, but similarity ranking behaves sensibly
// enough for tests without model files or network.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 384 dimensions, matching the shape of
// small sentence-transformer models.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed returns a normalized, deterministic embedding of text.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.dimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, `.,;:!?"'()[]{}`)
		if token == "" {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(token))
		seed := h.Sum64()

		// Spread each token across a few dimensions so distinct tokens
		// rarely cancel out.
		for i := 0; i < 4; i++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			embedding[seed%uint64(m.dimensions)] += 1.0
		}
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

// normalize converts the embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		// Zero vectors break cosine distance; give empty text a fixed
		// direction instead.
		vec[0] = 1.0
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
