// Package openai implements the memory.Embedder contract with OpenAI's
// hosted embedding models.
package openai

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/openai/openai-go"
)

// Config configures the embedder.
type Config struct {
	// Model is the embedding model id, e.g. "text-embedding-3-small".
	Model string

	// Dimensions is the requested embedding size.
	Dimensions int

	// CacheBytes bounds the in-process embedding cache. Defaults to 16 MiB.
	// Memory writes re-embed the same record JSON and conversation turns
	// repeat query phrasing, so the cache saves a meaningful share of calls.
	CacheBytes int64
}

// Embedder converts text to vectors via the OpenAI embeddings API, with an
// in-process ristretto cache keyed by the exact input text.
type Embedder struct {
	client openai.Client
	model  string
	dims   int
	cache  *ristretto.Cache
}

// New creates an embedder backed by client.
func New(client openai.Client, cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	cacheBytes := cfg.CacheBytes
	if cacheBytes <= 0 {
		cacheBytes = 16 << 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     cacheBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &Embedder{
		client: client,
		model:  cfg.Model,
		dims:   cfg.Dimensions,
		cache:  cache,
	}, nil
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached.([]float32), nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	raw := resp.Data[0].Embedding
	embedding := make([]float32, len(raw))
	for i, v := range raw {
		embedding[i] = float32(v)
	}

	e.cache.Set(text, embedding, int64(len(embedding)*4))
	return embedding, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dims
}
