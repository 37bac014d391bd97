// Package chromem implements the memory.Store contract on top of chromem-go,
// a pure Go embedded vector database.
//
// Each (kind, user) namespace maps to one chromem collection for ranked
// search. Exact-key lookups and full scans come from the store's own record
// bookkeeping, since chromem only answers similarity queries. Everything
// lives in process memory; nothing survives a restart.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/vox-go-sdk/memory"
)

// Store is a chromem-go backed memory.Store.
type Store struct {
	db       *chromem.DB
	embedder memory.Embedder

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	records     map[string]map[string]memory.Record // namespace -> key -> record
}

// New creates an empty store. The embedder indexes values on Put and embeds
// queries on Search.
func New(embedder memory.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chromem store requires an embedder")
	}
	return &Store{
		db:          chromem.NewDB(),
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
		records:     make(map[string]map[string]memory.Record),
	}, nil
}

// getOrCreateCollection returns the chromem collection for a namespace.
func (s *Store) getOrCreateCollection(ns memory.Namespace) (*chromem.Collection, error) {
	name := ns.String()

	s.mu.RLock()
	col, exists := s.collections[name]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock
	if col, exists := s.collections[name]; exists {
		return col, nil
	}

	col, err := s.db.CreateCollection(
		name,
		nil, // no collection metadata
		nil, // no embedding func, we supply embeddings directly
	)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	s.collections[name] = col
	return col, nil
}

// Put upserts a record. The value is serialized to JSON, embedded, and
// indexed; writing an existing key overwrites the prior value.
func (s *Store) Put(ctx context.Context, ns memory.Namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s/%s: %w", ns, key, err)
	}

	embedding, err := s.embedder.Embed(ctx, string(data))
	if err != nil {
		return fmt.Errorf("embed value for %s/%s: %w", ns, key, err)
	}

	col, err := s.getOrCreateCollection(ns)
	if err != nil {
		return err
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        key,
		Content:   string(data),
		Embedding: embedding,
		Metadata:  map[string]string{"key": key},
	})
	if err != nil {
		return fmt.Errorf("index document %s/%s: %w", ns, key, err)
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	name := ns.String()
	if s.records[name] == nil {
		s.records[name] = make(map[string]memory.Record)
	}
	record := memory.Record{Key: key, Value: data, CreatedAt: now, UpdatedAt: now}
	if prev, ok := s.records[name][key]; ok {
		record.CreatedAt = prev.CreatedAt
	}
	s.records[name][key] = record
	return nil
}

// Search returns records in the namespace. With a query, results are ranked
// by cosine similarity, best first, truncated to opts.Limit. Without a
// query, all records (optionally filtered by key) are returned ordered by
// creation time, then key. Absence is an empty slice, not an error.
func (s *Store) Search(ctx context.Context, ns memory.Namespace, opts memory.SearchOptions) ([]memory.Record, error) {
	if opts.Query == "" {
		return s.scan(ns, opts)
	}

	col, err := s.getOrCreateCollection(ns)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return []memory.Record{}, nil
	}

	limit := opts.Limit
	if limit <= 0 || limit > count {
		limit = count
	}

	embedding, err := s.embedder.Embed(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query for %s: %w", ns, err)
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ns, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	byKey := s.records[ns.String()]

	records := make([]memory.Record, 0, len(results))
	for _, result := range results {
		record, ok := byKey[result.ID]
		if !ok {
			// Index entry with no backing record; skip rather than
			// fabricate a value.
			continue
		}
		record.Score = result.Similarity
		records = append(records, record)
	}
	return records, nil
}

// scan returns all records in the namespace without ranking.
func (s *Store) scan(ns memory.Namespace, opts memory.SearchOptions) ([]memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.records[ns.String()]
	records := make([]memory.Record, 0, len(byKey))
	for key, record := range byKey {
		if opts.Key != "" && key != opts.Key {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Key < records[j].Key
	})

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records, nil
}

// Close releases resources. chromem keeps everything in memory, so this only
// drops the store's references.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*chromem.Collection)
	s.records = make(map[string]map[string]memory.Record)
	return nil
}
