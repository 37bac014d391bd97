package memory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/becomeliminal/vox-go-sdk/core"
)

// Namespace is the ordered path tuple that partitions storage. All operations
// for one user and one memory kind resolve to exactly one namespace.
type Namespace []string

// NewNamespace builds the (kind, user) namespace used by every memory kind.
func NewNamespace(kind, userID string) Namespace {
	return Namespace{kind, userID}
}

// Kind returns the memory-kind segment of the namespace.
func (n Namespace) Kind() string {
	if len(n) == 0 {
		return ""
	}
	return n[0]
}

// String renders the namespace as a slash-joined path, usable as a
// collection name or log context.
func (n Namespace) String() string {
	return strings.Join(n, "/")
}

// Record is one stored memory: an opaque key plus the raw JSON value.
// Score is only meaningful on records returned from a ranked search.
type Record struct {
	Key       string
	Value     json.RawMessage
	Score     float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchOptions selects records within a namespace.
//
// When Query is set, results are ranked by semantic relevance, best first,
// truncated to Limit. When Query is empty, all records are returned
// (optionally filtered by Key equality) in a deterministic, store-defined
// order. Each call re-queries; result slices are one-shot snapshots.
type SearchOptions struct {
	Query string
	Limit int
	Key   string
}

// Store is the storage backend contract consumed by the Manager.
//
// Put upserts: writing an existing key overwrites it without error.
// Search signals absence with an empty slice, never an error; index or
// service failures propagate as errors carrying namespace context.
type Store interface {
	Put(ctx context.Context, ns Namespace, key string, value any) error
	Search(ctx context.Context, ns Namespace, opts SearchOptions) ([]Record, error)
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: openai.Embedder (hosted), mock.Embedder (tests).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Extractor is the extraction-policy contract: a model-driven component,
// configured per (memory kind, schema), that reads a conversation and commits
// zero or more record writes into its namespace via the Store.
//
// The policy owns all merge judgment. For update-only kinds it must converge:
// repeated invocation against the same final conversation state yields the
// same stored record, never a duplicate.
type Extractor interface {
	Invoke(ctx context.Context, messages []core.Message, userID string) error
}
