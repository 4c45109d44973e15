// Package store defines the narrow read/write surface the resolution core
// needs from a record/graph store, with ArangoDB, Memgraph, and in-memory
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// ErrNativeSearchUnsupported is returned by NativeVectorSearch when the
// backing engine cannot execute vector similarity queries. Callers fall back
// to brute force.
var ErrNativeSearchUnsupported = errors.New("native vector search not supported by this engine")

// Filter is a scalar pre-filter pushed into store queries. Op is one of
// ==, !=, <, <=, >, >=.
type Filter struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// VectorQuery describes one native similarity search.
type VectorQuery struct {
	Collection    string
	Vector        []float64
	Threshold     float64
	Limit         int
	ExcludeKey    string
	BlockingField string
	BlockingValue interface{}
	Filters       []Filter
}

// VectorMatch is one hit from a vector search.
type VectorMatch struct {
	Key        string  `json:"key"`
	Similarity float64 `json:"similarity"`
}

// Store is the external collaborator interface. Implementations surface
// failures as *model.StorageError; none retry internally.
type Store interface {
	// FetchRecord returns the record or a StorageError wrapping the driver's
	// not-found error.
	FetchRecord(ctx context.Context, collection, key string) (*model.Record, error)

	// FetchRecords pages through a collection in stable key order.
	FetchRecords(ctx context.Context, collection string, offset, limit int) ([]*model.Record, error)

	// FetchVectors returns every stored embedding in the collection, keyed by
	// record key. Records without embeddings are omitted.
	FetchVectors(ctx context.Context, collection string) (map[string][]float64, error)

	// UpdateEmbedding writes an embedding and its provenance onto a record.
	UpdateEmbedding(ctx context.Context, collection string, emb model.Embedding) error

	// EngineVersion reports the engine version string used for capability
	// probing.
	EngineVersion(ctx context.Context) (string, error)

	// NativeVectorSearch executes a similarity query inside the engine, or
	// returns ErrNativeSearchUnsupported.
	NativeVectorSearch(ctx context.Context, q VectorQuery) ([]VectorMatch, error)

	// InsertEdges writes match edges. With ignoreConflicts, edges whose
	// deterministic key already exists are skipped rather than failing.
	// Returns the number of edges written.
	InsertEdges(ctx context.Context, collection string, edges []model.MatchEdge, ignoreConflicts bool) (int, error)

	// FetchEdges reads up to limit edges from a collection.
	FetchEdges(ctx context.Context, collection string, limit int) ([]model.MatchEdge, error)

	// ClearEdges removes edges matching the method tag (empty = any) created
	// before the cutoff (zero = any age). Returns the number removed.
	ClearEdges(ctx context.Context, collection, method string, before time.Time) (int, error)

	// UpsertGoldenRecords writes golden records keyed by cluster identity;
	// re-running over the same clusters must not duplicate.
	UpsertGoldenRecords(ctx context.Context, collection string, records []model.GoldenRecord) (int, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
