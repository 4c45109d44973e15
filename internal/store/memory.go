package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// MemoryStore is a full Store over in-process maps. It backs unit tests and
// the dependency-free demo mode.
type MemoryStore struct {
	mu sync.RWMutex

	// Version is what EngineVersion reports. Defaults to a version with no
	// native vector search.
	Version string

	// NativeFn, when set, handles NativeVectorSearch calls. Left nil the
	// store reports ErrNativeSearchUnsupported, which is what an engine
	// without a vector index does.
	NativeFn func(ctx context.Context, q VectorQuery) ([]VectorMatch, error)

	records map[string]map[string]*model.Record
	edges   map[string]map[string]model.MatchEdge
	golden  map[string]map[string]model.GoldenRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Version: "3.11.0",
		records: make(map[string]map[string]*model.Record),
		edges:   make(map[string]map[string]model.MatchEdge),
		golden:  make(map[string]map[string]model.GoldenRecord),
	}
}

// PutRecord inserts or replaces a record.
func (s *MemoryStore) PutRecord(collection string, r *model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]*model.Record)
	}
	s.records[collection][r.Key] = r
}

func (s *MemoryStore) FetchRecord(ctx context.Context, collection, key string) (*model.Record, error) {
	if key == "" {
		return nil, model.NewValidationError("key", "must not be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[collection][key]
	if !ok {
		return nil, model.NewStorageError("fetch record", fmt.Errorf("record %s/%s not found", collection, key))
	}
	return r, nil
}

func (s *MemoryStore) FetchRecords(ctx context.Context, collection string, offset, limit int) ([]*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.sortedKeys(collection)
	if offset >= len(keys) {
		return nil, nil
	}
	end := len(keys)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*model.Record, 0, end-offset)
	for _, k := range keys[offset:end] {
		out = append(out, s.records[collection][k])
	}
	return out, nil
}

func (s *MemoryStore) FetchVectors(ctx context.Context, collection string) (map[string][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float64)
	for k, r := range s.records[collection] {
		if len(r.Embedding) > 0 {
			out[k] = r.Embedding
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateEmbedding(ctx context.Context, collection string, emb model.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[collection][emb.Key]
	if !ok {
		return model.NewStorageError("update embedding", fmt.Errorf("record %s/%s not found", collection, emb.Key))
	}
	r.Embedding = emb.Vector
	if r.Fields == nil {
		r.Fields = make(map[string]interface{})
	}
	r.Fields["embedding_method"] = emb.Method
	r.Fields["embedding_seed"] = emb.Seed
	r.Fields["embedding_dimension"] = emb.Dimension
	return nil
}

func (s *MemoryStore) EngineVersion(ctx context.Context) (string, error) {
	return s.Version, nil
}

func (s *MemoryStore) NativeVectorSearch(ctx context.Context, q VectorQuery) ([]VectorMatch, error) {
	if s.NativeFn == nil {
		return nil, ErrNativeSearchUnsupported
	}
	return s.NativeFn(ctx, q)
}

func (s *MemoryStore) InsertEdges(ctx context.Context, collection string, edges []model.MatchEdge, ignoreConflicts bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edges[collection] == nil {
		s.edges[collection] = make(map[string]model.MatchEdge)
	}
	written := 0
	for _, e := range edges {
		dockey := edgeDocKey(e)
		if _, exists := s.edges[collection][dockey]; exists {
			if ignoreConflicts {
				continue
			}
			return written, model.NewStorageError("insert edges", fmt.Errorf("duplicate edge key %s", e.Key))
		}
		s.edges[collection][dockey] = e
		written++
	}
	return written, nil
}

func (s *MemoryStore) FetchEdges(ctx context.Context, collection string, limit int) ([]model.MatchEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.edges[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]model.MatchEdge, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.edges[collection][k])
	}
	return out, nil
}

func (s *MemoryStore) ClearEdges(ctx context.Context, collection, method string, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.edges[collection] {
		if method != "" && e.Method != method {
			continue
		}
		if !before.IsZero() && !e.CreatedAt.Before(before) {
			continue
		}
		delete(s.edges[collection], k)
		removed++
	}
	return removed, nil
}

func (s *MemoryStore) UpsertGoldenRecords(ctx context.Context, collection string, records []model.GoldenRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.golden[collection] == nil {
		s.golden[collection] = make(map[string]model.GoldenRecord)
	}
	for _, g := range records {
		s.golden[collection][g.Key] = g
	}
	return len(records), nil
}

// GoldenRecords returns the stored golden records of a collection, sorted by
// key.
func (s *MemoryStore) GoldenRecords(collection string) []model.GoldenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.GoldenRecord
	for _, g := range s.golden[collection] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// EdgeCount reports how many edges a collection holds.
func (s *MemoryStore) EdgeCount(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges[collection])
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) sortedKeys(collection string) []string {
	keys := make([]string, 0, len(s.records[collection]))
	for k := range s.records[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// edgeDocKey disambiguates the two directions of a bidirectional edge while
// both carry the same deterministic Key.
func edgeDocKey(e model.MatchEdge) string {
	if e.From <= e.To {
		return e.Key
	}
	return e.Key + "_r"
}
