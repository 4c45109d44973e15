package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

const testEdgeCol = "match_edges"

func matchResult(k1, k2 string, score float64) model.SimilarityResult {
	return model.SimilarityResult{Key1: k1, Key2: k2, Score: score, Decision: model.DecisionMatch}
}

func newWriter(t *testing.T, st store.Store, cfg EdgeWriterConfig) *EdgeWriter {
	t.Helper()
	w, err := NewEdgeWriter(st, cfg, zerolog.Nop())
	require.NoError(t, err)
	return w
}

func TestNewEdgeWriterValidation(t *testing.T) {
	_, err := NewEdgeWriter(nil, EdgeWriterConfig{Collection: testEdgeCol}, zerolog.Nop())
	assert.ErrorContains(t, err, "store")

	_, err = NewEdgeWriter(store.NewMemoryStore(), EdgeWriterConfig{}, zerolog.Nop())
	assert.ErrorContains(t, err, "collection")
}

func TestWriteMatchesOnlyPersistsMatches(t *testing.T) {
	st := store.NewMemoryStore()
	w := newWriter(t, st, EdgeWriterConfig{Collection: testEdgeCol})

	results := []model.SimilarityResult{
		matchResult("a", "b", 6.2),
		{Key1: "c", Key2: "d", Score: 2.0, Decision: model.DecisionPossibleMatch},
		{Key1: "e", Key2: "f", Score: -1.0, Decision: model.DecisionNonMatch},
	}
	stats, err := w.WriteMatches(context.Background(), results)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EdgesBuilt)
	assert.Equal(t, 1, stats.EdgesWritten)
	assert.Equal(t, 1, st.EdgeCount(testEdgeCol))
}

func TestWriteMatchesIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	w := newWriter(t, st, EdgeWriterConfig{Collection: testEdgeCol})

	results := []model.SimilarityResult{matchResult("a", "b", 6.2)}
	_, err := w.WriteMatches(context.Background(), results)
	require.NoError(t, err)

	stats, err := w.WriteMatches(context.Background(), results)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EdgesWritten)
	assert.Equal(t, 1, st.EdgeCount(testEdgeCol))
}

func TestWriteMatchesBidirectional(t *testing.T) {
	st := store.NewMemoryStore()
	w := newWriter(t, st, EdgeWriterConfig{Collection: testEdgeCol, Bidirectional: true})

	_, err := w.WriteMatches(context.Background(), []model.SimilarityResult{matchResult("a", "b", 6.2)})
	require.NoError(t, err)

	assert.Equal(t, 2, st.EdgeCount(testEdgeCol))
	edges, err := st.FetchEdges(context.Background(), testEdgeCol, 0)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, edges[0].Key, edges[1].Key, "both directions share the deterministic key")
}

func TestWriteMatchesContinuesPastFailedBatch(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(), failOnCall: 1}
	w := newWriter(t, st, EdgeWriterConfig{Collection: testEdgeCol, BatchSize: 1})

	results := []model.SimilarityResult{
		matchResult("a", "b", 6.0),
		matchResult("c", "d", 6.0),
		matchResult("e", "f", 6.0),
	}
	stats, err := w.WriteMatches(context.Background(), results)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.EdgesBuilt)
	assert.Equal(t, 2, stats.EdgesWritten)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.Equal(t, 1, stats.FailedEdges)
}

func TestWriteMatchesAllBatchesFailing(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(), failAll: true}
	w := newWriter(t, st, EdgeWriterConfig{Collection: testEdgeCol})

	stats, err := w.WriteMatches(context.Background(), []model.SimilarityResult{matchResult("a", "b", 6.0)})
	assert.Error(t, err)
	assert.Equal(t, 0, stats.EdgesWritten)
}

func TestClearByMethod(t *testing.T) {
	st := store.NewMemoryStore()
	w := newWriter(t, st, EdgeWriterConfig{Collection: testEdgeCol, Method: "similarity"})

	_, err := w.WriteMatches(context.Background(), []model.SimilarityResult{matchResult("a", "b", 6.0)})
	require.NoError(t, err)
	other := model.NewMatchEdge("x", "y", 1.0, "manual", time.Now())
	_, err = st.InsertEdges(context.Background(), testEdgeCol, []model.MatchEdge{other}, false)
	require.NoError(t, err)

	removed, err := w.Clear(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, st.EdgeCount(testEdgeCol))
}

func seedClusterRecords(st *store.MemoryStore) map[string]*model.Record {
	records := map[string]*model.Record{
		"p1": {Key: "p1", Fields: map[string]interface{}{"name": "Robert Smith", "city": "berlin"}},
		"p2": {Key: "p2", Fields: map[string]interface{}{"name": "Robert Smith", "city": "Berlin"}},
		"p3": {Key: "p3", Fields: map[string]interface{}{"name": "Bob Smith", "city": "berlin", "phone": "555-0100"}},
	}
	for _, r := range records {
		st.PutRecord("people", r)
	}
	return records
}

func TestGoldenBuilderValidation(t *testing.T) {
	_, err := NewGoldenBuilder(nil, GoldenBuilderConfig{Collection: "golden"}, nil, zerolog.Nop())
	assert.ErrorContains(t, err, "store")

	_, err = NewGoldenBuilder(store.NewMemoryStore(), GoldenBuilderConfig{}, nil, zerolog.Nop())
	assert.ErrorContains(t, err, "collection")
}

func TestGoldenKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, GoldenKey([]string{"b", "a", "c"}), GoldenKey([]string{"c", "a", "b"}))
	assert.NotEqual(t, GoldenKey([]string{"a", "b"}), GoldenKey([]string{"a", "c"}))
}

func TestGoldenBuilderMergesFields(t *testing.T) {
	st := store.NewMemoryStore()
	records := seedClusterRecords(st)
	b, err := NewGoldenBuilder(st, GoldenBuilderConfig{Collection: "golden"}, nil, zerolog.Nop())
	require.NoError(t, err)

	clusters := []model.Cluster{{ID: "cluster_p1", Members: []string{"p1", "p2", "p3"}}}
	stats, err := b.Build(context.Background(), clusters, records)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GoldenRecords)

	golden := st.GoldenRecords("golden")
	require.Len(t, golden, 1)
	assert.Equal(t, "Robert Smith", golden[0].Fields["name"])
	assert.Equal(t, "berlin", golden[0].Fields["city"])
	assert.Equal(t, "555-0100", golden[0].Fields["phone"])
	assert.Equal(t, []string{"p1", "p2", "p3"}, golden[0].Members)
}

func TestGoldenBuilderIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	records := seedClusterRecords(st)
	b, err := NewGoldenBuilder(st, GoldenBuilderConfig{Collection: "golden"}, nil, zerolog.Nop())
	require.NoError(t, err)

	clusters := []model.Cluster{{ID: "cluster_p1", Members: []string{"p1", "p2", "p3"}}}
	_, err = b.Build(context.Background(), clusters, records)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), clusters, records)
	require.NoError(t, err)

	assert.Len(t, st.GoldenRecords("golden"), 1)
}

func TestGoldenBuilderWritesResolvedEdges(t *testing.T) {
	st := store.NewMemoryStore()
	records := seedClusterRecords(st)
	cfg := GoldenBuilderConfig{Collection: "golden", EdgeCollection: "resolved_to"}
	b, err := NewGoldenBuilder(st, cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	clusters := []model.Cluster{{ID: "cluster_p1", Members: []string{"p1", "p2", "p3"}}}
	stats, err := b.Build(context.Background(), clusters, records)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.EdgesWritten)
	edges, err := st.FetchEdges(context.Background(), "resolved_to", 0)
	require.NoError(t, err)
	for _, e := range edges {
		assert.Equal(t, ResolvedToMethod, e.Method)
	}
}

func TestGoldenBuilderSkipsMissingMembers(t *testing.T) {
	st := store.NewMemoryStore()
	records := seedClusterRecords(st)
	b, err := NewGoldenBuilder(st, GoldenBuilderConfig{Collection: "golden"}, nil, zerolog.Nop())
	require.NoError(t, err)

	clusters := []model.Cluster{
		{ID: "cluster_p1", Members: []string{"p1", "ghost"}},
		{ID: "cluster_gone", Members: []string{"ghost2", "ghost3"}},
	}
	stats, err := b.Build(context.Background(), clusters, records)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.GoldenRecords)
	assert.Equal(t, 3, stats.MembersMissing)
}

func TestGoldenBuilderCustomMergePolicy(t *testing.T) {
	st := store.NewMemoryStore()
	records := seedClusterRecords(st)
	first := func(members []*model.Record) map[string]interface{} {
		return members[0].Fields
	}
	b, err := NewGoldenBuilder(st, GoldenBuilderConfig{Collection: "golden"}, first, zerolog.Nop())
	require.NoError(t, err)

	clusters := []model.Cluster{{ID: "cluster_p1", Members: []string{"p1", "p2"}}}
	_, err = b.Build(context.Background(), clusters, records)
	require.NoError(t, err)

	golden := st.GoldenRecords("golden")
	require.Len(t, golden, 1)
	assert.Equal(t, "berlin", golden[0].Fields["city"])
}

func TestMostFrequentValueBreaksTiesDeterministically(t *testing.T) {
	members := []*model.Record{
		{Key: "a", Fields: map[string]interface{}{"city": "berlin"}},
		{Key: "b", Fields: map[string]interface{}{"city": "munich"}},
	}
	merged := MostFrequentValue(members)
	assert.Equal(t, "berlin", merged["city"])
}

// failingStore rejects selected InsertEdges calls to exercise partial-batch
// continuation.
type failingStore struct {
	*store.MemoryStore
	calls      int
	failOnCall int
	failAll    bool
}

func (s *failingStore) InsertEdges(ctx context.Context, collection string, edges []model.MatchEdge, ignoreConflicts bool) (int, error) {
	call := s.calls
	s.calls++
	if s.failAll || call == s.failOnCall {
		return 0, model.NewStorageError("insert edges", errors.New("write conflict"))
	}
	return s.MemoryStore.InsertEdges(ctx, collection, edges, ignoreConflicts)
}
