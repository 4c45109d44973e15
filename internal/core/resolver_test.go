package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/ann"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/blocking"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/cluster"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/embedding"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/persist"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/scoring"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/embedder"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

const (
	recordCol = "people"
	edgeCol   = "match_edges"
	goldenCol = "golden_records"
)

func seedDuplicatePeople(st *store.MemoryStore) {
	people := []*model.Record{
		{Key: "p1", Fields: map[string]interface{}{"name": "Robert Smith", "city": "berlin", "phone": "555-0100"}},
		{Key: "p2", Fields: map[string]interface{}{"name": "Robert Smith", "city": "berlin", "phone": "555-0100"}},
		{Key: "p3", Fields: map[string]interface{}{"name": "Alice Jones", "city": "munich", "phone": "555-0200"}},
		{Key: "p4", Fields: map[string]interface{}{"name": "Alice Jones", "city": "munich", "phone": "555-0200"}},
		{Key: "p5", Fields: map[string]interface{}{"name": "Carla Weber", "city": "berlin", "phone": "555-0300"}},
	}
	for _, p := range people {
		st.PutRecord(recordCol, p)
	}
}

func buildResolver(t *testing.T, st *store.MemoryStore, seeder *embedder.Seeder, cfg ResolverConfig) *Resolver {
	t.Helper()
	log := zerolog.Nop()

	strat, err := blocking.New(st, nil, blocking.Config{
		Kind:       blocking.KindExact,
		Collection: recordCol,
		Exact:      &blocking.ExactParams{Fields: []string{"city"}},
	}, log)
	require.NoError(t, err)

	scorer, err := scoring.NewScorer(scoring.Config{
		Fields: map[string]model.FieldWeights{
			"name":  {MProbability: 0.95, UProbability: 0.01, Threshold: 0.85, Importance: 1, Algorithm: "jaro_winkler"},
			"city":  {MProbability: 0.9, UProbability: 0.1, Importance: 0.5, Algorithm: "exact"},
			"phone": {MProbability: 0.9, UProbability: 0.001, Importance: 1, Algorithm: "exact"},
		},
		UpperThreshold: 5.0,
		LowerThreshold: 0.0,
	}, log)
	require.NoError(t, err)

	writer, err := persist.NewEdgeWriter(st, persist.EdgeWriterConfig{Collection: edgeCol}, log)
	require.NoError(t, err)

	clusterer, err := cluster.NewEngine(cluster.Config{DeterministicIDs: true}, log)
	require.NoError(t, err)

	golden, err := persist.NewGoldenBuilder(st, persist.GoldenBuilderConfig{Collection: goldenCol}, nil, log)
	require.NoError(t, err)

	embedSvc, err := embedding.NewService(embedding.Config{
		Dimensions: 4, NumWalks: 5, WalkLength: 8, WindowSize: 2, Seed: 1,
	}, log)
	require.NoError(t, err)

	cfg.RecordCollection = recordCol
	cfg.EdgeCollection = edgeCol
	r, err := NewResolver(st, []blocking.Strategy{strat}, scorer, writer, clusterer, golden, embedSvc, seeder, nil, cfg, log)
	require.NoError(t, err)
	return r
}

func TestNewResolverValidation(t *testing.T) {
	_, err := NewResolver(nil, nil, nil, nil, nil, nil, nil, nil, nil, ResolverConfig{}, zerolog.Nop())
	assert.ErrorContains(t, err, "store")
}

func TestResolveEndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)
	r := buildResolver(t, st, nil, ResolverConfig{})

	report, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Records)
	// berlin block {p1,p2,p5} yields 3 pairs, munich block {p3,p4} yields 1.
	assert.Equal(t, 4, report.CandidatePairs)
	assert.Equal(t, 2, report.Matches)
	assert.Equal(t, 2, report.EdgeStats.EdgesWritten)

	require.Len(t, report.Clusters, 2)
	assert.Equal(t, []string{"p1", "p2"}, report.Clusters[0].Members)
	assert.Equal(t, []string{"p3", "p4"}, report.Clusters[1].Members)
	assert.Equal(t, "cluster_p1", report.Clusters[0].ID)

	golden := st.GoldenRecords(goldenCol)
	require.Len(t, golden, 2)
	byCluster := make(map[string]model.GoldenRecord)
	for _, g := range golden {
		byCluster[g.ClusterID] = g
	}
	assert.Equal(t, "Robert Smith", byCluster["cluster_p1"].Fields["name"])
	assert.Equal(t, "Alice Jones", byCluster["cluster_p3"].Fields["name"])
}

func TestResolveIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)
	r := buildResolver(t, st, nil, ResolverConfig{})

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	second, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.EdgeStats.EdgesWritten)
	assert.Equal(t, 2, st.EdgeCount(edgeCol))
	assert.Len(t, st.GoldenRecords(goldenCol), 2)
}

func TestResolveReEmbedWritesVectors(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)
	r := buildResolver(t, st, nil, ResolverConfig{ReEmbed: true})

	report, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Embeddings)

	vectors, err := st.FetchVectors(context.Background(), recordCol)
	require.NoError(t, err)
	assert.Len(t, vectors, 4)
	assert.NotEmpty(t, vectors["p1"])
}

func TestScorePair(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)
	r := buildResolver(t, st, nil, ResolverConfig{})

	res, err := r.ScorePair(context.Background(), "p1", "p2", false)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionMatch, res.Decision)

	res, err = r.ScorePair(context.Background(), "p1", "p3", false)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionNonMatch, res.Decision)

	_, err = r.ScorePair(context.Background(), "p1", "missing", false)
	assert.Error(t, err)
}

func TestClustersFromStoredEdges(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)
	r := buildResolver(t, st, nil, ResolverConfig{})

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	clusters, stats, err := r.Clusters(context.Background())
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
	assert.Equal(t, 4, stats.TotalEntities)
}

type textEmbedStub struct{}

func (textEmbedStub) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 0, 1}, nil
}

func TestResolveSeedsMissingVectors(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)

	seeder, err := embedder.NewSeeder(st, textEmbedStub{}, embedder.SeederConfig{
		Collection: recordCol,
		Field:      "name",
	}, zerolog.Nop())
	require.NoError(t, err)
	r := buildResolver(t, st, seeder, ResolverConfig{})

	report, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.SeededVectors)

	vectors, err := st.FetchVectors(context.Background(), recordCol)
	require.NoError(t, err)
	assert.Len(t, vectors, 5)

	second, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.SeededVectors)
}

func TestFindSimilarWithoutAdapter(t *testing.T) {
	st := store.NewMemoryStore()
	seedDuplicatePeople(st)
	r := buildResolver(t, st, nil, ResolverConfig{})

	_, err := r.FindSimilar(context.Background(), ann.SimilarQuery{QueryDocKey: "p1"})
	assert.Error(t, err)
}
