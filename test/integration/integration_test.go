//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/blocking"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/cluster"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/persist"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/scoring"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// TestArangoFullFlow exercises the pipeline against a live ArangoDB. The
// database must already exist; collections are assumed present with the
// names below.
func TestArangoFullFlow(t *testing.T) {
	_ = godotenv.Load("../../.env")

	endpoint := os.Getenv("ARANGO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping integration test: ARANGO_ENDPOINT not set")
	}

	ctx := context.Background()
	log := zerolog.Nop()

	recordCol := fmt.Sprintf("people_it_%d", time.Now().Unix())
	edgeCol := recordCol + "_edges"
	goldenCol := recordCol + "_golden"

	st, err := store.NewArangoStore(ctx, store.ArangoConfig{
		Endpoint:         endpoint,
		Database:         getenv("ARANGO_DATABASE", "entities_test"),
		Username:         getenv("ARANGO_USERNAME", "root"),
		Password:         os.Getenv("ARANGO_PASSWORD"),
		RecordCollection: recordCol,
	}, log)
	require.NoError(t, err)
	defer st.Close(ctx)

	version, err := st.EngineVersion(ctx)
	require.NoError(t, err)
	t.Logf("connected to ArangoDB %s", version)

	strat, err := blocking.New(st, nil, blocking.Config{
		Kind:       blocking.KindExact,
		Collection: recordCol,
		Exact:      &blocking.ExactParams{Fields: []string{"city"}},
	}, log)
	require.NoError(t, err)

	scorer, err := scoring.NewScorer(scoring.Config{
		Fields: map[string]model.FieldWeights{
			"name": {MProbability: 0.95, UProbability: 0.01, Threshold: 0.85, Importance: 1, Algorithm: "jaro_winkler"},
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

	resolver, err := core.NewResolver(st, []blocking.Strategy{strat}, scorer, writer, clusterer, golden, nil, nil, nil, core.ResolverConfig{
		RecordCollection: recordCol,
		EdgeCollection:   edgeCol,
	}, log)
	require.NoError(t, err)

	report, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Records, 0)

	// Re-running must not duplicate edges.
	second, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.EdgeStats.EdgesWritten)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
