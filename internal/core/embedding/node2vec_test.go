package embedding

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(cfg, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func testConfig() Config {
	return Config{
		Dimensions: 8,
		NumWalks:   10,
		WalkLength: 10,
		WindowSize: 3,
		Seed:       42,
	}
}

func testEdges() []WeightedEdge {
	// Two tight communities bridged by a single edge.
	return []WeightedEdge{
		{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "a", To: "c"},
		{From: "x", To: "y"}, {From: "y", To: "z"}, {From: "x", To: "z"},
		{From: "c", To: "x"},
	}
}

func TestNewServiceValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dimensions", func(c *Config) { c.Dimensions = 0 }},
		{"zero walks", func(c *Config) { c.NumWalks = 0 }},
		{"short walk length", func(c *Config) { c.WalkLength = 1 }},
		{"zero window", func(c *Config) { c.WindowSize = 0 }},
		{"negative return param", func(c *Config) { c.ReturnParam = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := NewService(cfg, zerolog.Nop())
			assert.ErrorContains(t, err, "embedding")
		})
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	svc := testService(t, testConfig())

	out, err := svc.Embed(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEmbedSameSeedIsDeterministic(t *testing.T) {
	first, err := testService(t, testConfig()).Embed(testEdges())
	require.NoError(t, err)
	second, err := testService(t, testConfig()).Embed(testEdges())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for key, emb := range first {
		other, ok := second[key]
		require.True(t, ok, "missing key %s", key)
		require.Len(t, other.Vector, len(emb.Vector))
		for i := range emb.Vector {
			assert.InDelta(t, emb.Vector[i], other.Vector[i], 1e-8)
		}
	}
}

func TestEmbedDifferentSeedDiverges(t *testing.T) {
	first, err := testService(t, testConfig()).Embed(testEdges())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Seed = 7
	second, err := testService(t, cfg).Embed(testEdges())
	require.NoError(t, err)

	diverged := false
	for key, emb := range first {
		other := second[key]
		for i := range emb.Vector {
			if math.Abs(emb.Vector[i]-other.Vector[i]) > 1e-8 {
				diverged = true
			}
		}
	}
	assert.True(t, diverged, "different seeds should produce different vectors")
}

func TestEmbedVectorsAreUnitLength(t *testing.T) {
	out, err := testService(t, testConfig()).Embed(testEdges())
	require.NoError(t, err)
	require.NotEmpty(t, out)

	for key, emb := range out {
		var norm float64
		for _, v := range emb.Vector {
			norm += v * v
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6, "vector for %s not unit length", key)
	}
}

func TestEmbedClampsDimensionsToNodeCount(t *testing.T) {
	cfg := testConfig()
	cfg.Dimensions = 100
	svc := testService(t, cfg)

	out, err := svc.Embed(testEdges())
	require.NoError(t, err)

	// Six distinct nodes, so at most six dimensions.
	for _, emb := range out {
		assert.Len(t, emb.Vector, 6)
		assert.Equal(t, 6, emb.Dimension)
	}
}

func TestEmbedMetadata(t *testing.T) {
	out, err := testService(t, testConfig()).Embed(testEdges())
	require.NoError(t, err)

	emb := out["a"]
	assert.Equal(t, "a", emb.Key)
	assert.Equal(t, MethodTag, emb.Method)
	assert.Equal(t, int64(42), emb.Seed)
}

func TestEmbedMaxEdgesLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEdgesFetched = 3
	svc := testService(t, cfg)

	_, err := svc.Embed(testEdges())
	assert.ErrorContains(t, err, "max_edges_fetched")
}

func TestEmbedMaxNodesLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxNodes = 4
	svc := testService(t, cfg)

	_, err := svc.Embed(testEdges())
	assert.ErrorContains(t, err, "max_nodes")
}

func TestEmbedMaxDimensionsLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Dimensions = 64
	cfg.MaxDimensions = 32
	svc := testService(t, cfg)

	_, err := svc.Embed(testEdges())
	assert.ErrorContains(t, err, "max_dimensions")
}

func TestEmbedSkipsSelfAndEmptyEdges(t *testing.T) {
	edges := []WeightedEdge{
		{From: "a", To: "a"},
		{From: "", To: "b"},
		{From: "a", To: "b"},
	}
	out, err := testService(t, testConfig()).Embed(edges)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestBuildGraphMergesDuplicateEdges(t *testing.T) {
	g := buildGraph([]WeightedEdge{
		{From: "a", To: "b", Weight: 1},
		{From: "b", To: "a", Weight: 2},
	})
	require.Len(t, g.adj["a"], 1)
	assert.Equal(t, 3.0, g.adj["a"][0].weight)
}
