package scoring

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/similarity"
)

func testConfig() Config {
	return Config{
		Fields: map[string]model.FieldWeights{
			"name": {
				MProbability: 0.95, UProbability: 0.01,
				Threshold: 0.85, Importance: 1.0,
				Algorithm: similarity.AlgorithmJaroWinkler,
			},
			"city": {
				MProbability: 0.9, UProbability: 0.1,
				Threshold: 1.0, Importance: 0.5,
				Algorithm: similarity.AlgorithmExact,
			},
			"phone": {
				MProbability: 0.9, UProbability: 0.001,
				Threshold: 1.0, Importance: 1.0,
				Algorithm: similarity.AlgorithmExact,
			},
		},
		UpperThreshold: 5.0,
		LowerThreshold: 0.0,
	}
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(testConfig(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func record(key string, fields map[string]interface{}) *model.Record {
	return &model.Record{Key: key, Fields: fields}
}

func TestConfigValidation(t *testing.T) {
	var cfgErr *model.ConfigError

	_, err := NewScorer(Config{}, zerolog.Nop())
	assert.ErrorAs(t, err, &cfgErr)

	// All importance weights zero.
	cfg := testConfig()
	for name, w := range cfg.Fields {
		w.Importance = 0
		cfg.Fields[name] = w
	}
	_, err = NewScorer(cfg, zerolog.Nop())
	assert.ErrorAs(t, err, &cfgErr)

	// m probability outside (0,1).
	cfg = testConfig()
	w := cfg.Fields["name"]
	w.MProbability = 1.0
	cfg.Fields["name"] = w
	_, err = NewScorer(cfg, zerolog.Nop())
	assert.ErrorAs(t, err, &cfgErr)

	// Inverted thresholds.
	cfg = testConfig()
	cfg.UpperThreshold = -1
	cfg.LowerThreshold = 1
	_, err = NewScorer(cfg, zerolog.Nop())
	assert.ErrorAs(t, err, &cfgErr)

	// Unknown default algorithm.
	cfg = testConfig()
	cfg.DefaultAlgorithm = "psychic"
	_, err = NewScorer(cfg, zerolog.Nop())
	assert.ErrorAs(t, err, &cfgErr)
}

func TestIdenticalRecordsMatch(t *testing.T) {
	s := newTestScorer(t)
	fields := map[string]interface{}{"name": "Alice Smith", "city": "berlin", "phone": "555-0100"}

	result, err := s.ComputeSimilarity(record("a", fields), record("b", fields), true)
	require.NoError(t, err)

	assert.Equal(t, model.DecisionMatch, result.Decision)
	assert.Greater(t, result.Confidence, 0.9)
	assert.Equal(t, 3, result.FieldsCompared)
	for _, f := range result.Fields {
		assert.True(t, f.Agrees, "field %s should agree", f.Field)
	}
}

func TestDissimilarRecordsNonMatch(t *testing.T) {
	s := newTestScorer(t)

	a := record("a", map[string]interface{}{"name": "Alice Smith", "city": "berlin", "phone": "555-0100"})
	b := record("b", map[string]interface{}{"name": "Xavier Quintero", "city": "tokyo", "phone": "555-9999"})

	result, err := s.ComputeSimilarity(a, b, false)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionNonMatch, result.Decision)
	assert.Less(t, result.Confidence, 0.1)
}

func TestPossibleMatchBand(t *testing.T) {
	s := newTestScorer(t)

	// Name agrees strongly, phone disagrees: the score lands between the
	// thresholds and needs review.
	a := record("a", map[string]interface{}{"name": "Alice Smith", "phone": "555-0100"})
	b := record("b", map[string]interface{}{"name": "Alice Smyth", "phone": "555-0199"})

	result, err := s.ComputeSimilarity(a, b, false)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionPossibleMatch, result.Decision)
}

func TestMissingFieldsExcluded(t *testing.T) {
	s := newTestScorer(t)

	a := record("a", map[string]interface{}{"name": "Alice Smith"})
	b := record("b", map[string]interface{}{"name": "Alice Smith", "city": "berlin", "phone": "555-0100"})

	result, err := s.ComputeSimilarity(a, b, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FieldsCompared)
}

func TestUnsetThresholdDefaultsToExactAgreement(t *testing.T) {
	s, err := NewScorer(Config{
		Fields: map[string]model.FieldWeights{
			"phone": {MProbability: 0.9, UProbability: 0.001, Importance: 1.0, Algorithm: similarity.AlgorithmExact},
		},
		UpperThreshold: 5.0,
		LowerThreshold: 0.0,
	}, zerolog.Nop())
	require.NoError(t, err)

	result, err := s.ComputeSimilarity(
		record("a", map[string]interface{}{"phone": "555-0100"}),
		record("b", map[string]interface{}{"phone": "999-9999"}),
		true)
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	assert.False(t, result.Fields[0].Agrees)
	assert.Equal(t, model.DecisionNonMatch, result.Decision)

	result, err = s.ComputeSimilarity(
		record("a", map[string]interface{}{"phone": "555-0100"}),
		record("b", map[string]interface{}{"phone": "555-0100"}),
		true)
	require.NoError(t, err)
	assert.True(t, result.Fields[0].Agrees)
	assert.Equal(t, model.DecisionMatch, result.Decision)
}

func TestNilRecordRejected(t *testing.T) {
	s := newTestScorer(t)
	_, err := s.ComputeSimilarity(nil, record("b", nil), false)
	var valErr *model.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestScoreRounding(t *testing.T) {
	s := newTestScorer(t)
	fields := map[string]interface{}{"name": "Alice Smith", "city": "berlin", "phone": "555-0100"}

	result, err := s.ComputeSimilarity(record("a", fields), record("b", fields), false)
	require.NoError(t, err)
	assert.Equal(t, model.Round4(result.Score), result.Score)
	assert.Equal(t, model.Round4(result.Confidence), result.Confidence)
}

func TestComputeBatchPartialFailure(t *testing.T) {
	s := newTestScorer(t)

	fields := map[string]interface{}{"name": "Alice Smith", "city": "berlin", "phone": "555-0100"}
	records := map[string]*model.Record{
		"a": record("a", fields),
		"b": record("b", fields),
		// "ghost" deliberately absent.
	}
	pairs := []model.CandidatePair{
		model.NewCandidatePair("a", "b", "exact", ""),
		model.NewCandidatePair("a", "ghost", "exact", ""),
	}

	results, stats := s.ComputeBatch(context.Background(), pairs, records, false)
	assert.Equal(t, 2, stats.TotalPairs)
	assert.Equal(t, 1, stats.FailedPairs)
	require.Len(t, results, 1)
	assert.Equal(t, model.DecisionMatch, results[0].Decision)
}

func TestComputeBatchNilRecord(t *testing.T) {
	s := newTestScorer(t)
	records := map[string]*model.Record{"a": record("a", nil), "b": nil}
	pairs := []model.CandidatePair{model.NewCandidatePair("a", "b", "exact", "")}

	results, stats := s.ComputeBatch(context.Background(), pairs, records, false)
	assert.Empty(t, results)
	assert.Equal(t, model.BatchScoreStats{TotalPairs: 1, FailedPairs: 1}, stats)
}
