package scoring

import (
	"context"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// ComputeBatch scores candidate pairs against a record index. A malformed
// pair (either record missing or nil) is counted as failed and skipped;
// the batch never aborts on a single bad pair.
func (s *Scorer) ComputeBatch(ctx context.Context, pairs []model.CandidatePair, records map[string]*model.Record, includeDetail bool) ([]model.SimilarityResult, model.BatchScoreStats) {
	stats := model.BatchScoreStats{TotalPairs: len(pairs)}
	results := make([]model.SimilarityResult, 0, len(pairs))

	for _, pair := range pairs {
		if ctx.Err() != nil {
			// Caller stopped issuing work; count the remainder as failed so
			// the stats still account for every pair.
			stats.FailedPairs = stats.TotalPairs - len(results)
			return results, stats
		}

		a, okA := records[pair.Key1]
		b, okB := records[pair.Key2]
		if !okA || !okB || a == nil || b == nil {
			stats.FailedPairs++
			s.log.Debug().Str("pair", pair.ID()).Msg("skipping pair with missing record")
			continue
		}

		result, err := s.ComputeSimilarity(a, b, includeDetail)
		if err != nil {
			stats.FailedPairs++
			s.log.Warn().Err(err).Str("pair", pair.ID()).Msg("pair scoring failed")
			continue
		}
		results = append(results, *result)
	}

	return results, stats
}
