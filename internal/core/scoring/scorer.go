// Package scoring turns per-field string similarities into a calibrated
// match decision using the Fellegi-Sunter log-likelihood framework. Field
// m/u probabilities arrive externally calibrated; nothing here learns
// weights.
package scoring

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/similarity"
)

// Config configures a Scorer. Thresholds live on the aggregate log2-odds
// scale: scores at or above Upper classify as match, at or below Lower as
// non_match, anything between as possible_match.
type Config struct {
	Fields           map[string]model.FieldWeights `toml:"fields"`
	UpperThreshold   float64                       `toml:"upper_threshold"`
	LowerThreshold   float64                       `toml:"lower_threshold"`
	DefaultAlgorithm string                        `toml:"default_algorithm"`
}

// Scorer computes pairwise similarity results. Stateless across calls.
type Scorer struct {
	fields     []string // sorted for reproducible field order
	weights    map[string]model.FieldWeights
	upper      float64
	lower      float64
	defaultAlg string
	log        zerolog.Logger
}

func NewScorer(cfg Config, log zerolog.Logger) (*Scorer, error) {
	if len(cfg.Fields) == 0 {
		return nil, model.NewConfigError("scoring", "no field weights configured")
	}
	if cfg.UpperThreshold < cfg.LowerThreshold {
		return nil, model.NewConfigError("scoring", "upper_threshold %v below lower_threshold %v", cfg.UpperThreshold, cfg.LowerThreshold)
	}

	totalImportance := 0.0
	fields := make([]string, 0, len(cfg.Fields))
	weights := make(map[string]model.FieldWeights, len(cfg.Fields))
	for name, w := range cfg.Fields {
		if w.MProbability <= 0 || w.MProbability >= 1 {
			return nil, model.NewConfigError("scoring", "field %s: m_probability must be in (0,1)", name)
		}
		if w.UProbability <= 0 || w.UProbability >= 1 {
			return nil, model.NewConfigError("scoring", "field %s: u_probability must be in (0,1)", name)
		}
		if w.Threshold < 0 || w.Threshold > 1 {
			return nil, model.NewConfigError("scoring", "field %s: threshold must be in [0,1]", name)
		}
		if w.Importance < 0 {
			return nil, model.NewConfigError("scoring", "field %s: importance must not be negative", name)
		}
		// Zero means unset. Left at zero, any similarity would satisfy
		// sim >= threshold and disjoint values would count as agreement.
		if w.Threshold == 0 {
			w.Threshold = 1.0
		}
		totalImportance += w.Importance
		weights[name] = w
		fields = append(fields, name)
	}
	if totalImportance == 0 {
		return nil, model.NewConfigError("scoring", "all field importance weights are zero")
	}
	sort.Strings(fields)

	defaultAlg := cfg.DefaultAlgorithm
	if defaultAlg == "" {
		defaultAlg = similarity.AlgorithmJaroWinkler
	}
	if _, err := similarity.Compute(defaultAlg, "", ""); err != nil {
		return nil, model.NewConfigError("scoring", "default algorithm: %v", err)
	}

	return &Scorer{
		fields:     fields,
		weights:    weights,
		upper:      cfg.UpperThreshold,
		lower:      cfg.LowerThreshold,
		defaultAlg: defaultAlg,
		log:        log.With().Str("component", "scorer").Logger(),
	}, nil
}

// ComputeSimilarity scores one record pair. Missing field values on either
// side exclude that field from the sum. includeDetail attaches the per-field
// breakdown to the result.
func (s *Scorer) ComputeSimilarity(a, b *model.Record, includeDetail bool) (*model.SimilarityResult, error) {
	if a == nil || b == nil {
		return nil, model.NewValidationError("record", "cannot score a nil record")
	}

	var (
		score    float64
		maxScore float64
		minScore float64
		compared int
		details  []model.FieldSimilarity
	)

	for _, field := range s.fields {
		w := s.weights[field]
		va, okA := a.FieldString(field)
		vb, okB := b.FieldString(field)
		if !okA || !okB {
			continue
		}

		alg := w.Algorithm
		if alg == "" {
			alg = s.defaultAlg
		}
		sim, err := similarity.Compute(alg, va, vb)
		if err != nil {
			return nil, model.NewConfigError("scoring", "field %s: %v", field, err)
		}

		agrees := sim >= w.Threshold
		agreeWeight := w.Importance * math.Log2(w.MProbability/w.UProbability)
		disagreeWeight := w.Importance * math.Log2((1-w.MProbability)/(1-w.UProbability))
		if agrees {
			score += agreeWeight
		} else {
			score += disagreeWeight
		}
		maxScore += agreeWeight
		minScore += disagreeWeight
		compared++

		if includeDetail {
			details = append(details, model.FieldSimilarity{
				Field:      field,
				Similarity: model.Round4(sim),
				Algorithm:  alg,
				Agrees:     agrees,
				Weights:    w,
			})
		}
	}

	result := &model.SimilarityResult{
		Key1:           a.Key,
		Key2:           b.Key,
		Score:          model.Round4(score),
		Decision:       s.classify(score),
		Confidence:     model.Round4(confidence(score, minScore, maxScore)),
		FieldsCompared: compared,
		Fields:         details,
	}
	return result, nil
}

func (s *Scorer) classify(score float64) model.Decision {
	switch {
	case score >= s.upper:
		return model.DecisionMatch
	case score <= s.lower:
		return model.DecisionNonMatch
	default:
		return model.DecisionPossibleMatch
	}
}

// confidence normalizes the score into [0,1] against the best and worst
// achievable scores over the fields actually compared.
func confidence(score, minScore, maxScore float64) float64 {
	if maxScore <= minScore {
		return 0
	}
	c := (score - minScore) / (maxScore - minScore)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
