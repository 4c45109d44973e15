package model

// Decision classifies a scored pair.
type Decision string

const (
	DecisionMatch         Decision = "match"
	DecisionNonMatch      Decision = "non_match"
	DecisionPossibleMatch Decision = "possible_match"
)

// FieldWeights is the Fellegi-Sunter configuration for one field: the
// probability of agreement given a true match (M), given a chance pairing
// (U), the raw-similarity threshold above which the field counts as
// agreeing (zero is treated as unset and defaults to 1.0, exact agreement),
// and a relative importance multiplier on the field's log-likelihood
// contribution.
type FieldWeights struct {
	MProbability float64 `json:"m_probability" toml:"m_probability" validate:"gt=0,lt=1"`
	UProbability float64 `json:"u_probability" toml:"u_probability" validate:"gt=0,lt=1"`
	Threshold    float64 `json:"threshold" toml:"threshold" validate:"gte=0,lte=1"`
	Importance   float64 `json:"importance" toml:"importance" validate:"gte=0"`
	Algorithm    string  `json:"algorithm" toml:"algorithm"`
}

// FieldSimilarity is the per-field detail behind a similarity result.
type FieldSimilarity struct {
	Field      string       `json:"field"`
	Similarity float64      `json:"similarity"`
	Algorithm  string       `json:"algorithm"`
	Agrees     bool         `json:"agrees"`
	Weights    FieldWeights `json:"weights"`
}

// SimilarityResult is the outcome of scoring one candidate pair. It is
// immutable once computed.
type SimilarityResult struct {
	Key1           string            `json:"key1"`
	Key2           string            `json:"key2"`
	Score          float64           `json:"score"`
	Decision       Decision          `json:"decision"`
	Confidence     float64           `json:"confidence"`
	FieldsCompared int               `json:"fields_compared"`
	Fields         []FieldSimilarity `json:"fields,omitempty"`
}

// BatchScoreStats summarizes a batch scoring run. Failed pairs are counted,
// not fatal.
type BatchScoreStats struct {
	TotalPairs  int `json:"total_pairs"`
	FailedPairs int `json:"failed_pairs"`
}
