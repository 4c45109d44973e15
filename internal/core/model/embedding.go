package model

// Embedding is a fixed-length vector for one record plus the provenance
// needed to audit reproducibility.
type Embedding struct {
	Key       string    `json:"key"`
	Vector    []float64 `json:"vector"`
	Method    string    `json:"method"`
	Seed      int64     `json:"seed"`
	Dimension int       `json:"dimension"`
}
