package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MatchEdge links two records judged to refer to the same entity. Key is
// deterministic over the unordered endpoint pair, which makes edge writes
// idempotent under re-runs.
type MatchEdge struct {
	Key       string    `json:"_key"`
	From      string    `json:"_from"`
	To        string    `json:"_to"`
	Score     float64   `json:"score"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

// EdgeKey hashes the two endpoint keys in canonical (sorted) order, so
// EdgeKey(a,b) == EdgeKey(b,a).
func EdgeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + "|" + b))
	return hex.EncodeToString(sum[:16])
}

// NewMatchEdge builds an edge with its deterministic key and a rounded
// score.
func NewMatchEdge(from, to string, score float64, method string, at time.Time) MatchEdge {
	return MatchEdge{
		Key:       EdgeKey(from, to),
		From:      from,
		To:        to,
		Score:     Round4(score),
		Method:    method,
		CreatedAt: at.UTC(),
	}
}

// GoldenRecord is the canonical merged representation of a resolved cluster.
type GoldenRecord struct {
	Key       string                 `json:"_key"`
	ClusterID string                 `json:"cluster_id"`
	Members   []string               `json:"members"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt time.Time              `json:"created_at"`
}
