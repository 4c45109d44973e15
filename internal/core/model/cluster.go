package model

import "math"

// Cluster is a resolved entity: the set of record keys collapsed into one
// weakly connected component. Members are sorted and deduplicated.
type Cluster struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// Size is the member count.
func (c Cluster) Size() int { return len(c.Members) }

// ClusterStats describes a clustering pass. SizeDistribution uses explicit
// buckets so histograms stay comparable across runs.
type ClusterStats struct {
	TotalClusters    int            `json:"total_clusters"`
	TotalEntities    int            `json:"total_entities"`
	MinSize          int            `json:"min_size"`
	MaxSize          int            `json:"max_size"`
	AvgSize          float64        `json:"avg_size"`
	SizeDistribution map[string]int `json:"size_distribution"`
}

// Round4 rounds to 4 decimal places. Scores persisted downstream go through
// this so edge keys and test fixtures are reproducible.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
