// Package cluster collapses pairwise match edges into weakly connected
// components. The pass is global: union-find state cannot be partitioned
// mid-run, so it executes single-threaded over the materialized edge set.
package cluster

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// Algorithms available for grouping edges into clusters.
const (
	AlgorithmWCC = "wcc"
	AlgorithmLPA = "lpa"
)

// Config configures the engine.
type Config struct {
	// Algorithm selects wcc (weakly connected components, the default) or
	// lpa (label propagation, which can split weakly bridged components).
	Algorithm string `toml:"algorithm"`

	// MinClusterSize drops smaller components. Defaults to 2.
	MinClusterSize int `toml:"min_cluster_size"`

	// MaxIterations bounds label propagation sweeps. Ignored by wcc.
	MaxIterations int `toml:"max_iterations"`

	// DeterministicIDs derives cluster ids from the smallest member rather
	// than random UUIDs, for reproducible runs.
	DeterministicIDs bool `toml:"deterministic_ids"`
}

// Engine computes clusters. Stateless across calls except run statistics.
type Engine struct {
	algorithm string
	minSize   int
	maxIter   int
	stableIDs bool
	stats     model.ClusterStats
	log       zerolog.Logger
}

func NewEngine(cfg Config, log zerolog.Logger) (*Engine, error) {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmWCC
	}
	if algorithm != AlgorithmWCC && algorithm != AlgorithmLPA {
		return nil, model.NewConfigError("cluster", "unknown algorithm: %s", cfg.Algorithm)
	}
	minSize := cfg.MinClusterSize
	if minSize == 0 {
		minSize = 2
	}
	if minSize < 2 {
		return nil, model.NewConfigError("cluster", "min_cluster_size must be at least 2, got %d", minSize)
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}
	return &Engine{
		algorithm: algorithm,
		minSize:   minSize,
		maxIter:   maxIter,
		stableIDs: cfg.DeterministicIDs,
		log:       log.With().Str("component", "cluster").Logger(),
	}, nil
}

// Cluster groups the endpoints of the given edges into connected components.
// Output is canonical: members sorted within each cluster, clusters sorted
// by smallest member, independent of edge insertion order.
func (e *Engine) Cluster(edges []model.MatchEdge) []model.Cluster {
	var components map[string][]string
	if e.algorithm == AlgorithmLPA {
		components = propagateLabels(edges, e.maxIter)
	} else {
		components = connectedComponents(edges)
	}

	var clusters []model.Cluster
	for _, members := range components {
		if len(members) < e.minSize {
			continue
		}
		sort.Strings(members)
		clusters = append(clusters, model.Cluster{Members: members})
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Members[0] < clusters[j].Members[0]
	})

	for i := range clusters {
		if e.stableIDs {
			clusters[i].ID = "cluster_" + clusters[i].Members[0]
		} else {
			clusters[i].ID = uuid.New().String()
		}
	}

	e.stats = computeStats(clusters)
	e.log.Info().
		Int("clusters", e.stats.TotalClusters).
		Int("entities", e.stats.TotalEntities).
		Msg("clustering pass complete")
	return clusters
}

// Statistics reports the last Cluster run.
func (e *Engine) Statistics() model.ClusterStats { return e.stats }

func connectedComponents(edges []model.MatchEdge) map[string][]string {
	uf := newUnionFind()
	for _, edge := range edges {
		if edge.From == "" || edge.To == "" || edge.From == edge.To {
			continue
		}
		uf.union(edge.From, edge.To)
	}

	components := make(map[string][]string)
	for key := range uf.parent {
		root := uf.find(key)
		components[root] = append(components[root], key)
	}
	return components
}

func computeStats(clusters []model.Cluster) model.ClusterStats {
	stats := model.ClusterStats{
		TotalClusters: len(clusters),
		SizeDistribution: map[string]int{
			"2": 0, "3": 0, "4-10": 0, "11-50": 0, "50+": 0,
		},
	}
	if len(clusters) == 0 {
		return stats
	}

	stats.MinSize = clusters[0].Size()
	for _, c := range clusters {
		size := c.Size()
		stats.TotalEntities += size
		if size < stats.MinSize {
			stats.MinSize = size
		}
		if size > stats.MaxSize {
			stats.MaxSize = size
		}
		switch {
		case size == 2:
			stats.SizeDistribution["2"]++
		case size == 3:
			stats.SizeDistribution["3"]++
		case size <= 10:
			stats.SizeDistribution["4-10"]++
		case size <= 50:
			stats.SizeDistribution["11-50"]++
		default:
			stats.SizeDistribution["50+"]++
		}
	}
	stats.AvgSize = model.Round4(float64(stats.TotalEntities) / float64(len(clusters)))
	return stats
}
