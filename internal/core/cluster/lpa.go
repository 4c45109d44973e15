package cluster

import (
	"sort"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// propagateLabels runs weighted label propagation over the match edges.
// Unlike connected components, densely matched subgroups keep separate
// labels even when a single weak edge bridges them.
func propagateLabels(edges []model.MatchEdge, maxIterations int) map[string][]string {
	adj := make(map[string]map[string]float64)
	addEdge := func(a, b string, w float64) {
		if adj[a] == nil {
			adj[a] = make(map[string]float64)
		}
		adj[a][b] += w
	}
	for _, edge := range edges {
		if edge.From == "" || edge.To == "" || edge.From == edge.To {
			continue
		}
		w := edge.Score
		if w <= 0 {
			w = 1.0
		}
		addEdge(edge.From, edge.To, w)
		addEdge(edge.To, edge.From, w)
	}

	// Nodes sweep in sorted order so converged labels do not depend on map
	// iteration.
	nodes := make([]string, 0, len(adj))
	for key := range adj {
		nodes = append(nodes, key)
	}
	sort.Strings(nodes)

	labels := make(map[string]string, len(nodes))
	for _, key := range nodes {
		labels[key] = key
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := 0
		for _, u := range nodes {
			neighbors := adj[u]
			if len(neighbors) == 0 {
				continue
			}

			weights := make(map[string]float64)
			var maxWeight float64
			for v, w := range neighbors {
				label := labels[v]
				weights[label] += w
				if weights[label] > maxWeight {
					maxWeight = weights[label]
				}
			}

			var candidates []string
			for label, w := range weights {
				if w == maxWeight {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			best := candidates[len(candidates)-1]

			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	components := make(map[string][]string)
	for key, label := range labels {
		components[label] = append(components[label], key)
	}
	return components
}
