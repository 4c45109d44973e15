package embedding

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// generateWalks runs numWalks biased second-order random walks from every
// node. Nodes are visited in sorted order and a single rng drives all
// sampling, so a fixed seed reproduces the walk set exactly.
func generateWalks(g *graphData, numWalks, walkLength int, p, q float64, rng *rand.Rand) [][]string {
	walks := make([][]string, 0, len(g.nodes)*numWalks)
	for i := 0; i < numWalks; i++ {
		for _, start := range g.nodes {
			walk := singleWalk(g, start, walkLength, p, q, rng)
			if len(walk) > 1 {
				walks = append(walks, walk)
			}
		}
	}
	return walks
}

// singleWalk follows the node2vec transition rule: from current node cur with
// previous node prev, the unnormalized probability of stepping to neighbor x
// is weight(cur,x) scaled by 1/p when x == prev, 1 when x neighbors prev, and
// 1/q otherwise.
func singleWalk(g *graphData, start string, walkLength int, p, q float64, rng *rand.Rand) []string {
	walk := make([]string, 1, walkLength)
	walk[0] = start

	for len(walk) < walkLength {
		cur := walk[len(walk)-1]
		neighbors := g.adj[cur]
		if len(neighbors) == 0 {
			break
		}

		var next string
		if len(walk) == 1 {
			next = sampleWeighted(neighbors, nil, "", p, q, rng)
		} else {
			prev := walk[len(walk)-2]
			next = sampleWeighted(neighbors, g.adj[prev], prev, p, q, rng)
		}
		walk = append(walk, next)
	}
	return walk
}

func sampleWeighted(neighbors []neighbor, prevNeighbors []neighbor, prev string, p, q float64, rng *rand.Rand) string {
	weights := make([]float64, len(neighbors))
	var total float64
	for i, n := range neighbors {
		w := n.weight
		switch {
		case prev == "":
			// first step: uniform by edge weight
		case n.key == prev:
			w /= p
		case hasNeighbor(prevNeighbors, n.key):
			// distance 1 from prev: keep weight
		default:
			w /= q
		}
		weights[i] = w
		total += w
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return neighbors[i].key
		}
	}
	return neighbors[len(neighbors)-1].key
}

// hasNeighbor does a linear scan; neighbor lists in the match graph are
// small enough that a set is not worth building per step.
func hasNeighbor(neighbors []neighbor, key string) bool {
	for _, n := range neighbors {
		if n.key == key {
			return true
		}
	}
	return false
}

// coOccurrence counts, for every walk position, the nodes that appear within
// windowSize steps of it. The resulting symmetric matrix is the input to the
// SVD factorization.
func coOccurrence(walks [][]string, index map[string]int, windowSize int) *mat.Dense {
	n := len(index)
	m := mat.NewDense(n, n, nil)
	for _, walk := range walks {
		for i, key := range walk {
			ki := index[key]
			lo := i - windowSize
			if lo < 0 {
				lo = 0
			}
			hi := i + windowSize
			if hi >= len(walk) {
				hi = len(walk) - 1
			}
			for j := lo; j <= hi; j++ {
				if j == i {
					continue
				}
				kj := index[walk[j]]
				m.Set(ki, kj, m.At(ki, kj)+1)
			}
		}
	}
	return m
}
