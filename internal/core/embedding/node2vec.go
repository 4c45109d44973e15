// Package embedding produces node2vec-style vectors for the records in the
// match graph: seeded biased random walks feed a windowed co-occurrence
// matrix that is factorized by SVD down to the requested dimensionality.
package embedding

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// MethodTag marks embeddings produced by this service.
const MethodTag = "node2vec"

// WeightedEdge is one edge of the input graph. A non-positive weight is
// treated as the default 1.0.
type WeightedEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Config configures the service. The max_* values are hard safety limits:
// exceeding one raises a SafetyLimitError naming it; the warn_* values only
// log.
type Config struct {
	Dimensions  int     `toml:"dimensions"`
	NumWalks    int     `toml:"num_walks"`
	WalkLength  int     `toml:"walk_length"`
	WindowSize  int     `toml:"window_size"`
	ReturnParam float64 `toml:"return_param"`  // p: likelihood of revisiting the previous node
	InOutParam  float64 `toml:"in_out_param"`  // q: depth-first vs breadth-first bias
	Seed        int64   `toml:"seed"`

	MaxNodes        int `toml:"max_nodes"`
	MaxDimensions   int `toml:"max_dimensions"`
	MaxEdgesFetched int `toml:"max_edges_fetched"`

	WarnNodesThreshold int `toml:"warn_nodes_threshold"`
	WarnEdgesThreshold int `toml:"warn_edges_threshold"`
}

// Service computes embeddings. Stateless across calls.
type Service struct {
	cfg Config
	log zerolog.Logger
}

func NewService(cfg Config, log zerolog.Logger) (*Service, error) {
	if cfg.Dimensions <= 0 {
		return nil, model.NewConfigError("embedding", "dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.NumWalks <= 0 {
		return nil, model.NewConfigError("embedding", "num_walks must be positive, got %d", cfg.NumWalks)
	}
	if cfg.WalkLength < 2 {
		return nil, model.NewConfigError("embedding", "walk_length must be at least 2, got %d", cfg.WalkLength)
	}
	if cfg.WindowSize <= 0 {
		return nil, model.NewConfigError("embedding", "window_size must be positive, got %d", cfg.WindowSize)
	}
	if cfg.ReturnParam == 0 {
		cfg.ReturnParam = 1
	}
	if cfg.InOutParam == 0 {
		cfg.InOutParam = 1
	}
	if cfg.ReturnParam < 0 || cfg.InOutParam < 0 {
		return nil, model.NewConfigError("embedding", "return_param and in_out_param must be positive")
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = 100000
	}
	if cfg.MaxDimensions <= 0 {
		cfg.MaxDimensions = 512
	}
	if cfg.MaxEdgesFetched <= 0 {
		cfg.MaxEdgesFetched = 1000000
	}

	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "embedding").Logger(),
	}, nil
}

// Embed computes one vector per distinct node in the edge list. Empty input
// yields an empty map. A fixed seed reproduces vectors bit-identically.
func (s *Service) Embed(edges []WeightedEdge) (map[string]model.Embedding, error) {
	if len(edges) == 0 {
		return map[string]model.Embedding{}, nil
	}
	if len(edges) > s.cfg.MaxEdgesFetched {
		return nil, &model.SafetyLimitError{Limit: "max_edges_fetched", Requested: len(edges), Allowed: s.cfg.MaxEdgesFetched}
	}
	if s.cfg.Dimensions > s.cfg.MaxDimensions {
		return nil, &model.SafetyLimitError{Limit: "max_dimensions", Requested: s.cfg.Dimensions, Allowed: s.cfg.MaxDimensions}
	}
	if s.cfg.WarnEdgesThreshold > 0 && len(edges) > s.cfg.WarnEdgesThreshold {
		s.log.Warn().Int("edges", len(edges)).Int("threshold", s.cfg.WarnEdgesThreshold).Msg("edge count above warn threshold")
	}

	graph := buildGraph(edges)
	if len(graph.nodes) > s.cfg.MaxNodes {
		return nil, &model.SafetyLimitError{Limit: "max_nodes", Requested: len(graph.nodes), Allowed: s.cfg.MaxNodes}
	}
	if s.cfg.WarnNodesThreshold > 0 && len(graph.nodes) > s.cfg.WarnNodesThreshold {
		s.log.Warn().Int("nodes", len(graph.nodes)).Int("threshold", s.cfg.WarnNodesThreshold).Msg("node count above warn threshold")
	}

	// Factorization rank cannot exceed the node count; clamp silently.
	dims := s.cfg.Dimensions
	if dims > len(graph.nodes) {
		dims = len(graph.nodes)
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	walks := generateWalks(graph, s.cfg.NumWalks, s.cfg.WalkLength, s.cfg.ReturnParam, s.cfg.InOutParam, rng)
	cooc := coOccurrence(walks, graph.index, s.cfg.WindowSize)
	vectors := factorize(cooc, len(graph.nodes), dims)

	out := make(map[string]model.Embedding, len(graph.nodes))
	for i, key := range graph.nodes {
		out[key] = model.Embedding{
			Key:       key,
			Vector:    normalize(vectors[i]),
			Method:    MethodTag,
			Seed:      s.cfg.Seed,
			Dimension: dims,
		}
	}

	s.log.Info().Int("nodes", len(graph.nodes)).Int("dimensions", dims).Msg("embeddings computed")
	return out, nil
}

// factorize runs thin SVD over the co-occurrence matrix and scales the left
// singular vectors by the square roots of the singular values.
func factorize(cooc *mat.Dense, n, dims int) [][]float64 {
	var svd mat.SVD
	if !svd.Factorize(cooc, mat.SVDThin) {
		// A matrix of all zeros (no co-occurrences) still factorizes; this
		// branch covers numerical failure by falling back to zero vectors.
		out := make([][]float64, n)
		for i := range out {
			out[i] = make([]float64, dims)
		}
		return out
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		vec := make([]float64, dims)
		for j := 0; j < dims && j < len(values); j++ {
			vec[j] = u.At(i, j) * math.Sqrt(values[j])
		}
		out[i] = vec
	}
	return out
}

// normalize scales to unit length. A degenerate zero vector is returned
// unchanged rather than producing NaN.
func normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

type graphData struct {
	nodes []string       // sorted
	index map[string]int // key -> position in nodes
	adj   map[string][]neighbor
}

type neighbor struct {
	key    string
	weight float64
}

// buildGraph builds a sorted, undirected weighted adjacency. Neighbor lists
// are sorted so walk sampling is reproducible.
func buildGraph(edges []WeightedEdge) *graphData {
	adj := make(map[string]map[string]float64)
	addEdge := func(a, b string, w float64) {
		if adj[a] == nil {
			adj[a] = make(map[string]float64)
		}
		adj[a][b] += w
	}
	for _, e := range edges {
		if e.From == "" || e.To == "" || e.From == e.To {
			continue
		}
		w := e.Weight
		if w <= 0 {
			w = 1.0
		}
		addEdge(e.From, e.To, w)
		addEdge(e.To, e.From, w)
	}

	g := &graphData{
		index: make(map[string]int),
		adj:   make(map[string][]neighbor),
	}
	for key := range adj {
		g.nodes = append(g.nodes, key)
	}
	sort.Strings(g.nodes)
	for i, key := range g.nodes {
		g.index[key] = i
		neighbors := make([]neighbor, 0, len(adj[key]))
		for nkey, w := range adj[key] {
			neighbors = append(neighbors, neighbor{key: nkey, weight: w})
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].key < neighbors[j].key })
		g.adj[key] = neighbors
	}
	return g
}
