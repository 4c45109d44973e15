package blocking

import (
	"context"
	"math/rand"
	"sort"
	"strconv"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// LSHParams configures random-hyperplane locality-sensitive hashing over
// stored record vectors. NumHashTables (L) raises recall; NumHyperplanes (k)
// raises per-table precision at the cost of recall. A fixed seed makes the
// candidate set reproducible.
type LSHParams struct {
	NumHashTables  int   `toml:"num_hash_tables" validate:"required,gte=1"`
	NumHyperplanes int   `toml:"num_hyperplanes" validate:"required,gte=1,lte=64"`
	Seed           int64 `toml:"seed"`
}

type lshStrategy struct {
	base
	tables      int
	hyperplanes int
	seed        int64
}

func newLSH(b base, p *LSHParams) (Strategy, error) {
	p, err := requireParams(KindLSH, p)
	if err != nil {
		return nil, err
	}
	return &lshStrategy{base: b, tables: p.NumHashTables, hyperplanes: p.NumHyperplanes, seed: p.Seed}, nil
}

func (s *lshStrategy) Name() string { return string(KindLSH) }

func (s *lshStrategy) GenerateCandidates(ctx context.Context) ([]model.CandidatePair, error) {
	vectors, err := s.store.FetchVectors(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	// Sorted key order keeps block membership, and therefore output order,
	// independent of map iteration.
	keys := make([]string, 0, len(vectors))
	for k := range vectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		s.stats = Statistics{}
		return nil, nil
	}

	dim := len(vectors[keys[0]])
	rng := rand.New(rand.NewSource(s.seed))
	blocks := make(map[string][]string)

	for table := 0; table < s.tables; table++ {
		planes := make([][]float64, s.hyperplanes)
		for i := range planes {
			plane := make([]float64, dim)
			for j := range plane {
				plane[j] = rng.NormFloat64()
			}
			planes[i] = plane
		}

		for _, key := range keys {
			vec := vectors[key]
			if len(vec) != dim {
				s.log.Warn().Str("key", key).Int("dim", len(vec)).Int("expected", dim).Msg("skipping vector with mismatched dimension")
				continue
			}
			sig := signature(vec, planes)
			blockKey := "t" + strconv.Itoa(table) + ":" + strconv.FormatUint(sig, 16)
			blocks[blockKey] = append(blocks[blockKey], key)
		}
	}

	// Union across tables; the pair set inside emitBlocks deduplicates
	// collisions repeated in multiple tables.
	return s.emitBlocks(s.Name(), blocks), nil
}

// signature packs the k hyperplane sides into a bitmask.
func signature(vec []float64, planes [][]float64) uint64 {
	var sig uint64
	for i, plane := range planes {
		var dot float64
		for j := range plane {
			dot += plane[j] * vec[j]
		}
		if dot >= 0 {
			sig |= 1 << uint(i)
		}
	}
	return sig
}
