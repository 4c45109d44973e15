package blocking

import (
	"context"
	"strings"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/similarity"
)

// NGramParams blocks on character n-grams of one normalized field, or on a
// fixed-length prefix when PrefixLength is set.
type NGramParams struct {
	Field        string `toml:"field" validate:"required"`
	N            int    `toml:"n" validate:"omitempty,gte=1"`
	PrefixLength int    `toml:"prefix_length" validate:"omitempty,gte=1"`
}

type ngramStrategy struct {
	base
	field  string
	n      int
	prefix int
}

func newNGram(b base, p *NGramParams) (Strategy, error) {
	p, err := requireParams(KindNGram, p)
	if err != nil {
		return nil, err
	}
	n := p.N
	if n == 0 {
		n = 3
	}
	return &ngramStrategy{base: b, field: p.Field, n: n, prefix: p.PrefixLength}, nil
}

func (s *ngramStrategy) Name() string { return string(KindNGram) }

func (s *ngramStrategy) GenerateCandidates(ctx context.Context) ([]model.CandidatePair, error) {
	records, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	// Records sharing any one blocking key collide into the same block; the
	// shared pair set deduplicates cross-block repeats.
	blocks := make(map[string][]string)
	for _, rec := range records {
		v, ok := rec.FieldString(s.field)
		if !ok {
			continue
		}
		for key := range s.blockKeys(v) {
			blocks[key] = append(blocks[key], rec.Key)
		}
	}

	return s.emitBlocks(s.Name(), blocks), nil
}

func (s *ngramStrategy) blockKeys(value string) map[string]struct{} {
	if s.prefix > 0 {
		normalized := strings.ToLower(strings.TrimSpace(value))
		runes := []rune(normalized)
		if len(runes) == 0 {
			return nil
		}
		if len(runes) > s.prefix {
			runes = runes[:s.prefix]
		}
		return map[string]struct{}{string(runes): {}}
	}
	return similarity.NGrams(value, s.n)
}
