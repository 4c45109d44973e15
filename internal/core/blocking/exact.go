package blocking

import (
	"context"
	"strings"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// ExactParams groups records by exact equality of the configured fields.
type ExactParams struct {
	Fields []string `toml:"fields" validate:"required,min=1,dive,required"`
}

type exactStrategy struct {
	base
	fields []string
}

func newExact(b base, p *ExactParams) (Strategy, error) {
	p, err := requireParams(KindExact, p)
	if err != nil {
		return nil, err
	}
	return &exactStrategy{base: b, fields: p.Fields}, nil
}

func (s *exactStrategy) Name() string { return string(KindExact) }

func (s *exactStrategy) GenerateCandidates(ctx context.Context) ([]model.CandidatePair, error) {
	records, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	blocks := make(map[string][]string)
	for _, rec := range records {
		parts := make([]string, 0, len(s.fields))
		complete := true
		for _, f := range s.fields {
			v, ok := rec.FieldString(f)
			if !ok {
				complete = false
				break
			}
			parts = append(parts, strings.ToLower(v))
		}
		if !complete {
			continue
		}
		key := strings.Join(parts, "|")
		blocks[key] = append(blocks[key], rec.Key)
	}

	return s.emitBlocks(s.Name(), blocks), nil
}
