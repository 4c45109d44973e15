package blocking

import (
	"context"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/similarity"
)

// PhoneticParams blocks on the Soundex code of one or more name fields.
type PhoneticParams struct {
	Fields []string `toml:"fields" validate:"required,min=1,dive,required"`
}

type phoneticStrategy struct {
	base
	fields []string
}

func newPhonetic(b base, p *PhoneticParams) (Strategy, error) {
	p, err := requireParams(KindPhonetic, p)
	if err != nil {
		return nil, err
	}
	return &phoneticStrategy{base: b, fields: p.Fields}, nil
}

func (s *phoneticStrategy) Name() string { return string(KindPhonetic) }

func (s *phoneticStrategy) GenerateCandidates(ctx context.Context) ([]model.CandidatePair, error) {
	records, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	blocks := make(map[string][]string)
	for _, rec := range records {
		for _, f := range s.fields {
			v, ok := rec.FieldString(f)
			if !ok {
				continue
			}
			code := similarity.Soundex(v)
			if code == "" {
				continue
			}
			blocks[f+":"+code] = append(blocks[f+":"+code], rec.Key)
		}
	}

	return s.emitBlocks(s.Name(), blocks), nil
}
