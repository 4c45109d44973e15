package blocking

import (
	"context"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/ann"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// VectorParams delegates candidate generation to the ANN adapter's all-pairs
// search. The adapter owns the native-path fallback.
type VectorParams struct {
	Threshold      float64        `toml:"threshold" validate:"gte=0,lte=1"`
	LimitPerEntity int            `toml:"limit_per_entity" validate:"required,gte=1"`
	BlockingField  string         `toml:"blocking_field"`
	Filters        []store.Filter `toml:"filters"`
}

type vectorStrategy struct {
	base
	adapter *ann.Adapter
	params  VectorParams
}

func newVector(b base, adapter *ann.Adapter, p *VectorParams) (Strategy, error) {
	p, err := requireParams(KindVector, p)
	if err != nil {
		return nil, err
	}
	return &vectorStrategy{base: b, adapter: adapter, params: *p}, nil
}

func (s *vectorStrategy) Name() string { return string(KindVector) }

func (s *vectorStrategy) GenerateCandidates(ctx context.Context) ([]model.CandidatePair, error) {
	pairs, err := s.adapter.FindAllPairs(ctx, s.params.Threshold, s.params.LimitPerEntity, s.params.BlockingField, s.params.Filters)
	if err != nil {
		return nil, err
	}

	set := model.NewPairSet()
	for _, p := range pairs {
		set.Add(model.NewCandidatePair(p.Key1, p.Key2, s.Name(), ""))
	}

	s.stats = Statistics{
		BlocksFormed:      0,
		CandidatesEmitted: set.Len(),
	}
	return set.Pairs(), nil
}
