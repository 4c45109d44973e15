package embedder

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// MethodText marks embeddings produced from a source text field rather than
// from the match graph.
const MethodText = "text_embedding"

// SeederConfig names the collection and text field to seed vectors from.
type SeederConfig struct {
	Collection string `toml:"collection"`
	Field      string `toml:"field"`
	PageSize   int    `toml:"page_size"`
}

// Seeder fills in missing record embeddings by running a text field through
// an embedding client. Records that already carry a vector are left alone.
type Seeder struct {
	st     store.Store
	client Client
	cfg    SeederConfig
	log    zerolog.Logger
}

func NewSeeder(st store.Store, client Client, cfg SeederConfig, log zerolog.Logger) (*Seeder, error) {
	if st == nil {
		return nil, model.NewConfigError("embedder", "store is required")
	}
	if client == nil {
		return nil, model.NewConfigError("embedder", "client is required")
	}
	if cfg.Collection == "" || cfg.Field == "" {
		return nil, model.NewConfigError("embedder", "seed collection and field are required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Seeder{
		st:     st,
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "embed-seeder").Logger(),
	}, nil
}

// SeedMissing embeds the configured text field for every record without a
// vector and writes the result back. Per-record provider failures are logged
// and skipped so one bad document cannot stall the run.
func (s *Seeder) SeedMissing(ctx context.Context) (int, error) {
	seeded := 0
	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.st.FetchRecords(ctx, s.cfg.Collection, offset, s.cfg.PageSize)
		if err != nil {
			return seeded, err
		}
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			if len(rec.Embedding) > 0 {
				continue
			}
			text := fieldText(rec, s.cfg.Field)
			if text == "" {
				continue
			}
			vec, err := s.client.Embed(ctx, text)
			if err != nil {
				s.log.Warn().Err(err).Str("key", rec.Key).Msg("embed request failed")
				continue
			}
			emb := model.Embedding{
				Key:       rec.Key,
				Vector:    vec,
				Method:    MethodText,
				Dimension: len(vec),
			}
			if err := s.st.UpdateEmbedding(ctx, s.cfg.Collection, emb); err != nil {
				s.log.Warn().Err(err).Str("key", rec.Key).Msg("embedding write failed")
				continue
			}
			seeded++
		}
		if len(page) < s.cfg.PageSize {
			break
		}
	}
	s.log.Info().Int("seeded", seeded).Msg("vector seeding finished")
	return seeded, nil
}

func fieldText(rec *model.Record, field string) string {
	v, ok := rec.Fields[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
