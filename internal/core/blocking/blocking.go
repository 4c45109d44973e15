// Package blocking generates candidate pairs out of an otherwise quadratic
// comparison space. Six strategies share one interface; configuration is a
// tagged variant validated at construction, never at call time.
package blocking

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/ann"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// Kind names a blocking strategy.
type Kind string

const (
	KindExact              Kind = "exact"
	KindNGram              Kind = "ngram"
	KindPhonetic           Kind = "phonetic"
	KindSortedNeighborhood Kind = "sorted_neighborhood"
	KindLSH                Kind = "lsh"
	KindVector             Kind = "vector"
)

// Statistics reports the last GenerateCandidates run.
type Statistics struct {
	BlocksFormed      int `json:"blocks_formed"`
	CandidatesEmitted int `json:"candidates_emitted"`
	OversizedSkipped  int `json:"oversized_blocks_skipped"`
}

// Strategy is the common blocking contract. GenerateCandidates never emits a
// duplicate unordered pair within one call.
type Strategy interface {
	Name() string
	GenerateCandidates(ctx context.Context) ([]model.CandidatePair, error)
	Statistics() Statistics
}

// Config is the tagged strategy configuration: Kind selects which parameter
// struct applies.
type Config struct {
	Kind       Kind   `toml:"kind" validate:"required"`
	Collection string `toml:"collection" validate:"required"`

	// PageSize bounds each record read against the store.
	PageSize int `toml:"page_size"`

	// MaxBlockSize skips blocks larger than this entirely; truncating them
	// would bias coverage. Zero means unbounded.
	MaxBlockSize int `toml:"max_block_size"`

	// MinBlockSize is the smallest block that produces pairs. Defaults to 2.
	MinBlockSize int `toml:"min_block_size"`

	Exact              *ExactParams              `toml:"exact"`
	NGram              *NGramParams              `toml:"ngram"`
	Phonetic           *PhoneticParams           `toml:"phonetic"`
	SortedNeighborhood *SortedNeighborhoodParams `toml:"sorted_neighborhood"`
	LSH                *LSHParams                `toml:"lsh"`
	Vector             *VectorParams             `toml:"vector"`
}

var validate = validator.New()

// New validates the configuration and builds the selected strategy. Vector
// blocking additionally needs the ANN adapter; other kinds ignore it.
func New(st store.Store, adapter *ann.Adapter, cfg Config, log zerolog.Logger) (Strategy, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, model.NewConfigError("blocking", "%v", err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.MinBlockSize < 2 {
		cfg.MinBlockSize = 2
	}

	base := base{
		store:      st,
		collection: cfg.Collection,
		pageSize:   cfg.PageSize,
		maxBlock:   cfg.MaxBlockSize,
		minBlock:   cfg.MinBlockSize,
		log:        log.With().Str("component", "blocking").Str("strategy", string(cfg.Kind)).Logger(),
	}

	switch cfg.Kind {
	case KindExact:
		return newExact(base, cfg.Exact)
	case KindNGram:
		return newNGram(base, cfg.NGram)
	case KindPhonetic:
		return newPhonetic(base, cfg.Phonetic)
	case KindSortedNeighborhood:
		return newSortedNeighborhood(base, cfg.SortedNeighborhood)
	case KindLSH:
		return newLSH(base, cfg.LSH)
	case KindVector:
		if adapter == nil {
			return nil, model.NewConfigError("blocking", "vector strategy requires an ann adapter")
		}
		return newVector(base, adapter, cfg.Vector)
	default:
		return nil, model.NewConfigError("blocking", "unknown strategy kind %q", cfg.Kind)
	}
}

// base carries what every strategy needs.
type base struct {
	store      store.Store
	collection string
	pageSize   int
	maxBlock   int
	minBlock   int
	stats      Statistics
	log        zerolog.Logger
}

func (b *base) Statistics() Statistics { return b.stats }

// fetchAll pages through the collection rather than asking the store to
// materialize it at once.
func (b *base) fetchAll(ctx context.Context) ([]*model.Record, error) {
	var out []*model.Record
	for offset := 0; ; offset += b.pageSize {
		page, err := b.store.FetchRecords(ctx, b.collection, offset, b.pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < b.pageSize {
			break
		}
	}
	return out, nil
}

// emitBlocks turns key → member-keys blocks into candidate pairs, enforcing
// the min/max block sizes and recording statistics. Blocks are visited in
// sorted key order so output is reproducible.
func (b *base) emitBlocks(strategy string, blocks map[string][]string) []model.CandidatePair {
	set := model.NewPairSet()
	b.stats = Statistics{}

	blockKeys := make([]string, 0, len(blocks))
	for k := range blocks {
		blockKeys = append(blockKeys, k)
	}
	sort.Strings(blockKeys)

	for _, blockKey := range blockKeys {
		members := blocks[blockKey]
		if len(members) < b.minBlock {
			continue
		}
		if b.maxBlock > 0 && len(members) > b.maxBlock {
			b.stats.OversizedSkipped++
			b.log.Debug().Str("block", blockKey).Int("size", len(members)).Msg("skipping oversized block")
			continue
		}
		b.stats.BlocksFormed++
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				set.Add(model.NewCandidatePair(members[i], members[j], strategy, blockKey))
			}
		}
	}

	b.stats.CandidatesEmitted = set.Len()
	return set.Pairs()
}

func requireParams[T any](kind Kind, p *T) (*T, error) {
	if p == nil {
		return nil, model.NewConfigError("blocking", "%s strategy declared but no parameters supplied", kind)
	}
	if err := validate.Struct(p); err != nil {
		return nil, model.NewConfigError("blocking", "%s: %v", kind, err)
	}
	return p, nil
}
