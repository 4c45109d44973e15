// Package core wires the resolution pipeline: blocking proposes candidate
// pairs, scoring classifies them, matched pairs become edges, connected
// components become clusters, and clusters materialize golden records.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/ann"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/blocking"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/cluster"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/embedding"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/persist"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/scoring"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/embedder"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// ResolverConfig holds the pipeline-level knobs; per-stage configuration
// lives with the stage components passed to NewResolver.
type ResolverConfig struct {
	RecordCollection string `toml:"record_collection"`
	EdgeCollection   string `toml:"edge_collection"`

	// PageSize bounds each record read while loading the comparison space.
	PageSize int `toml:"page_size"`

	// MaxEdgesFetch bounds the edge read before clustering. Zero means
	// unbounded.
	MaxEdgesFetch int `toml:"max_edges_fetch"`

	// IncludeDetail carries per-field similarity breakdowns through to the
	// resolve report.
	IncludeDetail bool `toml:"include_detail"`

	// ReEmbed recomputes graph embeddings from the match edges after
	// clustering and writes them back onto the records.
	ReEmbed bool `toml:"re_embed"`
}

// Resolver runs the end-to-end pipeline over pre-built stage components.
type Resolver struct {
	st         store.Store
	strategies []blocking.Strategy
	scorer     *scoring.Scorer
	writer     *persist.EdgeWriter
	clusterer  *cluster.Engine
	golden     *persist.GoldenBuilder
	embedSvc   *embedding.Service
	seeder     *embedder.Seeder
	adapter    *ann.Adapter
	cfg        ResolverConfig
	log        zerolog.Logger
}

func NewResolver(
	st store.Store,
	strategies []blocking.Strategy,
	scorer *scoring.Scorer,
	writer *persist.EdgeWriter,
	clusterer *cluster.Engine,
	golden *persist.GoldenBuilder,
	embedSvc *embedding.Service,
	seeder *embedder.Seeder,
	adapter *ann.Adapter,
	cfg ResolverConfig,
	log zerolog.Logger,
) (*Resolver, error) {
	if st == nil {
		return nil, model.NewConfigError("resolver", "store is required")
	}
	if len(strategies) == 0 {
		return nil, model.NewConfigError("resolver", "at least one blocking strategy is required")
	}
	if scorer == nil {
		return nil, model.NewConfigError("resolver", "scorer is required")
	}
	if writer == nil || clusterer == nil || golden == nil {
		return nil, model.NewConfigError("resolver", "edge writer, cluster engine and golden builder are required")
	}
	if cfg.RecordCollection == "" || cfg.EdgeCollection == "" {
		return nil, model.NewConfigError("resolver", "record and edge collections are required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}

	return &Resolver{
		st:         st,
		strategies: strategies,
		scorer:     scorer,
		writer:     writer,
		clusterer:  clusterer,
		golden:     golden,
		embedSvc:   embedSvc,
		seeder:     seeder,
		adapter:    adapter,
		cfg:        cfg,
		log:        log.With().Str("component", "resolver").Logger(),
	}, nil
}

// ResolveReport summarizes one pipeline run.
type ResolveReport struct {
	Records        int                   `json:"records"`
	CandidatePairs int                   `json:"candidate_pairs"`
	ScoreStats     model.BatchScoreStats `json:"score_stats"`
	Matches        int                   `json:"matches"`
	PossibleMatch  int                   `json:"possible_matches"`
	SeededVectors  int                   `json:"seeded_vectors"`
	EdgeStats      persist.WriteStats    `json:"edge_stats"`
	ClusterStats   model.ClusterStats    `json:"cluster_stats"`
	GoldenStats    persist.GoldenStats   `json:"golden_stats"`
	Embeddings     int                   `json:"embeddings"`
	Clusters       []model.Cluster       `json:"clusters"`
	Duration       time.Duration         `json:"duration"`
}

// Resolve runs the full pipeline once. Stages that tolerate partial failure
// (batch scoring, batched edge writes) report it in the stats rather than
// aborting.
func (r *Resolver) Resolve(ctx context.Context) (*ResolveReport, error) {
	started := time.Now()
	report := &ResolveReport{}

	// Seed text embeddings first so blocking and vector search see every
	// record with a vector.
	if r.seeder != nil {
		seeded, err := r.seeder.SeedMissing(ctx)
		if err != nil {
			return nil, err
		}
		report.SeededVectors = seeded
	}

	records, err := r.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	report.Records = len(records)

	pairs, err := r.generateCandidates(ctx)
	if err != nil {
		return nil, err
	}
	report.CandidatePairs = len(pairs)

	results, stats := r.scorer.ComputeBatch(ctx, pairs, records, r.cfg.IncludeDetail)
	report.ScoreStats = stats
	for _, res := range results {
		switch res.Decision {
		case model.DecisionMatch:
			report.Matches++
		case model.DecisionPossibleMatch:
			report.PossibleMatch++
		}
	}

	edgeStats, err := r.writer.WriteMatches(ctx, results)
	if err != nil {
		return nil, err
	}
	report.EdgeStats = edgeStats

	edges, err := r.st.FetchEdges(ctx, r.cfg.EdgeCollection, r.cfg.MaxEdgesFetch)
	if err != nil {
		return nil, err
	}

	clusters := r.clusterer.Cluster(edges)
	report.Clusters = clusters
	report.ClusterStats = r.clusterer.Statistics()

	goldenStats, err := r.golden.Build(ctx, clusters, records)
	if err != nil {
		return nil, err
	}
	report.GoldenStats = goldenStats

	if r.cfg.ReEmbed && r.embedSvc != nil {
		count, err := r.reEmbed(ctx, edges)
		if err != nil {
			return nil, err
		}
		report.Embeddings = count
	}

	report.Duration = time.Since(started)
	r.log.Info().Int("records", report.Records).Int("pairs", report.CandidatePairs).
		Int("matches", report.Matches).Int("clusters", len(clusters)).
		Dur("duration", report.Duration).Msg("resolution run complete")
	return report, nil
}

// ScorePair compares two stored records on demand.
func (r *Resolver) ScorePair(ctx context.Context, key1, key2 string, includeDetail bool) (*model.SimilarityResult, error) {
	a, err := r.st.FetchRecord(ctx, r.cfg.RecordCollection, key1)
	if err != nil {
		return nil, err
	}
	b, err := r.st.FetchRecord(ctx, r.cfg.RecordCollection, key2)
	if err != nil {
		return nil, err
	}
	return r.scorer.ComputeSimilarity(a, b, includeDetail)
}

// FindSimilar exposes vector search when an ANN adapter was configured.
func (r *Resolver) FindSimilar(ctx context.Context, q ann.SimilarQuery) ([]ann.Result, error) {
	if r.adapter == nil {
		return nil, model.NewConfigError("resolver", "vector search is not configured")
	}
	return r.adapter.FindSimilarVectors(ctx, q)
}

// Clusters recomputes connected components from the currently stored edges
// without running blocking or scoring.
func (r *Resolver) Clusters(ctx context.Context) ([]model.Cluster, model.ClusterStats, error) {
	edges, err := r.st.FetchEdges(ctx, r.cfg.EdgeCollection, r.cfg.MaxEdgesFetch)
	if err != nil {
		return nil, model.ClusterStats{}, err
	}
	clusters := r.clusterer.Cluster(edges)
	return clusters, r.clusterer.Statistics(), nil
}

func (r *Resolver) loadRecords(ctx context.Context) (map[string]*model.Record, error) {
	records := make(map[string]*model.Record)
	for offset := 0; ; offset += r.cfg.PageSize {
		page, err := r.st.FetchRecords(ctx, r.cfg.RecordCollection, offset, r.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			records[rec.Key] = rec
		}
		if len(page) < r.cfg.PageSize {
			break
		}
	}
	return records, nil
}

// generateCandidates unions the pairs of every configured strategy. The
// PairSet drops duplicates emitted by overlapping strategies.
func (r *Resolver) generateCandidates(ctx context.Context) ([]model.CandidatePair, error) {
	set := model.NewPairSet()
	for _, strat := range r.strategies {
		pairs, err := strat.GenerateCandidates(ctx)
		if err != nil {
			return nil, err
		}
		before := set.Len()
		for _, p := range pairs {
			set.Add(p)
		}
		r.log.Debug().Str("strategy", strat.Name()).Int("emitted", len(pairs)).
			Int("new", set.Len()-before).Msg("blocking strategy finished")
	}
	return set.Pairs(), nil
}

// reEmbed folds the match edges into a weighted graph, recomputes node2vec
// vectors, and writes them back onto the records.
func (r *Resolver) reEmbed(ctx context.Context, edges []model.MatchEdge) (int, error) {
	weighted := make([]embedding.WeightedEdge, 0, len(edges))
	for _, e := range edges {
		weighted = append(weighted, embedding.WeightedEdge{From: e.From, To: e.To, Weight: e.Score})
	}

	embeddings, err := r.embedSvc.Embed(weighted)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, emb := range embeddings {
		if err := r.st.UpdateEmbedding(ctx, r.cfg.RecordCollection, emb); err != nil {
			r.log.Warn().Err(err).Str("key", emb.Key).Msg("embedding write failed")
			continue
		}
		written++
	}
	return written, nil
}
