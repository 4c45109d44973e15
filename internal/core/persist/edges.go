// Package persist turns scoring and clustering output into durable graph
// state: match edges with deterministic keys and idempotent golden records.
package persist

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// EdgeWriterConfig configures match-edge persistence.
type EdgeWriterConfig struct {
	Collection    string `toml:"collection"`
	Method        string `toml:"method"`
	BatchSize     int    `toml:"batch_size"`
	Bidirectional bool   `toml:"bidirectional"`
}

// WriteStats reports one WriteMatches run. A failed batch does not abort the
// run; its edges are counted in FailedEdges and the remaining batches still
// flush.
type WriteStats struct {
	EdgesBuilt    int `json:"edges_built"`
	EdgesWritten  int `json:"edges_written"`
	FailedBatches int `json:"failed_batches"`
	FailedEdges   int `json:"failed_edges"`
}

// EdgeWriter persists match decisions as edges.
type EdgeWriter struct {
	st  store.Store
	cfg EdgeWriterConfig
	log zerolog.Logger
	now func() time.Time
}

func NewEdgeWriter(st store.Store, cfg EdgeWriterConfig, log zerolog.Logger) (*EdgeWriter, error) {
	if st == nil {
		return nil, model.NewConfigError("persist", "store is required")
	}
	if cfg.Collection == "" {
		return nil, model.NewConfigError("persist", "edge collection is required")
	}
	if cfg.Method == "" {
		cfg.Method = "similarity"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &EdgeWriter{
		st:  st,
		cfg: cfg,
		log: log.With().Str("component", "edge_writer").Logger(),
		now: time.Now,
	}, nil
}

// WriteMatches persists an edge for every result whose decision is match.
// Edges for non-match and possible-match results are never written. Because
// edge keys are deterministic over the endpoint pair, re-running over the
// same results is a no-op.
func (w *EdgeWriter) WriteMatches(ctx context.Context, results []model.SimilarityResult) (WriteStats, error) {
	var stats WriteStats

	at := w.now()
	edges := make([]model.MatchEdge, 0, len(results))
	for _, res := range results {
		if res.Decision != model.DecisionMatch {
			continue
		}
		edges = append(edges, model.NewMatchEdge(res.Key1, res.Key2, res.Score, w.cfg.Method, at))
		if w.cfg.Bidirectional {
			edges = append(edges, model.NewMatchEdge(res.Key2, res.Key1, res.Score, w.cfg.Method, at))
		}
	}
	stats.EdgesBuilt = len(edges)
	if len(edges) == 0 {
		return stats, nil
	}

	var lastErr error
	for start := 0; start < len(edges); start += w.cfg.BatchSize {
		end := start + w.cfg.BatchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := edges[start:end]

		written, err := w.st.InsertEdges(ctx, w.cfg.Collection, batch, true)
		if err != nil {
			stats.FailedBatches++
			stats.FailedEdges += len(batch)
			lastErr = err
			w.log.Error().Err(err).Int("batch_start", start).Int("batch_size", len(batch)).Msg("edge batch failed")
			continue
		}
		stats.EdgesWritten += written
	}

	if stats.EdgesWritten == 0 && lastErr != nil {
		return stats, lastErr
	}
	w.log.Info().Int("built", stats.EdgesBuilt).Int("written", stats.EdgesWritten).
		Int("failed_batches", stats.FailedBatches).Msg("match edges persisted")
	return stats, nil
}

// Clear removes previously written edges for this writer's method tag,
// optionally restricted to edges older than before.
func (w *EdgeWriter) Clear(ctx context.Context, before time.Time) (int, error) {
	return w.st.ClearEdges(ctx, w.cfg.Collection, w.cfg.Method, before)
}
