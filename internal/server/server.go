// Package server exposes the resolution pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/config"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core"
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

type Server struct {
	resolver *core.Resolver
	store    store.Store
	log      zerolog.Logger
}

// New wires the pipeline components out of the loaded configuration.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	st, err := buildStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var adapter *ann.Adapter
	if cfg.ANN.Enabled {
		adapter, err = ann.New(ctx, st, cfg.ANN.Config, log)
		if err != nil {
			return nil, err
		}
	}

	strategies := make([]blocking.Strategy, 0, len(cfg.Blocking))
	for _, bc := range cfg.Blocking {
		strat, err := blocking.New(st, adapter, bc, log)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strat)
	}

	scorer, err := scoring.NewScorer(cfg.Scoring, log)
	if err != nil {
		return nil, err
	}
	writer, err := persist.NewEdgeWriter(st, cfg.Edges, log)
	if err != nil {
		return nil, err
	}
	clusterer, err := cluster.NewEngine(cfg.Cluster, log)
	if err != nil {
		return nil, err
	}
	golden, err := persist.NewGoldenBuilder(st, cfg.Golden, nil, log)
	if err != nil {
		return nil, err
	}

	var embedSvc *embedding.Service
	if cfg.Embedding.Dimensions > 0 {
		embedSvc, err = embedding.NewService(cfg.Embedding, log)
		if err != nil {
			return nil, err
		}
	}

	var seeder *embedder.Seeder
	if cfg.Embedder.Enabled {
		client, err := embedder.New(ctx, cfg.Embedder.Config)
		if err != nil {
			return nil, err
		}
		seeder, err = embedder.NewSeeder(st, client, cfg.Embedder.Seed, log)
		if err != nil {
			return nil, err
		}
	}

	resolver, err := core.NewResolver(st, strategies, scorer, writer, clusterer, golden, embedSvc, seeder, adapter, cfg.Pipeline, log)
	if err != nil {
		return nil, err
	}

	return &Server{
		resolver: resolver,
		store:    st,
		log:      log.With().Str("component", "server").Logger(),
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "arango":
		return store.NewArangoStore(ctx, *cfg.Store.Arango, log)
	case "memgraph":
		return store.NewMemgraphStore(ctx, *cfg.Store.Memgraph, log)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, model.NewConfigError("server", "unknown store backend: %s", cfg.Store.Backend)
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.POST("/resolve", s.Resolve)
	r.POST("/similarity", s.Similarity)
	r.POST("/search/similar", s.SearchSimilar)
	r.GET("/clusters", s.Clusters)

	return r
}

// Close releases the store connection.
func (s *Server) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Resolve(c *gin.Context) {
	report, err := s.resolver.Resolve(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type SimilarityRequest struct {
	Key1          string `json:"key1" binding:"required"`
	Key2          string `json:"key2" binding:"required"`
	IncludeDetail bool   `json:"include_detail"`
}

func (s *Server) Similarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := s.resolver.ScorePair(c.Request.Context(), req.Key1, req.Key2, req.IncludeDetail)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type SearchSimilarRequest struct {
	Vector        []float64      `json:"vector"`
	Key           string         `json:"key"`
	Threshold     float64        `json:"threshold"`
	Limit         int            `json:"limit"`
	ExcludeSelf   bool           `json:"exclude_self"`
	BlockingField string         `json:"blocking_field"`
	BlockingValue interface{}    `json:"blocking_value"`
	Filters       []store.Filter `json:"filters"`
}

func (s *Server) SearchSimilar(c *gin.Context) {
	var req SearchSimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	results, err := s.resolver.FindSimilar(c.Request.Context(), ann.SimilarQuery{
		QueryVector:   req.Vector,
		QueryDocKey:   req.Key,
		Threshold:     req.Threshold,
		Limit:         req.Limit,
		ExcludeSelf:   req.ExcludeSelf,
		BlockingField: req.BlockingField,
		BlockingValue: req.BlockingValue,
		Filters:       req.Filters,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) Clusters(c *gin.Context) {
	clusters, stats, err := s.resolver.Clusters(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters, "statistics": stats})
}

// writeError maps the error taxonomy onto HTTP statuses: validation problems
// are the caller's fault, configuration and storage problems are ours.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *model.ValidationError
	var cerr *model.ConfigError
	var serr *model.StorageError
	var lerr *model.SafetyLimitError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.As(err, &lerr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": lerr.Error()})
	case errors.As(err, &cerr):
		s.log.Error().Err(err).Msg("configuration error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": cerr.Error()})
	case errors.As(err, &serr):
		s.log.Error().Err(err).Msg("storage error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage operation failed"})
	default:
		s.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
