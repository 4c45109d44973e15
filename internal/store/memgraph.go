package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// MemgraphConfig connects a MemgraphStore over bolt.
type MemgraphConfig struct {
	URI              string `toml:"uri" validate:"required"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`
	RecordCollection string `toml:"record_collection" validate:"required"`
}

// MemgraphStore implements Store on Memgraph (or Neo4j) through the bolt
// driver. Records live as :Record nodes, match edges as :MATCHES
// relationships, golden records as :GoldenRecord nodes.
type MemgraphStore struct {
	driver    neo4j.DriverWithContext
	recordCol string
	log       zerolog.Logger
}

func NewMemgraphStore(ctx context.Context, cfg MemgraphConfig, log zerolog.Logger) (*MemgraphStore, error) {
	drv, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, model.NewStorageError("connect", err)
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		return nil, model.NewStorageError("verify connectivity", err)
	}

	log.Info().Str("uri", cfg.URI).Msg("connected to memgraph")
	return &MemgraphStore{
		driver:    drv,
		recordCol: cfg.RecordCollection,
		log:       log.With().Str("component", "memgraph_store").Logger(),
	}, nil
}

func (s *MemgraphStore) execute(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return result, nil
}

func recordFromCypher(rec *neo4j.Record) *model.Record {
	out := &model.Record{Fields: make(map[string]interface{})}
	if v, ok := rec.Get("key"); ok && v != nil {
		out.Key, _ = v.(string)
	}
	if v, ok := rec.Get("embedding"); ok && v != nil {
		if vals, ok := v.([]interface{}); ok {
			for _, f := range vals {
				if fv, ok := f.(float64); ok {
					out.Embedding = append(out.Embedding, fv)
				}
			}
		}
	}
	if v, ok := rec.Get("props"); ok && v != nil {
		if props, ok := v.(map[string]interface{}); ok {
			for k, fv := range props {
				switch k {
				case "key", "collection", "embedding":
				default:
					out.Fields[k] = fv
				}
			}
		}
	}
	return out
}

func (s *MemgraphStore) FetchRecord(ctx context.Context, collection, key string) (*model.Record, error) {
	if key == "" {
		return nil, model.NewValidationError("key", "must not be empty")
	}
	res, err := s.execute(ctx, fetchRecordCypher, map[string]interface{}{
		"collection": collection,
		"key":        key,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch record", err)
	}
	if len(res.Records) == 0 {
		return nil, model.NewStorageError("fetch record", fmt.Errorf("record %s/%s not found", collection, key))
	}
	return recordFromCypher(res.Records[0]), nil
}

func (s *MemgraphStore) FetchRecords(ctx context.Context, collection string, offset, limit int) ([]*model.Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	res, err := s.execute(ctx, fetchRecordsCypher, map[string]interface{}{
		"collection": collection,
		"offset":     offset,
		"limit":      limit,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch records", err)
	}
	out := make([]*model.Record, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, recordFromCypher(rec))
	}
	return out, nil
}

func (s *MemgraphStore) FetchVectors(ctx context.Context, collection string) (map[string][]float64, error) {
	res, err := s.execute(ctx, fetchVectorsCypher, map[string]interface{}{
		"collection": collection,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch vectors", err)
	}
	out := make(map[string][]float64)
	for _, rec := range res.Records {
		r := recordFromCypher(rec)
		if len(r.Embedding) > 0 {
			out[r.Key] = r.Embedding
		}
	}
	return out, nil
}

func (s *MemgraphStore) UpdateEmbedding(ctx context.Context, collection string, emb model.Embedding) error {
	res, err := s.execute(ctx, updateEmbeddingCypher, map[string]interface{}{
		"collection": collection,
		"key":        emb.Key,
		"embedding":  emb.Vector,
		"method":     emb.Method,
		"seed":       emb.Seed,
		"dimension":  emb.Dimension,
	})
	if err != nil {
		return model.NewStorageError("update embedding", err)
	}
	if len(res.Records) == 0 {
		return model.NewStorageError("update embedding", fmt.Errorf("record %s/%s not found", collection, emb.Key))
	}
	return nil
}

// EngineVersion reports the bolt server agent string, e.g.
// "Memgraph/2.18.0".
func (s *MemgraphStore) EngineVersion(ctx context.Context) (string, error) {
	res, err := s.execute(ctx, "RETURN 1", nil)
	if err != nil {
		return "", model.NewStorageError("version", err)
	}
	return res.Summary.Server().Agent(), nil
}

// NativeVectorSearch calls the MAGE vector_search module. The blocking
// filter and scalar filters are applied to the yielded nodes afterwards,
// inside the same transaction round trip where possible and in-process
// otherwise.
func (s *MemgraphStore) NativeVectorSearch(ctx context.Context, q VectorQuery) ([]VectorMatch, error) {
	fetch := q.Limit
	if q.BlockingField != "" || len(q.Filters) > 0 || q.ExcludeKey != "" {
		// Over-fetch so post-filtering can still fill the limit.
		fetch *= 4
	}
	res, err := s.execute(ctx, vectorSearchCypher, map[string]interface{}{
		"index":     q.Collection + "_embedding",
		"limit":     fetch,
		"vector":    q.Vector,
		"threshold": q.Threshold,
	})
	if err != nil {
		return nil, model.NewStorageError("native vector search", err)
	}

	var out []VectorMatch
	for _, rec := range res.Records {
		keyVal, _ := rec.Get("key")
		simVal, _ := rec.Get("similarity")
		key, _ := keyVal.(string)
		sim, _ := simVal.(float64)
		if key == "" || key == q.ExcludeKey {
			continue
		}
		if !s.passesFilters(ctx, q, key) {
			continue
		}
		out = append(out, VectorMatch{Key: key, Similarity: sim})
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemgraphStore) passesFilters(ctx context.Context, q VectorQuery, key string) bool {
	if q.BlockingField == "" && len(q.Filters) == 0 {
		return true
	}
	rec, err := s.FetchRecord(ctx, q.Collection, key)
	if err != nil {
		return false
	}
	if q.BlockingField != "" && rec.Fields[q.BlockingField] != q.BlockingValue {
		return false
	}
	for _, f := range q.Filters {
		if !MatchScalarFilter(rec.Fields[f.Field], f) {
			return false
		}
	}
	return true
}

func (s *MemgraphStore) InsertEdges(ctx context.Context, collection string, edges []model.MatchEdge, ignoreConflicts bool) (int, error) {
	written := 0
	for _, e := range edges {
		res, err := s.execute(ctx, insertEdgeCypher, map[string]interface{}{
			"record_collection": s.recordCol,
			"collection":        collection,
			"doc_key":           edgeDocKey(e),
			"edge_key":          e.Key,
			"from":              e.From,
			"to":                e.To,
			"score":             e.Score,
			"method":            e.Method,
			"created_at":        e.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return written, model.NewStorageError("insert edges", err)
		}
		created := false
		if len(res.Records) > 0 {
			if v, ok := res.Records[0].Get("created"); ok {
				created, _ = v.(bool)
			}
		}
		if created {
			written++
		} else if !ignoreConflicts {
			return written, model.NewStorageError("insert edges", fmt.Errorf("duplicate edge key %s", e.Key))
		}
	}
	return written, nil
}

func (s *MemgraphStore) FetchEdges(ctx context.Context, collection string, limit int) ([]model.MatchEdge, error) {
	if limit <= 0 {
		limit = 100000
	}
	res, err := s.execute(ctx, fetchEdgesCypher, map[string]interface{}{
		"collection": collection,
		"limit":      limit,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch edges", err)
	}

	out := make([]model.MatchEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		e := model.MatchEdge{}
		if v, ok := rec.Get("key"); ok {
			e.Key, _ = v.(string)
		}
		if v, ok := rec.Get("from"); ok {
			e.From, _ = v.(string)
		}
		if v, ok := rec.Get("to"); ok {
			e.To, _ = v.(string)
		}
		if v, ok := rec.Get("score"); ok {
			e.Score, _ = v.(float64)
		}
		if v, ok := rec.Get("method"); ok {
			e.Method, _ = v.(string)
		}
		if v, ok := rec.Get("created_at"); ok {
			if ts, okStr := v.(string); okStr {
				e.CreatedAt, _ = time.Parse(time.RFC3339, ts)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemgraphStore) ClearEdges(ctx context.Context, collection, method string, before time.Time) (int, error) {
	params := map[string]interface{}{
		"collection": collection,
		"method":     nil,
		"before":     nil,
	}
	if method != "" {
		params["method"] = method
	}
	if !before.IsZero() {
		params["before"] = before.UTC().Format(time.RFC3339)
	}
	res, err := s.execute(ctx, clearEdgesCypher, params)
	if err != nil {
		return 0, model.NewStorageError("clear edges", err)
	}
	if len(res.Records) > 0 {
		if v, ok := res.Records[0].Get("removed"); ok {
			if n, okInt := v.(int64); okInt {
				return int(n), nil
			}
		}
	}
	return 0, nil
}

func (s *MemgraphStore) UpsertGoldenRecords(ctx context.Context, collection string, records []model.GoldenRecord) (int, error) {
	for _, g := range records {
		_, err := s.execute(ctx, upsertGoldenCypher, map[string]interface{}{
			"collection": collection,
			"key":        g.Key,
			"cluster_id": g.ClusterID,
			"members":    g.Members,
			"created_at": g.CreatedAt.UTC().Format(time.RFC3339),
			"fields":     g.Fields,
		})
		if err != nil {
			return 0, model.NewStorageError("upsert golden records", err)
		}
	}
	return len(records), nil
}

func (s *MemgraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
