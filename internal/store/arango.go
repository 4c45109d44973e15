package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	driver "github.com/arangodb/go-driver"
	arangohttp "github.com/arangodb/go-driver/http"
	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// validFilterOps whitelists the comparison operators filters may push into
// AQL. The operator is interpolated into the query text, so anything outside
// this set is rejected.
var validFilterOps = map[string]string{
	"==": "==", "!=": "!=", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
}

// ArangoConfig connects an ArangoStore.
type ArangoConfig struct {
	Endpoint string `toml:"endpoint" validate:"required,url"`
	Database string `toml:"database" validate:"required"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	// RecordCollection is the vertex collection edge handles point into.
	RecordCollection string `toml:"record_collection" validate:"required"`
}

// ArangoStore implements Store on an ArangoDB database through AQL.
type ArangoStore struct {
	db        driver.Database
	client    driver.Client
	recordCol string
	log       zerolog.Logger
}

func NewArangoStore(ctx context.Context, cfg ArangoConfig, log zerolog.Logger) (*ArangoStore, error) {
	conn, err := arangohttp.NewConnection(arangohttp.ConnectionConfig{
		Endpoints: []string{cfg.Endpoint},
	})
	if err != nil {
		return nil, model.NewStorageError("connect", err)
	}

	client, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(cfg.Username, cfg.Password),
	})
	if err != nil {
		return nil, model.NewStorageError("client", err)
	}

	db, err := client.Database(ctx, cfg.Database)
	if err != nil {
		return nil, model.NewStorageError("open database", err)
	}

	log.Info().Str("endpoint", cfg.Endpoint).Str("database", cfg.Database).Msg("connected to arangodb")
	return &ArangoStore{
		db:        db,
		client:    client,
		recordCol: cfg.RecordCollection,
		log:       log.With().Str("component", "arango_store").Logger(),
	}, nil
}

type arangoRecord struct {
	Key       string                 `json:"key"`
	Embedding []float64              `json:"embedding"`
	Fields    map[string]interface{} `json:"fields"`
}

func (r arangoRecord) toModel() *model.Record {
	return &model.Record{Key: r.Key, Fields: r.Fields, Embedding: r.Embedding}
}

func (s *ArangoStore) FetchRecord(ctx context.Context, collection, key string) (*model.Record, error) {
	if key == "" {
		return nil, model.NewValidationError("key", "must not be empty")
	}
	cursor, err := s.db.Query(ctx, fetchRecordAQL, map[string]interface{}{
		"@collection": collection,
		"key":         key,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch record", err)
	}
	defer cursor.Close()

	var doc arangoRecord
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		if driver.IsNoMoreDocuments(err) {
			return nil, model.NewStorageError("fetch record", fmt.Errorf("record %s/%s not found", collection, key))
		}
		return nil, model.NewStorageError("fetch record", err)
	}
	return doc.toModel(), nil
}

func (s *ArangoStore) FetchRecords(ctx context.Context, collection string, offset, limit int) ([]*model.Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	cursor, err := s.db.Query(ctx, fetchRecordsAQL, map[string]interface{}{
		"@collection": collection,
		"offset":      offset,
		"limit":       limit,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch records", err)
	}
	defer cursor.Close()

	var out []*model.Record
	for {
		var doc arangoRecord
		_, err := cursor.ReadDocument(ctx, &doc)
		if driver.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return nil, model.NewStorageError("fetch records", err)
		}
		out = append(out, doc.toModel())
	}
	return out, nil
}

func (s *ArangoStore) FetchVectors(ctx context.Context, collection string) (map[string][]float64, error) {
	cursor, err := s.db.Query(ctx, fetchVectorsAQL, map[string]interface{}{
		"@collection": collection,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch vectors", err)
	}
	defer cursor.Close()

	out := make(map[string][]float64)
	for {
		var doc arangoRecord
		_, err := cursor.ReadDocument(ctx, &doc)
		if driver.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return nil, model.NewStorageError("fetch vectors", err)
		}
		out[doc.Key] = doc.Embedding
	}
	return out, nil
}

func (s *ArangoStore) UpdateEmbedding(ctx context.Context, collection string, emb model.Embedding) error {
	cursor, err := s.db.Query(ctx, updateEmbeddingAQL, map[string]interface{}{
		"@collection": collection,
		"key":         emb.Key,
		"embedding":   emb.Vector,
		"method":      emb.Method,
		"seed":        emb.Seed,
		"dimension":   emb.Dimension,
	})
	if err != nil {
		return model.NewStorageError("update embedding", err)
	}
	return cursor.Close()
}

func (s *ArangoStore) EngineVersion(ctx context.Context) (string, error) {
	info, err := s.client.Version(ctx)
	if err != nil {
		return "", model.NewStorageError("version", err)
	}
	return string(info.Version), nil
}

// NativeVectorSearch pushes a cosine similarity query into the engine. The
// AQL is assembled per call because the optional blocking filter and scalar
// filters change the query shape; all values still travel as bind variables.
func (s *ArangoStore) NativeVectorSearch(ctx context.Context, q VectorQuery) ([]VectorMatch, error) {
	var b strings.Builder
	bind := map[string]interface{}{
		"@collection": q.Collection,
		"vector":      q.Vector,
		"threshold":   q.Threshold,
		"limit":       q.Limit,
	}

	b.WriteString("FOR d IN @@collection\n")
	b.WriteString("\tFILTER d.embedding != null AND LENGTH(d.embedding) > 0\n")
	if q.ExcludeKey != "" {
		b.WriteString("\tFILTER d._key != @excludeKey\n")
		bind["excludeKey"] = q.ExcludeKey
	}
	if q.BlockingField != "" {
		b.WriteString("\tFILTER d.@blockingField == @blockingValue\n")
		bind["blockingField"] = q.BlockingField
		bind["blockingValue"] = q.BlockingValue
	}
	for i, f := range q.Filters {
		op, ok := validFilterOps[f.Op]
		if !ok {
			return nil, model.NewValidationError("filter", "unsupported operator %q", f.Op)
		}
		field := fmt.Sprintf("filterField%d", i)
		value := fmt.Sprintf("filterValue%d", i)
		fmt.Fprintf(&b, "\tFILTER d.@%s %s @%s\n", field, op, value)
		bind[field] = f.Field
		bind[value] = f.Value
	}
	b.WriteString("\tLET similarity = COSINE_SIMILARITY(d.embedding, @vector)\n")
	b.WriteString("\tFILTER similarity >= @threshold\n")
	b.WriteString("\tSORT similarity DESC\n")
	b.WriteString("\tLIMIT @limit\n")
	b.WriteString("\tRETURN { key: d._key, similarity: similarity }\n")

	cursor, err := s.db.Query(ctx, b.String(), bind)
	if err != nil {
		return nil, model.NewStorageError("native vector search", err)
	}
	defer cursor.Close()

	var out []VectorMatch
	for {
		var m VectorMatch
		_, err := cursor.ReadDocument(ctx, &m)
		if driver.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return nil, model.NewStorageError("native vector search", err)
		}
		out = append(out, m)
	}
	return out, nil
}

type arangoEdge struct {
	Key       string  `json:"_key"`
	From      string  `json:"_from"`
	To        string  `json:"_to"`
	EdgeKey   string  `json:"edge_key"`
	FromKey   string  `json:"from_key"`
	ToKey     string  `json:"to_key"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
	CreatedAt string  `json:"created_at"`
}

func (s *ArangoStore) InsertEdges(ctx context.Context, collection string, edges []model.MatchEdge, ignoreConflicts bool) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}
	docs := make([]arangoEdge, len(edges))
	for i, e := range edges {
		docs[i] = arangoEdge{
			Key:       edgeDocKey(e),
			From:      s.recordCol + "/" + e.From,
			To:        s.recordCol + "/" + e.To,
			EdgeKey:   e.Key,
			FromKey:   e.From,
			ToKey:     e.To,
			Score:     e.Score,
			Method:    e.Method,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	query := insertEdgesStrictAQL
	if ignoreConflicts {
		query = insertEdgesAQL
	}
	cursor, err := s.db.Query(ctx, query, map[string]interface{}{
		"@collection": collection,
		"edges":       docs,
	})
	if err != nil {
		return 0, model.NewStorageError("insert edges", err)
	}
	defer cursor.Close()

	written := 0
	for {
		var inserted bool
		_, err := cursor.ReadDocument(ctx, &inserted)
		if driver.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return written, model.NewStorageError("insert edges", err)
		}
		if inserted {
			written++
		}
	}
	return written, nil
}

type arangoEdgeOut struct {
	Key       string  `json:"key"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
	CreatedAt string  `json:"created_at"`
}

func (s *ArangoStore) FetchEdges(ctx context.Context, collection string, limit int) ([]model.MatchEdge, error) {
	if limit <= 0 {
		limit = 100000
	}
	cursor, err := s.db.Query(ctx, fetchEdgesAQL, map[string]interface{}{
		"@collection": collection,
		"limit":       limit,
	})
	if err != nil {
		return nil, model.NewStorageError("fetch edges", err)
	}
	defer cursor.Close()

	var out []model.MatchEdge
	for {
		var e arangoEdgeOut
		_, err := cursor.ReadDocument(ctx, &e)
		if driver.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return nil, model.NewStorageError("fetch edges", err)
		}
		created, _ := time.Parse(time.RFC3339, e.CreatedAt)
		out = append(out, model.MatchEdge{
			Key: e.Key, From: e.From, To: e.To,
			Score: e.Score, Method: e.Method, CreatedAt: created,
		})
	}
	return out, nil
}

func (s *ArangoStore) ClearEdges(ctx context.Context, collection, method string, before time.Time) (int, error) {
	bind := map[string]interface{}{
		"@collection": collection,
		"method":      nil,
		"before":      nil,
	}
	if method != "" {
		bind["method"] = method
	}
	if !before.IsZero() {
		bind["before"] = before.UTC().Format(time.RFC3339)
	}

	cursor, err := s.db.Query(ctx, clearEdgesAQL, bind)
	if err != nil {
		return 0, model.NewStorageError("clear edges", err)
	}
	defer cursor.Close()

	var removed int
	if _, err := cursor.ReadDocument(ctx, &removed); err != nil && !driver.IsNoMoreDocuments(err) {
		return 0, model.NewStorageError("clear edges", err)
	}
	return removed, nil
}

func (s *ArangoStore) UpsertGoldenRecords(ctx context.Context, collection string, records []model.GoldenRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	docs := make([]map[string]interface{}, len(records))
	for i, g := range records {
		doc := map[string]interface{}{
			"_key":       g.Key,
			"cluster_id": g.ClusterID,
			"members":    g.Members,
			"created_at": g.CreatedAt.UTC().Format(time.RFC3339),
		}
		for k, v := range g.Fields {
			doc[k] = v
		}
		docs[i] = doc
	}

	cursor, err := s.db.Query(ctx, upsertGoldenAQL, map[string]interface{}{
		"@collection": collection,
		"records":     docs,
	})
	if err != nil {
		return 0, model.NewStorageError("upsert golden records", err)
	}
	defer cursor.Close()
	return len(records), nil
}

func (s *ArangoStore) Close(ctx context.Context) error { return nil }
