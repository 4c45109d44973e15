// Package ann hides whether the backing store can execute native vector
// similarity search. Construction probes the engine once; queries against a
// native-capable engine that fail mid-flight are retried through the
// guaranteed brute-force path instead of propagating.
package ann

import (
	"context"
	"regexp"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// Search methods reported on every result.
const (
	MethodNative     = "native_vector_index"
	MethodBruteForce = "brute_force"
)

// Native vector search shipped in the 3.12 line.
const (
	nativeMinMajor = 3
	nativeMinMinor = 12
)

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// Config configures an Adapter.
type Config struct {
	// Collection holds the records searched.
	Collection string `toml:"collection" validate:"required"`

	// ForceBruteForce skips the capability probe and pins the in-process
	// path.
	ForceBruteForce bool `toml:"force_brute_force"`

	// PageSize bounds record reads in the brute-force path.
	PageSize int `toml:"page_size"`
}

// Result is one similarity hit, tagged with the method that produced it.
type Result struct {
	Key        string  `json:"key"`
	Similarity float64 `json:"similarity"`
	Method     string  `json:"method"`
}

// Pair is one all-pairs hit.
type Pair struct {
	Key1       string  `json:"doc1_key"`
	Key2       string  `json:"doc2_key"`
	Similarity float64 `json:"similarity"`
	Method     string  `json:"method"`
}

// SimilarQuery parameterizes FindSimilarVectors. Exactly one of QueryVector
// and QueryDocKey must be set.
type SimilarQuery struct {
	QueryVector   []float64
	QueryDocKey   string
	Threshold     float64
	Limit         int
	ExcludeSelf   bool
	BlockingField string
	BlockingValue interface{}
	Filters       []store.Filter
}

// Adapter executes vector similarity searches against a Store. The chosen
// method is fixed at construction for the adapter's lifetime.
type Adapter struct {
	store      store.Store
	collection string
	pageSize   int
	method     string
	log        zerolog.Logger
}

// New probes the store's engine version (unless forced) and fixes the search
// method.
func New(ctx context.Context, st store.Store, cfg Config, log zerolog.Logger) (*Adapter, error) {
	if cfg.Collection == "" {
		return nil, model.NewConfigError("ann", "collection must not be empty")
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	a := &Adapter{
		store:      st,
		collection: cfg.Collection,
		pageSize:   pageSize,
		method:     MethodBruteForce,
		log:        log.With().Str("component", "ann_adapter").Logger(),
	}

	if !cfg.ForceBruteForce {
		version, err := st.EngineVersion(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("engine version probe failed, using brute force")
		} else if supportsNativeSearch(version) {
			a.method = MethodNative
		}
		a.log.Info().Str("engine_version", version).Str("method", a.method).Msg("vector search capability probed")
	}

	return a, nil
}

// Method reports the fixed search method.
func (a *Adapter) Method() string { return a.method }

// supportsNativeSearch parses the first major.minor pair out of the reported
// version string.
func supportsNativeSearch(version string) bool {
	m := versionRe.FindStringSubmatch(version)
	if m == nil {
		return false
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if major != nativeMinMajor {
		return major > nativeMinMajor
	}
	return minor >= nativeMinMinor
}

// FindSimilarVectors returns records ranked by descending similarity.
func (a *Adapter) FindSimilarVectors(ctx context.Context, q SimilarQuery) ([]Result, error) {
	hasVector := len(q.QueryVector) > 0
	hasKey := q.QueryDocKey != ""
	if hasVector == hasKey {
		return nil, model.NewValidationError("query", "exactly one of query_vector and query_doc_key must be supplied")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}

	vector := q.QueryVector
	if hasKey {
		rec, err := a.store.FetchRecord(ctx, a.collection, q.QueryDocKey)
		if err != nil {
			return nil, err
		}
		if len(rec.Embedding) == 0 {
			return nil, model.NewValidationError("query_doc_key", "record %s has no stored vector", q.QueryDocKey)
		}
		vector = rec.Embedding
	}

	excludeKey := ""
	if q.ExcludeSelf && hasKey {
		excludeKey = q.QueryDocKey
	}

	if a.method == MethodNative {
		matches, err := a.store.NativeVectorSearch(ctx, store.VectorQuery{
			Collection:    a.collection,
			Vector:        vector,
			Threshold:     q.Threshold,
			Limit:         q.Limit,
			ExcludeKey:    excludeKey,
			BlockingField: q.BlockingField,
			BlockingValue: q.BlockingValue,
			Filters:       q.Filters,
		})
		if err == nil {
			return tagResults(matches, MethodNative), nil
		}
		a.log.Warn().Err(err).Msg("native vector search failed, retrying via brute force")
	}

	matches, err := a.bruteForceSearch(ctx, vector, q, excludeKey)
	if err != nil {
		return nil, err
	}
	return tagResults(matches, MethodBruteForce), nil
}

// FindAllPairs finds every record pair above the threshold, capping each
// entity at limitPerEntity results. The threshold applies symmetrically and
// no unordered pair appears twice.
func (a *Adapter) FindAllPairs(ctx context.Context, threshold float64, limitPerEntity int, blockingField string, filters []store.Filter) ([]Pair, error) {
	if limitPerEntity <= 0 {
		limitPerEntity = 10
	}

	records, err := a.fetchCandidateRecords(ctx, filters)
	if err != nil {
		return nil, err
	}

	method := a.method
	pairs, err := a.allPairs(ctx, records, threshold, limitPerEntity, blockingField, filters, method)
	if err != nil && method == MethodNative {
		a.log.Warn().Err(err).Msg("native all-pairs search failed, retrying via brute force")
		method = MethodBruteForce
		pairs, err = a.allPairs(ctx, records, threshold, limitPerEntity, blockingField, filters, method)
	}
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (a *Adapter) allPairs(ctx context.Context, records []*model.Record, threshold float64, limitPerEntity int, blockingField string, filters []store.Filter, method string) ([]Pair, error) {
	seen := make(map[string]struct{})
	var out []Pair

	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			continue
		}
		var blockingValue interface{}
		if blockingField != "" {
			blockingValue = rec.Fields[blockingField]
		}

		var matches []store.VectorMatch
		var err error
		if method == MethodNative {
			matches, err = a.store.NativeVectorSearch(ctx, store.VectorQuery{
				Collection:    a.collection,
				Vector:        rec.Embedding,
				Threshold:     threshold,
				Limit:         limitPerEntity,
				ExcludeKey:    rec.Key,
				BlockingField: blockingField,
				BlockingValue: blockingValue,
				// The engine must see the same scalar filters applied to the
				// query side, or native and brute force diverge.
				Filters: filters,
			})
			if err != nil {
				return nil, err
			}
		} else {
			matches = bruteForceAgainst(records, rec, threshold, limitPerEntity, blockingField, blockingValue)
		}

		for _, m := range matches {
			id := model.NewCandidatePair(rec.Key, m.Key, "", "").ID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			k1, k2 := rec.Key, m.Key
			if k2 < k1 {
				k1, k2 = k2, k1
			}
			out = append(out, Pair{Key1: k1, Key2: k2, Similarity: model.Round4(m.Similarity), Method: method})
		}
	}
	return out, nil
}

func (a *Adapter) bruteForceSearch(ctx context.Context, vector []float64, q SimilarQuery, excludeKey string) ([]store.VectorMatch, error) {
	records, err := a.fetchCandidateRecords(ctx, q.Filters)
	if err != nil {
		return nil, err
	}

	var matches []store.VectorMatch
	for _, rec := range records {
		if rec.Key == excludeKey || len(rec.Embedding) == 0 {
			continue
		}
		if q.BlockingField != "" && rec.Fields[q.BlockingField] != q.BlockingValue {
			continue
		}
		sim := Cosine(vector, rec.Embedding)
		if sim >= q.Threshold {
			matches = append(matches, store.VectorMatch{Key: rec.Key, Similarity: sim})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Key < matches[j].Key
	})
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// fetchCandidateRecords pages through the collection applying scalar filters
// in-process.
func (a *Adapter) fetchCandidateRecords(ctx context.Context, filters []store.Filter) ([]*model.Record, error) {
	var out []*model.Record
	for offset := 0; ; offset += a.pageSize {
		page, err := a.store.FetchRecords(ctx, a.collection, offset, a.pageSize)
		if err != nil {
			return nil, err
		}
		for _, rec := range page {
			if recordPassesFilters(rec, filters) {
				out = append(out, rec)
			}
		}
		if len(page) < a.pageSize {
			break
		}
	}
	return out, nil
}

func bruteForceAgainst(records []*model.Record, query *model.Record, threshold float64, limit int, blockingField string, blockingValue interface{}) []store.VectorMatch {
	var matches []store.VectorMatch
	for _, rec := range records {
		if rec.Key == query.Key || len(rec.Embedding) == 0 {
			continue
		}
		if blockingField != "" && rec.Fields[blockingField] != blockingValue {
			continue
		}
		sim := Cosine(query.Embedding, rec.Embedding)
		if sim >= threshold {
			matches = append(matches, store.VectorMatch{Key: rec.Key, Similarity: sim})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Key < matches[j].Key
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func recordPassesFilters(rec *model.Record, filters []store.Filter) bool {
	for _, f := range filters {
		if !store.MatchScalarFilter(rec.Fields[f.Field], f) {
			return false
		}
	}
	return true
}

func tagResults(matches []store.VectorMatch, method string) []Result {
	out := make([]Result, len(matches))
	for i, m := range matches {
		out[i] = Result{Key: m.Key, Similarity: model.Round4(m.Similarity), Method: method}
	}
	return out
}
