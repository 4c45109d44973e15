package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// ResolvedToMethod tags the edges linking cluster members to their golden
// record.
const ResolvedToMethod = "resolved_to"

// MergePolicy combines the field values of a cluster's member records into
// the golden record's fields. Members arrive sorted by key.
type MergePolicy func(members []*model.Record) map[string]interface{}

// GoldenBuilderConfig configures golden-record materialization. EdgeCollection
// is optional; when set, a resolved_to edge is written from every member to
// its golden record.
type GoldenBuilderConfig struct {
	Collection     string `toml:"collection"`
	EdgeCollection string `toml:"edge_collection"`
}

// GoldenStats reports one Build run.
type GoldenStats struct {
	GoldenRecords  int `json:"golden_records"`
	MembersMissing int `json:"members_missing"`
	EdgesWritten   int `json:"edges_written"`
}

// GoldenBuilder materializes one golden record per cluster. Keys derive from
// cluster membership, so rebuilding over unchanged clusters replaces rather
// than duplicates.
type GoldenBuilder struct {
	st    store.Store
	cfg   GoldenBuilderConfig
	merge MergePolicy
	log   zerolog.Logger
	now   func() time.Time
}

func NewGoldenBuilder(st store.Store, cfg GoldenBuilderConfig, merge MergePolicy, log zerolog.Logger) (*GoldenBuilder, error) {
	if st == nil {
		return nil, model.NewConfigError("persist", "store is required")
	}
	if cfg.Collection == "" {
		return nil, model.NewConfigError("persist", "golden record collection is required")
	}
	if merge == nil {
		merge = MostFrequentValue
	}
	return &GoldenBuilder{
		st:    st,
		cfg:   cfg,
		merge: merge,
		log:   log.With().Str("component", "golden_builder").Logger(),
		now:   time.Now,
	}, nil
}

// GoldenKey hashes sorted cluster membership so the same cluster always maps
// to the same golden record key.
func GoldenKey(members []string) string {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return "golden_" + hex.EncodeToString(sum[:16])
}

// Build merges each cluster's member records and upserts the result. Members
// absent from records are skipped and counted; a cluster whose members are
// all missing produces no golden record.
func (b *GoldenBuilder) Build(ctx context.Context, clusters []model.Cluster, records map[string]*model.Record) (GoldenStats, error) {
	var stats GoldenStats

	at := b.now().UTC()
	golden := make([]model.GoldenRecord, 0, len(clusters))
	var resolvedEdges []model.MatchEdge

	for _, cluster := range clusters {
		members := make([]*model.Record, 0, len(cluster.Members))
		keys := make([]string, 0, len(cluster.Members))
		for _, key := range cluster.Members {
			rec, ok := records[key]
			if !ok || rec == nil {
				stats.MembersMissing++
				continue
			}
			members = append(members, rec)
			keys = append(keys, key)
		}
		if len(members) == 0 {
			continue
		}

		gr := model.GoldenRecord{
			Key:       GoldenKey(cluster.Members),
			ClusterID: cluster.ID,
			Members:   keys,
			Fields:    b.merge(members),
			CreatedAt: at,
		}
		golden = append(golden, gr)

		if b.cfg.EdgeCollection != "" {
			for _, key := range keys {
				resolvedEdges = append(resolvedEdges, model.NewMatchEdge(key, gr.Key, 1.0, ResolvedToMethod, at))
			}
		}
	}

	if len(golden) == 0 {
		return stats, nil
	}

	written, err := b.st.UpsertGoldenRecords(ctx, b.cfg.Collection, golden)
	if err != nil {
		return stats, err
	}
	stats.GoldenRecords = written

	if len(resolvedEdges) > 0 {
		edgesWritten, err := b.st.InsertEdges(ctx, b.cfg.EdgeCollection, resolvedEdges, true)
		if err != nil {
			return stats, err
		}
		stats.EdgesWritten = edgesWritten
	}

	b.log.Info().Int("golden_records", stats.GoldenRecords).Int("members_missing", stats.MembersMissing).
		Msg("golden records materialized")
	return stats, nil
}

// MostFrequentValue is the default merge policy: per field, the most common
// non-empty value wins, tied values resolving to the lexicographically
// smallest string form.
func MostFrequentValue(members []*model.Record) map[string]interface{} {
	type tally struct {
		value interface{}
		count int
	}
	counts := make(map[string]map[string]*tally)
	for _, rec := range members {
		for field, value := range rec.Fields {
			if value == nil {
				continue
			}
			if s, ok := value.(string); ok && s == "" {
				continue
			}
			repr := fmt.Sprintf("%v", value)
			if counts[field] == nil {
				counts[field] = make(map[string]*tally)
			}
			if counts[field][repr] == nil {
				counts[field][repr] = &tally{value: value}
			}
			counts[field][repr].count++
		}
	}

	merged := make(map[string]interface{}, len(counts))
	for field, values := range counts {
		var best *tally
		reprs := make([]string, 0, len(values))
		for repr := range values {
			reprs = append(reprs, repr)
		}
		sort.Strings(reprs)
		for _, repr := range reprs {
			t := values[repr]
			if best == nil || t.count > best.count {
				best = t
			}
		}
		merged[field] = best.value
	}
	return merged
}
