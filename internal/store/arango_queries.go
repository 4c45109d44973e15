package store

const (
	fetchRecordAQL = `
		FOR d IN @@collection
			FILTER d._key == @key
			LIMIT 1
			RETURN { key: d._key, embedding: d.embedding, fields: UNSET(d, "_key", "_id", "_rev", "embedding") }
	`

	fetchRecordsAQL = `
		FOR d IN @@collection
			SORT d._key
			LIMIT @offset, @limit
			RETURN { key: d._key, embedding: d.embedding, fields: UNSET(d, "_key", "_id", "_rev", "embedding") }
	`

	fetchVectorsAQL = `
		FOR d IN @@collection
			FILTER d.embedding != null AND LENGTH(d.embedding) > 0
			RETURN { key: d._key, embedding: d.embedding }
	`

	updateEmbeddingAQL = `
		UPDATE @key WITH {
			embedding: @embedding,
			embedding_method: @method,
			embedding_seed: @seed,
			embedding_dimension: @dimension
		} IN @@collection
	`

	insertEdgesAQL = `
		FOR e IN @edges
			INSERT e INTO @@collection OPTIONS { overwriteMode: "ignore" }
			RETURN NEW != null
	`

	insertEdgesStrictAQL = `
		FOR e IN @edges
			INSERT e INTO @@collection
			RETURN true
	`

	fetchEdgesAQL = `
		FOR e IN @@collection
			SORT e._key
			LIMIT @limit
			RETURN {
				key: e.edge_key,
				from: e.from_key,
				to: e.to_key,
				score: e.score,
				method: e.method,
				created_at: e.created_at
			}
	`

	clearEdgesAQL = `
		FOR e IN @@collection
			FILTER @method == null || e.method == @method
			FILTER @before == null || e.created_at < @before
			REMOVE e IN @@collection
			COLLECT WITH COUNT INTO removed
			RETURN removed
	`

	upsertGoldenAQL = `
		FOR g IN @records
			UPSERT { _key: g._key }
				INSERT g
				REPLACE g
				IN @@collection
			RETURN 1
	`
)
