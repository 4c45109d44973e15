package store

// Cypher used by the Memgraph store. Collections map to a `collection`
// property since labels cannot be parameterized.
const (
	fetchRecordCypher = `
		MATCH (n:Record {collection: $collection, key: $key})
		RETURN n.key AS key, n.embedding AS embedding, properties(n) AS props
	`

	fetchRecordsCypher = `
		MATCH (n:Record {collection: $collection})
		RETURN n.key AS key, n.embedding AS embedding, properties(n) AS props
		ORDER BY n.key
		SKIP $offset LIMIT $limit
	`

	fetchVectorsCypher = `
		MATCH (n:Record {collection: $collection})
		WHERE n.embedding IS NOT NULL AND size(n.embedding) > 0
		RETURN n.key AS key, n.embedding AS embedding
	`

	updateEmbeddingCypher = `
		MATCH (n:Record {collection: $collection, key: $key})
		SET n.embedding = $embedding,
			n.embedding_method = $method,
			n.embedding_seed = $seed,
			n.embedding_dimension = $dimension
		RETURN n.key AS key
	`

	insertEdgeCypher = `
		MATCH (a:Record {collection: $record_collection, key: $from})
		MATCH (b:Record {collection: $record_collection, key: $to})
		MERGE (a)-[e:MATCHES {collection: $collection, doc_key: $doc_key}]->(b)
		ON CREATE SET e.edge_key = $edge_key,
			e.score = $score,
			e.method = $method,
			e.created_at = $created_at,
			e.was_created = true
		ON MATCH SET e.was_created = false
		RETURN e.was_created AS created
	`

	fetchEdgesCypher = `
		MATCH (a:Record)-[e:MATCHES {collection: $collection}]->(b:Record)
		RETURN e.edge_key AS key, a.key AS from, b.key AS to,
			e.score AS score, e.method AS method, e.created_at AS created_at
		ORDER BY e.doc_key
		LIMIT $limit
	`

	clearEdgesCypher = `
		MATCH ()-[e:MATCHES {collection: $collection}]->()
		WHERE ($method IS NULL OR e.method = $method)
			AND ($before IS NULL OR e.created_at < $before)
		DELETE e
		RETURN count(e) AS removed
	`

	upsertGoldenCypher = `
		MERGE (g:GoldenRecord {collection: $collection, key: $key})
		SET g.cluster_id = $cluster_id,
			g.members = $members,
			g.created_at = $created_at,
			g += $fields
		RETURN g.key AS key
	`

	vectorSearchCypher = `
		CALL vector_search.search($index, $limit, $vector)
		YIELD node, similarity
		WHERE similarity >= $threshold
		RETURN node.key AS key, similarity
		ORDER BY similarity DESC
	`
)
