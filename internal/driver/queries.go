package driver

const (
	LookupUnspscQuery = `
		MATCH (u:Unspsc {code: $code})
		RETURN u.code AS code, u.name AS name
		LIMIT 1
	`

	SearchUnspscQuery = `
		MATCH (u:Unspsc)
		WHERE u.code STARTS WITH $prefix
		RETURN u.code AS code, u.name AS name
		ORDER BY u.code
		LIMIT $limit
	`

	UpsertUnspscQuery = `
		UNWIND $entries AS e
		MERGE (u:Unspsc {code: e.code})
		SET u.name = e.name
		RETURN count(u) AS upserted
	`
)
