//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package pgvector

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
)

const (
	sqlCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	sqlCreateTable = `CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}'::jsonb
)`

	sqlCreateIndex = `CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s) WITH (m = %d, ef_construction = %d)`

	sqlDropTable = `DROP TABLE IF EXISTS %s`

	sqlUpsert = `INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`

	sqlSelect = `SELECT id, embedding, payload FROM %s WHERE id = $1`

	sqlSearch = `SELECT id, payload, %[2]s AS score FROM %[1]s WHERE %[2]s >= $2 ORDER BY embedding %[3]s $1 LIMIT $3`
)

// metric holds the pgvector operator set for a distance.
type metric struct {
	ops      string // index operator class
	operator string // distance operator used for ordering
	score    string // similarity expression, higher is better
}

var metrics = map[vectorstore.Distance]metric{
	vectorstore.DistanceCosine: {ops: "vector_cosine_ops", operator: "<=>", score: "1 - (embedding <=> $1)"},
	vectorstore.DistanceDot:    {ops: "vector_ip_ops", operator: "<#>", score: "(embedding <#> $1) * -1"},
	vectorstore.DistanceEuclid: {ops: "vector_l2_ops", operator: "<->", score: "-(embedding <-> $1)"},
}

func metricFor(d vectorstore.Distance) (metric, error) {
	m, ok := metrics[d]
	if !ok {
		return metric{}, fmt.Errorf("pgvector: unsupported distance %q", d)
	}
	return m, nil
}

// tableName turns a collection name into a lower-case identifier.
func tableName(prefix, collection string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(prefix + collection) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return name
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func buildSearchSQL(table string, m metric) string {
	return fmt.Sprintf(sqlSearch, quote(table), m.score, m.operator)
}
