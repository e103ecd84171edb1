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

// Package pgvector implements vectorstore.Index on PostgreSQL with the
// pgvector extension. Each collection is one table.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/storage/postgres"
)

var _ vectorstore.Index = (*Index)(nil)

// Index stores points in postgres tables.
type Index struct {
	client    postgres.Client
	owned     bool
	opts      options
	mu        sync.RWMutex
	distances map[string]vectorstore.Distance
}

// New opens the index. Either WithClient or WithConnString is required.
func New(ctx context.Context, opts ...Option) (*Index, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	ix := &Index{client: o.client, opts: o, distances: make(map[string]vectorstore.Distance)}
	if ix.client == nil {
		if o.connString == "" {
			return nil, errors.New("pgvector: connection string or client is required")
		}
		c, err := postgres.NewClient(ctx,
			postgres.WithClientConnString(o.connString),
			postgres.WithMaxOpenConns(o.maxOpenConns))
		if err != nil {
			return nil, fmt.Errorf("pgvector: %w", err)
		}
		ix.client = c
		ix.owned = true
	}
	return ix, nil
}

// CreateCollection implements vectorstore.Index.
func (ix *Index) CreateCollection(ctx context.Context, collection string, size int, distance vectorstore.Distance) error {
	if size <= 0 {
		return fmt.Errorf("pgvector: invalid vector size %d", size)
	}
	if distance == "" {
		distance = ix.opts.distance
	}
	m, err := metricFor(distance)
	if err != nil {
		return err
	}
	table := tableName(ix.opts.tablePrefix, collection)
	stmts := []string{
		sqlCreateExtension,
		fmt.Sprintf(sqlCreateTable, quote(table), size),
		fmt.Sprintf(sqlCreateIndex, quote(table+"_embedding_idx"), quote(table), m.ops, ix.opts.hnswM, ix.opts.efConstruction),
	}
	for _, stmt := range stmts {
		if _, err := ix.client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: create collection %s: %w", collection, err)
		}
	}
	ix.mu.Lock()
	ix.distances[collection] = distance
	ix.mu.Unlock()
	log.Infof("pgvector: collection %s ready in table %s (size %d, %s)", collection, table, size, distance)
	return nil
}

// DeleteCollection implements vectorstore.Index.
func (ix *Index) DeleteCollection(ctx context.Context, collection string) error {
	table := tableName(ix.opts.tablePrefix, collection)
	if _, err := ix.client.ExecContext(ctx, fmt.Sprintf(sqlDropTable, quote(table))); err != nil {
		return fmt.Errorf("pgvector: delete collection %s: %w", collection, err)
	}
	ix.mu.Lock()
	delete(ix.distances, collection)
	ix.mu.Unlock()
	return nil
}

// Upsert implements vectorstore.Index in a single transaction.
func (ix *Index) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	type row struct {
		id      string
		vector  pgvector.Vector
		payload []byte
	}
	rows := make([]row, 0, len(points))
	for _, p := range points {
		if p.ID == "" {
			return vectorstore.ErrEmptyID
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("pgvector: point %s: %w", p.ID, vectorstore.ErrEmptyVector)
		}
		payload, err := encodePayload(p.Payload)
		if err != nil {
			return fmt.Errorf("pgvector: point %s: %w", p.ID, err)
		}
		rows = append(rows, row{id: p.ID, vector: pgvector.NewVector(toFloat32(p.Vector)), payload: payload})
	}
	stmt := fmt.Sprintf(sqlUpsert, quote(tableName(ix.opts.tablePrefix, collection)))
	err := ix.client.Transaction(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, stmt, r.id, r.vector, r.payload); err != nil {
				return fmt.Errorf("upsert %s: %w", r.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pgvector: %w", err)
	}
	return nil
}

// Search implements vectorstore.Index.
func (ix *Index) Search(ctx context.Context, collection string, vector []float64, limit int, threshold float64, withPayload bool) ([]vectorstore.ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyVector
	}
	m, err := metricFor(ix.distance(collection))
	if err != nil {
		return nil, err
	}
	query := buildSearchSQL(tableName(ix.opts.tablePrefix, collection), m)
	var hits []vectorstore.ScoredPoint
	err = ix.client.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				hit     vectorstore.ScoredPoint
				payload []byte
			)
			if err := rows.Scan(&hit.ID, &payload, &hit.Score); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if withPayload {
				if hit.Payload, err = decodePayload(payload); err != nil {
					return fmt.Errorf("point %s: %w", hit.ID, err)
				}
			}
			hits = append(hits, hit)
		}
		return nil
	}, query, pgvector.NewVector(toFloat32(vector)), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search %s: %w", collection, err)
	}
	return hits, nil
}

// Get implements vectorstore.Index.
func (ix *Index) Get(ctx context.Context, collection, id string) (*vectorstore.Point, error) {
	var (
		found bool
		p     = &vectorstore.Point{}
	)
	query := fmt.Sprintf(sqlSelect, quote(tableName(ix.opts.tablePrefix, collection)))
	err := ix.client.Query(ctx, func(rows *sql.Rows) error {
		if !rows.Next() {
			return nil
		}
		var (
			vec     pgvector.Vector
			payload []byte
			err     error
		)
		if err = rows.Scan(&p.ID, &vec, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if p.Payload, err = decodePayload(payload); err != nil {
			return err
		}
		p.Vector = toFloat64(vec.Slice())
		found = true
		return nil
	}, query, id)
	if err != nil {
		return nil, fmt.Errorf("pgvector: get %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("pgvector: %s: %w", id, vectorstore.ErrNotFound)
	}
	return p, nil
}

// Close implements vectorstore.Index. Injected clients stay open.
func (ix *Index) Close() error {
	if ix.owned {
		return ix.client.Close()
	}
	return nil
}

func (ix *Index) distance(collection string) vectorstore.Distance {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if d, ok := ix.distances[collection]; ok {
		return d
	}
	return ix.opts.distance
}

func encodePayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(payload)
}

func decodePayload(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
