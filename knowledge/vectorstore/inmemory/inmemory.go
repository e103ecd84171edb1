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

// Package inmemory provides a process-local vector index with brute-force
// search. It suits tests, the CLI demo and small corpora.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
)

const defaultMaxResults = 100

var _ vectorstore.Index = (*Index)(nil)

type collection struct {
	size     int
	distance vectorstore.Distance
	points   map[string]vectorstore.Point
}

// Index keeps every collection in memory behind a RWMutex.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
	maxResults  int
	autoCreate  bool
}

// Option configures an Index.
type Option func(*Index)

// WithMaxResults caps the limit accepted by Search.
func WithMaxResults(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.maxResults = n
		}
	}
}

// WithAutoCreate makes Upsert create missing collections sized by the first
// vector, with cosine distance.
func WithAutoCreate(enabled bool) Option {
	return func(ix *Index) { ix.autoCreate = enabled }
}

// New creates an empty Index.
func New(opts ...Option) *Index {
	ix := &Index{
		collections: make(map[string]*collection),
		maxResults:  defaultMaxResults,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// CreateCollection implements vectorstore.Index.
func (ix *Index) CreateCollection(_ context.Context, name string, size int, distance vectorstore.Distance) error {
	if size <= 0 {
		return fmt.Errorf("inmemory: invalid vector size %d", size)
	}
	if distance == "" {
		distance = vectorstore.DistanceCosine
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.collections[name]; ok {
		return nil
	}
	ix.collections[name] = &collection{size: size, distance: distance, points: make(map[string]vectorstore.Point)}
	return nil
}

// DeleteCollection implements vectorstore.Index.
func (ix *Index) DeleteCollection(_ context.Context, name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.collections[name]; !ok {
		return fmt.Errorf("inmemory: %s: %w", name, vectorstore.ErrCollectionNotFound)
	}
	delete(ix.collections, name)
	return nil
}

// Upsert implements vectorstore.Index. Either every point is stored or none.
func (ix *Index) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	c, ok := ix.collections[name]
	if !ok {
		if !ix.autoCreate || len(points) == 0 {
			return fmt.Errorf("inmemory: %s: %w", name, vectorstore.ErrCollectionNotFound)
		}
		c = &collection{size: len(points[0].Vector), distance: vectorstore.DistanceCosine, points: make(map[string]vectorstore.Point)}
		ix.collections[name] = c
	}
	for _, p := range points {
		if p.ID == "" {
			return vectorstore.ErrEmptyID
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("inmemory: point %s: %w", p.ID, vectorstore.ErrEmptyVector)
		}
		if len(p.Vector) != c.size {
			return fmt.Errorf("inmemory: point %s has %d dims, want %d: %w",
				p.ID, len(p.Vector), c.size, vectorstore.ErrDimensionMismatch)
		}
	}
	for _, p := range points {
		c.points[p.ID] = vectorstore.Point{
			ID:      p.ID,
			Vector:  slices.Clone(p.Vector),
			Payload: document.CloneMap(p.Payload),
		}
	}
	return nil
}

// Search implements vectorstore.Index. Ties keep id order.
func (ix *Index) Search(_ context.Context, name string, vector []float64, limit int, threshold float64, withPayload bool) ([]vectorstore.ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyVector
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.collections[name]
	if !ok {
		return nil, fmt.Errorf("inmemory: %s: %w", name, vectorstore.ErrCollectionNotFound)
	}
	if len(vector) != c.size {
		return nil, fmt.Errorf("inmemory: query has %d dims, want %d: %w",
			len(vector), c.size, vectorstore.ErrDimensionMismatch)
	}
	if limit <= 0 || limit > ix.maxResults {
		limit = ix.maxResults
	}

	hits := make([]vectorstore.ScoredPoint, 0, len(c.points))
	for id, p := range c.points {
		score := vectorstore.Similarity(c.distance, vector, p.Vector)
		if score < threshold {
			continue
		}
		hit := vectorstore.ScoredPoint{ID: id, Score: score}
		if withPayload {
			hit.Payload = document.CloneMap(p.Payload)
		}
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Get implements vectorstore.Index.
func (ix *Index) Get(_ context.Context, name, id string) (*vectorstore.Point, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.collections[name]
	if !ok {
		return nil, fmt.Errorf("inmemory: %s: %w", name, vectorstore.ErrCollectionNotFound)
	}
	p, ok := c.points[id]
	if !ok {
		return nil, fmt.Errorf("inmemory: %s: %w", id, vectorstore.ErrNotFound)
	}
	return &vectorstore.Point{ID: p.ID, Vector: slices.Clone(p.Vector), Payload: document.CloneMap(p.Payload)}, nil
}

// Count returns the number of points in a collection.
func (ix *Index) Count(name string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if c, ok := ix.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Close implements vectorstore.Index.
func (ix *Index) Close() error {
	return nil
}
