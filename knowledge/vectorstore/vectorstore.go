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

// Package vectorstore defines the vector index contract used by retrieval and
// ingestion. Implementations live in sub-packages.
package vectorstore

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrNotFound is returned by Get when the point does not exist.
	ErrNotFound = errors.New("vectorstore: point not found")
	// ErrCollectionNotFound is returned when the collection does not exist.
	ErrCollectionNotFound = errors.New("vectorstore: collection not found")
	// ErrDimensionMismatch is returned when a vector has the wrong size.
	ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")
	// ErrEmptyVector is returned for points or queries without a vector.
	ErrEmptyVector = errors.New("vectorstore: vector cannot be empty")
	// ErrEmptyID is returned for points without an id.
	ErrEmptyID = errors.New("vectorstore: point id cannot be empty")
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	// DistanceCosine scores by cosine similarity.
	DistanceCosine Distance = "Cosine"
	// DistanceDot scores by dot product.
	DistanceDot Distance = "Dot"
	// DistanceEuclid scores by negated euclidean distance.
	DistanceEuclid Distance = "Euclid"
)

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float64
	Payload map[string]any
}

// ScoredPoint is a search hit. Payload is nil when not requested.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Index is a collection-scoped nearest-neighbour index.
type Index interface {
	// Search returns at most limit points scoring at least threshold,
	// ordered by descending score.
	Search(ctx context.Context, collection string, vector []float64, limit int, threshold float64, withPayload bool) ([]ScoredPoint, error)

	// Upsert inserts or replaces points by id.
	Upsert(ctx context.Context, collection string, points []Point) error

	// CreateCollection creates the collection if it does not exist.
	CreateCollection(ctx context.Context, collection string, size int, distance Distance) error

	// DeleteCollection drops the collection and its points.
	DeleteCollection(ctx context.Context, collection string) error

	// Get returns one point with its payload, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Point, error)

	// Close releases resources held by the index.
	Close() error
}

// Similarity scores a against b with the given metric. Vectors of different
// length or zero magnitude score 0 for cosine.
func Similarity(distance Distance, a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	switch distance {
	case DistanceDot:
		var dot float64
		for i := range a {
			dot += a[i] * b[i]
		}
		return dot
	case DistanceEuclid:
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		var dot, na, nb float64
		for i := range a {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
}
