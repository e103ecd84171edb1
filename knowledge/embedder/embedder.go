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

// Package embedder defines the embedding provider contract and wrappers that
// add caching and rate limiting around any provider.
package embedder

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed an empty string.
var ErrEmptyText = errors.New("embedder: text cannot be empty")

// ErrCountMismatch is returned when a provider answers a batch with a
// different number of vectors than texts.
var ErrCountMismatch = errors.New("embedder: vector count does not match input count")

// Embedder turns text into dense vectors.
//
// Implementations must be deterministic for identical text and model
// configuration. A provider-level failure (network, auth, quota) is returned
// as an error. A response that carries no vector is returned as an empty
// slice with a nil error and a logged warning; callers decide whether that is
// fatal.
type Embedder interface {
	// GetEmbedding returns the vector for text.
	GetEmbedding(ctx context.Context, text string) ([]float64, error)

	// GetEmbeddings returns one vector per input text, in input order.
	GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error)

	// GetDimensions returns the vector size, or 0 if unknown.
	GetDimensions() int
}
