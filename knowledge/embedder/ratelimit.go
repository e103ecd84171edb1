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

package embedder

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

var _ Embedder = (*RateLimited)(nil)

// RateLimited throttles calls to another Embedder with a token bucket.
// A batch call consumes one token per text.
type RateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows requestsPerMinute calls with the given burst.
// A non-positive rate disables limiting.
func NewRateLimited(inner Embedder, requestsPerMinute, burst int) *RateLimited {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// GetEmbedding implements Embedder.
func (r *RateLimited) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedder: rate limit wait: %w", err)
	}
	return r.inner.GetEmbedding(ctx, text)
}

// GetEmbeddings implements Embedder.
func (r *RateLimited) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	n := len(texts)
	if n == 0 {
		return nil, nil
	}
	if b := r.limiter.Burst(); n > b && r.limiter.Limit() != rate.Inf {
		n = b
	}
	if err := r.limiter.WaitN(ctx, n); err != nil {
		return nil, fmt.Errorf("embedder: rate limit wait: %w", err)
	}
	return r.inner.GetEmbeddings(ctx, texts)
}

// GetDimensions implements Embedder.
func (r *RateLimited) GetDimensions() int {
	return r.inner.GetDimensions()
}
