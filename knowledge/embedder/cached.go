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
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/cache"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = time.Hour
)

var _ Embedder = (*Cached)(nil)

// Cached memoizes vectors of another Embedder in an expiring LRU.
type Cached struct {
	inner Embedder
	lru   *expirable.LRU[string, []float64]
	model string
}

// CachedOption configures a Cached embedder.
type CachedOption func(*cachedOptions)

type cachedOptions struct {
	size  int
	ttl   time.Duration
	model string
}

// WithCacheSize sets the maximum number of cached vectors.
func WithCacheSize(n int) CachedOption {
	return func(o *cachedOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithCacheTTL sets how long a vector stays cached.
func WithCacheTTL(ttl time.Duration) CachedOption {
	return func(o *cachedOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCacheModel scopes cache keys to a model name so two embedders sharing
// text never share vectors.
func WithCacheModel(model string) CachedOption {
	return func(o *cachedOptions) { o.model = model }
}

// NewCached wraps inner with an expiring LRU cache.
func NewCached(inner Embedder, opts ...CachedOption) *Cached {
	o := cachedOptions{size: defaultCacheSize, ttl: defaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cached{
		inner: inner,
		lru:   expirable.NewLRU[string, []float64](o.size, nil, o.ttl),
		model: o.model,
	}
}

func (c *Cached) key(text string) string {
	return cache.Key(cache.NamespaceEmbed, map[string]any{
		"text":       text,
		"model":      c.model,
		"dimensions": c.inner.GetDimensions(),
	})
}

// GetEmbedding implements Embedder.
func (c *Cached) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	k := c.key(text)
	if v, ok := c.lru.Get(k); ok {
		log.Debugf("embedder: cache hit for %q", log.Truncate(text, 50))
		return slices.Clone(v), nil
	}
	v, err := c.inner.GetEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		c.lru.Add(k, slices.Clone(v))
	}
	return v, nil
}

// GetEmbeddings implements Embedder. Only cache misses reach the wrapped
// embedder, in a single batch.
func (c *Cached) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
		if v, ok := c.lru.Get(c.key(text)); ok {
			out[i] = slices.Clone(v)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := c.inner.GetEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrCountMismatch, len(vecs), len(missTexts))
	}
	for j, v := range vecs {
		out[missIdx[j]] = v
		if len(v) > 0 {
			c.lru.Add(c.key(missTexts[j]), slices.Clone(v))
		}
	}
	return out, nil
}

// GetDimensions implements Embedder.
func (c *Cached) GetDimensions() int {
	return c.inner.GetDimensions()
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.lru.Len()
}

// Purge drops every cached vector.
func (c *Cached) Purge() {
	c.lru.Purge()
}
