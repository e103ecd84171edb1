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

package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/cache"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/reranker"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/telemetry/trace"
)

const (
	// DefaultCollection is the textbook collection name.
	DefaultCollection = "humanoid_ai_book"
	// DefaultLimit is used when Query.Limit is not set.
	DefaultLimit = 5
	// DefaultMaxExpansions bounds the variants searched, original included.
	DefaultMaxExpansions = 3
	// DefaultCacheTTL is how long retrieval results stay cached.
	DefaultCacheTTL = 5 * time.Minute
	// KeywordThreshold is the similarity threshold used by SearchByKeyword.
	KeywordThreshold = 0.5

	rerankLimitFactor     = 2
	rerankThresholdFactor = 0.8
)

var _ Retriever = (*DefaultRetriever)(nil)

// DefaultRetriever runs expansion, embedding, vector search and caching.
// It is safe for concurrent use.
type DefaultRetriever struct {
	embedder      embedder.Embedder
	index         vectorstore.Index
	enhancer      query.Enhancer
	reranker      reranker.Reranker
	cache         cache.Store
	collection    string
	maxExpansions int
	cacheTTL      time.Duration
}

// Option configures a DefaultRetriever.
type Option func(*DefaultRetriever)

// WithEmbedder sets the embedding provider.
func WithEmbedder(e embedder.Embedder) Option {
	return func(dr *DefaultRetriever) { dr.embedder = e }
}

// WithIndex sets the vector index.
func WithIndex(ix vectorstore.Index) Option {
	return func(dr *DefaultRetriever) { dr.index = ix }
}

// WithQueryEnhancer sets the query expander.
func WithQueryEnhancer(qe query.Enhancer) Option {
	return func(dr *DefaultRetriever) { dr.enhancer = qe }
}

// WithReranker sets the reranker used by RetrieveWithReranking.
func WithReranker(r reranker.Reranker) Option {
	return func(dr *DefaultRetriever) { dr.reranker = r }
}

// WithCache sets the result cache. Nil disables caching.
func WithCache(s cache.Store) Option {
	return func(dr *DefaultRetriever) { dr.cache = s }
}

// WithCollection sets the collection searched.
func WithCollection(name string) Option {
	return func(dr *DefaultRetriever) {
		if name != "" {
			dr.collection = name
		}
	}
}

// WithMaxExpansions bounds the searched variants, original included.
func WithMaxExpansions(n int) Option {
	return func(dr *DefaultRetriever) {
		if n > 0 {
			dr.maxExpansions = n
		}
	}
}

// WithCacheTTL sets how long results stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(dr *DefaultRetriever) {
		if ttl > 0 {
			dr.cacheTTL = ttl
		}
	}
}

// New creates a DefaultRetriever. An embedder and an index are required.
func New(opts ...Option) (*DefaultRetriever, error) {
	dr := &DefaultRetriever{
		collection:    DefaultCollection,
		maxExpansions: DefaultMaxExpansions,
		cacheTTL:      DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(dr)
	}
	if dr.embedder == nil {
		return nil, errors.New("retriever: embedder is required")
	}
	if dr.index == nil {
		return nil, errors.New("retriever: vector index is required")
	}
	if dr.enhancer == nil {
		dr.enhancer = query.NewExpander(query.WithMaxExpansions(dr.maxExpansions))
	}
	if dr.reranker == nil {
		dr.reranker = reranker.NewHeuristic()
	}
	return dr, nil
}

// Retrieve implements Retriever.
//
// Variants are searched in order until Limit unique documents are collected.
// Each search asks for twice the remaining count at MinScore; a document
// already found by an earlier variant keeps its first score. A variant whose
// embedding or search fails is skipped; only when every attempted variant
// fails is ErrRetrieval returned. No hits at all is an empty result.
func (dr *DefaultRetriever) Retrieve(ctx context.Context, q *Query) ([]*RelevantDocument, error) {
	if q == nil || q.Text == "" {
		return []*RelevantDocument{}, nil
	}
	ctx, span := trace.Tracer.Start(ctx, "retriever.Retrieve")
	defer span.End()
	tr := traceFrom(ctx)
	text := query.ExpandWithContext(q.Text, q.Context)
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := cache.Key(cache.NamespaceRetrieve, map[string]any{
		"collection":      dr.collection,
		"query":           text,
		"limit":           limit,
		"score_threshold": q.MinScore,
		"use_expansion":   q.UseExpansion,
	})
	if docs, ok := dr.cached(ctx, key); ok {
		tr.cacheLookup(true)
		span.SetAttributes(attribute.Bool("retriever.cache_hit", true), attribute.Int("retriever.results", len(docs)))
		log.Debugf("retriever: cache hit for %q", log.Truncate(text, 50))
		return docs, nil
	}
	tr.cacheLookup(false)

	variants := []string{text}
	if q.UseExpansion {
		enhanced, err := dr.enhancer.EnhanceQuery(ctx, &query.Request{Query: text, MaxVariants: dr.maxExpansions})
		if err != nil {
			log.Warnf("retriever: query expansion failed, searching original only: %v", err)
		} else if len(enhanced.Variants) > 0 {
			variants = enhanced.Variants
		}
	}

	var (
		results  []*RelevantDocument
		seen     = make(map[string]bool)
		attempts int
		failures int
		lastErr  error
	)
	for _, variant := range variants {
		if len(results) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
		}
		attempts++
		hits, err := dr.searchVariant(ctx, variant, 2*(limit-len(results)), q.MinScore)
		if err != nil {
			failures++
			lastErr = err
			tr.variantFailed(variant, err)
			log.Warnf("retriever: skipping variant %q: %v", log.Truncate(variant, 50), err)
			continue
		}
		for _, hit := range hits {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			results = append(results, &RelevantDocument{
				Document:     document.FromPayload(hit.ID, hit.Payload),
				Score:        hit.Score,
				MatchedQuery: variant,
			})
		}
	}
	span.SetAttributes(
		attribute.Int("retriever.variants", attempts),
		attribute.Int("retriever.failed_variants", failures),
	)
	if attempts > 0 && failures == attempts {
		span.SetStatus(codes.Error, lastErr.Error())
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, lastErr)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []*RelevantDocument{}
	}
	if failures == 0 {
		dr.store(ctx, key, results)
	}
	span.SetAttributes(attribute.Int("retriever.results", len(results)))
	log.Infof("retriever: %d documents from %d variants for %q", len(results), attempts, log.Truncate(text, 50))
	return results, nil
}

// RetrieveWithReranking implements Retriever. It retrieves twice the limit at
// 0.8 of the threshold with expansion on, then reranks against the original
// question text. A reranker failure falls back to similarity order.
func (dr *DefaultRetriever) RetrieveWithReranking(ctx context.Context, q *Query) ([]*reranker.Result, error) {
	if q == nil {
		return []*reranker.Result{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	docs, err := dr.Retrieve(ctx, &Query{
		Text:         q.Text,
		Limit:        limit * rerankLimitFactor,
		MinScore:     q.MinScore * rerankThresholdFactor,
		UseExpansion: true,
		Context:      q.Context,
	})
	if err != nil {
		return nil, err
	}
	candidates := make([]*reranker.Result, len(docs))
	for i, d := range docs {
		candidates[i] = &reranker.Result{Document: d.Document, Score: d.Score, MatchedQuery: d.MatchedQuery}
	}
	ranked, err := dr.reranker.Rerank(ctx, q.Text, candidates)
	if err != nil {
		log.Warnf("retriever: %v, keeping similarity order", err)
		ranked, _ = reranker.NewTopKReranker().Rerank(ctx, q.Text, candidates)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// SearchByKeyword runs a semantic search for keyword at KeywordThreshold.
func (dr *DefaultRetriever) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]*RelevantDocument, error) {
	if limit <= 0 {
		limit = 10
	}
	return dr.Retrieve(ctx, &Query{Text: keyword, Limit: limit, MinScore: KeywordThreshold, UseExpansion: true})
}

// GetDocument returns a stored chunk by id, or vectorstore.ErrNotFound.
func (dr *DefaultRetriever) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	p, err := dr.index.Get(ctx, dr.collection, id)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrVectorIndex, err)
	}
	return document.FromPayload(p.ID, p.Payload), nil
}

// Close implements Retriever. The index and cache are owned by the caller.
func (dr *DefaultRetriever) Close() error {
	return nil
}

func (dr *DefaultRetriever) searchVariant(ctx context.Context, variant string, n int, threshold float64) ([]vectorstore.ScoredPoint, error) {
	vec, err := dr.embedder.GetEmbedding(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}
	hits, err := dr.index.Search(ctx, dr.collection, vec, n, threshold, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVectorIndex, err)
	}
	return hits, nil
}

func (dr *DefaultRetriever) cached(ctx context.Context, key string) ([]*RelevantDocument, bool) {
	if dr.cache == nil {
		return nil, false
	}
	data, ok, err := dr.cache.Fetch(ctx, key)
	if err != nil {
		log.Warnf("retriever: cache read: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var docs []*RelevantDocument
	if err := json.Unmarshal(data, &docs); err != nil || !validCached(docs) {
		log.Warnf("retriever: dropping cache entry: %v", cache.ErrCacheCorruption)
		_ = dr.cache.Remove(ctx, key)
		return nil, false
	}
	return docs, true
}

func (dr *DefaultRetriever) store(ctx context.Context, key string, docs []*RelevantDocument) {
	if dr.cache == nil {
		return
	}
	data, err := json.Marshal(docs)
	if err != nil {
		log.Warnf("retriever: encode cache entry: %v", err)
		return
	}
	if err := dr.cache.Put(ctx, key, data, dr.cacheTTL); err != nil {
		log.Warnf("retriever: cache write: %v", err)
	}
}

func validCached(docs []*RelevantDocument) bool {
	if docs == nil {
		return false
	}
	for _, d := range docs {
		if d == nil || d.Document == nil || d.Document.ID == "" {
			return false
		}
	}
	return true
}
