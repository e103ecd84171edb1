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

package reranker

import "context"

const defaultTopK = -1

var _ Reranker = (*TopKReranker)(nil)

// TopKReranker keeps the first k results in their incoming order.
type TopKReranker struct {
	k int
}

// Option configures a TopKReranker.
type Option func(*TopKReranker)

// WithK sets how many results are kept. Non-positive keeps all.
func WithK(k int) Option {
	return func(tkr *TopKReranker) {
		if k <= 0 {
			k = defaultTopK
		}
		tkr.k = k
	}
}

// NewTopKReranker creates a TopKReranker.
func NewTopKReranker(opts ...Option) *TopKReranker {
	tkr := &TopKReranker{k: defaultTopK}
	for _, opt := range opts {
		opt(tkr)
	}
	return tkr
}

// Rerank implements Reranker. RerankScore equals the similarity.
func (t *TopKReranker) Rerank(_ context.Context, _ string, results []*Result) ([]*Result, error) {
	n := len(results)
	if t.k > 0 && n > t.k {
		n = t.k
	}
	out := make([]*Result, 0, n)
	for _, r := range results[:n] {
		if r == nil {
			return nil, ErrReranking
		}
		c := r.clone()
		c.RerankScore = c.Score
		c.Breakdown = Breakdown{Similarity: c.Score}
		out = append(out, c)
	}
	return out, nil
}
