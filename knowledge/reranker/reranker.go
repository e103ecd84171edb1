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

// Package reranker reorders retrieval results after vector search.
package reranker

import (
	"context"
	"errors"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
)

// ErrReranking is returned when results cannot be reranked.
var ErrReranking = errors.New("reranker: reranking failed")

// Reranker reorders results for a query. Implementations must not modify
// the input slice or its elements.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []*Result) ([]*Result, error)
}

// Result is a reranked retrieval hit.
type Result struct {
	// Document is the matched chunk.
	Document *document.Document `json:"document"`

	// Score is the vector similarity.
	Score float64 `json:"score"`

	// RerankScore is the score used for the final ordering.
	RerankScore float64 `json:"rerank_score"`

	// Breakdown explains RerankScore.
	Breakdown Breakdown `json:"score_breakdown"`

	// MatchedQuery is the query variant that found the document.
	MatchedQuery string `json:"query_match,omitempty"`
}

// Breakdown holds the components of a rerank score.
type Breakdown struct {
	Similarity float64 `json:"similarity"`
	TermBoost  float64 `json:"term_boost"`
	TypeBoost  float64 `json:"type_boost"`
}

func (r *Result) clone() *Result {
	c := *r
	if r.Document != nil {
		c.Document = r.Document.Clone()
	}
	return &c
}
