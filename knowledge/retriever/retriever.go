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

// Package retriever finds the textbook chunks most relevant to a question.
package retriever

import (
	"context"
	"errors"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/reranker"
)

var (
	// ErrEmbedding wraps embedding provider failures.
	ErrEmbedding = errors.New("retriever: embedding failed")
	// ErrVectorIndex wraps vector index failures.
	ErrVectorIndex = errors.New("retriever: vector index failed")
	// ErrRetrieval is returned when every query variant failed.
	ErrRetrieval = errors.New("retriever: retrieval failed")
)

// Retriever is the retrieval contract used by the chat layer.
type Retriever interface {
	// Retrieve returns up to q.Limit documents ordered by similarity.
	Retrieve(ctx context.Context, q *Query) ([]*RelevantDocument, error)

	// RetrieveWithReranking over-fetches and reorders with the reranker.
	RetrieveWithReranking(ctx context.Context, q *Query) ([]*reranker.Result, error)

	// Close releases resources owned by the retriever.
	Close() error
}

// Query is a retrieval request.
type Query struct {
	// Text is the learner's question.
	Text string

	// Limit is the maximum number of documents. Zero means the default.
	Limit int

	// MinScore is the similarity threshold passed to the index.
	MinScore float64

	// UseExpansion searches query variants in addition to the original.
	UseExpansion bool

	// Context adds page hints to Text before anything else.
	Context *query.PageContext
}

// RelevantDocument is a retrieval hit.
type RelevantDocument struct {
	// Document is the matched chunk.
	Document *document.Document `json:"document"`

	// Score is the similarity reported by the index.
	Score float64 `json:"score"`

	// MatchedQuery is the variant that found the document.
	MatchedQuery string `json:"query_match"`
}

// Clone returns a deep copy.
func (r *RelevantDocument) Clone() *RelevantDocument {
	c := *r
	c.Document = r.Document.Clone()
	return &c
}
