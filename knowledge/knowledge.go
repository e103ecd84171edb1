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

// Package knowledge ingests textbook content into a vector index and searches
// it through the retrieval pipeline.
package knowledge

import (
	"context"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
)

// Knowledge is a searchable textbook knowledge base.
type Knowledge interface {
	// Load chunks, embeds and stores docs.
	Load(ctx context.Context, docs []*document.Document, opts ...LoadOption) (*LoadResult, error)

	// Search returns the chunks most relevant to req.
	Search(ctx context.Context, req *SearchRequest) ([]*retriever.RelevantDocument, error)

	// Close releases the knowledge base.
	Close() error
}

// SearchRequest is a knowledge search.
type SearchRequest struct {
	// Query is the search text.
	Query string

	// MaxResults limits the number of results. Zero means the retriever default.
	MaxResults int

	// MinScore sets the minimum similarity score.
	MinScore float64

	// UseExpansion enables query expansion.
	UseExpansion bool

	// Context carries the page the learner is reading.
	Context *query.PageContext
}

// LoadResult summarizes a Load run.
type LoadResult struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks_created"`
	Embedded  int           `json:"chunks_embedded"`
	Stored    int           `json:"chunks_stored"`
	Skipped   int           `json:"documents_skipped"`
	AvgChunk  float64       `json:"avg_chunk_runes"`
	Duration  time.Duration `json:"duration"`
}
