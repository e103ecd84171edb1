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

package knowledge

import (
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/chunking"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
)

// Option represents a functional option for configuring BuiltinKnowledge.
type Option func(*BuiltinKnowledge)

// WithIndex sets the vector index that stores chunks.
func WithIndex(ix vectorstore.Index) Option {
	return func(dk *BuiltinKnowledge) {
		dk.index = ix
	}
}

// WithEmbedder sets the embedder for generating chunk embeddings.
func WithEmbedder(e embedder.Embedder) Option {
	return func(dk *BuiltinKnowledge) {
		dk.embedder = e
	}
}

// WithChunkingStrategy sets how documents are split. The default is
// fixed-size chunking of 1200 runes with an overlap of 100.
func WithChunkingStrategy(s chunking.Strategy) Option {
	return func(dk *BuiltinKnowledge) {
		dk.chunker = s
	}
}

// WithRetriever sets a custom retriever (optional).
func WithRetriever(r retriever.Retriever) Option {
	return func(dk *BuiltinKnowledge) {
		dk.retriever = r
	}
}

// WithRetrieverOptions passes options to the built-in retriever.
func WithRetrieverOptions(opts ...retriever.Option) Option {
	return func(dk *BuiltinKnowledge) {
		dk.retrieverOpts = append(dk.retrieverOpts, opts...)
	}
}

// WithCollection sets the collection documents are stored in.
func WithCollection(name string) Option {
	return func(dk *BuiltinKnowledge) {
		if name != "" {
			dk.collection = name
		}
	}
}

// WithDistance sets the metric used when the collection is created.
func WithDistance(d vectorstore.Distance) Option {
	return func(dk *BuiltinKnowledge) {
		if d != "" {
			dk.distance = d
		}
	}
}

// loadConfig holds the configuration for load behavior.
type loadConfig struct {
	showProgress     bool
	progressStepSize int
	showStats        bool
	concurrency      int
	batchSize        int
	recreate         bool
}

// LoadOption represents a functional option for configuring load behavior.
type LoadOption func(*loadConfig)

// WithShowProgress enables or disables progress logging during load.
func WithShowProgress(show bool) LoadOption {
	return func(lc *loadConfig) {
		lc.showProgress = show
	}
}

// WithProgressStepSize sets how many stored chunks separate progress logs.
func WithProgressStepSize(stepSize int) LoadOption {
	return func(lc *loadConfig) {
		lc.progressStepSize = stepSize
	}
}

// WithShowStats enables or disables chunk size statistics.
// By default statistics are shown.
func WithShowStats(show bool) LoadOption {
	return func(lc *loadConfig) {
		lc.showStats = show
	}
}

// WithConcurrency sets how many batches are embedded and stored in parallel.
// The default is runtime.NumCPU().
func WithConcurrency(n int) LoadOption {
	return func(lc *loadConfig) {
		lc.concurrency = n
	}
}

// WithBatchSize sets how many chunks share one embedding request.
func WithBatchSize(n int) LoadOption {
	return func(lc *loadConfig) {
		lc.batchSize = n
	}
}

// WithRecreate drops the collection before loading.
// ATTENTION! Every stored chunk is deleted.
func WithRecreate(recreate bool) LoadOption {
	return func(lc *loadConfig) {
		lc.recreate = recreate
	}
}
