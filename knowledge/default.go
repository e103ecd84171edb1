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
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/chunking"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/internal/loader"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

const (
	defaultBatchSize    = 32
	defaultProgressStep = 50
	metaIngestedAt      = "ingested_at"
)

// ErrNotConfigured is returned when an operation needs a component that
// was not provided.
var ErrNotConfigured = errors.New("knowledge: not configured")

var _ Knowledge = (*BuiltinKnowledge)(nil)

// BuiltinKnowledge implements Knowledge on an embedder, a vector index and
// the default retriever.
type BuiltinKnowledge struct {
	index         vectorstore.Index
	embedder      embedder.Embedder
	chunker       chunking.Strategy
	retriever     retriever.Retriever
	retrieverOpts []retriever.Option
	collection    string
	distance      vectorstore.Distance
}

// New creates a BuiltinKnowledge. Without WithRetriever, a default retriever
// is built when both an embedder and an index are set.
func New(opts ...Option) (*BuiltinKnowledge, error) {
	dk := &BuiltinKnowledge{
		collection: retriever.DefaultCollection,
		distance:   vectorstore.DistanceCosine,
	}
	for _, opt := range opts {
		opt(dk)
	}
	if dk.chunker == nil {
		fsc, err := chunking.NewFixedSizeChunking()
		if err != nil {
			return nil, err
		}
		dk.chunker = fsc
	}
	if dk.retriever == nil && dk.embedder != nil && dk.index != nil {
		ropts := append([]retriever.Option{
			retriever.WithEmbedder(dk.embedder),
			retriever.WithIndex(dk.index),
			retriever.WithCollection(dk.collection),
		}, dk.retrieverOpts...)
		r, err := retriever.New(ropts...)
		if err != nil {
			return nil, fmt.Errorf("knowledge: %w", err)
		}
		dk.retriever = r
	}
	return dk, nil
}

// Retriever returns the retriever used by Search.
func (dk *BuiltinKnowledge) Retriever() retriever.Retriever {
	return dk.retriever
}

// Load implements Knowledge. The collection is created when missing. Chunks
// are embedded in batches on an ants pool and upserted by id, so loading the
// same documents again replaces their chunks. Documents that are empty or
// cannot be chunked are skipped. The first failing batch aborts the load.
func (dk *BuiltinKnowledge) Load(ctx context.Context, docs []*document.Document, opts ...LoadOption) (*LoadResult, error) {
	if dk.index == nil || dk.embedder == nil {
		return nil, fmt.Errorf("%w: index and embedder are required to load", ErrNotConfigured)
	}
	start := time.Now()
	cfg := buildLoadConfig(opts...)
	res := &LoadResult{Documents: len(docs)}

	if err := dk.prepareCollection(ctx, cfg.recreate); err != nil {
		return res, err
	}

	aggr := loader.NewAggregator(loader.DefaultBuckets, cfg.showProgress, cfg.progressStepSize)
	chunks := dk.chunkAll(docs, aggr, res)
	res.Chunks = len(chunks)
	log.Infof("knowledge: %d document(s) -> %d chunk(s) for %s", len(docs)-res.Skipped, len(chunks), dk.collection)

	err := dk.storeAll(ctx, chunks, cfg, aggr, res)

	stats := aggr.Close()
	if cfg.showStats {
		stats.Log()
	}
	res.AvgChunk = stats.Avg()
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("knowledge: load: %w", err)
	}
	log.Infof("knowledge: stored %d chunk(s) in %s", res.Stored, res.Duration.Truncate(time.Millisecond))
	return res, nil
}

func (dk *BuiltinKnowledge) prepareCollection(ctx context.Context, recreate bool) error {
	if recreate {
		log.Warnf("knowledge: recreating collection %s", dk.collection)
		err := dk.index.DeleteCollection(ctx, dk.collection)
		if err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return fmt.Errorf("knowledge: drop collection: %w", err)
		}
	}
	if err := dk.index.CreateCollection(ctx, dk.collection, dk.embedder.GetDimensions(), dk.distance); err != nil {
		return fmt.Errorf("knowledge: create collection: %w", err)
	}
	return nil
}

func (dk *BuiltinKnowledge) chunkAll(docs []*document.Document, aggr *loader.Aggregator, res *LoadResult) []*document.Document {
	ingestedAt := time.Now().Unix()
	var out []*document.Document
	for _, d := range docs {
		if d.IsEmpty() {
			res.Skipped++
			continue
		}
		if d.Source == "" && d.URL != "" {
			d = d.Clone()
			d.Source = SourceName(d.URL)
		}
		chunks, err := dk.chunker.Chunk(d)
		if err != nil {
			log.Warnf("knowledge: skipping document %q: %v", d.ID, err)
			res.Skipped++
			continue
		}
		for _, c := range chunks {
			if c.Extra == nil {
				c.Extra = make(map[string]any, 1)
			}
			c.Extra[metaIngestedAt] = ingestedAt
			aggr.Size(len([]rune(c.Text)))
		}
		out = append(out, chunks...)
	}
	return out
}

// storeAll embeds and upserts chunks batch by batch.
func (dk *BuiltinKnowledge) storeAll(
	ctx context.Context,
	chunks []*document.Document,
	cfg *loadConfig,
	aggr *loader.Aggregator,
	res *LoadResult,
) error {
	if len(chunks) == 0 {
		return nil
	}
	pool, err := ants.NewPool(cfg.concurrency)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		embedded atomic.Int64
		stored   atomic.Int64
		errOnce  sync.Once
		firstErr error
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	total := len(chunks)
	for lo := 0; lo < total; lo += cfg.batchSize {
		batch := chunks[lo:min(lo+cfg.batchSize, total)]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			n, err := dk.storeBatch(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			embedded.Add(int64(n))
			done := stored.Add(int64(n))
			aggr.Progress(loader.Progress{Stored: int(done), Total: total})
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch: %w", err))
			break
		}
	}
	wg.Wait()

	res.Embedded = int(embedded.Load())
	res.Stored = int(stored.Load())
	return firstErr
}

func (dk *BuiltinKnowledge) storeBatch(ctx context.Context, batch []*document.Document) (int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vecs, err := dk.embedder.GetEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vecs), len(batch))
	}
	points := make([]vectorstore.Point, len(batch))
	for i, c := range batch {
		points[i] = vectorstore.Point{ID: c.ID, Vector: vecs[i], Payload: c.Payload()}
	}
	if err := dk.index.Upsert(ctx, dk.collection, points); err != nil {
		return 0, fmt.Errorf("upsert batch: %w", err)
	}
	return len(batch), nil
}

// Search implements Knowledge.
func (dk *BuiltinKnowledge) Search(ctx context.Context, req *SearchRequest) ([]*retriever.RelevantDocument, error) {
	if dk.retriever == nil {
		return nil, fmt.Errorf("%w: retriever", ErrNotConfigured)
	}
	if req == nil {
		return []*retriever.RelevantDocument{}, nil
	}
	return dk.retriever.Retrieve(ctx, &retriever.Query{
		Text:         req.Query,
		Limit:        req.MaxResults,
		MinScore:     max(req.MinScore, 0),
		UseExpansion: req.UseExpansion,
		Context:      req.Context,
	})
}

// Close closes the knowledge base and releases resources.
func (dk *BuiltinKnowledge) Close() error {
	var errs []error
	if dk.retriever != nil {
		if err := dk.retriever.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close retriever: %w", err))
		}
	}
	if dk.index != nil {
		if err := dk.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildLoadConfig(opts ...LoadOption) *loadConfig {
	cfg := &loadConfig{
		showProgress:     true,
		progressStepSize: defaultProgressStep,
		showStats:        true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = runtime.NumCPU()
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = defaultBatchSize
	}
	if cfg.progressStepSize <= 0 {
		cfg.progressStepSize = defaultProgressStep
	}
	return cfg
}
