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

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/analytics"
	"github.com/zakiabashir/physical-ai-robotics-textbook/chat"
	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation"
	convinmemory "github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation/inmemory"
	convredis "github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation/redis"
	"github.com/zakiabashir/physical-ai-robotics-textbook/config"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/cache"
	cacheredis "github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/cache/redis"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/chunking"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
	embgemini "github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder/gemini"
	embopenai "github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder/openai"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/reranker"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore/inmemory"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore/pgvector"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore/qdrant"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
	modelgemini "github.com/zakiabashir/physical-ai-robotics-textbook/model/gemini"
	modelopenai "github.com/zakiabashir/physical-ai-robotics-textbook/model/openai"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model/tiktoken"
	"github.com/zakiabashir/physical-ai-robotics-textbook/telemetry/metric"
	"github.com/zakiabashir/physical-ai-robotics-textbook/telemetry/trace"
)

const janitorInterval = time.Minute

// app holds the components built from a Config. Components are created
// lazily so a command only dials the backends it uses.
type app struct {
	cfg      *config.Config
	kb       *knowledge.BuiltinKnowledge
	expander *query.Expander
	bot      *chat.Bot
	closers  []func() error
}

// newKnowledgeApp builds the index, embedder, cache and retriever.
func newKnowledgeApp(ctx context.Context, c *config.Config) (a *app, err error) {
	a = &app{cfg: c}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if c.Analytics.TraceEndpoint != "" {
		clean, err := trace.Start(ctx,
			trace.WithEndpoint(c.Analytics.TraceEndpoint),
			trace.WithProtocol(c.Analytics.TraceProtocol),
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, clean)
	}

	emb, err := buildEmbedder(ctx, c.Embedding)
	if err != nil {
		return nil, err
	}
	ix, err := buildIndex(ctx, c.VectorStore)
	if err != nil {
		return nil, err
	}
	store, err := a.buildCache(ctx, c.Cache)
	if err != nil {
		_ = ix.Close()
		return nil, err
	}
	chunker, err := chunking.NewFixedSizeChunking(
		chunking.WithChunkSize(c.Ingestion.ChunkSize),
		chunking.WithOverlap(c.Ingestion.ChunkOverlap),
	)
	if err != nil {
		_ = ix.Close()
		return nil, fmt.Errorf("cli: chunker: %w", err)
	}

	dict := query.DefaultDictionary()
	if c.Retrieval.DictionaryPath != "" {
		if dict, err = query.LoadDictionary(c.Retrieval.DictionaryPath); err != nil {
			_ = ix.Close()
			return nil, err
		}
	}
	a.expander = query.NewExpander(query.WithDictionary(dict), query.WithMaxExpansions(c.Retrieval.MaxExpansions))
	var enhancer query.Enhancer = a.expander
	if !c.Retrieval.UseExpansion {
		enhancer = query.NewPassthroughEnhancer()
	}
	var rerankOpts []reranker.HeuristicOption
	if c.Retrieval.MaxBoost > 0 {
		rerankOpts = append(rerankOpts, reranker.WithMaxBoost(c.Retrieval.MaxBoost))
	}

	kb, err := knowledge.New(
		knowledge.WithIndex(ix),
		knowledge.WithEmbedder(emb),
		knowledge.WithChunkingStrategy(chunker),
		knowledge.WithCollection(c.Retrieval.Collection),
		knowledge.WithDistance(vectorstore.Distance(c.VectorStore.Distance)),
		knowledge.WithRetrieverOptions(
			retriever.WithCache(store),
			retriever.WithCacheTTL(c.Cache.TTL),
			retriever.WithQueryEnhancer(enhancer),
			retriever.WithMaxExpansions(c.Retrieval.MaxExpansions),
			retriever.WithReranker(reranker.NewHeuristic(rerankOpts...)),
		),
	)
	if err != nil {
		_ = ix.Close()
		return nil, err
	}
	a.kb = kb
	a.closers = append(a.closers, kb.Close)
	return a, nil
}

// newChatApp builds the knowledge components plus the chat bot.
func newChatApp(ctx context.Context, c *config.Config) (*app, error) {
	a, err := newKnowledgeApp(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := a.buildBot(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildBot(ctx context.Context) error {
	c := a.cfg
	m, err := buildModel(ctx, c.Generation)
	if err != nil {
		return err
	}

	var recOpts []analytics.Option
	recOpts = append(recOpts, analytics.WithCapacity(c.Analytics.Capacity))
	if c.Analytics.OTLPEndpoint != "" {
		clean, err := metric.Start(ctx,
			metric.WithEndpoint(c.Analytics.OTLPEndpoint),
			metric.WithProtocol(c.Analytics.TraceProtocol),
			metric.WithInsecure(),
		)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, clean)
		recOpts = append(recOpts, analytics.WithMeter(metric.Meter))
	}

	conversations, err := buildConversations(ctx, c.Conversation)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, conversations.Close)

	var counter model.TokenCounter
	if tc, err := tiktoken.New(c.Generation.Model); err != nil {
		log.Warnf("cli: tiktoken unavailable, estimating tokens: %v", err)
		counter = model.NewSimpleTokenCounter()
	} else {
		counter = tc
	}

	bot, err := chat.New(
		chat.WithRetriever(a.kb.Retriever()),
		chat.WithModel(m),
		chat.WithRecorder(analytics.New(recOpts...)),
		chat.WithConversationService(conversations),
		chat.WithTokenCounter(counter),
		chat.WithExpander(a.expander),
		chat.WithRetrievalLimit(c.Retrieval.Limit),
		chat.WithScoreThreshold(c.Retrieval.ScoreThreshold),
		chat.WithHistoryLimit(c.Generation.HistoryLimit),
		chat.WithGeneration(c.Generation.MaxTokens, c.Generation.Temperature),
		chat.WithMaxContextChars(c.Retrieval.MaxContextChars),
		chat.WithRequestTimeout(c.Generation.RequestTimeout),
		chat.WithReranking(c.Retrieval.Rerank),
	)
	if err != nil {
		return err
	}
	a.bot = bot
	a.closers = append(a.closers, bot.Close)
	return nil
}

// Close releases components in reverse creation order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildEmbedder(ctx context.Context, c config.EmbeddingConfig) (embedder.Embedder, error) {
	var inner embedder.Embedder
	switch c.Provider {
	case config.ProviderOpenAI:
		inner = embopenai.New(
			embopenai.WithModel(c.Model),
			embopenai.WithDimensions(c.Dimensions),
			embopenai.WithAPIKey(c.APIKey),
			embopenai.WithBaseURL(c.BaseURL),
		)
	case config.ProviderGemini:
		opts := []embgemini.Option{
			embgemini.WithModel(c.Model),
			embgemini.WithDimensions(c.Dimensions),
			embgemini.WithBaseURL(c.BaseURL),
		}
		if c.APIKey != "" {
			opts = append(opts, embgemini.WithAPIKey(c.APIKey))
		}
		e, err := embgemini.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, fmt.Errorf("cli: unknown embedding provider %q", c.Provider)
	}
	limited := embedder.NewRateLimited(inner, c.RateLimitRPM, c.Burst)
	return embedder.NewCached(limited,
		embedder.WithCacheSize(c.CacheSize),
		embedder.WithCacheTTL(c.CacheTTL),
		embedder.WithCacheModel(c.Provider+"/"+c.Model),
	), nil
}

func buildIndex(ctx context.Context, c config.VectorStoreConfig) (vectorstore.Index, error) {
	switch c.Backend {
	case config.BackendInMemory:
		return inmemory.New(inmemory.WithAutoCreate(true)), nil
	case config.BackendQdrant:
		return qdrant.New(
			qdrant.WithURL(c.URL),
			qdrant.WithAPIKey(c.APIKey),
			qdrant.WithTimeout(c.Timeout),
		), nil
	case config.BackendPGVector:
		opts := []pgvector.Option{
			pgvector.WithConnString(c.DSN),
			pgvector.WithDistance(vectorstore.Distance(c.Distance)),
		}
		if c.Table != "" {
			opts = append(opts, pgvector.WithTablePrefix(c.Table+"_"))
		}
		return pgvector.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("cli: unknown vector store %q", c.Backend)
	}
}

func (a *app) buildCache(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	switch c.Backend {
	case config.BackendMemory:
		mem := cache.New(
			cache.WithMaxSize(c.MaxSize),
			cache.WithDefaultTTL(c.TTL),
			cache.WithJanitor(janitorInterval),
		)
		a.closers = append(a.closers, func() error { mem.Close(); return nil })
		return mem, nil
	case config.BackendRedis:
		s, err := cacheredis.New(ctx,
			cacheredis.WithRedisClientURL(c.RedisURL),
			cacheredis.WithPrefix(c.KeyPrefix),
			cacheredis.WithDefaultTTL(c.TTL),
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("cli: unknown cache backend %q", c.Backend)
	}
}

func buildModel(ctx context.Context, c config.GenerationConfig) (model.Model, error) {
	switch c.Provider {
	case config.ProviderOpenAI:
		return modelopenai.New(c.Model,
			modelopenai.WithAPIKey(c.APIKey),
			modelopenai.WithBaseURL(c.BaseURL),
			modelopenai.WithHTTPClientOptions(modelopenai.WithHTTPClientTimeout(c.RequestTimeout)),
		), nil
	case config.ProviderGemini:
		opts := []modelgemini.Option{modelgemini.WithBaseURL(c.BaseURL)}
		if c.APIKey != "" {
			opts = append(opts, modelgemini.WithAPIKey(c.APIKey))
		}
		return modelgemini.New(ctx, c.Model, opts...)
	default:
		return nil, fmt.Errorf("cli: unknown generation provider %q", c.Provider)
	}
}

func buildConversations(ctx context.Context, c config.ConversationConfig) (conversation.Service, error) {
	switch c.Backend {
	case config.BackendMemory:
		return convinmemory.NewService(
			convinmemory.WithMessageLimit(c.MessageLimit),
			convinmemory.WithTTL(c.TTL),
		), nil
	case config.BackendRedis:
		return convredis.NewService(ctx,
			convredis.WithRedisClientURL(c.RedisURL),
			convredis.WithMessageLimit(c.MessageLimit),
			convredis.WithTTL(c.TTL),
		)
	default:
		return nil, fmt.Errorf("cli: unknown conversation backend %q", c.Backend)
	}
}
