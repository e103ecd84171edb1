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

// Package config loads runtime settings for the textbook RAG components.
//
// Values come from an optional YAML file and TEXTBOOK_* environment
// variables, on top of defaults that match the deployed backend.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. TEXTBOOK_RETRIEVAL_LIMIT.
const EnvPrefix = "TEXTBOOK"

// Config is the root configuration.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Ingestion   IngestionConfig   `mapstructure:"ingestion"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`

	Conversation ConversationConfig `mapstructure:"conversation"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RetrievalConfig configures the retriever and its context formatting.
type RetrievalConfig struct {
	Collection      string  `mapstructure:"collection"`
	Limit           int     `mapstructure:"limit"`
	ScoreThreshold  float64 `mapstructure:"score_threshold"`
	UseExpansion    bool    `mapstructure:"use_expansion"`
	MaxExpansions   int     `mapstructure:"max_expansions"`
	MaxContextChars int     `mapstructure:"max_context_chars"`
	DictionaryPath  string  `mapstructure:"dictionary_path"`
	Rerank          bool    `mapstructure:"rerank"`
	MaxBoost        float64 `mapstructure:"max_boost"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Dimensions   int           `mapstructure:"dimensions"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheSize    int           `mapstructure:"cache_size"`
	RateLimitRPM int           `mapstructure:"rate_limit_rpm"`
	Burst        int           `mapstructure:"burst"`
}

// GenerationConfig configures the chat model.
type GenerationConfig struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Backend    string        `mapstructure:"backend"`
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	DSN        string        `mapstructure:"dsn"`
	Table      string        `mapstructure:"table"`
	VectorSize int           `mapstructure:"vector_size"`
	Distance   string        `mapstructure:"distance"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the retrieval cache.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	MaxSize   int           `mapstructure:"max_size"`
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// IngestionConfig configures chunking and loading.
type IngestionConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	Concurrency  int `mapstructure:"concurrency"`
	BatchSize    int `mapstructure:"batch_size"`
}

// AnalyticsConfig configures the analytics recorder.
type AnalyticsConfig struct {
	Capacity     int    `mapstructure:"capacity"`
	TopN         int    `mapstructure:"top_n"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// TraceEndpoint enables span export when set.
	TraceEndpoint string `mapstructure:"trace_endpoint"`
	// TraceProtocol is the OTLP transport for spans and metrics.
	TraceProtocol string `mapstructure:"trace_protocol"`
}

// ConversationConfig configures the chat history store.
type ConversationConfig struct {
	Backend      string        `mapstructure:"backend"`
	RedisURL     string        `mapstructure:"redis_url"`
	TTL          time.Duration `mapstructure:"ttl"`
	MessageLimit int           `mapstructure:"message_limit"`
}

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendInMemory = "inmemory"
	BackendQdrant   = "qdrant"
	BackendPGVector = "pgvector"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("retrieval.collection", "humanoid_ai_book")
	v.SetDefault("retrieval.limit", 5)
	v.SetDefault("retrieval.score_threshold", 0.7)
	v.SetDefault("retrieval.use_expansion", true)
	v.SetDefault("retrieval.max_expansions", 3)
	v.SetDefault("retrieval.max_context_chars", 2000)
	v.SetDefault("retrieval.dictionary_path", "")
	v.SetDefault("retrieval.rerank", false)
	v.SetDefault("retrieval.max_boost", 0)

	v.SetDefault("embedding.provider", ProviderOpenAI)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("embedding.cache_ttl", "1h")
	v.SetDefault("embedding.cache_size", 1000)
	v.SetDefault("embedding.rate_limit_rpm", 60)
	v.SetDefault("embedding.burst", 5)

	v.SetDefault("generation.provider", ProviderGemini)
	v.SetDefault("generation.model", "gemini-2.0-flash")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.max_tokens", 4000)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.request_timeout", "30s")
	v.SetDefault("generation.history_limit", 10)

	v.SetDefault("vector_store.backend", BackendQdrant)
	v.SetDefault("vector_store.url", "http://localhost:6333")
	v.SetDefault("vector_store.api_key", "")
	v.SetDefault("vector_store.dsn", "")
	v.SetDefault("vector_store.table", "textbook_chunks")
	v.SetDefault("vector_store.vector_size", 1024)
	v.SetDefault("vector_store.distance", "Cosine")
	v.SetDefault("vector_store.timeout", "10s")

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "textbook:")

	v.SetDefault("ingestion.chunk_size", 1200)
	v.SetDefault("ingestion.chunk_overlap", 100)
	v.SetDefault("ingestion.concurrency", 4)
	v.SetDefault("ingestion.batch_size", 32)

	v.SetDefault("analytics.capacity", 10000)
	v.SetDefault("analytics.top_n", 10)
	v.SetDefault("analytics.otlp_endpoint", "")
	v.SetDefault("analytics.trace_endpoint", "")
	v.SetDefault("analytics.trace_protocol", "grpc")

	v.SetDefault("conversation.backend", BackendMemory)
	v.SetDefault("conversation.redis_url", "")
	v.SetDefault("conversation.ttl", "30m")
	v.SetDefault("conversation.message_limit", 50)
}

// Load reads configuration from path (optional) and the environment.
// An empty path searches ./textbook-rag.yaml and ./configs/textbook-rag.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("textbook-rag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Retrieval.Limit <= 0 {
		return errors.New("retrieval.limit must be positive")
	}
	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("retrieval.score_threshold %v out of [0,1]", c.Retrieval.ScoreThreshold)
	}
	if c.Retrieval.MaxExpansions < 1 {
		return errors.New("retrieval.max_expansions must be at least 1")
	}
	if c.Retrieval.MaxContextChars <= 0 {
		return errors.New("retrieval.max_context_chars must be positive")
	}
	if c.Cache.MaxSize <= 0 {
		return errors.New("cache.max_size must be positive")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	switch c.VectorStore.Backend {
	case BackendInMemory:
	case BackendQdrant:
		if c.VectorStore.URL == "" {
			return errors.New("vector_store.url is required for qdrant")
		}
	case BackendPGVector:
		if c.VectorStore.DSN == "" {
			return errors.New("vector_store.dsn is required for pgvector")
		}
	default:
		return fmt.Errorf("unknown vector_store.backend %q", c.VectorStore.Backend)
	}
	if c.VectorStore.VectorSize <= 0 {
		return errors.New("vector_store.vector_size must be positive")
	}
	if c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return errors.New("ingestion.chunk_overlap must be smaller than chunk_size")
	}
	for _, p := range []string{c.Embedding.Provider, c.Generation.Provider} {
		if p != ProviderOpenAI && p != ProviderGemini {
			return fmt.Errorf("unknown provider %q", p)
		}
	}
	switch c.Conversation.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Conversation.RedisURL == "" {
			return errors.New("conversation.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown conversation.backend %q", c.Conversation.Backend)
	}
	if c.Analytics.Capacity <= 0 {
		return errors.New("analytics.capacity must be positive")
	}
	switch c.Analytics.TraceProtocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("analytics.trace_protocol %q: want grpc or http", c.Analytics.TraceProtocol)
	}
	return nil
}
