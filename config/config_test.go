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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "humanoid_ai_book", cfg.Retrieval.Collection)
	assert.Equal(t, 5, cfg.Retrieval.Limit)
	assert.InDelta(t, 0.7, cfg.Retrieval.ScoreThreshold, 1e-9)
	assert.True(t, cfg.Retrieval.UseExpansion)
	assert.Equal(t, 3, cfg.Retrieval.MaxExpansions)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, time.Hour, cfg.Embedding.CacheTTL)
	assert.Equal(t, 1024, cfg.VectorStore.VectorSize)
	assert.Equal(t, 4000, cfg.Generation.MaxTokens)
	assert.Equal(t, 1200, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 100, cfg.Ingestion.ChunkOverlap)
	assert.Equal(t, 10000, cfg.Analytics.Capacity)
	assert.Equal(t, BackendMemory, cfg.Conversation.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Conversation.TTL)
	assert.Equal(t, 50, cfg.Conversation.MessageLimit)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rag.yaml")
	content := `
retrieval:
  limit: 8
  collection: lessons
vector_store:
  backend: inmemory
cache:
  ttl: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TEXTBOOK_GENERATION_MAX_TOKENS", "512")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Retrieval.Limit)
	assert.Equal(t, "lessons", cfg.Retrieval.Collection)
	assert.Equal(t, BackendInMemory, cfg.VectorStore.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 512, cfg.Generation.MaxTokens)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero limit", func(c *Config) { c.Retrieval.Limit = 0 }},
		{"threshold above one", func(c *Config) { c.Retrieval.ScoreThreshold = 1.5 }},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"pgvector without dsn", func(c *Config) { c.VectorStore.Backend = BackendPGVector }},
		{"overlap too large", func(c *Config) { c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"conversation redis without url", func(c *Config) { c.Conversation.Backend = BackendRedis }},
		{"no analytics capacity", func(c *Config) { c.Analytics.Capacity = 0 }},
		{"unknown trace protocol", func(c *Config) { c.Analytics.TraceProtocol = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
