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

// Package redis implements cache.Store on top of Redis so several processes
// can share retrieval results.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/cache"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	redisstorage "github.com/zakiabashir/physical-ai-robotics-textbook/storage/redis"
)

const (
	defaultPrefix  = "textbook:"
	defaultTTL     = 5 * time.Minute
	scanBatchCount = 256
)

var _ cache.Store = (*Store)(nil)

// Store is a Redis-backed cache.Store. Keys are namespaced by a prefix and
// expire through native Redis TTLs.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

// Option configures a Store.
type Option func(*options)

type options struct {
	url    string
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// WithRedisClientURL connects to the given redis:// URL.
func WithRedisClientURL(url string) Option {
	return func(o *options) { o.url = url }
}

// WithClient uses an existing client. The store does not close it.
func WithClient(client goredis.UniversalClient) Option {
	return func(o *options) { o.client = client }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithDefaultTTL sets the TTL used when Put receives a non-positive ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// New creates a Redis store.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	o := options{prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{client: o.client, prefix: o.prefix, ttl: o.ttl}
	if s.client == nil {
		if o.url == "" {
			return nil, errors.New("redis cache: either a client or a url is required")
		}
		client, err := redisstorage.NewClient(ctx,
			redisstorage.WithClientBuilderURL(o.url),
			redisstorage.WithClientName("textbook-rag-cache"),
			redisstorage.WithPing(0),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		s.client = client
		s.owned = true
	}
	return s, nil
}

// Fetch implements cache.Store.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache: get: %w", err)
	}
	return b, true, nil
}

// Put implements cache.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set: %w", err)
	}
	return nil
}

// Remove implements cache.Store.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis cache: del: %w", err)
	}
	return nil
}

// Clear deletes every key under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatchCount).Result()
		if err != nil {
			return fmt.Errorf("redis cache: scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis cache: del: %w", err)
			}
			removed += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	log.Debugf("redis cache: cleared %d keys under %s", removed, s.prefix)
	return nil
}

// Close releases the client when the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
