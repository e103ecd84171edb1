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

// Package cache provides a bounded in-process TTL cache for retrieval results
// and embeddings.
//
// Entries are visible while now-storedAt < ttl. Expired entries are removed
// lazily when read, or by the optional janitor. When a new key would push the
// cache past its maximum size, the entry with the oldest storedAt is evicted.
// This is an insertion-time approximation of LRU: reads do not refresh it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxSize = 1000
)

// ErrCacheCorruption is returned when a stored value does not have the shape
// its reader expects. The entry is dropped and the read is treated as a miss.
var ErrCacheCorruption = errors.New("cache: corrupted entry")

// Store is the byte-level cache contract shared by the in-process cache and
// the Redis-backed store.
type Store interface {
	// Fetch returns the value stored under key. A missing or expired key
	// yields ok == false and a nil error.
	Fetch(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put stores value under key. A non-positive ttl uses the store default.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Remove deletes key if present.
	Remove(ctx context.Context, key string) error
}

var _ Store = (*Cache)(nil)

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
	size     int
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size         int    `json:"size"`
	MaxSize      int    `json:"max_size"`
	ApproxMemory int    `json:"approximate_memory"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Evictions    uint64 `json:"evictions"`
}

// Cache is a goroutine-safe TTL cache with a bounded number of entries.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	memory   int
	maxSize  int
	ttl      time.Duration
	now      func() time.Time
	sizer    func(any) int
	interval time.Duration

	hits      uint64
	misses    uint64
	evictions uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxSize sets the maximum number of entries.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithDefaultTTL sets the TTL applied by Set.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSizer sets the function used to estimate the memory of a value.
func WithSizer(sizer func(any) int) Option {
	return func(c *Cache) {
		if sizer != nil {
			c.sizer = sizer
		}
	}
}

// WithJanitor starts a background goroutine that purges expired entries
// every interval. Call Close to stop it.
func WithJanitor(interval time.Duration) Option {
	return func(c *Cache) {
		c.interval = interval
	}
}

// New creates a cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		now:     time.Now,
		sizer:   approxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.janitor()
	}
	return c
}

// Get returns the value for key. Expired entries are removed as a side effect.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(c.now()) {
		c.removeLocked(key, e)
		c.misses++
		log.Debugf("cache: expired key %s", log.Truncate(key, 50))
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with the given TTL. A non-positive ttl
// uses the default.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	size := c.sizer(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.memory -= old.size
	} else if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{value: value, storedAt: c.now(), ttl: ttl, size: size}
	c.memory += size
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.memory = 0
	log.Debugf("cache: cleared")
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:         len(c.entries),
		MaxSize:      c.maxSize,
		ApproxMemory: c.memory,
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
	}
}

// Purge removes every expired entry and returns how many were dropped.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(k, e)
			n++
		}
	}
	return n
}

// Close stops the janitor if one is running. It is safe to call more than once.
func (c *Cache) Close() {
	if c.stop == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

// Fetch implements Store. Non-byte values stored through Set are reported as
// ErrCacheCorruption and dropped.
func (c *Cache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		c.Delete(key)
		return nil, false, fmt.Errorf("%w: key %s holds %T", ErrCacheCorruption, log.Truncate(key, 50), v)
	}
	return b, true, nil
}

// Put implements Store.
func (c *Cache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.SetWithTTL(key, value, ttl)
	return nil
}

// Remove implements Store.
func (c *Cache) Remove(_ context.Context, key string) error {
	c.Delete(key)
	return nil
}

func (c *Cache) removeLocked(key string, e *entry) {
	delete(c.entries, key)
	c.memory -= e.size
}

// evictOldestLocked drops the entry with the smallest storedAt. Ties are
// broken by key so the choice is deterministic.
func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    *entry
	)
	for k, e := range c.entries {
		if oldest == nil || e.storedAt.Before(oldest.storedAt) ||
			(e.storedAt.Equal(oldest.storedAt) && k < oldestKey) {
			oldestKey, oldest = k, e
		}
	}
	if oldest == nil {
		return
	}
	c.removeLocked(oldestKey, oldest)
	c.evictions++
	log.Debugf("cache: evicted oldest key %s", log.Truncate(oldestKey, 50))
}

func (c *Cache) janitor() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.Purge(); n > 0 {
				log.Debugf("cache: janitor purged %d expired entries", n)
			}
		case <-c.stop:
			return
		}
	}
}

func approxSize(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case []byte:
		return len(t)
	case string:
		return len(t)
	case fmt.Stringer:
		return len(t.String())
	default:
		return len(fmt.Sprint(v))
	}
}
