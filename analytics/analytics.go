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

// Package analytics records the lifecycle of every chatbot query and derives
// the usage dashboard from it.
//
// A Recorder never returns errors: tracking calls for unknown query ids still
// update the daily aggregates, and instrument failures are only logged.
package analytics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	imetric "github.com/zakiabashir/physical-ai-robotics-textbook/telemetry/metric"
)

const (
	// DefaultCapacity is the number of query records kept.
	DefaultCapacity = 10000
	// DefaultSampleLimit bounds each per-query sample series.
	DefaultSampleLimit = 1000

	dateLayout = "2006-01-02"
)

// QueryRecord is the lifecycle of one query.
type QueryRecord struct {
	QueryID   string    `json:"query_id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`

	Retrieved      bool    `json:"retrieved"`
	RetrievalTime  float64 `json:"retrieval_time,omitempty"`
	RetrievedCount int     `json:"retrieved_count,omitempty"`
	AvgScore       float64 `json:"avg_score,omitempty"`

	Completed      bool    `json:"completed"`
	GenerationTime float64 `json:"generation_time,omitempty"`
	TokenCount     int     `json:"token_count,omitempty"`
	UseFallback    bool    `json:"use_fallback,omitempty"`

	CacheHit     *bool         `json:"cache_hit,omitempty"`
	SourceClicks []SourceClick `json:"source_clicks,omitempty"`
	Feedback     *Feedback     `json:"feedback,omitempty"`
	Error        *ErrorInfo    `json:"error,omitempty"`
}

// SourceClick is a click on a cited source.
type SourceClick struct {
	SourceURL string    `json:"source_url"`
	Timestamp time.Time `json:"timestamp"`
}

// Feedback is a learner rating of an answer.
type Feedback struct {
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorInfo describes a failed stage.
type ErrorInfo struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStats counts queries per chat session.
type SessionStats struct {
	StartTime  time.Time `json:"start_time"`
	QueryCount int       `json:"query_count"`
}

// DailyStats aggregates one calendar day. Times are in seconds.
type DailyStats struct {
	Date              string         `json:"date"`
	Queries           int            `json:"queries"`
	AvgRetrievalTime  float64        `json:"avg_retrieval_time"`
	AvgGenerationTime float64        `json:"avg_generation_time"`
	CacheHits         int            `json:"cache_hits"`
	CacheMisses       int            `json:"cache_misses"`
	Fallbacks         int            `json:"fallbacks"`
	ErrorCount        int            `json:"error_count"`
	PopularQueries    map[string]int `json:"popular_queries"`
	SourceClicks      map[string]int `json:"source_clicks,omitempty"`

	retrievals  int
	generations int
}

func (d *DailyStats) clone() DailyStats {
	c := *d
	c.PopularQueries = make(map[string]int, len(d.PopularQueries))
	for k, v := range d.PopularQueries {
		c.PopularQueries[k] = v
	}
	if d.SourceClicks != nil {
		c.SourceClicks = make(map[string]int, len(d.SourceClicks))
		for k, v := range d.SourceClicks {
			c.SourceClicks[k] = v
		}
	}
	return c
}

// Recorder tracks query analytics in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	now      func() time.Time
	capacity int
	samples  int

	ring  []*QueryRecord
	head  int
	byID  map[string]*QueryRecord
	daily map[string]*DailyStats

	sessions        map[string]*SessionStats
	queryLengths    []int
	retrievalCounts []int
	relevanceScores []float64
	feedbackScores  []int
	sourceClicks    map[string]int

	inst instruments
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCapacity sets how many query records are kept; the oldest is dropped
// first.
func WithCapacity(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithSampleLimit bounds the query length, retrieval count, relevance and
// feedback series.
func WithSampleLimit(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.samples = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMeter sets the meter the counters are mirrored to. The default is
// the module meter from telemetry/metric.
func WithMeter(m metric.Meter) Option {
	return func(r *Recorder) {
		r.inst = newInstruments(m)
	}
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		now:          time.Now,
		capacity:     DefaultCapacity,
		samples:      DefaultSampleLimit,
		byID:         make(map[string]*QueryRecord),
		daily:        make(map[string]*DailyStats),
		sessions:     make(map[string]*SessionStats),
		sourceClicks: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.inst.queries == nil {
		r.inst = newInstruments(imetric.Meter)
	}
	return r
}

// TrackQueryStart records a new query and returns its id.
func (r *Recorder) TrackQueryStart(query, sessionID, userID string) string {
	id := uuid.NewString()
	now := r.now()
	date := now.Format(dateLayout)

	r.mu.Lock()
	r.push(&QueryRecord{
		QueryID:   id,
		SessionID: sessionID,
		UserID:    userID,
		Query:     query,
		Timestamp: now,
		Date:      date,
	})
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &SessionStats{}
		r.sessions[sessionID] = s
	}
	s.StartTime = now
	s.QueryCount++

	day := r.day(date)
	day.Queries++
	day.PopularQueries[strings.ToLower(query)]++
	r.queryLengths = appendBounded(r.queryLengths, len([]rune(query)), r.samples)
	r.mu.Unlock()

	r.inst.queries.Add(context.Background(), 1)
	return id
}

// TrackRetrieval records retrieval latency, result count and mean score.
func (r *Recorder) TrackRetrieval(queryID string, elapsed time.Duration, count int, avgScore float64) {
	secs := elapsed.Seconds()

	r.mu.Lock()
	if rec := r.byID[queryID]; rec != nil {
		rec.Retrieved = true
		rec.RetrievalTime = secs
		rec.RetrievedCount = count
		rec.AvgScore = avgScore
	}
	r.retrievalCounts = appendBounded(r.retrievalCounts, count, r.samples)
	r.relevanceScores = appendBounded(r.relevanceScores, avgScore, r.samples)

	day := r.day(r.now().Format(dateLayout))
	day.retrievals++
	day.AvgRetrievalTime += (secs - day.AvgRetrievalTime) / float64(day.retrievals)
	r.mu.Unlock()

	r.inst.retrieval.Record(context.Background(), secs)
}

// TrackGeneration records generation latency and completes the query.
func (r *Recorder) TrackGeneration(queryID string, elapsed time.Duration, tokens int, usedFallback bool) {
	secs := elapsed.Seconds()

	r.mu.Lock()
	if rec := r.byID[queryID]; rec != nil {
		rec.Completed = true
		rec.GenerationTime = secs
		rec.TokenCount = tokens
		rec.UseFallback = usedFallback
	}
	day := r.day(r.now().Format(dateLayout))
	if usedFallback {
		day.Fallbacks++
	}
	day.generations++
	day.AvgGenerationTime += (secs - day.AvgGenerationTime) / float64(day.generations)
	r.mu.Unlock()

	r.inst.generation.Record(context.Background(), secs,
		metric.WithAttributes(attribute.Bool("fallback", usedFallback)))
}

// TrackCacheHit records whether retrieval was served from cache.
func (r *Recorder) TrackCacheHit(queryID string, hit bool) {
	r.mu.Lock()
	if rec := r.byID[queryID]; rec != nil {
		rec.CacheHit = &hit
	}
	day := r.day(r.now().Format(dateLayout))
	if hit {
		day.CacheHits++
	} else {
		day.CacheMisses++
	}
	r.mu.Unlock()

	r.inst.cache.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// TrackError records a failure of kind for the query.
func (r *Recorder) TrackError(queryID, kind, msg string) {
	now := r.now()

	r.mu.Lock()
	if rec := r.byID[queryID]; rec != nil {
		rec.Error = &ErrorInfo{Type: kind, Message: msg, Timestamp: now}
	}
	r.day(now.Format(dateLayout)).ErrorCount++
	r.mu.Unlock()

	r.inst.errors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", kind)))
	log.Debugf("analytics: %s error for %s: %s", kind, queryID, log.Truncate(msg, 100))
}

// TrackFeedback records a 1-5 rating. Scores outside the range are kept on
// the record but left out of the distribution.
func (r *Recorder) TrackFeedback(queryID string, score int, comment string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.byID[queryID]; rec != nil {
		rec.Feedback = &Feedback{Score: score, Comment: comment, Timestamp: now}
	}
	r.feedbackScores = appendBounded(r.feedbackScores, score, r.samples)
}

// TrackSourceClick records a click on a cited source.
func (r *Recorder) TrackSourceClick(queryID, sourceURL string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sourceClicks[sourceURL]++
	day := r.day(now.Format(dateLayout))
	if day.SourceClicks == nil {
		day.SourceClicks = make(map[string]int)
	}
	day.SourceClicks[sourceURL]++
	if rec := r.byID[queryID]; rec != nil {
		rec.SourceClicks = append(rec.SourceClicks, SourceClick{SourceURL: sourceURL, Timestamp: now})
	}
}

// Record returns a copy of the query record, if it is still retained.
func (r *Recorder) Record(queryID string) (QueryRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[queryID]
	if !ok {
		return QueryRecord{}, false
	}
	return copyRecord(rec), true
}

// Session returns the statistics of a chat session.
func (r *Recorder) Session(sessionID string) (SessionStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return SessionStats{}, false
	}
	return *s, true
}

// Len returns the number of retained query records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// push appends rec to the ring, dropping the oldest record when full.
func (r *Recorder) push(rec *QueryRecord) {
	if len(r.ring) < r.capacity {
		r.ring = append(r.ring, rec)
	} else {
		delete(r.byID, r.ring[r.head].QueryID)
		r.ring[r.head] = rec
		r.head = (r.head + 1) % r.capacity
	}
	r.byID[rec.QueryID] = rec
}

// ordered returns the retained records, oldest first.
func (r *Recorder) ordered() []*QueryRecord {
	out := make([]*QueryRecord, 0, len(r.ring))
	out = append(out, r.ring[r.head:]...)
	return append(out, r.ring[:r.head]...)
}

func (r *Recorder) day(date string) *DailyStats {
	d, ok := r.daily[date]
	if !ok {
		d = &DailyStats{Date: date, PopularQueries: make(map[string]int)}
		r.daily[date] = d
	}
	return d
}

func copyRecord(rec *QueryRecord) QueryRecord {
	c := *rec
	c.SourceClicks = append([]SourceClick(nil), rec.SourceClicks...)
	if rec.Feedback != nil {
		f := *rec.Feedback
		c.Feedback = &f
	}
	if rec.Error != nil {
		e := *rec.Error
		c.Error = &e
	}
	if rec.CacheHit != nil {
		h := *rec.CacheHit
		c.CacheHit = &h
	}
	return c
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = append(s[:0:0], s[len(s)-limit:]...)
	}
	return s
}
