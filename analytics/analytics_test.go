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

package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func TestRecorder_RoundTrip(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))

	id := r.TrackQueryStart("What is ZMP?", "s1", "u1")
	require.NotEmpty(t, id)
	r.TrackCacheHit(id, false)
	r.TrackRetrieval(id, 200*time.Millisecond, 3, 0.8)
	r.TrackGeneration(id, 800*time.Millisecond, 120, false)
	r.TrackFeedback(id, 5, "clear")
	r.TrackSourceClick(id, "/docs/balance")

	rec, ok := r.Record(id)
	require.True(t, ok)
	assert.Equal(t, "What is ZMP?", rec.Query)
	assert.Equal(t, "2025-03-10", rec.Date)
	assert.True(t, rec.Completed)
	assert.Equal(t, 3, rec.RetrievedCount)
	assert.InDelta(t, 0.2, rec.RetrievalTime, 1e-9)
	assert.Equal(t, 120, rec.TokenCount)
	require.NotNil(t, rec.CacheHit)
	assert.False(t, *rec.CacheHit)
	require.NotNil(t, rec.Feedback)
	assert.Equal(t, 5, rec.Feedback.Score)
	require.Len(t, rec.SourceClicks, 1)
	assert.Equal(t, "/docs/balance", rec.SourceClicks[0].SourceURL)

	s, ok := r.Session("s1")
	require.True(t, ok)
	assert.Equal(t, 1, s.QueryCount)

	d := r.Dashboard(7)
	assert.Equal(t, Period{Start: "2025-03-03", End: "2025-03-10", Days: 7}, d.Period)
	require.Len(t, d.DailyStats, 1)
	day := d.DailyStats[0]
	assert.Equal(t, 1, day.Queries)
	assert.Equal(t, 1, day.CacheMisses)
	assert.InDelta(t, 0.2, day.AvgRetrievalTime, 1e-9)
	assert.InDelta(t, 0.8, day.AvgGenerationTime, 1e-9)
	assert.Equal(t, 1, day.PopularQueries["what is zmp?"])

	assert.Equal(t, 1, d.Performance.TotalQueries)
	assert.InDelta(t, 1.0, d.Performance.AvgResponseTime, 1e-9)
	assert.Zero(t, d.Performance.CacheHitRate)
	assert.Equal(t, []Count{{Key: "what is zmp?", Count: 1}}, d.TopQueries)
	assert.Equal(t, []Count{{Key: "/docs/balance", Count: 1}}, d.TopSources)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 1}, d.FeedbackDistribution)
	assert.InDelta(t, 12, d.QueryAnalytics.AvgQueryLength, 1e-9)
	assert.InDelta(t, 0.8, d.QueryAnalytics.AvgRelevanceScore, 1e-9)
}

func TestRecorder_PerformanceAndRates(t *testing.T) {
	r := New(WithClock(newClock().Now))
	for i := 1; i <= 20; i++ {
		id := r.TrackQueryStart(fmt.Sprintf("q%d", i%3), "s", "")
		r.TrackCacheHit(id, i%4 == 0)
		r.TrackRetrieval(id, time.Duration(i)*100*time.Millisecond, 5, 0.7)
		r.TrackGeneration(id, 0, 10, i%5 == 0)
	}
	r.TrackError("unknown-id", "generation", "boom")
	r.TrackError("unknown-id", "retrieval", "boom")

	d := r.Dashboard(1)
	p := d.Performance
	assert.Equal(t, 20, p.TotalQueries)
	assert.InDelta(t, 1.05, p.AvgResponseTime, 1e-9)
	assert.InDelta(t, 2.0, p.P95ResponseTime, 1e-9, "sorted[int(0.95*20)] is the 20th value")
	assert.InDelta(t, 2.0, p.P99ResponseTime, 1e-9)
	assert.InDelta(t, 0.25, p.CacheHitRate, 1e-9)
	assert.InDelta(t, 0.1, p.ErrorRate, 1e-9)

	require.Len(t, d.DailyStats, 1)
	assert.Equal(t, 4, d.DailyStats[0].Fallbacks)
	assert.Equal(t, 2, d.DailyStats[0].ErrorCount)
	assert.Equal(t, []Count{{Key: "q1", Count: 7}, {Key: "q2", Count: 7}, {Key: "q0", Count: 6}}, d.TopQueries)
}

func TestRecorder_IncompleteQueriesExcluded(t *testing.T) {
	r := New(WithClock(newClock().Now))
	id := r.TrackQueryStart("q", "s", "")
	r.TrackRetrieval(id, time.Second, 0, 0)

	p := r.Dashboard(7).Performance
	assert.Zero(t, p.TotalQueries)
	assert.Zero(t, p.ErrorRate)
}

func TestRecorder_Window(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))

	old := r.TrackQueryStart("old question", "s", "")
	r.TrackSourceClick(old, "/docs/old")
	clock.Advance(10 * 24 * time.Hour)
	r.TrackQueryStart("new question", "s", "")

	d := r.Dashboard(3)
	require.Len(t, d.DailyStats, 1)
	assert.Equal(t, "2025-03-20", d.DailyStats[0].Date)
	assert.Equal(t, []Count{{Key: "new question", Count: 1}}, d.TopQueries)
	assert.Empty(t, d.TopSources)

	assert.Len(t, r.Dashboard(30).DailyStats, 2)
}

func TestRecorder_RingDropsOldest(t *testing.T) {
	r := New(WithCapacity(3), WithSampleLimit(2), WithClock(newClock().Now))
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = r.TrackQueryStart(fmt.Sprintf("query %d", i), "s", "")
	}
	assert.Equal(t, 3, r.Len())
	_, ok := r.Record(ids[1])
	assert.False(t, ok)
	_, ok = r.Record(ids[2])
	assert.True(t, ok)

	// Tracking an evicted id still counts towards the daily aggregates.
	r.TrackCacheHit(ids[0], true)
	assert.Equal(t, 1, r.Dashboard(1).DailyStats[0].CacheHits)

	var export struct {
		RecentQueries  []QueryRecord `json:"recent_queries"`
		QueryAnalytics struct {
			QueryLengths []int `json:"query_lengths"`
		} `json:"query_analytics"`
	}
	raw, err := r.Export()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &export))
	require.Len(t, export.RecentQueries, 3)
	assert.Equal(t, "query 2", export.RecentQueries[0].Query)
	assert.Equal(t, "query 4", export.RecentQueries[2].Query)
	assert.Len(t, export.QueryAnalytics.QueryLengths, 2)
}

func TestRecorder_FeedbackOutOfRange(t *testing.T) {
	r := New()
	id := r.TrackQueryStart("q", "s", "")
	r.TrackFeedback(id, 9, "")
	r.TrackFeedback(id, 2, "meh")

	d := r.Dashboard(1)
	assert.Equal(t, 1, d.FeedbackDistribution[2])
	assert.InDelta(t, 5.5, d.QueryAnalytics.AvgFeedbackScore, 1e-9)
}

func TestRecorder_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := r.TrackQueryStart("q", "s", "")
				r.TrackRetrieval(id, time.Millisecond, 1, 0.9)
				r.TrackGeneration(id, time.Millisecond, 1, false)
				_ = r.Dashboard(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, r.Dashboard(1).Performance.TotalQueries)
}

func TestRecorder_Instruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	r := New(WithMeter(provider.Meter("analytics-test")))
	id := r.TrackQueryStart("q", "s", "")
	r.TrackCacheHit(id, true)
	r.TrackRetrieval(id, time.Second, 1, 1)
	r.TrackGeneration(id, time.Second, 1, true)
	r.TrackError(id, "generation", "x")
	r.TrackQueryStart("q2", "s", "")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	histograms := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms[m.Name] += dp.Count
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums[MetricQueries])
	assert.Equal(t, int64(1), sums[MetricCacheHits])
	assert.Equal(t, int64(1), sums[MetricErrors])
	assert.Equal(t, uint64(1), histograms[MetricRetrievalDuration])
	assert.Equal(t, uint64(1), histograms[MetricGenerationDuration])
}
