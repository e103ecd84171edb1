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
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const topN = 10

// Period is the dashboard window.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// Performance summarizes completed queries. Times are in seconds.
type Performance struct {
	TotalQueries    int     `json:"total_queries"`
	AvgResponseTime float64 `json:"avg_response_time"`
	P95ResponseTime float64 `json:"p95_response_time"`
	P99ResponseTime float64 `json:"p99_response_time"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	ErrorRate       float64 `json:"error_rate"`
}

// Count is a key with its occurrence count.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// QueryAnalytics holds averages over the retained samples.
type QueryAnalytics struct {
	AvgQueryLength    float64 `json:"avg_query_length"`
	AvgRetrievalCount float64 `json:"avg_retrieval_count"`
	AvgRelevanceScore float64 `json:"avg_relevance_score"`
	AvgFeedbackScore  float64 `json:"avg_feedback_score"`
}

// Dashboard is the analytics view over the last days.
type Dashboard struct {
	Period               Period         `json:"period"`
	DailyStats           []DailyStats   `json:"daily_stats"`
	Performance          Performance    `json:"performance_metrics"`
	TopQueries           []Count        `json:"top_queries"`
	TopSources           []Count        `json:"top_sources"`
	FeedbackDistribution map[int]int    `json:"feedback_distribution"`
	QueryAnalytics       QueryAnalytics `json:"query_analytics"`
}

// Dashboard computes the view over the window from days ago until today,
// both ends included. Top queries and sources are counted in the window.
// Performance covers every retained completed query.
func (r *Recorder) Dashboard(days int) Dashboard {
	if days <= 0 {
		days = 7
	}
	end := r.now()
	start := end.AddDate(0, 0, -days)

	r.mu.Lock()
	defer r.mu.Unlock()

	d := Dashboard{
		Period: Period{
			Start: start.Format(dateLayout),
			End:   end.Format(dateLayout),
			Days:  days,
		},
		DailyStats:           []DailyStats{},
		Performance:          r.performance(),
		FeedbackDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	queries := make(map[string]int)
	sources := make(map[string]int)
	for i := days; i >= 0; i-- {
		stats, ok := r.daily[end.AddDate(0, 0, -i).Format(dateLayout)]
		if !ok {
			continue
		}
		d.DailyStats = append(d.DailyStats, stats.clone())
		for q, n := range stats.PopularQueries {
			queries[q] += n
		}
		for s, n := range stats.SourceClicks {
			sources[s] += n
		}
	}
	d.TopQueries = top(queries, topN)
	d.TopSources = top(sources, topN)

	for _, s := range r.feedbackScores {
		if s >= 1 && s <= 5 {
			d.FeedbackDistribution[s]++
		}
	}
	d.QueryAnalytics = QueryAnalytics{
		AvgQueryLength:    mean(r.queryLengths),
		AvgRetrievalCount: mean(r.retrievalCounts),
		AvgRelevanceScore: mean(r.relevanceScores),
		AvgFeedbackScore:  mean(r.feedbackScores),
	}
	return d
}

// performance must be called with r.mu held.
func (r *Recorder) performance() Performance {
	var p Performance
	var times []float64
	for _, rec := range r.ring {
		if rec.Completed && rec.Retrieved {
			times = append(times, rec.RetrievalTime+rec.GenerationTime)
		}
	}

	var hits, lookups, errs int
	for _, day := range r.daily {
		hits += day.CacheHits
		lookups += day.CacheHits + day.CacheMisses
		errs += day.ErrorCount
	}
	if lookups > 0 {
		p.CacheHitRate = float64(hits) / float64(lookups)
	}
	if len(times) == 0 {
		return p
	}

	sort.Float64s(times)
	n := len(times)
	p.TotalQueries = n
	p.AvgResponseTime = mean(times)
	p.P95ResponseTime = times[int(0.95*float64(n))]
	p.P99ResponseTime = times[int(0.99*float64(n))]
	p.ErrorRate = float64(errs) / float64(n)
	return p
}

type exportData struct {
	ExportTimestamp time.Time             `json:"export_timestamp"`
	Performance     Performance           `json:"performance_metrics"`
	DailyStats      map[string]DailyStats `json:"daily_stats"`
	QueryAnalytics  exportQueryAnalytics  `json:"query_analytics"`
	RecentQueries   []QueryRecord         `json:"recent_queries"`
}

type exportQueryAnalytics struct {
	QueryLengths    []int          `json:"query_lengths"`
	RetrievalCounts []int          `json:"retrieval_counts"`
	RelevanceScores []float64      `json:"relevance_scores"`
	SourceClicks    map[string]int `json:"source_clicks"`
	FeedbackScores  []int          `json:"feedback_scores"`
}

const exportRecent = 1000

// Export dumps the analytics state, including the most recent 1000 query
// records, as indented JSON.
func (r *Recorder) Export() ([]byte, error) {
	r.mu.Lock()
	data := exportData{
		ExportTimestamp: r.now(),
		Performance:     r.performance(),
		DailyStats:      make(map[string]DailyStats, len(r.daily)),
		QueryAnalytics: exportQueryAnalytics{
			QueryLengths:    append([]int{}, r.queryLengths...),
			RetrievalCounts: append([]int{}, r.retrievalCounts...),
			RelevanceScores: append([]float64{}, r.relevanceScores...),
			SourceClicks:    make(map[string]int, len(r.sourceClicks)),
			FeedbackScores:  append([]int{}, r.feedbackScores...),
		},
	}
	for date, day := range r.daily {
		data.DailyStats[date] = day.clone()
	}
	for k, v := range r.sourceClicks {
		data.QueryAnalytics.SourceClicks[k] = v
	}
	recs := r.ordered()
	if len(recs) > exportRecent {
		recs = recs[len(recs)-exportRecent:]
	}
	data.RecentQueries = make([]QueryRecord, len(recs))
	for i, rec := range recs {
		data.RecentQueries[i] = copyRecord(rec)
	}
	r.mu.Unlock()

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("analytics: export: %w", err)
	}
	return out, nil
}

// top returns the n largest counts, ties broken by key.
func top(m map[string]int, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func mean[T int | float64](s []T) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return sum / float64(len(s))
}
