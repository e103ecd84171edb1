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

// Package loader holds the statistics and progress helpers used while
// ingesting textbook content.
package loader

import "github.com/zakiabashir/physical-ai-robotics-textbook/log"

// DefaultBuckets are chunk size boundaries in runes.
var DefaultBuckets = []int{256, 512, 1024, 2048}

// Stats tracks chunk size statistics during a load run. It is owned by a
// single goroutine.
type Stats struct {
	buckets    []int
	bucketCnts []int

	Count int
	Total int
	Min   int
	Max   int
}

// NewStats returns Stats for the given bucket boundaries.
func NewStats(buckets []int) *Stats {
	return &Stats{
		buckets:    buckets,
		bucketCnts: make([]int, len(buckets)+1),
	}
}

// Add records one chunk of size runes.
func (s *Stats) Add(size int) {
	if s.Count == 0 || size < s.Min {
		s.Min = size
	}
	if size > s.Max {
		s.Max = size
	}
	s.Count++
	s.Total += size

	for i, upper := range s.buckets {
		if size < upper {
			s.bucketCnts[i]++
			return
		}
	}
	s.bucketCnts[len(s.bucketCnts)-1]++
}

// Avg returns the average chunk size.
func (s *Stats) Avg() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Total) / float64(s.Count)
}

// Bucket returns the number of chunks in bucket i; the last bucket is
// open-ended.
func (s *Stats) Bucket(i int) int {
	if i < 0 || i >= len(s.bucketCnts) {
		return 0
	}
	return s.bucketCnts[i]
}

// Log writes the statistics at info level.
func (s *Stats) Log() {
	if s.Count == 0 {
		return
	}
	log.Infof("loader: %d chunk(s), avg %.1f runes, min %d, max %d",
		s.Count, s.Avg(), s.Min, s.Max)
	lower := 0
	for i, upper := range s.buckets {
		if n := s.bucketCnts[i]; n > 0 {
			log.Infof("loader:   [%d, %d): %d", lower, upper, n)
		}
		lower = upper
	}
	if n := s.bucketCnts[len(s.bucketCnts)-1]; n > 0 && len(s.buckets) > 0 {
		log.Infof("loader:   [>= %d]: %d", s.buckets[len(s.buckets)-1], n)
	}
}
