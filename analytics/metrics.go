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
	"go.opentelemetry.io/otel/metric"
	noopm "go.opentelemetry.io/otel/metric/noop"

	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

// Instrument names.
const (
	MetricQueries            = "rag.queries"
	MetricCacheHits          = "rag.cache.hits"
	MetricErrors             = "rag.errors"
	MetricRetrievalDuration  = "rag.retrieval.duration"
	MetricGenerationDuration = "rag.generation.duration"
)

type instruments struct {
	queries    metric.Int64Counter
	cache      metric.Int64Counter
	errors     metric.Int64Counter
	retrieval  metric.Float64Histogram
	generation metric.Float64Histogram
}

func newInstruments(m metric.Meter) instruments {
	if m == nil {
		m = noopm.Meter{}
	}
	noop := noopm.Meter{}
	var inst instruments
	var err error

	if inst.queries, err = m.Int64Counter(MetricQueries,
		metric.WithDescription("Chatbot queries started.")); err != nil {
		log.Warnf("analytics: create %s: %v", MetricQueries, err)
		inst.queries, _ = noop.Int64Counter(MetricQueries)
	}
	if inst.cache, err = m.Int64Counter(MetricCacheHits,
		metric.WithDescription("Retrieval cache lookups, by hit.")); err != nil {
		log.Warnf("analytics: create %s: %v", MetricCacheHits, err)
		inst.cache, _ = noop.Int64Counter(MetricCacheHits)
	}
	if inst.errors, err = m.Int64Counter(MetricErrors,
		metric.WithDescription("Pipeline errors, by type.")); err != nil {
		log.Warnf("analytics: create %s: %v", MetricErrors, err)
		inst.errors, _ = noop.Int64Counter(MetricErrors)
	}
	if inst.retrieval, err = m.Float64Histogram(MetricRetrievalDuration,
		metric.WithDescription("Retrieval latency."), metric.WithUnit("s")); err != nil {
		log.Warnf("analytics: create %s: %v", MetricRetrievalDuration, err)
		inst.retrieval, _ = noop.Float64Histogram(MetricRetrievalDuration)
	}
	if inst.generation, err = m.Float64Histogram(MetricGenerationDuration,
		metric.WithDescription("Answer generation latency."), metric.WithUnit("s")); err != nil {
		log.Warnf("analytics: create %s: %v", MetricGenerationDuration, err)
		inst.generation, _ = noop.Float64Histogram(MetricGenerationDuration)
	}
	return inst
}
