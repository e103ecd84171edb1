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

package pgvector

import (
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
	"github.com/zakiabashir/physical-ai-robotics-textbook/storage/postgres"
)

const (
	defaultTablePrefix    = ""
	defaultHNSWM          = 16
	defaultEFConstruction = 64
)

type options struct {
	connString     string
	client         postgres.Client
	tablePrefix    string
	distance       vectorstore.Distance
	hnswM          int
	efConstruction int
	maxOpenConns   int
}

var defaultOptions = options{
	tablePrefix:    defaultTablePrefix,
	distance:       vectorstore.DistanceCosine,
	hnswM:          defaultHNSWM,
	efConstruction: defaultEFConstruction,
}

// Option configures an Index.
type Option func(*options)

// WithConnString sets the postgres connection string.
func WithConnString(dsn string) Option {
	return func(o *options) { o.connString = dsn }
}

// WithClient uses an existing client instead of opening one. The Index does
// not close it.
func WithClient(c postgres.Client) Option {
	return func(o *options) { o.client = c }
}

// WithTablePrefix prefixes every collection table name.
func WithTablePrefix(prefix string) Option {
	return func(o *options) { o.tablePrefix = prefix }
}

// WithDistance sets the metric for collections this Index did not create.
func WithDistance(d vectorstore.Distance) Option {
	return func(o *options) {
		if d != "" {
			o.distance = d
		}
	}
}

// WithHNSW tunes the HNSW index built by CreateCollection.
func WithHNSW(m, efConstruction int) Option {
	return func(o *options) {
		if m > 0 {
			o.hnswM = m
		}
		if efConstruction > 0 {
			o.efConstruction = efConstruction
		}
	}
}

// WithMaxOpenConns bounds the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(o *options) { o.maxOpenConns = n }
}
