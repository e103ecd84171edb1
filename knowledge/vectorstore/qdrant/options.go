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

package qdrant

import (
	"net/http"
	"time"
)

const (
	defaultURL     = "http://localhost:6333"
	defaultTimeout = 10 * time.Second
)

type options struct {
	url            string
	apiKey         string
	timeout        time.Duration
	httpClient     *http.Client
	breakerTrips   uint32
	breakerTimeout time.Duration
}

var defaultOptions = options{
	url:            defaultURL,
	timeout:        defaultTimeout,
	breakerTrips:   5,
	breakerTimeout: 30 * time.Second,
}

// Option configures an Index.
type Option func(*options)

// WithURL sets the Qdrant REST endpoint.
func WithURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.url = url
		}
	}
}

// WithAPIKey sets the api-key header.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithTimeout bounds each HTTP call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithCircuitBreaker opens the breaker after trips consecutive failures and
// keeps it open for cooldown. Zero trips disables the breaker.
func WithCircuitBreaker(trips uint32, cooldown time.Duration) Option {
	return func(o *options) {
		o.breakerTrips = trips
		if cooldown > 0 {
			o.breakerTimeout = cooldown
		}
	}
}
