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

// Package redis builds go-redis clients from connection URLs for the shared
// retrieval cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 3 * time.Second

type clientBuilder func(ctx context.Context, builderOpts ...ClientBuilderOpt) (redis.UniversalClient, error)

var globalBuilder clientBuilder = DefaultClientBuilder

// SetClientBuilder replaces the builder used by NewClient.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder returns the builder used by NewClient.
func GetClientBuilder() clientBuilder {
	return globalBuilder
}

// NewClient builds a client with the installed builder.
func NewClient(ctx context.Context, opts ...ClientBuilderOpt) (redis.UniversalClient, error) {
	return globalBuilder(ctx, opts...)
}

// DefaultClientBuilder parses the URL, creates a universal client and, when
// requested, verifies the connection with PING.
func DefaultClientBuilder(ctx context.Context, builderOpts ...ClientBuilderOpt) (redis.UniversalClient, error) {
	o := &ClientBuilderOpts{PingTimeout: defaultPingTimeout}
	for _, opt := range builderOpts {
		opt(o)
	}

	if o.URL == "" {
		return nil, fmt.Errorf("redis: url is empty")
	}

	opts, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url %s: %w", o.URL, err)
	}
	clientName := opts.ClientName
	if o.ClientName != "" {
		clientName = o.ClientName
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:           []string{opts.Addr},
		DB:              opts.DB,
		Username:        opts.Username,
		Password:        opts.Password,
		Protocol:        opts.Protocol,
		ClientName:      clientName,
		TLSConfig:       opts.TLSConfig,
		MaxRetries:      opts.MaxRetries,
		DialTimeout:     opts.DialTimeout,
		ReadTimeout:     opts.ReadTimeout,
		WriteTimeout:    opts.WriteTimeout,
		PoolSize:        opts.PoolSize,
		PoolTimeout:     opts.PoolTimeout,
		MinIdleConns:    opts.MinIdleConns,
		MaxIdleConns:    opts.MaxIdleConns,
		ConnMaxIdleTime: opts.ConnMaxIdleTime,
		ConnMaxLifetime: opts.ConnMaxLifetime,
	})
	if !o.Ping {
		return client, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// ClientBuilderOpt is the option for the redis client.
type ClientBuilderOpt func(*ClientBuilderOpts)

// ClientBuilderOpts is the options for the redis client.
type ClientBuilderOpts struct {
	URL         string
	ClientName  string
	Ping        bool
	PingTimeout time.Duration
}

// WithClientBuilderURL sets the redis url.
// scheme: redis://<username>:<password>@<host>:<port>/<db>?<options>
func WithClientBuilderURL(url string) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.URL = url
	}
}

// WithClientName overrides the CLIENT SETNAME value.
func WithClientName(name string) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.ClientName = name
	}
}

// WithPing makes the builder verify connectivity before returning.
func WithPing(timeout time.Duration) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.Ping = true
		if timeout > 0 {
			opts.PingTimeout = timeout
		}
	}
}
