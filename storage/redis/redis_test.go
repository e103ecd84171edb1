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

package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSetGetClientBuilder(t *testing.T) {
	old := GetClientBuilder()
	defer SetClientBuilder(old)

	invoked := false
	SetClientBuilder(func(ctx context.Context, opts ...ClientBuilderOpt) (redis.UniversalClient, error) {
		invoked = true
		return nil, nil
	})
	_, err := NewClient(context.Background(), WithClientBuilderURL("redis://localhost:6379"))
	require.NoError(t, err)
	require.True(t, invoked)
}

func TestDefaultClientBuilder_EmptyURL(t *testing.T) {
	_, err := DefaultClientBuilder(context.Background())
	require.EqualError(t, err, "redis: url is empty")
}

func TestDefaultClientBuilder_InvalidURL(t *testing.T) {
	_, err := DefaultClientBuilder(context.Background(), WithClientBuilderURL("127.0.0.1:6379"))
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "redis: parse url 127.0.0.1:6379:"))
}

func TestDefaultClientBuilder_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := DefaultClientBuilder(context.Background(),
		WithClientBuilderURL("redis://"+mr.Addr()+"/0"),
		WithClientName("textbook-rag"),
		WithPing(time.Second),
	)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	require.Equal(t, "v", mustGet(t, mr, "k"))
}

func TestDefaultClientBuilder_PingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := DefaultClientBuilder(context.Background(),
		WithClientBuilderURL("redis://"+addr),
		WithPing(200*time.Millisecond),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis: ping")
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
