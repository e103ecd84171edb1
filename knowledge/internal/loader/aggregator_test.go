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

package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestAggregator_CollectsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ag := NewAggregator([]int{10, 100}, true, 2)
	ag.Size(1)
	ag.Size(5)
	ag.Size(42)
	for i := 1; i <= 3; i++ {
		ag.Progress(Progress{Stored: i, Total: 3})
	}

	done := make(chan *Stats)
	go func() { done <- ag.Close() }()

	select {
	case s := <-done:
		assert.Equal(t, 3, s.Count)
		assert.Equal(t, 48, s.Total)
		assert.Equal(t, 2, s.Bucket(0))
		assert.Equal(t, 1, s.Bucket(1))
	case <-time.After(3 * time.Second):
		t.Fatal("aggregator Close timed out")
	}
}
