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

	"github.com/stretchr/testify/assert"
)

func TestStats_AddAndAvg(t *testing.T) {
	s := NewStats([]int{256, 512, 1024})
	s.Add(100)
	s.Add(300)
	s.Add(1500)

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 100, s.Min)
	assert.Equal(t, 1500, s.Max)
	assert.InDelta(t, float64(1900)/3, s.Avg(), 1e-9)
	assert.Equal(t, 1, s.Bucket(0))
	assert.Equal(t, 1, s.Bucket(1))
	assert.Equal(t, 0, s.Bucket(2))
	assert.Equal(t, 1, s.Bucket(3))
	assert.Equal(t, 0, s.Bucket(9))
	assert.NotPanics(t, s.Log)
}

func TestStats_Empty(t *testing.T) {
	s := NewStats(nil)
	assert.Zero(t, s.Avg())
	assert.NotPanics(t, s.Log)
	s.Add(7)
	assert.Equal(t, 1, s.Bucket(0))
	assert.Equal(t, 7, s.Min)
}
