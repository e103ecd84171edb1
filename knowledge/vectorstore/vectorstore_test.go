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

package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity(DistanceCosine, []float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Similarity(DistanceCosine, []float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, Similarity(DistanceCosine, []float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, Similarity(DistanceCosine, []float64{1}, []float64{1, 1}))
	assert.InDelta(t, 11.0, Similarity(DistanceDot, []float64{1, 2}, []float64{3, 4}), 1e-9)
	assert.InDelta(t, -5.0, Similarity(DistanceEuclid, []float64{0, 0}, []float64{3, 4}), 1e-9)
}
