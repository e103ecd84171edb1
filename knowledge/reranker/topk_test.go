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

package reranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
)

func TestTopKReranker(t *testing.T) {
	results := []*Result{
		{Document: &document.Document{ID: "1"}, Score: 0.9},
		{Document: &document.Document{ID: "2"}, Score: 0.8},
		{Document: &document.Document{ID: "3"}, Score: 0.7},
	}

	out, err := NewTopKReranker(WithK(2)).Rerank(context.Background(), "q", results)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].Document.ID)
	assert.Equal(t, "2", out[1].Document.ID)
	assert.Equal(t, 0.9, out[0].RerankScore)

	out, err = NewTopKReranker(WithK(10)).Rerank(context.Background(), "q", results)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	out, err = NewTopKReranker(WithK(0)).Rerank(context.Background(), "q", results)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	_, err = NewTopKReranker().Rerank(context.Background(), "q", []*Result{nil})
	assert.ErrorIs(t, err, ErrReranking)
}
