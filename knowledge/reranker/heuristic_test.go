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
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
)

func doc(id, title, text string) *document.Document {
	return &document.Document{ID: id, Title: title, Text: text}
}

func TestHeuristic_LiteralFormula(t *testing.T) {
	results := []*Result{
		{Document: doc("a", "Intro", "Robots walk on two legs."), Score: 0.80},
		{Document: doc("b", "Kinematics basics", "Kinematics is defined as the study of motion."), Score: 0.75},
	}

	out, err := NewHeuristic().Rerank(context.Background(), "What is kinematics", results)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "b", out[0].Document.ID)
	assert.InDelta(t, 0.75+0.10+0.15+0.20, out[0].RerankScore, 1e-9)
	assert.InDelta(t, 0.25, out[0].Breakdown.TermBoost, 1e-9)
	assert.InDelta(t, 0.20, out[0].Breakdown.TypeBoost, 1e-9)
	assert.Equal(t, 0.75, out[0].Breakdown.Similarity)

	assert.Equal(t, "a", out[1].Document.ID)
	assert.Equal(t, 0.80, out[1].RerankScore)

	assert.Equal(t, 0.75, results[1].Score, "input untouched")
	assert.Zero(t, results[1].RerankScore)
}

func TestHeuristic_ZeroBoostsPreserveOrder(t *testing.T) {
	results := []*Result{
		{Document: doc("a", "ROS", "ros example such as a node"), Score: 0.9},
		{Document: doc("b", "ROS", "ros example"), Score: 0.9},
		{Document: doc("c", "", "other"), Score: 0.7},
	}
	h := NewHeuristic(WithTermBoosts(0, 0), WithTypeBoost(0))

	out, err := h.Rerank(context.Background(), "example of ros", results)
	require.NoError(t, err)
	ids := []string{out[0].Document.ID, out[1].Document.ID, out[2].Document.ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	for i, r := range out {
		assert.Equal(t, results[i].Score, r.RerankScore)
	}
}

func TestHeuristic_MaxBoostAndLimit(t *testing.T) {
	results := []*Result{
		{Document: doc("a", "gazebo ros", "gazebo ros step by step how to"), Score: 0.5},
		{Document: doc("b", "", "nothing"), Score: 0.6},
	}
	h := NewHeuristic(WithMaxBoost(0.05), WithLimit(1))

	out, err := h.Rerank(context.Background(), "how to use gazebo with ros", results)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Document.ID)

	out, err = NewHeuristic(WithMaxBoost(0.3)).Rerank(context.Background(), "how to use gazebo with ros", results)
	require.NoError(t, err)
	assert.Equal(t, "a", out[0].Document.ID)
	assert.InDelta(t, 0.8, out[0].RerankScore, 1e-9)
	assert.Greater(t, out[0].Breakdown.TermBoost+out[0].Breakdown.TypeBoost, 0.3, "breakdown is unclamped")
}

type stubAnalyzer struct{}

func (stubAnalyzer) ClassifyQueryType(string) query.Type { return query.TypeExample }
func (stubAnalyzer) ExtractKeyTerms(string) []string     { return []string{"zmp"} }

func TestHeuristic_CustomAnalyzerAndErrors(t *testing.T) {
	h := NewHeuristic(WithAnalyzer(stubAnalyzer{}))
	out, err := h.Rerank(context.Background(), "anything", []*Result{
		{Document: doc("a", "", "the zmp, for instance"), Score: 0.1},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.1+0.1+0.2, out[0].RerankScore, 1e-9)

	_, err = h.Rerank(context.Background(), "q", []*Result{{Score: 1}})
	assert.ErrorIs(t, err, ErrReranking)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Rerank(ctx, "q", nil)
	assert.ErrorIs(t, err, ErrReranking)
	assert.ErrorIs(t, err, context.Canceled)
}
