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

package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/chunking"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore/inmemory"
)

// topicEmbedder maps text onto three topic axes.
type topicEmbedder struct {
	batches atomic.Int32
	failOn  string
}

func (e *topicEmbedder) vector(text string) []float64 {
	t := strings.ToLower(text)
	v := []float64{0.01, 0.01, 0.01}
	if strings.Contains(t, "zmp") || strings.Contains(t, "balance") {
		v[0] = 1
	}
	if strings.Contains(t, "ros") {
		v[1] = 1
	}
	if strings.Contains(t, "gazebo") {
		v[2] = 1
	}
	return v
}

func (e *topicEmbedder) GetEmbedding(_ context.Context, text string) ([]float64, error) {
	return e.vector(text), nil
}

func (e *topicEmbedder) GetEmbeddings(_ context.Context, texts []string) ([][]float64, error) {
	e.batches.Add(1)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, errors.New("quota exceeded")
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *topicEmbedder) GetDimensions() int { return 3 }

func lessons() []*document.Document {
	return []*document.Document{
		{ID: "balance", Text: "The ZMP keeps a biped in balance.", Title: "Balance", URL: "https://book.example/docs/ch3/zero-moment-point"},
		{ID: "ros", Text: "ROS 2 nodes talk over topics.", Title: "ROS 2", Source: "ch2/ros.md"},
		{ID: "sim", Text: "Gazebo simulates robots.", Title: "Simulation"},
		{ID: "empty"},
	}
}

func newKnowledge(t *testing.T, emb *topicEmbedder, opts ...Option) (*BuiltinKnowledge, *inmemory.Index) {
	t.Helper()
	ix := inmemory.New()
	kb, err := New(append([]Option{WithIndex(ix), WithEmbedder(emb)}, opts...)...)
	require.NoError(t, err)
	return kb, ix
}

func TestLoad_StoresChunksAndSearches(t *testing.T) {
	emb := &topicEmbedder{}
	kb, ix := newKnowledge(t, emb)

	res, err := kb.Load(context.Background(), lessons(), WithBatchSize(2), WithConcurrency(2))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Documents)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.Embedded)
	assert.Equal(t, 3, res.Stored)
	assert.Greater(t, res.AvgChunk, 0.0)
	assert.Equal(t, int32(2), emb.batches.Load())
	assert.Equal(t, 3, ix.Count(retriever.DefaultCollection))

	got, err := kb.Search(context.Background(), &SearchRequest{Query: "what keeps balance", MaxResults: 1, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	d := got[0].Document
	assert.Equal(t, "balance_0", d.ID)
	assert.Equal(t, "Balance", d.Title)
	assert.Equal(t, "book.example - Zero Moment Point", d.Source)
	assert.Equal(t, "0", d.ChunkID)
	assert.Contains(t, d.Extra, "ingested_at")
	assert.Contains(t, d.Extra, chunking.MetaStartPos)

	require.NoError(t, kb.Close())
}

func TestLoad_IsIdempotentAndRecreates(t *testing.T) {
	emb := &topicEmbedder{}
	kb, ix := newKnowledge(t, emb, WithCollection("book"))

	_, err := kb.Load(context.Background(), lessons(), WithShowProgress(false), WithShowStats(false))
	require.NoError(t, err)
	_, err = kb.Load(context.Background(), lessons())
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Count("book"), "same chunk ids replace earlier points")

	_, err = kb.Load(context.Background(), lessons()[:1], WithRecreate(true))
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Count("book"))
}

func TestLoad_SplitsLongDocuments(t *testing.T) {
	fsc, err := chunking.NewFixedSizeChunking(chunking.WithChunkSize(50), chunking.WithOverlap(10))
	require.NoError(t, err)
	kb, ix := newKnowledge(t, &topicEmbedder{}, WithChunkingStrategy(fsc))

	long := strings.Repeat("Balance control needs feedback. ", 10)
	res, err := kb.Load(context.Background(), []*document.Document{{ID: "long", Text: long}})
	require.NoError(t, err)
	assert.Greater(t, res.Chunks, 1)
	assert.Equal(t, res.Chunks, ix.Count(retriever.DefaultCollection))
}

func TestLoad_BatchFailure(t *testing.T) {
	docs := make([]*document.Document, 0, 10)
	for i := 0; i < 10; i++ {
		docs = append(docs, &document.Document{ID: fmt.Sprintf("d%d", i), Text: fmt.Sprintf("lesson %d about robots", i)})
	}
	docs[7].Text = "broken lesson"

	kb, _ := newKnowledge(t, &topicEmbedder{failOn: "broken"})
	res, err := kb.Load(context.Background(), docs, WithBatchSize(1), WithConcurrency(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	require.NotNil(t, res)
	assert.Equal(t, 10, res.Chunks)
	assert.Less(t, res.Stored, 10)
}

func TestNotConfigured(t *testing.T) {
	kb, err := New()
	require.NoError(t, err)

	_, err = kb.Load(context.Background(), lessons())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = kb.Search(context.Background(), &SearchRequest{Query: "zmp"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, kb.Close())
}
