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

package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
)

func newServer(t *testing.T, embeddings ...[]float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/embeddings") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		items := make([]map[string]any, len(embeddings))
		for i, v := range embeddings {
			items[i] = map[string]any{"values": v}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": items})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	t.Setenv(GoogleAPIKeyEnv, "")
	_, err := New(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv(GoogleAPIKeyEnv, "env-key")
	e, err := New(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-key", e.apiKey)
	assert.Equal(t, DefaultModel, e.model)
	assert.Equal(t, DefaultDimensions, e.GetDimensions())

	e, err = New(context.Background(), WithAPIKey("k"), WithModel("models/"+ModelTextEmbedding004),
		WithDimensions(768), WithTaskType(TaskTypeRetrievalDocument))
	require.NoError(t, err)
	assert.Equal(t, "k", e.apiKey)
	assert.Equal(t, ModelTextEmbedding004, e.model)
	assert.Equal(t, 768, e.GetDimensions())
	assert.Equal(t, TaskTypeRetrievalDocument, e.taskType)
}

func TestGetEmbedding(t *testing.T) {
	srv := newServer(t, []float64{0.1, 0.2, 0.3})
	e, err := New(context.Background(), WithAPIKey("dummy"), WithDimensions(3), WithBaseURL(srv.URL+"/embeddings"))
	require.NoError(t, err)

	vec, err := e.GetEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 3)
	assert.InDelta(t, 0.1, vec[0], 1e-6)

	_, err = e.GetEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, embedder.ErrEmptyText)
}

func TestGetEmbeddings_MissingVectorIsEmpty(t *testing.T) {
	srv := newServer(t, []float64{1, 0})
	e, err := New(context.Background(), WithAPIKey("dummy"), WithBaseURL(srv.URL+"/embeddings"))
	require.NoError(t, err)

	vecs, err := e.GetEmbeddings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 2)
	assert.Empty(t, vecs[1])
}

func TestGetEmbedding_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"bad"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	e, err := New(context.Background(), WithAPIKey("dummy"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = e.GetEmbedding(context.Background(), "hello")
	assert.Error(t, err)
}
