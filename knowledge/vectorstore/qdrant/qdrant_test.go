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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
)

// fakeQdrant serves the subset of the REST API used by Index.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]map[string]any
	points      map[string]map[string]map[string]any
	searchReqs  []map[string]any
	fail        bool
}

func newFake(t *testing.T) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{
		collections: make(map[string]map[string]any),
		points:      make(map[string]map[string]map[string]any),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"status":{"error":"boom"}}`, http.StatusInternalServerError)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "collections" {
		http.NotFound(w, r)
		return
	}
	name := parts[1]
	reply := func(result any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok"})
	}
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		if _, ok := f.collections[name]; !ok {
			http.NotFound(w, r)
			return
		}
		reply(map[string]any{"status": "green"})
	case len(parts) == 2 && r.Method == http.MethodPut:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections[name] = body
		f.points[name] = make(map[string]map[string]any)
		reply(true)
	case len(parts) == 2 && r.Method == http.MethodDelete:
		if _, ok := f.collections[name]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.collections, name)
		reply(true)
	case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPut:
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			id, _ := json.Marshal(p["id"])
			f.points[name][strings.Trim(string(id), `"`)] = p
		}
		reply(map[string]any{"status": "completed"})
	case len(parts) == 4 && parts[3] == "search":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.searchReqs = append(f.searchReqs, body)
		var out []map[string]any
		for _, p := range f.points[name] {
			hit := map[string]any{"id": p["id"], "score": 0.9}
			if body["with_payload"] == true {
				hit["payload"] = p["payload"]
			}
			out = append(out, hit)
		}
		reply(out)
	case len(parts) == 4 && r.Method == http.MethodGet:
		p, ok := f.points[name][parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		reply(p)
	default:
		http.NotFound(w, r)
	}
}

func TestCreateCollection_Idempotent(t *testing.T) {
	f, srv := newFake(t)
	ix := New(WithURL(srv.URL+"/"), WithAPIKey("k"))
	ctx := context.Background()

	require.NoError(t, ix.CreateCollection(ctx, "book", 1024, ""))
	require.NoError(t, ix.CreateCollection(ctx, "book", 1024, vectorstore.DistanceCosine))
	vectors := f.collections["book"]["vectors"].(map[string]any)
	assert.Equal(t, float64(1024), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	exists, err := ix.CollectionExists(ctx, "other")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, ix.DeleteCollection(ctx, "book"))
	assert.ErrorIs(t, ix.DeleteCollection(ctx, "book"), vectorstore.ErrCollectionNotFound)
}

func TestUpsertSearchGet_RoundTripsStringIDs(t *testing.T) {
	f, srv := newFake(t)
	ix := New(WithURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, ix.CreateCollection(ctx, "book", 2, vectorstore.DistanceCosine))

	require.NoError(t, ix.Upsert(ctx, "book", []vectorstore.Point{
		{ID: "lesson-1_chunk_0", Vector: []float64{1, 0}, Payload: map[string]any{"text": "zmp"}},
	}))

	hits, err := ix.Search(ctx, "book", []float64{1, 0}, 4, 0.7, true)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "lesson-1_chunk_0", hits[0].ID)
	assert.Equal(t, "zmp", hits[0].Payload["text"])
	assert.NotContains(t, hits[0].Payload, payloadIDKey)
	assert.Equal(t, 0.7, f.searchReqs[0]["score_threshold"])
	assert.Equal(t, float64(4), f.searchReqs[0]["limit"])

	p, err := ix.Get(ctx, "book", "lesson-1_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "lesson-1_chunk_0", p.ID)
	assert.Equal(t, []float64{1, 0}, p.Vector)

	_, err = ix.Get(ctx, "book", "nope")
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestUpsert_NumericAndUUIDIDsPassThrough(t *testing.T) {
	id, payload := encodeID("42", nil)
	assert.Equal(t, uint64(42), id)
	assert.Nil(t, payload)

	const u = "6f1c2c5e-2f8a-4a52-9f3c-8a2b3a4c5d6e"
	id, _ = encodeID(u, nil)
	assert.Equal(t, u, id)

	id1, _ := encodeID("chunk-a", nil)
	id2, _ := encodeID("chunk-a", map[string]any{"x": 1})
	assert.Equal(t, id1, id2, "name-based ids are stable")
}

func TestServerErrorAndBreaker(t *testing.T) {
	f, srv := newFake(t)
	f.fail = true
	ix := New(WithURL(srv.URL), WithCircuitBreaker(2, time.Minute), WithTimeout(time.Second))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := ix.Search(ctx, "book", []float64{1}, 1, 0, false)
		assert.ErrorIs(t, err, ErrStatus)
	}
	_, err := ix.Search(ctx, "book", []float64{1}, 1, 0, false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStatus), "breaker rejects without calling the server")
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestValidation(t *testing.T) {
	ix := New(WithCircuitBreaker(0, 0))
	_, err := ix.Search(context.Background(), "book", nil, 1, 0, false)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyVector)
	assert.ErrorIs(t, ix.Upsert(context.Background(), "book", []vectorstore.Point{{Vector: []float64{1}}}), vectorstore.ErrEmptyID)
	assert.NoError(t, ix.Upsert(context.Background(), "book", nil))
	assert.NoError(t, ix.Close())
}
