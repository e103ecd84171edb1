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

package retriever

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/cache"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/reranker"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
)

// fakeEmbedder maps each text to a one-dimensional vector.
type fakeEmbedder struct {
	mu    sync.Mutex
	vecs  map[string]float64
	fail  map[string]error
	calls []string
}

func (f *fakeEmbedder) GetEmbedding(_ context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if err := f.fail[text]; err != nil {
		return nil, err
	}
	return []float64{f.vecs[text]}, nil
}

func (f *fakeEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := f.GetEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) GetDimensions() int { return 1 }

type searchCall struct {
	collection string
	limit      int
	threshold  float64
}

// fakeIndex answers searches by the first vector component.
type fakeIndex struct {
	mu     sync.Mutex
	hits   map[float64][]vectorstore.ScoredPoint
	fail   map[float64]error
	points map[string]*vectorstore.Point
	calls  []searchCall
}

func (f *fakeIndex) Search(_ context.Context, collection string, vector []float64, limit int, threshold float64, _ bool) ([]vectorstore.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{collection: collection, limit: limit, threshold: threshold})
	if err := f.fail[vector[0]]; err != nil {
		return nil, err
	}
	return f.hits[vector[0]], nil
}

func (f *fakeIndex) Upsert(context.Context, string, []vectorstore.Point) error { return nil }
func (f *fakeIndex) CreateCollection(context.Context, string, int, vectorstore.Distance) error {
	return nil
}
func (f *fakeIndex) DeleteCollection(context.Context, string) error { return nil }
func (f *fakeIndex) Close() error                                   { return nil }

func (f *fakeIndex) Get(_ context.Context, _, id string) (*vectorstore.Point, error) {
	if p, ok := f.points[id]; ok {
		return p, nil
	}
	return nil, vectorstore.ErrNotFound
}

// staticEnhancer returns fixed variants.
type staticEnhancer struct{ variants []string }

func (s staticEnhancer) EnhanceQuery(_ context.Context, req *query.Request) (*query.Enhanced, error) {
	return &query.Enhanced{Variants: append([]string{req.Query}, s.variants...)}, nil
}

func hit(id string, score float64, text string) vectorstore.ScoredPoint {
	return vectorstore.ScoredPoint{ID: id, Score: score, Payload: map[string]any{
		"text": text, "source": "lesson-" + id, "title": "Title " + id,
	}}
}

func newTestRetriever(t *testing.T, emb *fakeEmbedder, ix *fakeIndex, opts ...Option) *DefaultRetriever {
	t.Helper()
	r, err := New(append([]Option{WithEmbedder(emb), WithIndex(ix)}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(WithIndex(&fakeIndex{}))
	assert.Error(t, err)
	_, err = New(WithEmbedder(&fakeEmbedder{}))
	assert.Error(t, err)
}

func TestRetrieve_DedupFirstSeenWins(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"what is zmp": 1, "zero moment point": 2}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{
		1: {hit("a", 0.8, "zmp"), hit("b", 0.75, "balance")},
		2: {hit("a", 0.95, "zmp again"), hit("c", 0.9, "support polygon")},
	}}
	r := newTestRetriever(t, emb, ix, WithQueryEnhancer(staticEnhancer{[]string{"zero moment point"}}))

	docs, err := r.Retrieve(context.Background(), &Query{Text: "what is zmp", Limit: 3, MinScore: 0.7, UseExpansion: true})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "c", docs[0].Document.ID)
	assert.Equal(t, "a", docs[1].Document.ID)
	assert.Equal(t, 0.8, docs[1].Score, "first-seen score kept")
	assert.Equal(t, "what is zmp", docs[1].MatchedQuery)
	assert.Equal(t, "zero moment point", docs[0].MatchedQuery)
	assert.Equal(t, "lesson-b", docs[2].Document.Source)

	require.Len(t, ix.calls, 2)
	assert.Equal(t, searchCall{collection: DefaultCollection, limit: 6, threshold: 0.7}, ix.calls[0])
	assert.Equal(t, 2, ix.calls[1].limit, "twice the remaining count")
}

func TestRetrieve_StopsOnceLimitReached(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"q": 1, "v": 2}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{
		1: {hit("a", 0.9, ""), hit("b", 0.8, ""), hit("c", 0.7, "")},
	}}
	r := newTestRetriever(t, emb, ix, WithQueryEnhancer(staticEnhancer{[]string{"v"}}))

	docs, err := r.Retrieve(context.Background(), &Query{Text: "q", Limit: 2, UseExpansion: true})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, []string{"q"}, emb.calls)
}

func TestRetrieve_NoExpansionSearchesOriginalOnly(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := &fakeIndex{}
	r := newTestRetriever(t, emb, ix, WithQueryEnhancer(staticEnhancer{[]string{"x", "y"}}))

	docs, err := r.Retrieve(context.Background(), &Query{Text: "what is ROS2", Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.Equal(t, []string{"what is ROS2"}, emb.calls)
}

func TestRetrieve_EmptyEverywhereIsNotAnError(t *testing.T) {
	emb := &fakeEmbedder{}
	r := newTestRetriever(t, emb, &fakeIndex{})

	docs, err := r.Retrieve(context.Background(), &Query{Text: "asdkjasdkj nonsense", Limit: 5, MinScore: 0.7, UseExpansion: true})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, []string{"asdkjasdkj nonsense"}, emb.calls, "no domain terms, no variants")
}

func TestRetrieve_CacheIdempotence(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"what is a zmp": 1}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{1: {hit("a", 0.9, "zmp")}}}
	store := cache.New()
	defer store.Close()
	r := newTestRetriever(t, emb, ix, WithCache(store))

	var lookups []bool
	ctx := WithTrace(context.Background(), &Trace{CacheLookup: func(h bool) { lookups = append(lookups, h) }})
	q := &Query{Text: "what is a zmp", Limit: 5, MinScore: 0.7}

	first, err := r.Retrieve(ctx, q)
	require.NoError(t, err)
	first[0].Document.Text = "mutated by caller"

	second, err := r.Retrieve(ctx, q)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "zmp", second[0].Document.Text)
	assert.Equal(t, 0.9, second[0].Score)
	assert.Len(t, emb.calls, 1, "second call served from cache")
	assert.Len(t, ix.calls, 1)
	assert.Equal(t, []bool{false, true}, lookups)

	_, err = r.Retrieve(ctx, &Query{Text: "what is a zmp", Limit: 4, MinScore: 0.7})
	require.NoError(t, err)
	assert.Len(t, ix.calls, 2, "different limit is a different key")
}

func TestRetrieve_CacheKeyIncludesCollection(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"zmp": 1}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{1: {hit("a", 0.9, "zmp")}}}
	store := cache.New()
	defer store.Close()
	book := newTestRetriever(t, emb, ix, WithCache(store), WithCollection("humanoid_ai_book"))
	labs := newTestRetriever(t, emb, ix, WithCache(store), WithCollection("lab_notes"))

	q := &Query{Text: "zmp", Limit: 5}
	_, err := book.Retrieve(context.Background(), q)
	require.NoError(t, err)
	_, err = labs.Retrieve(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, ix.calls, 2, "each collection is searched once")
	assert.Equal(t, "humanoid_ai_book", ix.calls[0].collection)
	assert.Equal(t, "lab_notes", ix.calls[1].collection)

	_, err = labs.Retrieve(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, ix.calls, 2, "repeat served from cache")
}

func TestRetrieve_CorruptCacheEntryIsAMiss(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"q": 1}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{1: {hit("a", 0.9, "x")}}}
	store := cache.New()
	defer store.Close()
	r := newTestRetriever(t, emb, ix, WithCache(store))

	key := cache.Key(cache.NamespaceRetrieve, map[string]any{
		"collection": DefaultCollection, "query": "q", "limit": 5, "score_threshold": 0.0, "use_expansion": false,
	})
	require.NoError(t, store.Put(context.Background(), key, []byte(`{"not":"a list"}`), time.Minute))

	docs, err := r.Retrieve(context.Background(), &Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, ix.calls, 1)

	store.Set(key, "not bytes")
	_, err = r.Retrieve(context.Background(), &Query{Text: "q"})
	require.NoError(t, err)
	assert.Len(t, ix.calls, 2)
}

func TestRetrieve_PartialFailureSkipsVariant(t *testing.T) {
	emb := &fakeEmbedder{
		vecs: map[string]float64{"q": 1, "v": 2},
		fail: map[string]error{"q": errors.New("quota exceeded")},
	}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{2: {hit("b", 0.8, "")}}}
	store := cache.New()
	defer store.Close()
	r := newTestRetriever(t, emb, ix, WithCache(store), WithQueryEnhancer(staticEnhancer{[]string{"v"}}))

	var failed []string
	ctx := WithTrace(context.Background(), &Trace{VariantFailed: func(v string, err error) {
		failed = append(failed, v)
		assert.ErrorIs(t, err, ErrEmbedding)
	}})
	docs, err := r.Retrieve(ctx, &Query{Text: "q", UseExpansion: true})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].Document.ID)
	assert.Equal(t, []string{"q"}, failed)
	assert.Zero(t, store.Len(), "partial results are not cached")
}

func TestRetrieve_AllVariantsFail(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"q": 1, "v": 2}, fail: map[string]error{"q": errors.New("down")}}
	ix := &fakeIndex{fail: map[float64]error{2: errors.New("connection refused")}}
	r := newTestRetriever(t, emb, ix, WithQueryEnhancer(staticEnhancer{[]string{"v"}}))

	_, err := r.Retrieve(context.Background(), &Query{Text: "q", UseExpansion: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, ErrVectorIndex, "last failure is wrapped")
}

func TestRetrieve_ContextAndCancellation(t *testing.T) {
	emb := &fakeEmbedder{}
	r := newTestRetriever(t, emb, &fakeIndex{})

	_, err := r.Retrieve(context.Background(), &Query{
		Text:    "what is zmp",
		Context: &query.PageContext{LessonID: "l3", SectionTitle: "Balance"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"what is zmp lesson l3 section about Balance"}, emb.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Retrieve(ctx, &Query{Text: "q"})
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrieveWithReranking(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"What is kinematics": 1}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{1: {
		hit("a", 0.80, "robots walk"),
		{ID: "b", Score: 0.75, Payload: map[string]any{"text": "kinematics is defined as motion", "title": "Kinematics"}},
	}}}
	r := newTestRetriever(t, emb, ix, WithQueryEnhancer(staticEnhancer{}))

	out, err := r.RetrieveWithReranking(context.Background(), &Query{Text: "What is kinematics", Limit: 1, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Document.ID)
	assert.InDelta(t, 1.20, out[0].RerankScore, 1e-9)

	require.Len(t, ix.calls, 1)
	assert.Equal(t, 4, ix.calls[0].limit, "limit doubled then twice the remaining")
	assert.InDelta(t, 0.4, ix.calls[0].threshold, 1e-9)
}

type failingReranker struct{}

func (failingReranker) Rerank(context.Context, string, []*reranker.Result) ([]*reranker.Result, error) {
	return nil, reranker.ErrReranking
}

func TestRetrieveWithReranking_FallsBackToSimilarity(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string]float64{"q": 1}}
	ix := &fakeIndex{hits: map[float64][]vectorstore.ScoredPoint{1: {hit("a", 0.9, ""), hit("b", 0.8, "")}}}
	r := newTestRetriever(t, emb, ix, WithReranker(failingReranker{}), WithQueryEnhancer(staticEnhancer{}))

	out, err := r.RetrieveWithReranking(context.Background(), &Query{Text: "q", Limit: 5})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Document.ID)
	assert.Equal(t, 0.9, out[0].RerankScore)
}

func TestSearchByKeywordAndGetDocument(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := &fakeIndex{points: map[string]*vectorstore.Point{
		"a": {ID: "a", Payload: map[string]any{"text": "zmp", "url": "/docs/balance"}},
	}}
	r := newTestRetriever(t, emb, ix, WithCollection("custom"), WithQueryEnhancer(staticEnhancer{}))

	_, err := r.SearchByKeyword(context.Background(), "gazebo", 0)
	require.NoError(t, err)
	require.Len(t, ix.calls, 1)
	assert.Equal(t, searchCall{collection: "custom", limit: 20, threshold: KeywordThreshold}, ix.calls[0])

	d, err := r.GetDocument(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "/docs/balance", d.URL)

	_, err = r.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
	assert.NoError(t, r.Close())
}
