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

// Package qdrant implements vectorstore.Index over the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/vectorstore"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

// payloadIDKey keeps the caller's id when it is not a valid Qdrant point id.
const payloadIDKey = "_point_key"

var _ vectorstore.Index = (*Index)(nil)

// ErrStatus wraps non-2xx responses.
var ErrStatus = errors.New("qdrant: unexpected status")

// Index talks to one Qdrant server.
type Index struct {
	opts    options
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates an Index. No request is made until the first call.
func New(opts ...Option) *Index {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.url = strings.TrimRight(o.url, "/")
	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}
	ix := &Index{opts: o, client: client}
	if o.breakerTrips > 0 {
		trips := o.breakerTrips
		ix.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "qdrant",
			Timeout: o.breakerTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= trips
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, vectorstore.ErrNotFound) ||
					errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warnf("qdrant: circuit breaker %s: %s -> %s", name, from, to)
			},
		})
	}
	return ix
}

type searchRequest struct {
	Vector         []float64 `json:"vector"`
	Limit          int       `json:"limit"`
	ScoreThreshold *float64  `json:"score_threshold,omitempty"`
	WithPayload    bool      `json:"with_payload"`
}

type pointResult struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
	Vector  []float64       `json:"vector"`
}

type apiPoint struct {
	ID      any            `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Search implements vectorstore.Index.
func (ix *Index) Search(ctx context.Context, collection string, vector []float64, limit int, threshold float64, withPayload bool) ([]vectorstore.ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyVector
	}
	req := searchRequest{Vector: vector, Limit: limit, WithPayload: withPayload}
	if threshold > 0 {
		req.ScoreThreshold = &threshold
	}
	var results []pointResult
	if err := ix.do(ctx, http.MethodPost, collectionPath(collection, "points", "search"), req, &results); err != nil {
		return nil, err
	}
	hits := make([]vectorstore.ScoredPoint, 0, len(results))
	for _, r := range results {
		id, payload := decodeID(r.ID, r.Payload)
		hit := vectorstore.ScoredPoint{ID: id, Score: r.Score}
		if withPayload {
			hit.Payload = payload
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Upsert implements vectorstore.Index and waits for the write to apply.
func (ix *Index) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []apiPoint `json:"points"`
	}{Points: make([]apiPoint, 0, len(points))}
	for _, p := range points {
		if p.ID == "" {
			return vectorstore.ErrEmptyID
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("qdrant: point %s: %w", p.ID, vectorstore.ErrEmptyVector)
		}
		id, payload := encodeID(p.ID, p.Payload)
		body.Points = append(body.Points, apiPoint{ID: id, Vector: p.Vector, Payload: payload})
	}
	return ix.do(ctx, http.MethodPut, collectionPath(collection, "points")+"?wait=true", body, nil)
}

// CreateCollection implements vectorstore.Index. An existing collection is
// left untouched.
func (ix *Index) CreateCollection(ctx context.Context, collection string, size int, distance vectorstore.Distance) error {
	exists, err := ix.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if distance == "" {
		distance = vectorstore.DistanceCosine
	}
	body := map[string]any{"vectors": map[string]any{"size": size, "distance": string(distance)}}
	if err := ix.do(ctx, http.MethodPut, collectionPath(collection), body, nil); err != nil {
		return err
	}
	log.Infof("qdrant: created collection %s (size %d, %s)", collection, size, distance)
	return nil
}

// CollectionExists reports whether the collection is present.
func (ix *Index) CollectionExists(ctx context.Context, collection string) (bool, error) {
	err := ix.do(ctx, http.MethodGet, collectionPath(collection), nil, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, vectorstore.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// DeleteCollection implements vectorstore.Index.
func (ix *Index) DeleteCollection(ctx context.Context, collection string) error {
	err := ix.do(ctx, http.MethodDelete, collectionPath(collection), nil, nil)
	if errors.Is(err, vectorstore.ErrNotFound) {
		return fmt.Errorf("qdrant: %s: %w", collection, vectorstore.ErrCollectionNotFound)
	}
	return err
}

// Get implements vectorstore.Index.
func (ix *Index) Get(ctx context.Context, collection, id string) (*vectorstore.Point, error) {
	pid, _ := encodeID(id, nil)
	var r pointResult
	path := collectionPath(collection, "points", fmt.Sprint(pid))
	if err := ix.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}
	gotID, payload := decodeID(r.ID, r.Payload)
	return &vectorstore.Point{ID: gotID, Vector: r.Vector, Payload: payload}, nil
}

// Close implements vectorstore.Index.
func (ix *Index) Close() error {
	ix.client.CloseIdleConnections()
	return nil
}

func (ix *Index) do(ctx context.Context, method, path string, in, out any) error {
	call := func() (any, error) { return nil, ix.roundTrip(ctx, method, path, in, out) }
	if ix.breaker == nil {
		_, err := call()
		return err
	}
	_, err := ix.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	return err
}

func (ix *Index) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, ix.opts.url+path, body)
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ix.opts.apiKey != "" {
		req.Header.Set("api-key", ix.opts.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("qdrant: %s: %w", path, vectorstore.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	envelope := struct {
		Result json.RawMessage `json:"result"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("qdrant: decode response: %w", err)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return fmt.Errorf("qdrant: %s: %w", path, vectorstore.ErrNotFound)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("qdrant: decode result: %w", err)
	}
	return nil
}

func collectionPath(collection string, parts ...string) string {
	segs := append([]string{"collections", url.PathEscape(collection)}, parts...)
	return "/" + strings.Join(segs, "/")
}

// encodeID maps an arbitrary string id to a valid Qdrant id: unsigned
// integers and UUIDs pass through, anything else becomes a name-based UUID
// and the original id moves into the payload.
func encodeID(id string, payload map[string]any) (any, map[string]any) {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return n, payload
	}
	if u, err := uuid.Parse(id); err == nil {
		return u.String(), payload
	}
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out[payloadIDKey] = id
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String(), out
}

func decodeID(raw json.RawMessage, payload map[string]any) (string, map[string]any) {
	if key, ok := payload[payloadIDKey].(string); ok {
		delete(payload, payloadIDKey)
		return key, payload
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, payload
	}
	return strings.TrimSpace(string(raw)), payload
}
