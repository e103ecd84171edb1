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

// Package openai embeds text with the OpenAI embeddings endpoint or any
// OpenAI-compatible server.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

var _ embedder.Embedder = (*Embedder)(nil)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimensions matches the textbook collection vector size.
	DefaultDimensions = 1024

	// ModelTextEmbedding3Small is text-embedding-3-small.
	ModelTextEmbedding3Small = "text-embedding-3-small"
	// ModelTextEmbedding3Large is text-embedding-3-large.
	ModelTextEmbedding3Large = "text-embedding-3-large"
	// ModelTextEmbeddingAda002 is text-embedding-ada-002. It has a fixed size.
	ModelTextEmbeddingAda002 = "text-embedding-ada-002"

	textEmbedding3Prefix = "text-embedding-3"
)

// Embedder calls the OpenAI embeddings API.
type Embedder struct {
	client         openai.Client
	model          string
	dimensions     int
	user           string
	apiKey         string
	baseURL        string
	requestOptions []option.RequestOption
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(e *Embedder) { e.model = model }
}

// WithDimensions sets the requested vector size. Only text-embedding-3
// models honour it.
func WithDimensions(dimensions int) Option {
	return func(e *Embedder) { e.dimensions = dimensions }
}

// WithUser tags requests with an end-user identifier.
func WithUser(user string) Option {
	return func(e *Embedder) { e.user = user }
}

// WithAPIKey sets the API key. OPENAI_API_KEY is used otherwise.
func WithAPIKey(apiKey string) Option {
	return func(e *Embedder) { e.apiKey = apiKey }
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(baseURL string) Option {
	return func(e *Embedder) { e.baseURL = baseURL }
}

// WithRequestOptions appends per-request client options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(e *Embedder) { e.requestOptions = append(e.requestOptions, opts...) }
}

// New creates an Embedder.
func New(opts ...Option) *Embedder {
	e := &Embedder{model: DefaultModel, dimensions: DefaultDimensions}
	for _, opt := range opts {
		opt(e)
	}
	var clientOpts []option.RequestOption
	if e.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(e.apiKey))
	}
	if e.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(e.baseURL))
	}
	e.client = openai.NewClient(clientOpts...)
	return e
}

// GetEmbedding implements embedder.Embedder.
func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, embedder.ErrEmptyText
	}
	vecs, err := e.embed(ctx, openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GetEmbeddings implements embedder.Embedder with a single API call.
func (e *Embedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, embedder.ErrEmptyText
		}
	}
	return e.embed(ctx, openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}, len(texts))
}

// GetDimensions implements embedder.Embedder.
func (e *Embedder) GetDimensions() int {
	return e.dimensions
}

// embed returns exactly n vectors, placed by the response index. Missing
// vectors are empty.
func (e *Embedder) embed(ctx context.Context, input openai.EmbeddingNewParamsInputUnion, n int) ([][]float64, error) {
	req := openai.EmbeddingNewParams{
		Input:          input,
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.user != "" {
		req.User = openai.String(e.user)
	}
	if strings.HasPrefix(e.model, textEmbedding3Prefix) && e.dimensions > 0 {
		req.Dimensions = openai.Int(int64(e.dimensions))
	}
	resp, err := e.client.Embeddings.New(ctx, req, e.requestOptions...)
	if err != nil {
		return nil, fmt.Errorf("openai: create embedding: %w", err)
	}
	out := make([][]float64, n)
	for i, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= n {
			idx = i
		}
		if idx < n {
			out[idx] = d.Embedding
		}
	}
	for i := range out {
		if len(out[i]) == 0 {
			log.Warnf("openai: empty embedding at index %d (model %s)", i, e.model)
			out[i] = []float64{}
		}
	}
	log.Debugf("openai: embedded %d inputs, %d prompt tokens", n, resp.Usage.PromptTokens)
	return out, nil
}
