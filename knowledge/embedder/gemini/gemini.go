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

// Package gemini embeds text with the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/embedder"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

var _ embedder.Embedder = (*Embedder)(nil)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = ModelGeminiEmbedding001
	// DefaultDimensions matches the textbook collection vector size.
	DefaultDimensions = 1024

	// ModelGeminiEmbedding001 is gemini-embedding-001.
	ModelGeminiEmbedding001 = "gemini-embedding-001"
	// ModelTextEmbedding004 is text-embedding-004.
	ModelTextEmbedding004 = "text-embedding-004"

	// TaskTypeRetrievalQuery is used when embedding learner questions.
	TaskTypeRetrievalQuery = "RETRIEVAL_QUERY"
	// TaskTypeRetrievalDocument is used when embedding textbook chunks.
	TaskTypeRetrievalDocument = "RETRIEVAL_DOCUMENT"
	// TaskTypeQuestionAnswering tunes vectors for question answering.
	TaskTypeQuestionAnswering = "QUESTION_ANSWERING"

	// GoogleAPIKeyEnv names the environment variable holding the API key.
	GoogleAPIKeyEnv = "GOOGLE_API_KEY"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: " + GoogleAPIKeyEnv + " is not provided")

// Embedder calls the Gemini embedContent endpoint.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
	apiKey     string
	baseURL    string
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithModel sets the embedding model. A "models/" prefix is accepted.
func WithModel(model string) Option {
	return func(e *Embedder) { e.model = strings.TrimPrefix(model, "models/") }
}

// WithDimensions sets the output dimensionality.
func WithDimensions(dimensions int) Option {
	return func(e *Embedder) { e.dimensions = dimensions }
}

// WithTaskType sets the embedding task type.
func WithTaskType(taskType string) Option {
	return func(e *Embedder) { e.taskType = taskType }
}

// WithAPIKey sets the API key. GOOGLE_API_KEY is used otherwise.
func WithAPIKey(apiKey string) Option {
	return func(e *Embedder) { e.apiKey = apiKey }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(e *Embedder) { e.baseURL = baseURL }
}

// New creates an Embedder.
func New(ctx context.Context, opts ...Option) (*Embedder, error) {
	e := &Embedder{
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		taskType:   TaskTypeRetrievalQuery,
		apiKey:     os.Getenv(GoogleAPIKeyEnv),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := &genai.ClientConfig{APIKey: e.apiKey, Backend: genai.BackendGeminiAPI}
	if e.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: e.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	e.client = client
	return e, nil
}

// GetEmbedding implements embedder.Embedder.
func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GetEmbeddings implements embedder.Embedder.
func (e *Embedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, embedder.ErrEmptyText
		}
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		d := int32(e.dimensions)
		cfg.OutputDimensionality = &d
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create embedding: %w", err)
	}
	out := make([][]float64, len(texts))
	for i := range out {
		if i >= len(resp.Embeddings) || resp.Embeddings[i] == nil || len(resp.Embeddings[i].Values) == 0 {
			log.Warnf("gemini: empty embedding at index %d (model %s)", i, e.model)
			out[i] = []float64{}
			continue
		}
		values := resp.Embeddings[i].Values
		vec := make([]float64, len(values))
		for j, v := range values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

// GetDimensions implements embedder.Embedder.
func (e *Embedder) GetDimensions() int {
	return e.dimensions
}
