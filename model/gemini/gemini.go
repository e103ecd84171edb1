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

// Package gemini provides a chat model backed by the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gemini-2.0-flash"

	// GoogleAPIKeyEnv names the environment variable holding the API key.
	GoogleAPIKeyEnv = "GOOGLE_API_KEY"

	providerName = "gemini"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: " + GoogleAPIKeyEnv + " is not provided")

var _ model.Model = (*Model)(nil)

// Model implements model.Model with Models.GenerateContent.
type Model struct {
	client  *genai.Client
	name    string
	apiKey  string
	baseURL string
}

// Option configures a Model.
type Option func(*Model)

// WithAPIKey sets the API key. GOOGLE_API_KEY is used otherwise.
func WithAPIKey(apiKey string) Option {
	return func(m *Model) { m.apiKey = apiKey }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(m *Model) { m.baseURL = baseURL }
}

// New creates a Gemini chat model. An empty name selects DefaultModel.
func New(ctx context.Context, name string, opts ...Option) (*Model, error) {
	m := &Model{
		name:   strings.TrimPrefix(name, "models/"),
		apiKey: os.Getenv(GoogleAPIKeyEnv),
	}
	if m.name == "" {
		m.name = DefaultModel
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := &genai.ClientConfig{APIKey: m.apiKey, Backend: genai.BackendGeminiAPI}
	if m.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: m.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	m.client = client
	return m, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name, Provider: providerName}
}

// Generate implements model.Model. System messages are joined into the
// system instruction; the rest become the conversation contents.
func (m *Model) Generate(ctx context.Context, request *model.Request) (*model.Response, error) {
	if request == nil {
		return nil, model.ErrNilRequest
	}
	system, contents := convertMessages(request.Messages)
	cfg := &genai.GenerateContentConfig{StopSequences: request.Stop}
	if system != nil {
		cfg.SystemInstruction = system
	}
	if request.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*request.MaxTokens)
	}
	if request.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*request.Temperature))
	}
	if request.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*request.TopP))
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, model.ErrEmptyResponse
	}
	response := &model.Response{
		ID:           resp.ResponseID,
		Model:        m.name,
		Content:      resp.Text(),
		FinishReason: finishReason(resp.Candidates[0].FinishReason),
		Timestamp:    time.Now(),
	}
	if resp.ModelVersion != "" {
		response.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		response.Usage = &model.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	log.Debugf("gemini: %s finished with %q, %d tokens", m.name, response.FinishReason, response.TotalTokens())
	return response, nil
}

func convertMessages(messages []model.Message) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

// finishReason maps Gemini finish reasons onto the OpenAI vocabulary.
func finishReason(r genai.FinishReason) string {
	switch r {
	case genai.FinishReasonStop:
		return model.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonLength
	default:
		return strings.ToLower(string(r))
	}
}
