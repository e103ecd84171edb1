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

	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction"`
	GenerationConfig  struct {
		MaxOutputTokens int      `json:"maxOutputTokens"`
		Temperature     *float64 `json:"temperature"`
	} `json:"generationConfig"`
}

func newServer(t *testing.T, body map[string]any) (*httptest.Server, *[]generateRequest) {
	t.Helper()
	var seen []generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestNew(t *testing.T) {
	t.Setenv(GoogleAPIKeyEnv, "")
	_, err := New(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv(GoogleAPIKeyEnv, "env-key")
	m, err := New(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.Info{Name: DefaultModel, Provider: "gemini"}, m.Info())

	m, err = New(context.Background(), "models/gemini-1.5-pro", WithAPIKey("k"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", m.name)
	assert.Equal(t, "k", m.apiKey)
}

func TestGenerate(t *testing.T) {
	srv, seen := newServer(t, map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "Balance keeps the ZMP inside the support polygon."}}},
			"finishReason": "MAX_TOKENS",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 9, "totalTokenCount": 19},
	})
	m, err := New(context.Background(), "gemini-2.0-flash", WithAPIKey("dummy"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("You are a tutor."),
			model.NewSystemMessage("Textbook Context:\nZMP"),
			model.NewUserMessage("hi"),
			model.NewAssistantMessage("hello"),
			model.NewUserMessage("What is balance?"),
		},
		GenerationConfig: model.GenerationConfig{MaxTokens: model.IntPtr(300), Temperature: model.Float64Ptr(0.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Balance keeps the ZMP inside the support polygon.", resp.Content)
	assert.Equal(t, model.FinishReasonLength, resp.FinishReason)
	assert.Equal(t, &model.Usage{PromptTokens: 10, CompletionTokens: 9, TotalTokens: 19}, resp.Usage)

	require.Len(t, *seen, 1)
	got := (*seen)[0]
	require.NotNil(t, got.SystemInstruction)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, "You are a tutor.\n\nTextbook Context:\nZMP", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "What is balance?", got.Contents[2].Parts[0].Text)
	assert.Equal(t, 300, got.GenerationConfig.MaxOutputTokens)
	require.NotNil(t, got.GenerationConfig.Temperature)
	assert.InDelta(t, 0.5, *got.GenerationConfig.Temperature, 1e-6)
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv, _ := newServer(t, map[string]any{"candidates": []map[string]any{}})
	m, err := New(context.Background(), "", WithAPIKey("dummy"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), &model.Request{Messages: []model.Message{model.NewUserMessage("hi")}})
	assert.ErrorIs(t, err, model.ErrEmptyResponse)

	_, err = m.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrNilRequest)
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, "stop", finishReason("STOP"))
	assert.Equal(t, "length", finishReason("MAX_TOKENS"))
	assert.Equal(t, "safety", finishReason("SAFETY"))
}
