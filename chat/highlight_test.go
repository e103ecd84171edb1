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

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

func highlightExpander() *query.Expander {
	return query.NewExpander(query.WithDictionary(&query.Dictionary{
		Synonyms: map[string][]string{"humanoid robot": {"android"}},
	}))
}

func TestKeyTerms(t *testing.T) {
	b := newTestBot(t, WithModel(&fakeModel{}), WithExpander(highlightExpander()))
	got := b.keyTerms("The humanoid robot uses ZMP for balance, in a lab")
	assert.Equal(t, []string{"humanoid robot", "humanoid", "robot", "uses", "zmp", "balance", "lab"}, got)
}

func TestAskAboutHighlight(t *testing.T) {
	r := &fakeRetriever{byText: map[string][]*retriever.RelevantDocument{
		"What is ZMP balance in lesson lesson-3 section Balance": {relevant("ctx", "ZMP context", "ch4", 0.8)},
		"zmp in lesson lesson-3":                                 {relevant("a", "a", "ch4", 0.7), relevant("b", "b", "ch4", 0.65)},
		"balance in lesson lesson-3":                             {relevant("a", "a", "ch4", 0.9), relevant("c", "c", "ch5", 0.7)},
	}}
	m := &fakeModel{content: "The ZMP is ```\ncode\n```"}
	b := newTestBot(t, WithRetriever(r), WithModel(m), WithExpander(highlightExpander()))

	resp, err := b.AskAboutHighlight(context.Background(), "ZMP balance", "lesson-3", "Balance")
	require.NoError(t, err)
	assert.Equal(t, m.content, resp.Response)
	assert.True(t, resp.CanExplainCode)

	ids := make([]string, len(resp.RelatedContent))
	scores := make([]float64, len(resp.RelatedContent))
	for i, s := range resp.RelatedContent {
		ids[i] = s.Title
		scores[i] = s.Score
	}
	assert.Equal(t, []string{"T a", "T c", "T b"}, ids)
	assert.Equal(t, []float64{0.9, 0.7, 0.65}, scores)

	req := m.last()
	require.Len(t, req.Messages, 3)
	assert.Equal(t, model.RoleSystem, req.Messages[1].Role)
	assert.True(t, strings.HasPrefix(req.Messages[1].Content, "Textbook Context:\n"))
	assert.Contains(t, req.Messages[1].Content, "ZMP context")
	assert.Contains(t, req.Messages[2].Content, "from lesson lesson-3:\n\n\"ZMP balance\"")
	assert.Equal(t, highlightMaxTokens, *req.MaxTokens)
	assert.Equal(t, highlightTemperature, *req.Temperature)

	for _, q := range r.queries {
		assert.Equal(t, relatedThreshold, q.MinScore)
		assert.False(t, q.UseExpansion)
	}
}

func TestAskAboutHighlight_RetrievalErrorsIgnored(t *testing.T) {
	r := &fakeRetriever{err: errors.New("down")}
	m := &fakeModel{content: "explanation"}
	b := newTestBot(t, WithRetriever(r), WithModel(m), WithExpander(highlightExpander()))

	resp, err := b.AskAboutHighlight(context.Background(), "servo motor torque", "lesson-2", "")
	require.NoError(t, err)
	assert.Empty(t, resp.RelatedContent)
	assert.Len(t, m.last().Messages, 2)
	assert.Len(t, r.queries, 4, "context search plus three key terms")
}

func TestAskAboutHighlight_Errors(t *testing.T) {
	b := newTestBot(t, WithModel(&fakeModel{err: errors.New("boom")}))
	_, err := b.AskAboutHighlight(context.Background(), "text", "lesson-1", "")
	assert.ErrorIs(t, err, ErrGeneration)

	_, err = b.AskAboutHighlight(context.Background(), " ", "lesson-1", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestLessonSuggestions(t *testing.T) {
	assert.Contains(t, LessonSuggestions("lesson-2"), "Create your first ROS 2 node")
	assert.Len(t, LessonSuggestions("lesson-1"), 3)
	assert.NotEmpty(t, LessonSuggestions(""))
	assert.NotEmpty(t, LessonSuggestions("lesson-99"))
	assert.NotEqual(t, LessonSuggestions(""), LessonSuggestions("lesson-99"))
}
