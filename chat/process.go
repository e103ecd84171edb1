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
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/contextfmt"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
	"github.com/zakiabashir/physical-ai-robotics-textbook/telemetry/trace"
)

// Error kinds recorded in analytics.
const (
	errorKindRetrieval    = "retrieval_error"
	errorKindGeneration   = "generation_error"
	errorKindConversation = "conversation_error"
)

// hit is a retrieved chunk with the score shown to the learner.
type hit struct {
	doc   *document.Document
	score float64
}

// ProcessMessage answers req.Message.
//
// A failed retrieval does not fail the call: the answer is generated with
// the fallback prompt and Response.UsedFallback is set. A generation failure
// returns an apology Response together with an error wrapping ErrGeneration,
// so callers always have something to show.
func (b *Bot) ProcessMessage(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	start := time.Now()
	session := req.ConversationID
	if session == "" {
		session = anonymousSession
	}
	queryID := b.recorder.TrackQueryStart(req.Message, session, req.UserID)
	ctx, span := trace.Tracer.Start(ctx, "chat.ProcessMessage",
		oteltrace.WithAttributes(attribute.String("chat.query_id", queryID)))
	defer span.End()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	conversationID, history := b.loadHistory(ctx, queryID, req)

	hits, available := b.retrieve(ctx, queryID, req)
	useFallback := !available
	var textbook string
	switch {
	case useFallback:
		textbook = fallbackContext
	case len(hits) == 0:
		textbook = contextfmt.NoResults
	default:
		textbook = formatHits(hits, b.maxContext)
	}

	messages := buildMessages(useFallback, textbook, req.Context, history, req.Message)
	if b.promptBudget > 0 {
		tailored, err := b.tailor.TailorMessages(ctx, messages, b.promptBudget)
		if err != nil {
			log.Warnf("chat: trimming prompt: %v", err)
		} else {
			messages = tailored
		}
	}

	span.SetAttributes(
		attribute.Int("chat.sources", len(hits)),
		attribute.Bool("chat.fallback", useFallback),
		attribute.Int("chat.prompt_messages", len(messages)),
	)
	genStart := time.Now()
	resp, err := b.model.Generate(ctx, &model.Request{
		Messages: messages,
		GenerationConfig: model.GenerationConfig{
			MaxTokens:   model.IntPtr(b.maxTokens),
			Temperature: model.Float64Ptr(b.temperature),
		},
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = model.ErrEmptyResponse
	}
	if err != nil {
		log.Errorf("chat: generation failed: %v", err)
		span.SetStatus(codes.Error, err.Error())
		b.recorder.TrackError(queryID, errorKindGeneration, err.Error())
		return &Response{
			Message:         apologyMessage,
			Sources:         []Source{},
			RelatedConcepts: []string{},
			CodeExamples:    []CodeExample{},
			Suggestions:     []string{},
			QueryID:         queryID,
			ConversationID:  conversationID,
			ResponseTime:    time.Since(start),
		}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	b.recorder.TrackGeneration(queryID, time.Since(genStart), b.countTokens(ctx, resp), useFallback)

	if conversationID != "" {
		if err := b.conversations.AppendMessages(ctx, conversationID,
			model.NewUserMessage(req.Message),
			model.NewAssistantMessage(resp.Content),
		); err != nil {
			log.Warnf("chat: saving history for %s: %v", conversationID, err)
		}
	}

	out := parseResponse(resp.Content)
	out.Sources = formatSources(hits)
	out.UsedFallback = useFallback
	out.QueryID = queryID
	out.ConversationID = conversationID
	out.ResponseTime = time.Since(start)
	return out, nil
}

// loadHistory opens the conversation and returns its recent messages. A
// store failure is recorded and the message is answered without history.
func (b *Bot) loadHistory(ctx context.Context, queryID string, req *Request) (string, []model.Message) {
	conv, err := b.conversations.CreateConversation(ctx, req.ConversationID, req.UserID)
	if err != nil {
		log.Warnf("chat: opening conversation: %v", err)
		b.recorder.TrackError(queryID, errorKindConversation, err.Error())
		return req.ConversationID, nil
	}
	return conv.ID, conversation.Tail(conv.Messages, b.historyLimit)
}

// retrieve runs retrieval and records its timing. The second result is
// false when retrieval is unavailable.
func (b *Bot) retrieve(ctx context.Context, queryID string, req *Request) ([]hit, bool) {
	if b.retriever == nil {
		b.recorder.TrackRetrieval(queryID, 0, 0, 0)
		return nil, false
	}
	ctx = retriever.WithTrace(ctx, &retriever.Trace{
		CacheLookup: func(cacheHit bool) { b.recorder.TrackCacheHit(queryID, cacheHit) },
	})
	q := &retriever.Query{
		Text:         req.Message,
		Limit:        b.retrievalLimit,
		MinScore:     b.scoreThreshold,
		UseExpansion: true,
		Context:      req.Context,
	}

	start := time.Now()
	hits, err := b.search(ctx, q)
	elapsed := time.Since(start)
	if err != nil {
		log.Errorf("chat: retrieval failed, using fallback prompt: %v", err)
		b.recorder.TrackError(queryID, errorKindRetrieval, err.Error())
		b.recorder.TrackRetrieval(queryID, elapsed, 0, 0)
		return nil, false
	}
	var sum float64
	for _, h := range hits {
		sum += h.score
	}
	avg := 0.0
	if len(hits) > 0 {
		avg = sum / float64(len(hits))
	}
	b.recorder.TrackRetrieval(queryID, elapsed, len(hits), avg)
	return hits, true
}

func (b *Bot) search(ctx context.Context, q *retriever.Query) ([]hit, error) {
	if b.rerank {
		results, err := b.retriever.RetrieveWithReranking(ctx, q)
		if err != nil {
			return nil, err
		}
		hits := make([]hit, len(results))
		for i, r := range results {
			hits[i] = hit{doc: r.Document, score: r.Score}
		}
		return hits, nil
	}
	docs, err := b.retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	hits := make([]hit, len(docs))
	for i, d := range docs {
		hits[i] = hit{doc: d.Document, score: d.Score}
	}
	return hits, nil
}

// countTokens prefers the completion usage reported by the model.
func (b *Bot) countTokens(ctx context.Context, resp *model.Response) int {
	if resp.Usage != nil && resp.Usage.CompletionTokens > 0 {
		return resp.Usage.CompletionTokens
	}
	n, err := b.tokenCounter.CountTokens(ctx, model.NewAssistantMessage(resp.Content))
	if err != nil {
		return model.EstimateTokens(resp.Content)
	}
	return n
}
