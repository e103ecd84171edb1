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

// Package chat answers learner questions with retrieval-augmented generation
// over the textbook.
package chat

import (
	"errors"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/analytics"
	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation"
	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation/inmemory"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/contextfmt"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const (
	// DefaultRetrievalLimit is the number of chunks retrieved per message.
	DefaultRetrievalLimit = 5
	// DefaultScoreThreshold is the similarity threshold for chat retrieval.
	DefaultScoreThreshold = 0.7
	// DefaultHistoryLimit is the number of past messages sent to the model.
	DefaultHistoryLimit = 10
	// DefaultMaxTokens bounds the generated answer.
	DefaultMaxTokens = 4000
	// DefaultTemperature is the sampling temperature for answers.
	DefaultTemperature = 0.7
	// DefaultRequestTimeout bounds one ProcessMessage call.
	DefaultRequestTimeout = 30 * time.Second

	anonymousSession = "anonymous"
	maxSources       = 5
	maxFeedback      = 1000
)

var (
	// ErrGeneration wraps generative model failures.
	ErrGeneration = errors.New("chat: generation failed")
	// ErrEmptyMessage is returned for a blank learner message.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrInvalidRating is returned for feedback outside 1..5.
	ErrInvalidRating = errors.New("chat: rating must be between 1 and 5")
)

// Request is one learner message.
type Request struct {
	Message        string
	ConversationID string
	UserID         string

	// Context describes the page the learner is reading.
	Context *query.PageContext
}

// Source cites a retrieved chunk.
type Source struct {
	Source  string  `json:"source"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	ChunkID string  `json:"chunk_id"`
}

// CodeExample is a fenced code block found in an answer.
type CodeExample struct {
	Language  string `json:"language"`
	Code      string `json:"code"`
	LineCount int    `json:"line_count"`
}

// Response is the answer to a Request.
type Response struct {
	Message         string        `json:"message"`
	Sources         []Source      `json:"sources"`
	RelatedConcepts []string      `json:"related_concepts"`
	CodeExamples    []CodeExample `json:"code_examples"`
	Suggestions     []string      `json:"suggestions"`
	CanExplainCode  bool          `json:"can_explain_code"`
	UsedFallback    bool          `json:"used_fallback"`

	QueryID        string        `json:"query_id"`
	ConversationID string        `json:"conversation_id"`
	ResponseTime   time.Duration `json:"response_time"`
}

// Bot orchestrates retrieval, prompting, generation and analytics.
// It is safe for concurrent use.
type Bot struct {
	retriever      retriever.Retriever
	model          model.Model
	recorder       *analytics.Recorder
	conversations  conversation.Service
	tokenCounter   model.TokenCounter
	tailor         *model.HeadOutStrategy
	expander       *query.Expander
	retrievalLimit int
	scoreThreshold float64
	historyLimit   int
	maxTokens      int
	temperature    float64
	maxContext     int
	promptBudget   int
	timeout        time.Duration
	rerank         bool
	ownsStore      bool

	feedback *feedbackLog
}

// Option configures a Bot.
type Option func(*Bot)

// WithRetriever sets the retriever. Without one every message uses the
// fallback prompt.
func WithRetriever(r retriever.Retriever) Option {
	return func(b *Bot) { b.retriever = r }
}

// WithModel sets the generative model. It is required.
func WithModel(m model.Model) Option {
	return func(b *Bot) { b.model = m }
}

// WithRecorder sets the analytics recorder.
func WithRecorder(r *analytics.Recorder) Option {
	return func(b *Bot) { b.recorder = r }
}

// WithConversationService sets the history store. The Bot does not close it.
func WithConversationService(s conversation.Service) Option {
	return func(b *Bot) { b.conversations = s }
}

// WithTokenCounter sets the counter used when the model reports no usage.
func WithTokenCounter(c model.TokenCounter) Option {
	return func(b *Bot) { b.tokenCounter = c }
}

// WithExpander sets the expander used to pick key terms for highlights.
func WithExpander(e *query.Expander) Option {
	return func(b *Bot) { b.expander = e }
}

// WithRetrievalLimit sets the number of chunks retrieved per message.
func WithRetrievalLimit(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.retrievalLimit = n
		}
	}
}

// WithScoreThreshold sets the similarity threshold for retrieval.
func WithScoreThreshold(s float64) Option {
	return func(b *Bot) { b.scoreThreshold = s }
}

// WithHistoryLimit sets how many past messages are sent to the model.
func WithHistoryLimit(n int) Option {
	return func(b *Bot) {
		if n >= 0 {
			b.historyLimit = n
		}
	}
}

// WithGeneration sets the answer token limit and temperature.
func WithGeneration(maxTokens int, temperature float64) Option {
	return func(b *Bot) {
		if maxTokens > 0 {
			b.maxTokens = maxTokens
		}
		b.temperature = temperature
	}
}

// WithMaxContextChars bounds the formatted textbook context.
func WithMaxContextChars(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.maxContext = n
		}
	}
}

// WithPromptTokenBudget drops the oldest history messages until the prompt
// fits n tokens. Zero disables trimming.
func WithPromptTokenBudget(n int) Option {
	return func(b *Bot) {
		if n >= 0 {
			b.promptBudget = n
		}
	}
}

// WithRequestTimeout bounds a single ProcessMessage call. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d >= 0 {
			b.timeout = d
		}
	}
}

// WithReranking retrieves through RetrieveWithReranking.
func WithReranking(enabled bool) Option {
	return func(b *Bot) { b.rerank = enabled }
}

// New creates a Bot.
func New(opts ...Option) (*Bot, error) {
	b := &Bot{
		retrievalLimit: DefaultRetrievalLimit,
		scoreThreshold: DefaultScoreThreshold,
		historyLimit:   DefaultHistoryLimit,
		maxTokens:      DefaultMaxTokens,
		temperature:    DefaultTemperature,
		maxContext:     contextfmt.DefaultMaxChars,
		timeout:        DefaultRequestTimeout,
		feedback:       newFeedbackLog(maxFeedback),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.model == nil {
		return nil, errors.New("chat: model is required")
	}
	if b.recorder == nil {
		b.recorder = analytics.New()
	}
	if b.conversations == nil {
		b.conversations = inmemory.NewService()
		b.ownsStore = true
	}
	if b.tokenCounter == nil {
		b.tokenCounter = model.NewSimpleTokenCounter()
	}
	if b.expander == nil {
		b.expander = query.NewExpander()
	}
	b.tailor = model.NewHeadOutStrategy(b.tokenCounter)
	return b, nil
}

// Recorder returns the analytics recorder.
func (b *Bot) Recorder() *analytics.Recorder {
	return b.recorder
}

// Close releases the conversation store when the Bot created it.
func (b *Bot) Close() error {
	if b.ownsStore {
		return b.conversations.Close()
	}
	return nil
}
