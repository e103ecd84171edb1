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
	"slices"
	"sync"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const defaultFeedbackCategory = "general"

// Feedback is a learner rating of one answer.
type Feedback struct {
	ConversationID string    `json:"conversation_id"`
	QueryID        string    `json:"query_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	Category       string    `json:"category"`
	Timestamp      time.Time `json:"timestamp"`
}

// feedbackLog keeps the most recent feedback entries.
type feedbackLog struct {
	mu      sync.Mutex
	limit   int
	entries []Feedback
}

func newFeedbackLog(limit int) *feedbackLog {
	return &feedbackLog{limit: limit}
}

func (l *feedbackLog) add(f Feedback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, f)
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = slices.Clone(l.entries[over:])
	}
}

func (l *feedbackLog) list() []Feedback {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// SubmitFeedback records a rating from 1 to 5 for an answer. The rating is
// also attached to the analytics record of f.QueryID.
func (b *Bot) SubmitFeedback(_ context.Context, f Feedback) error {
	if f.Rating < 1 || f.Rating > 5 {
		return ErrInvalidRating
	}
	if f.Category == "" {
		f.Category = defaultFeedbackCategory
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	b.feedback.add(f)
	if f.QueryID != "" {
		b.recorder.TrackFeedback(f.QueryID, f.Rating, f.Comment)
	}
	log.Infof("chat: feedback submitted: %d/5 - %s", f.Rating, f.Category)
	return nil
}

// Feedback returns the retained feedback, oldest first.
func (b *Bot) Feedback() []Feedback {
	return b.feedback.list()
}

// TrackSourceClick records that the learner opened a cited source.
func (b *Bot) TrackSourceClick(queryID, url string) {
	if url == "" {
		return
	}
	b.recorder.TrackSourceClick(queryID, url)
}

// ConversationHistory returns up to limit recent messages of a conversation.
// limit <= 0 returns every kept message.
func (b *Bot) ConversationHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	c, err := b.conversations.GetConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, conversation.ErrNotFound
	}
	return c.Messages, nil
}

// ListConversations returns the user's conversations, newest first.
func (b *Bot) ListConversations(ctx context.Context, userID string, limit int) ([]*conversation.Conversation, error) {
	return b.conversations.ListConversations(ctx, userID, limit)
}

// DeleteConversation removes a conversation and reports whether it existed.
func (b *Bot) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	return b.conversations.DeleteConversation(ctx, conversationID)
}
