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

// Package conversation stores chat conversations and their message history.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const (
	// DefaultMessageLimit bounds the history kept per conversation.
	DefaultMessageLimit = 50
	// DefaultTTL is how long an idle conversation is kept.
	DefaultTTL = 30 * time.Minute
)

// ErrNotFound is returned when a conversation does not exist or expired.
var ErrNotFound = errors.New("conversation: not found")

// Conversation is one chat thread.
type Conversation struct {
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`

	// Messages holds the most recent messages, oldest first.
	Messages []model.Message `json:"messages"`

	// MessageCount counts every message ever appended, including trimmed ones.
	MessageCount int `json:"message_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service is the interface that conversation stores implement.
type Service interface {
	// CreateConversation returns the conversation with id, creating it when
	// absent. An empty id generates a new one.
	CreateConversation(ctx context.Context, id, userID string) (*Conversation, error)

	// GetConversation returns the conversation with at most the last limit
	// messages; limit <= 0 returns all kept messages. It returns nil, nil
	// when the conversation does not exist.
	GetConversation(ctx context.Context, id string, limit int) (*Conversation, error)

	// AppendMessages adds messages to the history. It returns ErrNotFound
	// for an unknown conversation.
	AppendMessages(ctx context.Context, id string, messages ...model.Message) error

	// DeleteConversation removes a conversation and reports whether it existed.
	DeleteConversation(ctx context.Context, id string) (bool, error)

	// ListConversations returns the user's conversations, most recently
	// updated first, without messages. An empty userID lists every user.
	ListConversations(ctx context.Context, userID string, limit int) ([]*Conversation, error)

	// Close releases resources held by the service.
	Close() error
}

// Tail returns the last n messages, or all of them when n <= 0.
func Tail(messages []model.Message, n int) []model.Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
