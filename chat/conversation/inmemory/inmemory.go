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

// Package inmemory provides an in-memory conversation service.
package inmemory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const defaultCleanupInterval = 5 * time.Minute

var _ conversation.Service = (*Service)(nil)

// serviceOpts is the options for the conversation service.
type serviceOpts struct {
	// messageLimit is the number of messages kept per conversation.
	messageLimit int
	// ttl is how long an idle conversation lives. Zero disables expiry.
	ttl time.Duration
	// cleanupInterval is how often expired conversations are purged.
	cleanupInterval time.Duration
}

// ServiceOpt is the option for the in-memory conversation service.
type ServiceOpt func(*serviceOpts)

// WithMessageLimit sets the number of messages kept per conversation.
func WithMessageLimit(limit int) ServiceOpt {
	return func(opts *serviceOpts) {
		if limit > 0 {
			opts.messageLimit = limit
		}
	}
}

// WithTTL sets how long an idle conversation lives. Zero keeps
// conversations until they are deleted.
func WithTTL(ttl time.Duration) ServiceOpt {
	return func(opts *serviceOpts) {
		if ttl >= 0 {
			opts.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired conversations are purged.
func WithCleanupInterval(interval time.Duration) ServiceOpt {
	return func(opts *serviceOpts) {
		if interval > 0 {
			opts.cleanupInterval = interval
		}
	}
}

// Service keeps conversations in a map guarded by a RWMutex.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
	opts          serviceOpts
	now           func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewService creates an in-memory conversation service. When a TTL is set,
// a background goroutine purges expired conversations until Close.
func NewService(options ...ServiceOpt) *Service {
	opts := serviceOpts{
		messageLimit:    conversation.DefaultMessageLimit,
		ttl:             conversation.DefaultTTL,
		cleanupInterval: defaultCleanupInterval,
	}
	for _, option := range options {
		option(&opts)
	}
	s := &Service{
		conversations: make(map[string]*conversation.Conversation),
		opts:          opts,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	if opts.ttl > 0 {
		go s.cleanupLoop()
	} else {
		close(s.done)
	}
	return s
}

// CreateConversation implements conversation.Service.
func (s *Service) CreateConversation(_ context.Context, id, userID string) (*conversation.Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok && !s.expired(c, now) {
		return copyConversation(c, 0), nil
	}
	c := &conversation.Conversation{
		ID:        id,
		UserID:    userID,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[id] = c
	return copyConversation(c, 0), nil
}

// GetConversation implements conversation.Service.
func (s *Service) GetConversation(_ context.Context, id string, limit int) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok || s.expired(c, s.now()) {
		return nil, nil
	}
	return copyConversation(c, limit), nil
}

// AppendMessages implements conversation.Service.
func (s *Service) AppendMessages(_ context.Context, id string, messages ...model.Message) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok || s.expired(c, now) {
		return conversation.ErrNotFound
	}
	c.Messages = append(c.Messages, messages...)
	if over := len(c.Messages) - s.opts.messageLimit; over > 0 {
		c.Messages = slices.Clone(c.Messages[over:])
	}
	c.MessageCount += len(messages)
	c.UpdatedAt = now
	return nil
}

// DeleteConversation implements conversation.Service.
func (s *Service) DeleteConversation(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return false, nil
	}
	delete(s.conversations, id)
	return !s.expired(c, s.now()), nil
}

// ListConversations implements conversation.Service.
func (s *Service) ListConversations(_ context.Context, userID string, limit int) ([]*conversation.Conversation, error) {
	now := s.now()

	s.mu.RLock()
	out := make([]*conversation.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		if s.expired(c, now) || (userID != "" && c.UserID != userID) {
			continue
		}
		cp := copyConversation(c, 0)
		cp.Messages = nil
		out = append(out, cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close stops the cleanup goroutine.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}

func (s *Service) expired(c *conversation.Conversation, now time.Time) bool {
	return s.opts.ttl > 0 && now.Sub(c.UpdatedAt) >= s.opts.ttl
}

func (s *Service) cleanupLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

// cleanupExpired drops every expired conversation and returns how many.
func (s *Service) cleanupExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.conversations {
		if s.expired(c, now) {
			delete(s.conversations, id)
			n++
		}
	}
	if n > 0 {
		log.Debugf("conversation: purged %d expired conversations", n)
	}
	return n
}

func copyConversation(c *conversation.Conversation, limit int) *conversation.Conversation {
	cp := *c
	cp.Messages = slices.Clone(conversation.Tail(c.Messages, limit))
	if cp.Messages == nil {
		cp.Messages = []model.Message{}
	}
	return &cp
}
