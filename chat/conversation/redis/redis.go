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

// Package redis provides a Redis-backed conversation service so several
// processes can share chat history.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat/conversation"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
	redisstorage "github.com/zakiabashir/physical-ai-robotics-textbook/storage/redis"
)

const (
	defaultPrefix = "textbook:"

	fieldUserID       = "user_id"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
	fieldMessageCount = "message_count"
)

var _ conversation.Service = (*Service)(nil)

// ServiceOpts is the options for the Redis conversation service.
type ServiceOpts struct {
	url          string
	client       goredis.UniversalClient
	prefix       string
	messageLimit int
	ttl          time.Duration
}

// ServiceOpt configures a Service.
type ServiceOpt func(*ServiceOpts)

// WithRedisClientURL connects to the given redis:// URL.
func WithRedisClientURL(url string) ServiceOpt {
	return func(o *ServiceOpts) { o.url = url }
}

// WithRedisClient uses an existing client. The service does not close it.
func WithRedisClient(client goredis.UniversalClient) ServiceOpt {
	return func(o *ServiceOpts) { o.client = client }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) ServiceOpt {
	return func(o *ServiceOpts) { o.prefix = prefix }
}

// WithMessageLimit sets the number of messages kept per conversation.
func WithMessageLimit(limit int) ServiceOpt {
	return func(o *ServiceOpts) {
		if limit > 0 {
			o.messageLimit = limit
		}
	}
}

// WithTTL sets how long an idle conversation lives. Zero disables expiry.
func WithTTL(ttl time.Duration) ServiceOpt {
	return func(o *ServiceOpts) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// Service stores each conversation as a hash of metadata plus a capped list
// of JSON messages. Sorted sets index conversations by update time.
type Service struct {
	client goredis.UniversalClient
	opts   ServiceOpts
	owned  bool
}

// NewService creates a Redis conversation service.
func NewService(ctx context.Context, options ...ServiceOpt) (*Service, error) {
	opts := ServiceOpts{
		prefix:       defaultPrefix,
		messageLimit: conversation.DefaultMessageLimit,
		ttl:          conversation.DefaultTTL,
	}
	for _, option := range options {
		option(&opts)
	}
	s := &Service{client: opts.client, opts: opts}
	if s.client == nil {
		if opts.url == "" {
			return nil, errors.New("redis conversation: either a client or a url is required")
		}
		client, err := redisstorage.NewClient(ctx,
			redisstorage.WithClientBuilderURL(opts.url),
			redisstorage.WithClientName("textbook-rag-conversation"),
			redisstorage.WithPing(0),
		)
		if err != nil {
			return nil, fmt.Errorf("redis conversation: %w", err)
		}
		s.client = client
		s.owned = true
	}
	return s, nil
}

func (s *Service) metaKey(id string) string     { return s.opts.prefix + "conv:" + id }
func (s *Service) messagesKey(id string) string { return s.opts.prefix + "conv:" + id + ":msgs" }
func (s *Service) allKey() string               { return s.opts.prefix + "convs" }
func (s *Service) userKey(userID string) string { return s.opts.prefix + "convs:user:" + userID }

// CreateConversation implements conversation.Service.
func (s *Service) CreateConversation(ctx context.Context, id, userID string) (*conversation.Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}
	existing, err := s.GetConversation(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	stamp := strconv.FormatInt(now.UnixNano(), 10)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.metaKey(id),
		fieldUserID, userID,
		fieldCreatedAt, stamp,
		fieldUpdatedAt, stamp,
		fieldMessageCount, 0,
	)
	s.touch(ctx, pipe, id, userID, now)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis conversation: create: %w", err)
	}
	return &conversation.Conversation{
		ID:        id,
		UserID:    userID,
		Messages:  []model.Message{},
		CreatedAt: time.Unix(0, now.UnixNano()),
		UpdatedAt: time.Unix(0, now.UnixNano()),
	}, nil
}

// GetConversation implements conversation.Service.
func (s *Service) GetConversation(ctx context.Context, id string, limit int) (*conversation.Conversation, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	pipe := s.client.Pipeline()
	metaCmd := pipe.HGetAll(ctx, s.metaKey(id))
	msgsCmd := pipe.LRange(ctx, s.messagesKey(id), start, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis conversation: get: %w", err)
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, nil
	}
	c, err := decodeMeta(id, meta)
	if err != nil {
		return nil, err
	}
	c.Messages = make([]model.Message, 0, len(msgsCmd.Val()))
	for _, raw := range msgsCmd.Val() {
		var m model.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("redis conversation: decode message: %w", err)
		}
		c.Messages = append(c.Messages, m)
	}
	return c, nil
}

// AppendMessages implements conversation.Service.
func (s *Service) AppendMessages(ctx context.Context, id string, messages ...model.Message) error {
	userID, err := s.client.HGet(ctx, s.metaKey(id), fieldUserID).Result()
	if errors.Is(err, goredis.Nil) {
		return conversation.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis conversation: append: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, len(messages))
	for i, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redis conversation: encode message: %w", err)
		}
		values[i] = b
	}

	now := time.Now()
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.messagesKey(id), values...)
	pipe.LTrim(ctx, s.messagesKey(id), -int64(s.opts.messageLimit), -1)
	pipe.HIncrBy(ctx, s.metaKey(id), fieldMessageCount, int64(len(messages)))
	pipe.HSet(ctx, s.metaKey(id), fieldUpdatedAt, strconv.FormatInt(now.UnixNano(), 10))
	s.touch(ctx, pipe, id, userID, now)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis conversation: append: %w", err)
	}
	return nil
}

// DeleteConversation implements conversation.Service.
func (s *Service) DeleteConversation(ctx context.Context, id string) (bool, error) {
	userID, err := s.client.HGet(ctx, s.metaKey(id), fieldUserID).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("redis conversation: delete: %w", err)
	}
	pipe := s.client.TxPipeline()
	delCmd := pipe.Del(ctx, s.metaKey(id), s.messagesKey(id))
	pipe.ZRem(ctx, s.allKey(), id)
	pipe.ZRem(ctx, s.userKey(userID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis conversation: delete: %w", err)
	}
	return delCmd.Val() > 0, nil
}

// ListConversations implements conversation.Service. Index entries whose
// conversation has expired are pruned on the way.
func (s *Service) ListConversations(ctx context.Context, userID string, limit int) ([]*conversation.Conversation, error) {
	index := s.allKey()
	if userID != "" {
		index = s.userKey(userID)
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis conversation: list: %w", err)
	}
	if len(ids) == 0 {
		return []*conversation.Conversation{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.metaKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis conversation: list: %w", err)
	}

	out := make([]*conversation.Conversation, 0, len(ids))
	var stale []any
	for i, id := range ids {
		meta := cmds[i].Val()
		if len(meta) == 0 {
			stale = append(stale, id)
			continue
		}
		if limit > 0 && len(out) == limit {
			continue
		}
		c, err := decodeMeta(id, meta)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, index, stale...).Err()
	}
	return out, nil
}

// Close closes the client when the service created it.
func (s *Service) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// touch refreshes index scores and TTLs inside pipe.
func (s *Service) touch(ctx context.Context, pipe goredis.Pipeliner, id, userID string, now time.Time) {
	member := goredis.Z{Score: float64(now.UnixNano()), Member: id}
	pipe.ZAdd(ctx, s.allKey(), member)
	pipe.ZAdd(ctx, s.userKey(userID), member)
	if s.opts.ttl > 0 {
		pipe.Expire(ctx, s.metaKey(id), s.opts.ttl)
		pipe.Expire(ctx, s.messagesKey(id), s.opts.ttl)
	}
}

func decodeMeta(id string, meta map[string]string) (*conversation.Conversation, error) {
	created, err1 := strconv.ParseInt(meta[fieldCreatedAt], 10, 64)
	updated, err2 := strconv.ParseInt(meta[fieldUpdatedAt], 10, 64)
	count, err3 := strconv.Atoi(meta[fieldMessageCount])
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("redis conversation: decode %s: %w", id, err)
	}
	return &conversation.Conversation{
		ID:           id,
		UserID:       meta[fieldUserID],
		MessageCount: count,
		CreatedAt:    time.Unix(0, created),
		UpdatedAt:    time.Unix(0, updated),
	}, nil
}
