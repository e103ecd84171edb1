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

package model

import (
	"context"
	"fmt"
	"strings"
)

// wordsPerTokenRatio is the rough number of tokens per whitespace separated word.
const wordsPerTokenRatio = 1.3

// TokenCounter counts tokens for messages.
type TokenCounter interface {
	// CountTokens returns the estimated token count for a single message.
	CountTokens(ctx context.Context, message Message) (int, error)

	// CountTokensRange returns the estimated token count for messages[start:end].
	CountTokensRange(ctx context.Context, messages []Message, start, end int) (int, error)
}

var _ TokenCounter = (*SimpleTokenCounter)(nil)

// SimpleTokenCounter estimates 1.3 tokens per whitespace separated word.
type SimpleTokenCounter struct{}

// NewSimpleTokenCounter creates a SimpleTokenCounter.
func NewSimpleTokenCounter() *SimpleTokenCounter {
	return &SimpleTokenCounter{}
}

// EstimateTokens estimates the token count of text.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * wordsPerTokenRatio)
}

// CountTokens implements TokenCounter.
func (c *SimpleTokenCounter) CountTokens(_ context.Context, message Message) (int, error) {
	return EstimateTokens(message.Content), nil
}

// CountTokensRange implements TokenCounter.
func (c *SimpleTokenCounter) CountTokensRange(ctx context.Context, messages []Message, start, end int) (int, error) {
	return countRange(ctx, c, messages, start, end)
}

// countRange sums CountTokens over messages[start:end].
func countRange(ctx context.Context, counter TokenCounter, messages []Message, start, end int) (int, error) {
	if start < 0 || end > len(messages) || start >= end {
		return 0, fmt.Errorf("invalid range: start=%d, end=%d, len=%d", start, end, len(messages))
	}
	total := 0
	for i := start; i < end; i++ {
		n, err := counter.CountTokens(ctx, messages[i])
		if err != nil {
			return 0, fmt.Errorf("count tokens for message %d: %w", i, err)
		}
		total += n
	}
	return total, nil
}

// HeadOutStrategy drops the oldest conversation messages until the request
// fits a token budget. Leading system messages and the final message are
// always kept.
type HeadOutStrategy struct {
	tokenCounter TokenCounter
}

// NewHeadOutStrategy constructs a head-out strategy with the given counter.
func NewHeadOutStrategy(counter TokenCounter) *HeadOutStrategy {
	if counter == nil {
		counter = NewSimpleTokenCounter()
	}
	return &HeadOutStrategy{tokenCounter: counter}
}

// TailorMessages returns the longest suffix of the conversation that fits
// maxTokens together with the preserved head and last message. A
// non-positive budget returns the messages unchanged.
func (s *HeadOutStrategy) TailorMessages(ctx context.Context, messages []Message, maxTokens int) ([]Message, error) {
	if len(messages) == 0 || maxTokens <= 0 {
		return messages, nil
	}
	prefixSum, err := buildPrefixSum(ctx, s.tokenCounter, messages)
	if err != nil {
		return nil, err
	}
	n := len(messages)
	head := preservedHeadCount(messages)
	if head == n {
		return messages, nil
	}
	last := n - 1
	fixed := prefixSum[head] + (prefixSum[n] - prefixSum[last])

	// Smallest i in [head, last] such that messages[i:last] fit beside the fixed part.
	from := last
	for i := head; i < last; i++ {
		if fixed+prefixSum[last]-prefixSum[i] <= maxTokens {
			from = i
			break
		}
	}
	result := make([]Message, 0, head+(last-from)+1)
	result = append(result, messages[:head]...)
	result = append(result, messages[from:]...)
	return result, nil
}

// preservedHeadCount counts the consecutive system messages at the start.
func preservedHeadCount(messages []Message) int {
	count := 0
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			break
		}
		count++
	}
	return count
}

// buildPrefixSum returns p where p[i] is the token count of messages[:i].
func buildPrefixSum(ctx context.Context, counter TokenCounter, messages []Message) ([]int, error) {
	prefixSum := make([]int, len(messages)+1)
	for i, msg := range messages {
		tokens, err := counter.CountTokens(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("count tokens for message %d: %w", i, err)
		}
		prefixSum[i+1] = prefixSum[i] + tokens
	}
	return prefixSum, nil
}
