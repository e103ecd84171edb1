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

// Package tiktoken counts tokens with the OpenAI BPE encodings.
package tiktoken

import (
	"context"
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

var _ model.TokenCounter = (*Counter)(nil)

// Counter implements model.TokenCounter with a tokenizer.Codec.
type Counter struct {
	encoding tokenizer.Codec
}

// New creates a counter for modelName. Models unknown to the tokenizer
// fall back to cl100k_base.
func New(modelName string) (*Counter, error) {
	enc, err := tokenizer.ForModel(tokenizer.Model(modelName))
	if err != nil {
		enc, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, fmt.Errorf("tiktoken: fallback tokenizer: %w", err)
		}
	}
	return &Counter{encoding: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := c.encoding.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("tiktoken: encode: %w", err)
	}
	return len(ids), nil
}

// CountTokens implements model.TokenCounter.
func (c *Counter) CountTokens(_ context.Context, message model.Message) (int, error) {
	return c.Count(message.Content)
}

// CountTokensRange implements model.TokenCounter.
func (c *Counter) CountTokensRange(ctx context.Context, messages []model.Message, start, end int) (int, error) {
	if start < 0 || end > len(messages) || start >= end {
		return 0, fmt.Errorf("invalid range: start=%d, end=%d, len=%d", start, end, len(messages))
	}
	total := 0
	for i := start; i < end; i++ {
		n, err := c.CountTokens(ctx, messages[i])
		if err != nil {
			return 0, fmt.Errorf("count tokens for message %d: %w", i, err)
		}
		total += n
	}
	return total, nil
}
