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

import "time"

// Finish reasons reported by providers, normalized.
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// Usage represents token usage information.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`
	// TotalTokens is the total number of tokens in the response.
	TotalTokens int `json:"total_tokens"`
}

// Response is a completed generation.
type Response struct {
	// ID is the provider's identifier for the completion, if any.
	ID string `json:"id,omitempty"`

	// Model is the model that produced the completion.
	Model string `json:"model"`

	// Content is the generated assistant text.
	Content string `json:"content"`

	// FinishReason tells why generation stopped.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is nil when the provider did not report it.
	Usage *Usage `json:"usage,omitempty"`

	// Timestamp is when the response was received.
	Timestamp time.Time `json:"timestamp"`
}

// TotalTokens returns the reported total, or 0 when usage is unknown.
func (r *Response) TotalTokens() int {
	if r == nil || r.Usage == nil {
		return 0
	}
	return r.Usage.TotalTokens
}
