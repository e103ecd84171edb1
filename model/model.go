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

// Package model provides interfaces for working with LLMs.
package model

import (
	"context"
	"errors"
)

// ErrNilRequest is returned when Generate is called without a request.
var ErrNilRequest = errors.New("model: request cannot be nil")

// ErrEmptyResponse is returned when the provider answered without any choice.
var ErrEmptyResponse = errors.New("model: empty response")

// Model is the interface for all chat completion models.
//
// Generate returns an error for transport failures and for API-level
// errors reported by the provider; a returned Response is always complete.
type Model interface {
	// Generate produces a single completion for the request.
	Generate(ctx context.Context, request *Request) (*Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info contains basic information about a Model.
type Info struct {
	Name     string
	Provider string
}
