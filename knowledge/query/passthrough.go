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

package query

import "context"

var _ Enhancer = (*PassthroughEnhancer)(nil)

// PassthroughEnhancer searches the original query only.
type PassthroughEnhancer struct{}

// NewPassthroughEnhancer creates a passthrough enhancer.
func NewPassthroughEnhancer() *PassthroughEnhancer {
	return &PassthroughEnhancer{}
}

// EnhanceQuery implements Enhancer by returning the query unchanged.
func (p *PassthroughEnhancer) EnhanceQuery(_ context.Context, req *Request) (*Enhanced, error) {
	return &Enhanced{
		Variants: []string{req.Query},
		Keywords: []string{req.Query},
		Type:     TypeOther,
	}, nil
}
