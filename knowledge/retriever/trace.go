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

package retriever

import "context"

// Trace receives callbacks about a single retrieval. Nil fields are skipped.
type Trace struct {
	// CacheLookup reports whether the retrieval cache answered the request.
	CacheLookup func(hit bool)

	// VariantFailed reports a variant skipped because of err.
	VariantFailed func(variant string, err error)
}

type traceKey struct{}

// WithTrace returns a context that delivers retrieval events to t.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func traceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	if t == nil {
		return &Trace{}
	}
	return t
}

func (t *Trace) cacheLookup(hit bool) {
	if t.CacheLookup != nil {
		t.CacheLookup(hit)
	}
}

func (t *Trace) variantFailed(variant string, err error) {
	if t.VariantFailed != nil {
		t.VariantFailed(variant, err)
	}
}
