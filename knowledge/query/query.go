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

// Package query expands and classifies learner questions before retrieval.
package query

import "context"

// Enhancer turns a raw question into the variants searched by the retriever.
type Enhancer interface {
	// EnhanceQuery returns search variants for req. The original query is
	// always the first variant.
	EnhanceQuery(ctx context.Context, req *Request) (*Enhanced, error)
}

// Request is a query enhancement request.
type Request struct {
	// Query is the learner's question.
	Query string

	// MaxVariants bounds the number of variants, original included.
	// Zero means the enhancer default.
	MaxVariants int
}

// Enhanced is the result of query enhancement.
type Enhanced struct {
	// Variants holds the search strings; Variants[0] is the original query.
	Variants []string

	// Keywords contains the domain terms found in the query.
	Keywords []string

	// Type is the detected question type.
	Type Type
}

// Type classifies a question by intent.
type Type string

// Question types, in classification precedence order.
const (
	TypeDefinition Type = "definition"
	TypeHowTo      Type = "howto"
	TypeExample    Type = "example"
	TypeComparison Type = "comparison"
	TypeFactual    Type = "factual"
	TypeOther      Type = "other"
)

// PageContext describes what the learner is looking at when asking.
type PageContext struct {
	LessonID     string `json:"lesson_id,omitempty"`
	ChapterID    string `json:"chapter_id,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	SelectedText string `json:"selected_text,omitempty"`
}

// IsZero reports whether no field is set.
func (p *PageContext) IsZero() bool {
	return p == nil || *p == PageContext{}
}
