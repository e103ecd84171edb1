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

package reranker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
)

const (
	defaultTextBoost  = 0.10
	defaultTitleBoost = 0.15
	defaultTypeBoost  = 0.20
)

var defaultTypeCues = map[query.Type][]string{
	query.TypeDefinition: {"definition", "defined as", "refers to", "means"},
	query.TypeHowTo:      {"step", "procedure", "method", "how to"},
	query.TypeExample:    {"example", "for instance", "such as", "like"},
}

// Analyzer classifies a question and extracts its domain terms.
// *query.Expander satisfies it.
type Analyzer interface {
	ClassifyQueryType(q string) query.Type
	ExtractKeyTerms(q string) []string
}

var _ Reranker = (*Heuristic)(nil)

// Heuristic boosts similarity with key-term and question-type matches:
//
//	final = similarity + termBoost + typeBoost
//
// termBoost adds textBoost per key term found in the body and titleBoost per
// key term found in the title. typeBoost applies once when the body carries
// a cue word for the question type. Boosts are unbounded unless a maximum is
// set.
type Heuristic struct {
	analyzer   Analyzer
	textBoost  float64
	titleBoost float64
	typeBoost  float64
	maxBoost   float64
	limit      int
}

// HeuristicOption configures a Heuristic reranker.
type HeuristicOption func(*Heuristic)

// WithAnalyzer replaces the default expander-backed analyzer.
func WithAnalyzer(a Analyzer) HeuristicOption {
	return func(h *Heuristic) {
		if a != nil {
			h.analyzer = a
		}
	}
}

// WithTermBoosts sets the per-term boosts for body and title matches.
func WithTermBoosts(text, title float64) HeuristicOption {
	return func(h *Heuristic) {
		h.textBoost = text
		h.titleBoost = title
	}
}

// WithTypeBoost sets the question-type boost.
func WithTypeBoost(boost float64) HeuristicOption {
	return func(h *Heuristic) { h.typeBoost = boost }
}

// WithMaxBoost clamps termBoost+typeBoost. Zero leaves boosts unbounded.
func WithMaxBoost(max float64) HeuristicOption {
	return func(h *Heuristic) { h.maxBoost = max }
}

// WithLimit keeps only the best n results. Zero keeps all.
func WithLimit(n int) HeuristicOption {
	return func(h *Heuristic) { h.limit = n }
}

// NewHeuristic creates a Heuristic reranker.
func NewHeuristic(opts ...HeuristicOption) *Heuristic {
	h := &Heuristic{
		textBoost:  defaultTextBoost,
		titleBoost: defaultTitleBoost,
		typeBoost:  defaultTypeBoost,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.analyzer == nil {
		h.analyzer = query.NewExpander()
	}
	return h
}

// Rerank implements Reranker. Ties keep the incoming order.
func (h *Heuristic) Rerank(ctx context.Context, q string, results []*Result) ([]*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReranking, err)
	}
	qType := h.analyzer.ClassifyQueryType(q)
	terms := h.analyzer.ExtractKeyTerms(q)
	cues := defaultTypeCues[qType]

	out := make([]*Result, 0, len(results))
	for i, r := range results {
		if r == nil || r.Document == nil {
			return nil, fmt.Errorf("%w: result %d has no document", ErrReranking, i)
		}
		c := r.clone()
		text := strings.ToLower(c.Document.Text)
		title := strings.ToLower(c.Document.Title)

		var termBoost, typeBoost float64
		for _, term := range terms {
			if strings.Contains(text, term) {
				termBoost += h.textBoost
			}
			if strings.Contains(title, term) {
				termBoost += h.titleBoost
			}
		}
		for _, cue := range cues {
			if strings.Contains(text, cue) {
				typeBoost = h.typeBoost
				break
			}
		}
		boost := termBoost + typeBoost
		if h.maxBoost > 0 && boost > h.maxBoost {
			boost = h.maxBoost
		}
		c.RerankScore = c.Score + boost
		c.Breakdown = Breakdown{Similarity: c.Score, TermBoost: termBoost, TypeBoost: typeBoost}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })
	if h.limit > 0 && len(out) > h.limit {
		out = out[:h.limit]
	}
	return out, nil
}
