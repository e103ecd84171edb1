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

package chat

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/contextfmt"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const (
	highlightSystemPrompt = "You are an expert Physical AI tutor providing clear, educational explanations."
	highlightMaxTokens    = 300
	highlightTemperature  = 0.3

	relatedThreshold    = 0.6
	relatedTerms        = 3
	relatedPerTerm      = 2
	maxRelated          = 5
	contextSearchLimit  = 5
	minKeyTermRuneCount = 3
)

var wordRe = regexp.MustCompile(`\b\w+\b`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "up": true, "down": true, "out": true,
	"off": true, "over": true, "under": true, "above": true, "below": true,
	"between": true, "through": true, "during": true, "before": true, "after": true,
	"without": true, "within": true, "about": true, "into": true, "onto": true,
	"upon": true, "per": true, "via": true, "vs": true, "etc": true, "ie": true, "eg": true,
}

// HighlightResponse explains a passage the learner selected.
type HighlightResponse struct {
	Response       string   `json:"response"`
	RelatedContent []Source `json:"related_content"`
	CanExplainCode bool     `json:"can_explain_code"`
}

// AskAboutHighlight explains text selected in lessonID and lists related
// textbook passages. Retrieval problems only shrink the related list.
func (b *Bot) AskAboutHighlight(ctx context.Context, text, lessonID, section string) (*HighlightResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	q := "What is " + text + " in lesson " + lessonID
	if section != "" {
		q += " section " + section
	}
	messages := []model.Message{model.NewSystemMessage(highlightSystemPrompt)}
	if hits := b.searchRelated(ctx, q, contextSearchLimit); len(hits) > 0 {
		messages = append(messages, model.NewSystemMessage(textbookContextPrefix+formatHits(hits, b.maxContext)))
	}
	messages = append(messages, model.NewUserMessage(fmt.Sprintf(
		"You are an expert Physical AI tutor.\nA student highlighted this text from lesson %s:\n\n\"%s\"\n\n"+
			"Provide a clear explanation of what this text means in the context of Physical AI and Humanoid Robotics.",
		lessonID, text)))

	start := time.Now()
	resp, err := b.model.Generate(ctx, &model.Request{
		Messages: messages,
		GenerationConfig: model.GenerationConfig{
			MaxTokens:   model.IntPtr(highlightMaxTokens),
			Temperature: model.Float64Ptr(highlightTemperature),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	log.Debugf("chat: highlight explained in %s", time.Since(start))

	return &HighlightResponse{
		Response:       resp.Content,
		RelatedContent: b.findRelatedContent(ctx, text, lessonID),
		CanExplainCode: strings.Contains(resp.Content, "```"),
	}, nil
}

// findRelatedContent searches the first three key terms of text within the
// lesson and keeps the five best distinct chunks.
func (b *Bot) findRelatedContent(ctx context.Context, text, lessonID string) []Source {
	best := make(map[string]hit)
	for i, term := range b.keyTerms(text) {
		if i == relatedTerms {
			break
		}
		for _, h := range b.searchRelated(ctx, term+" in lesson "+lessonID, relatedPerTerm) {
			if prev, ok := best[h.doc.ID]; !ok || h.score > prev.score {
				best[h.doc.ID] = h
			}
		}
	}
	hits := make([]hit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})
	if len(hits) > maxRelated {
		hits = hits[:maxRelated]
	}
	return formatSources(hits)
}

func (b *Bot) searchRelated(ctx context.Context, text string, limit int) []hit {
	if b.retriever == nil {
		return nil
	}
	docs, err := b.retriever.Retrieve(ctx, &retriever.Query{Text: text, Limit: limit, MinScore: relatedThreshold})
	if err != nil {
		log.Warnf("chat: related search for %q: %v", log.Truncate(text, 50), err)
		return nil
	}
	hits := make([]hit, 0, len(docs))
	for _, d := range docs {
		if d.Document != nil {
			hits = append(hits, hit{doc: d.Document, score: d.Score})
		}
	}
	return hits
}

// keyTerms lists the domain terms of text first, then its remaining words
// that are not stop words and have at least three characters.
func (b *Bot) keyTerms(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(term string) {
		if !seen[term] {
			seen[term] = true
			out = append(out, term)
		}
	}
	for _, term := range b.expander.ExtractKeyTerms(text) {
		add(term)
	}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if stopWords[w] || len([]rune(w)) < minKeyTermRuneCount {
			continue
		}
		add(w)
	}
	return out
}

func formatHits(hits []hit, maxChars int) string {
	docs := make([]*document.Document, len(hits))
	for i, h := range hits {
		docs[i] = h.doc
	}
	return contextfmt.Format(docs, maxChars)
}

// LessonSuggestions returns study suggestions for a lesson.
func LessonSuggestions(lessonID string) []string {
	switch lessonID {
	case "lesson-1":
		return []string{
			"Try the perception-action loop lab exercise",
			"Read about real-world applications",
			"Explore the differences between digital and physical AI",
		}
	case "lesson-2":
		return []string{
			"Experiment with ROS 2 commands",
			"Create your first ROS 2 node",
			"Try the Gazebo simulation exercises",
		}
	case "":
		return []string{
			"Read the introduction to understand the basics",
			"Complete the lab exercises for hands-on practice",
			"Take the quiz to test your understanding",
		}
	default:
		return []string{
			"Complete the lab exercises",
			"Review the key concepts",
			"Take the lesson quiz",
		}
	}
}
