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
	"regexp"
	"strings"

	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

const (
	maxSuggestions = 3
	minCodeLength  = 20
	unknownSource  = "Unknown"
)

// concepts are the Physical AI terms reported as related concepts.
var concepts = []string{
	"embodied intelligence", "perception-action loop", "sensor fusion",
	"ros", "ros2", "gazebo", "unity", "urdf", "sdf",
	"kinematics", "dynamics", "control", "navigation", "manipulation",
	"humanoid robot", "biped locomotion", "balance", "zmp",
	"nvidia isaac", "vision-language-action", "vla", "conversational robot",
}

var (
	codeBlockRe = regexp.MustCompile("(?s)```([a-zA-Z]*)\n(.*?)```")
	codeFenceRe = regexp.MustCompile("```[a-zA-Z]*")
)

// suggestionRules map a lowercase trigger to follow-up suggestions.
var suggestionRules = []struct {
	trigger     string
	suggestions []string
}{
	{"kinematics", []string{"Practice with the kinematics lab exercises", "Try the inverse kinematics examples"}},
	{"ros", []string{"Install ROS 2 on your system", "Try running the ROS 2 examples"}},
	{"python", []string{"Try running the code examples", "Experiment with the parameters"}},
}

var defaultSuggestions = []string{"Ask a follow-up question for clarification", "Try the related quizzes"}

func parseResponse(text string) *Response {
	return &Response{
		Message:         text,
		Sources:         []Source{},
		RelatedConcepts: extractConcepts(text),
		CodeExamples:    detectCodeExamples(text),
		Suggestions:     generateSuggestions(text),
		CanExplainCode:  codeFenceRe.MatchString(text),
	}
}

// extractConcepts returns the known concepts mentioned in text, in list order.
// Matching is a case-insensitive substring test.
func extractConcepts(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, c := range concepts {
		if strings.Contains(lower, c) {
			out = append(out, c)
		}
	}
	return out
}

// detectCodeExamples returns fenced code blocks longer than 20 characters.
func detectCodeExamples(text string) []CodeExample {
	out := []CodeExample{}
	for _, m := range codeBlockRe.FindAllStringSubmatch(text, -1) {
		code := strings.TrimSpace(m[2])
		if len(code) <= minCodeLength {
			continue
		}
		out = append(out, CodeExample{
			Language:  m[1],
			Code:      code,
			LineCount: strings.Count(m[2], "\n") + 1,
		})
	}
	return out
}

func generateSuggestions(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, rule := range suggestionRules {
		if strings.Contains(lower, rule.trigger) {
			out = append(out, rule.suggestions...)
		}
	}
	out = append(out, defaultSuggestions...)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// formatSources cites the first five hits.
func formatSources(hits []hit) []Source {
	out := make([]Source, 0, min(len(hits), maxSources))
	for _, h := range hits {
		if len(out) == maxSources {
			break
		}
		if h.doc == nil {
			log.Warnf("chat: skipping source without document")
			continue
		}
		src := h.doc.Source
		if src == "" {
			src = unknownSource
		}
		out = append(out, Source{
			Source:  src,
			Title:   h.doc.Title,
			URL:     h.doc.URL,
			Score:   h.score,
			ChunkID: h.doc.ChunkID,
		})
	}
	return out
}
