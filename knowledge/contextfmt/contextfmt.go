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

// Package contextfmt renders retrieved chunks into the context block passed
// to the generative model.
package contextfmt

import (
	"strings"
	"unicode/utf8"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
)

const (
	// DefaultMaxChars bounds the formatted context when no limit is given.
	DefaultMaxChars = 2000
	// NoResults is returned for an empty document list.
	NoResults = "No relevant information found in the textbook."
	// Header starts every non-empty context.
	Header = "Based on the Physical AI & Humanoid Robotics textbook:\n"

	truncationMarker = "..."
	unknownSource    = "Unknown"
)

// Format renders docs in order as source-attributed blocks. Only whole blocks
// are added, and the first block that would push the block total past
// maxChars ends the list. The returned string never exceeds maxChars runes;
// when the header makes it longer it is cut and ends with "...".
func Format(docs []*document.Document, maxChars int) string {
	if len(docs) == 0 {
		return NoResults
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var (
		b     strings.Builder
		total int
	)
	b.WriteString(Header)
	for _, d := range docs {
		if d == nil {
			continue
		}
		block := Block(d)
		n := utf8.RuneCountInString(block)
		if total+n > maxChars {
			break
		}
		b.WriteString(block)
		total += n
	}
	return truncate(b.String(), maxChars)
}

// Block renders a single document.
func Block(d *document.Document) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(d.Text)
	b.WriteString("\nSource: ")
	if d.Source != "" {
		b.WriteString(d.Source)
	} else {
		b.WriteString(unknownSource)
	}
	if d.Title != "" {
		b.WriteString(" - ")
		b.WriteString(d.Title)
	}
	if d.URL != "" {
		b.WriteString("\nURL: ")
		b.WriteString(d.URL)
	}
	b.WriteString("\n---")
	return b.String()
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	marker := []rune(truncationMarker)
	if maxChars <= len(marker) {
		return string(marker[:maxChars])
	}
	r := []rune(s)
	return string(r[:maxChars-len(marker)]) + truncationMarker
}
