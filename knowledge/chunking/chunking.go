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

// Package chunking splits textbook documents into retrievable chunks.
package chunking

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

// Strategy splits a document into chunks.
type Strategy interface {
	// Chunk splits a document into smaller chunks based on the strategy's algorithm.
	Chunk(doc *document.Document) ([]*document.Document, error)
}

// Chunk metadata keys, stored in Document.Extra.
const (
	MetaStartPos   = "start_pos"
	MetaEndPos     = "end_pos"
	MetaChunkIndex = "chunk_index"
	MetaChunkSize  = "chunk_size"
)

var (
	defaultChunkSize = 1200
	defaultOverlap   = 100
)

// cleanText normalizes line breaks and trailing whitespace. Leading
// indentation is kept so code samples survive chunking.
func cleanText(content string) string {
	if !utf8.ValidString(content) {
		log.Debugf("chunking: replacing invalid UTF-8 sequences")
		content = strings.ToValidUTF8(content, "\uFFFD")
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// createChunk builds chunk number n of parent covering runes [start, end).
func createChunk(parent *document.Document, text string, n, start, end int) *document.Document {
	extra := document.CloneMap(parent.Extra)
	if extra == nil {
		extra = make(map[string]any, 4)
	}
	extra[MetaStartPos] = start
	extra[MetaEndPos] = end
	extra[MetaChunkIndex] = n
	extra[MetaChunkSize] = end - start

	id := "chunk_" + strconv.Itoa(n)
	if parent.ID != "" {
		id = parent.ID + "_" + strconv.Itoa(n)
	}
	return &document.Document{
		ID:      id,
		Text:    text,
		Source:  parent.Source,
		Title:   parent.Title,
		URL:     parent.URL,
		ChunkID: strconv.Itoa(n),
		Extra:   extra,
	}
}
