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

package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

// sentenceEndings are tried in order when looking for a break point.
var sentenceEndings = []string{". ", "! ", "? ", "\n\n"}

var _ Strategy = (*FixedSizeChunking)(nil)

// FixedSizeChunking splits text into chunks of at most chunkSize runes that
// overlap by overlap runes. A chunk ends after the last sentence ending in
// its window when that ending lies past the window's midpoint.
type FixedSizeChunking struct {
	chunkSize int
	overlap   int
}

// Option represents a functional option for configuring FixedSizeChunking.
type Option func(*FixedSizeChunking)

// WithChunkSize sets the maximum size of each chunk in runes.
func WithChunkSize(size int) Option {
	return func(fsc *FixedSizeChunking) {
		fsc.chunkSize = size
	}
}

// WithOverlap sets the number of runes shared by consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(fsc *FixedSizeChunking) {
		fsc.overlap = overlap
	}
}

// NewFixedSizeChunking creates a fixed-size chunking strategy. It defaults to
// 1200 runes with an overlap of 100.
func NewFixedSizeChunking(opts ...Option) (*FixedSizeChunking, error) {
	fsc := &FixedSizeChunking{
		chunkSize: defaultChunkSize,
		overlap:   defaultOverlap,
	}
	for _, opt := range opts {
		opt(fsc)
	}
	if fsc.chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if fsc.overlap < 0 {
		return nil, ErrInvalidOverlap
	}
	if fsc.overlap >= fsc.chunkSize {
		fsc.overlap = min(defaultOverlap, fsc.chunkSize-1)
	}
	return fsc, nil
}

// Chunk implements Strategy.
func (f *FixedSizeChunking) Chunk(doc *document.Document) ([]*document.Document, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if doc.IsEmpty() {
		return nil, ErrEmptyDocument
	}
	text := []rune(cleanText(doc.Text))
	n := len(text)
	if n == 0 {
		return nil, ErrEmptyDocument
	}

	var chunks []*document.Document
	for start, idx := 0, 0; start < n; idx++ {
		end := start + f.chunkSize
		if end >= n {
			chunks = append(chunks, createChunk(doc, string(text[start:]), idx, start, n))
			break
		}
		end = f.breakPoint(text, start, end)
		chunks = append(chunks, createChunk(doc, string(text[start:end]), idx, start, end))

		next := end - f.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	log.Debugf("chunking: %d chunk(s) from %q (%d runes)", len(chunks), doc.ID, n)
	return chunks, nil
}

// breakPoint returns the end of the chunk starting at start whose hard limit
// is end.
func (f *FixedSizeChunking) breakPoint(text []rune, start, end int) int {
	window := string(text[start:end])
	for _, ending := range sentenceEndings {
		i := strings.LastIndex(window, ending)
		if i < 0 {
			continue
		}
		pos := utf8.RuneCountInString(window[:i])
		if pos > f.chunkSize/2 {
			return start + pos + utf8.RuneCountInString(ending)
		}
	}
	return end
}
