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
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
)

func TestFixedSizeChunking_Errors(t *testing.T) {
	fsc, err := NewFixedSizeChunking()
	require.NoError(t, err)

	chunks, err := fsc.Chunk(nil)
	require.ErrorIs(t, err, ErrNilDocument)
	require.Nil(t, chunks)

	_, err = fsc.Chunk(&document.Document{ID: "empty"})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = fsc.Chunk(&document.Document{ID: "blank", Text: "\r\n\n"})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = NewFixedSizeChunking(WithChunkSize(0))
	require.ErrorIs(t, err, ErrInvalidChunkSize)
	_, err = NewFixedSizeChunking(WithOverlap(-1))
	require.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestFixedSizeChunking_OverlapAdjusted(t *testing.T) {
	for _, tc := range []struct{ size, overlap, want int }{
		{10, 15, 9},
		{20, 20, 19},
		{500, 600, 100},
	} {
		fsc, err := NewFixedSizeChunking(WithChunkSize(tc.size), WithOverlap(tc.overlap))
		require.NoError(t, err)
		assert.Equal(t, tc.want, fsc.overlap)
	}
}

func TestFixedSizeChunking_SingleChunk(t *testing.T) {
	fsc, err := NewFixedSizeChunking()
	require.NoError(t, err)

	doc := &document.Document{
		ID: "lesson-1", Text: "  Robots sense and act.\r\n", Source: "ch1/lesson-1.md",
		Title: "Intro", URL: "/docs/ch1/lesson-1", Extra: map[string]any{"chapter": "ch1"},
	}
	chunks, err := fsc.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, "lesson-1_0", c.ID)
	assert.Equal(t, "0", c.ChunkID)
	assert.Equal(t, "  Robots sense and act.", c.Text)
	assert.Equal(t, "Intro", c.Title)
	assert.Equal(t, "/docs/ch1/lesson-1", c.URL)
	assert.Equal(t, "ch1/lesson-1.md", c.Source)
	assert.Equal(t, "ch1", c.Extra["chapter"])
	assert.Equal(t, 0, c.Extra[MetaStartPos])
	assert.Equal(t, 23, c.Extra[MetaEndPos])

	c.Extra["chapter"] = "changed"
	assert.Equal(t, "ch1", doc.Extra["chapter"])
}

func TestFixedSizeChunking_SentenceBreakAndOverlap(t *testing.T) {
	fsc, err := NewFixedSizeChunking(WithChunkSize(45), WithOverlap(5))
	require.NoError(t, err)

	text := "Balance needs a stable ZMP at all times. Walking shifts it forward. Sensors watch it."
	chunks, err := fsc.Chunk(&document.Document{ID: "d", Text: text})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, "Balance needs a stable ZMP at all times", chunks[0].Text[:39])
	assert.True(t, strings.HasSuffix(chunks[0].Text, ". "), "ends after the sentence")

	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Extra[MetaEndPos].(int)
		start := chunks[i].Extra[MetaStartPos].(int)
		assert.Equal(t, prevEnd-5, start, "consecutive chunks overlap")
	}
	last := chunks[len(chunks)-1]
	assert.Equal(t, utf8.RuneCountInString(text), last.Extra[MetaEndPos])
}

func TestFixedSizeChunking_NoBreakUsesHardLimit(t *testing.T) {
	fsc, err := NewFixedSizeChunking(WithChunkSize(10), WithOverlap(2))
	require.NoError(t, err)

	chunks, err := fsc.Chunk(&document.Document{ID: "d", Text: strings.Repeat("a", 25)})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0].Text)
	assert.Equal(t, 8, chunks[1].Extra[MetaStartPos])
	assert.Equal(t, 16, chunks[2].Extra[MetaStartPos])
	assert.Equal(t, "d_2", chunks[2].ID)
}

func TestFixedSizeChunking_RuneSafe(t *testing.T) {
	fsc, err := NewFixedSizeChunking(WithChunkSize(7), WithOverlap(2))
	require.NoError(t, err)

	text := strings.Repeat("人形机器人", 5)
	chunks, err := fsc.Chunk(&document.Document{Text: text})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 7)
	}
	assert.Equal(t, "chunk_0", chunks[0].ID)
}

func TestFixedSizeChunking_InvalidUTF8(t *testing.T) {
	fsc, err := NewFixedSizeChunking(WithChunkSize(8), WithOverlap(2))
	require.NoError(t, err)

	chunks, err := fsc.Chunk(&document.Document{ID: "bad", Text: "servo\xff\xfemotor torque\xc3"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	var joined strings.Builder
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), c.Text)
		joined.WriteString(c.Text)
	}
	assert.Contains(t, joined.String(), "�")
	assert.NotContains(t, joined.String(), "\xff")
}
