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

package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDocuments(t *testing.T) {
	in := `{"id":"l1","text":"ZMP","title":"Balance","url":"/docs/balance","metadata":{"chapter":3}}

{"id":"l2","text":"ROS 2"}
`
	docs, err := ReadDocuments(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Balance", docs[0].Title)
	assert.Equal(t, float64(3), docs[0].Extra["chapter"])
	assert.Equal(t, "ROS 2", docs[1].Text)

	_, err = ReadDocuments(strings.NewReader(`{"text":"no id"}`))
	assert.ErrorContains(t, err, "line 1: missing id")
	_, err = ReadDocuments(strings.NewReader("{\"id\":\"a\"}\nnot json"))
	assert.ErrorContains(t, err, "line 2")
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "book.example - Inverse Kinematics", SourceName("https://book.example/docs/ch4/inverse-kinematics/"))
	assert.Equal(t, "book.example", SourceName("https://book.example/"))
	assert.Equal(t, "/docs/relative", SourceName("/docs/relative"))
}
