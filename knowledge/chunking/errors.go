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

import "errors"

var (
	// ErrInvalidChunkSize indicates that the chunk size is invalid.
	ErrInvalidChunkSize = errors.New("chunking: chunk size must be greater than 0")

	// ErrInvalidOverlap indicates that the overlap value is invalid.
	ErrInvalidOverlap = errors.New("chunking: overlap must be non-negative")

	// ErrEmptyDocument indicates that the document has no text to chunk.
	ErrEmptyDocument = errors.New("chunking: document text is empty")

	// ErrNilDocument indicates that a nil document was provided.
	ErrNilDocument = errors.New("chunking: document cannot be nil")
)
