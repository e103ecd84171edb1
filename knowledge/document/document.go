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

// Package document defines the textbook chunk carried through retrieval.
package document

import "maps"

// Payload keys used when a document is stored in a vector index.
const (
	KeyText     = "text"
	KeySource   = "source"
	KeyTitle    = "title"
	KeyURL      = "url"
	KeyChunkID  = "chunk_id"
	KeyMetadata = "metadata"
)

// Document is one retrievable chunk of textbook content.
type Document struct {
	// ID is the unique identifier of the chunk inside its collection.
	ID string `json:"id"`

	// Text is the chunk body.
	Text string `json:"text"`

	// Source is a human-readable label, usually the lesson file path.
	Source string `json:"source,omitempty"`

	// Title is the lesson or section title.
	Title string `json:"title,omitempty"`

	// URL points at the published page for the chunk.
	URL string `json:"url,omitempty"`

	// ChunkID is the position of the chunk within its source.
	ChunkID string `json:"chunk_id,omitempty"`

	// Extra holds metadata without a dedicated field.
	Extra map[string]any `json:"metadata,omitempty"`
}

// IsEmpty reports whether the document has no text.
func (d *Document) IsEmpty() bool {
	return d == nil || d.Text == ""
}

// Clone creates a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Extra = CloneMap(d.Extra)
	return &c
}

// Payload flattens the document into the map stored next to its vector.
func (d *Document) Payload() map[string]any {
	meta := CloneMap(d.Extra)
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		KeyText:     d.Text,
		KeySource:   d.Source,
		KeyTitle:    d.Title,
		KeyURL:      d.URL,
		KeyChunkID:  d.ChunkID,
		KeyMetadata: meta,
	}
}

// FromPayload rebuilds a document from an index payload.
// Unknown top-level keys are merged into Extra next to the nested metadata map.
func FromPayload(id string, payload map[string]any) *Document {
	d := &Document{ID: id}
	for k, v := range payload {
		switch k {
		case KeyText:
			d.Text = asString(v)
		case KeySource:
			d.Source = asString(v)
		case KeyTitle:
			d.Title = asString(v)
		case KeyURL:
			d.URL = asString(v)
		case KeyChunkID:
			d.ChunkID = asString(v)
		case KeyMetadata:
			if m, ok := v.(map[string]any); ok && len(m) > 0 {
				if d.Extra == nil {
					d.Extra = make(map[string]any, len(m))
				}
				for mk, mv := range m {
					d.Extra[mk] = cloneValue(mv)
				}
			}
		default:
			if d.Extra == nil {
				d.Extra = make(map[string]any)
			}
			if _, taken := d.Extra[k]; !taken {
				d.Extra[k] = cloneValue(v)
			}
		}
	}
	return d
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// CloneMap deep-copies a payload map. Nested maps and slices are copied.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}
