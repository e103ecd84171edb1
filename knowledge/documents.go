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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/document"
)

const maxLineSize = 4 << 20

// ReadDocuments decodes one JSON document per line, the format produced by
// the content export. Blank lines are ignored.
func ReadDocuments(r io.Reader) ([]*document.Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var docs []*document.Document
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		d := &document.Document{}
		if err := json.Unmarshal([]byte(raw), d); err != nil {
			return nil, fmt.Errorf("knowledge: line %d: %w", line, err)
		}
		if d.ID == "" {
			return nil, fmt.Errorf("knowledge: line %d: missing id", line)
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: read documents: %w", err)
	}
	return docs, nil
}

// SourceName derives a readable label from a page URL: the host followed by
// the last path segment in title case, e.g.
// "example.com - Inverse Kinematics".
func SourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	last := path[strings.LastIndex(path, "/")+1:]
	last = strings.ReplaceAll(last, "-", " ")
	return u.Host + " - " + cases.Title(language.English).String(last)
}
