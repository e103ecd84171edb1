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

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Namespaces used by the built-in callers of Key.
const (
	NamespaceRetrieve = "retrieve"
	NamespaceEmbed    = "embed"
)

// Key derives the canonical cache key for a namespace and a set of request
// fields. Fields are serialized with sorted keys, so logically identical
// requests always map to the same key regardless of construction order.
func Key(namespace string, fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(namespace)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		raw, err := json.Marshal(fields[name])
		if err != nil {
			raw = []byte(fmt.Sprintf("%#v", fields[name]))
		}
		b.Write(raw)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
