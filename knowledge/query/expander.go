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

package query

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultMaxExpansions = 5
	selectedTextLimit    = 50
	maxRelatedTerms      = 3
	maxSuggestions       = 5
)

var _ Enhancer = (*Expander)(nil)

// classification cues, checked in precedence order.
var typeCues = []struct {
	typ  Type
	cues []string
}{
	{TypeDefinition, []string{"what is", "define", "meaning of", "explain"}},
	{TypeHowTo, []string{"how to", "how do", "how can", "steps to"}},
	{TypeExample, []string{"example", "examples", "sample", "demonstration"}},
	{TypeComparison, []string{"vs", "versus", "compare", "difference", "pros and cons"}},
	{TypeFactual, []string{"why is", "when was", "who created", "where can"}},
}

var actionWords = []string{"make", "create", "build", "implement"}

// Expander rewrites questions with domain synonyms, acronym expansions and
// question-pattern alternatives. It is immutable after construction and safe
// for concurrent use.
type Expander struct {
	dict          *Dictionary
	multiTerms    []string // multi-word synonym keys, longest first
	synonymKeys   []string
	acronymKeys   []string
	patternKeys   []string
	singleTerms   []string // single-word synonym and acronym keys
	maxExpansions int
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithDictionary replaces the default vocabulary.
func WithDictionary(d *Dictionary) ExpanderOption {
	return func(e *Expander) {
		if d != nil {
			e.dict = d
		}
	}
}

// WithMaxExpansions sets the variant bound used by EnhanceQuery when the
// request does not set one.
func WithMaxExpansions(n int) ExpanderOption {
	return func(e *Expander) {
		if n > 0 {
			e.maxExpansions = n
		}
	}
}

// NewExpander creates an Expander. The dictionary is copied.
func NewExpander(opts ...ExpanderOption) *Expander {
	e := &Expander{dict: DefaultDictionary(), maxExpansions: defaultMaxExpansions}
	for _, opt := range opts {
		opt(e)
	}
	e.dict = e.dict.normalized()

	e.synonymKeys = sortedKeys(e.dict.Synonyms)
	e.patternKeys = sortedKeys(e.dict.QuestionPatterns)
	for k := range e.dict.Acronyms {
		e.acronymKeys = append(e.acronymKeys, k)
	}
	sort.Strings(e.acronymKeys)

	seen := make(map[string]bool)
	for _, k := range e.synonymKeys {
		if strings.Contains(k, " ") {
			e.multiTerms = append(e.multiTerms, k)
		} else if !seen[k] {
			seen[k] = true
			e.singleTerms = append(e.singleTerms, k)
		}
	}
	for _, k := range e.acronymKeys {
		if !strings.Contains(k, " ") && !seen[k] {
			seen[k] = true
			e.singleTerms = append(e.singleTerms, k)
		}
	}
	sort.SliceStable(e.multiTerms, func(i, j int) bool {
		return len(e.multiTerms[i]) > len(e.multiTerms[j])
	})
	return e
}

// EnhanceQuery implements Enhancer.
func (e *Expander) EnhanceQuery(_ context.Context, req *Request) (*Enhanced, error) {
	n := req.MaxVariants
	if n <= 0 {
		n = e.maxExpansions
	}
	return &Enhanced{
		Variants: e.Expand(req.Query, n),
		Keywords: e.ExtractKeyTerms(req.Query),
		Type:     e.ClassifyQueryType(req.Query),
	}, nil
}

// Expand returns up to maxExpansions search strings. The original query is
// always element 0 and is returned verbatim; generated variants are lower
// case. Duplicates are removed case-insensitively. Output is deterministic
// for a given query and dictionary.
func (e *Expander) Expand(query string, maxExpansions int) []string {
	if maxExpansions < 1 {
		maxExpansions = 1
	}
	out := []string{query}
	seen := map[string]bool{strings.ToLower(query): true}
	add := func(v string) {
		if len(out) >= maxExpansions {
			return
		}
		key := strings.ToLower(v)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, v)
	}

	lower := strings.ToLower(query)
	for _, term := range termsInOrder(lower, e.synonymKeys) {
		for _, syn := range e.dict.Synonyms[term] {
			add(replaceTerm(lower, term, syn))
		}
	}
	for _, term := range termsInOrder(lower, e.acronymKeys) {
		add(replaceTerm(lower, term, e.dict.Acronyms[term]))
	}
	for _, pattern := range termsInOrder(lower, e.patternKeys) {
		for _, alt := range e.dict.QuestionPatterns[pattern] {
			add(replaceTerm(lower, pattern, alt))
		}
	}
	return out
}

// ExtractKeyTerms returns the domain terms present in query. Multi-word terms
// come first, longest first, followed by single-word terms in order of
// appearance.
func (e *Expander) ExtractKeyTerms(query string) []string {
	lower := strings.ToLower(query)
	var terms []string
	seen := make(map[string]bool)
	for _, t := range e.multiTerms {
		if len(termIndexes(lower, t)) > 0 && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	for _, t := range termsInOrder(lower, e.singleTerms) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// ClassifyQueryType detects the question intent. The first matching category
// wins: definition, howto, example, comparison, factual, then other.
func (e *Expander) ClassifyQueryType(query string) Type {
	lower := strings.ToLower(query)
	for _, tc := range typeCues {
		for _, cue := range tc.cues {
			if strings.Contains(lower, cue) {
				return tc.typ
			}
		}
	}
	return TypeOther
}

// ExpandWithContext appends page hints to query. Selected text is cut to its
// first 50 runes.
func (e *Expander) ExpandWithContext(query string, pc *PageContext) string {
	return ExpandWithContext(query, pc)
}

// ExpandWithContext appends page hints to query. It needs no dictionary.
func ExpandWithContext(query string, pc *PageContext) string {
	if pc.IsZero() {
		return query
	}
	parts := []string{query}
	if pc.LessonID != "" {
		parts = append(parts, "lesson "+pc.LessonID)
	}
	if pc.ChapterID != "" {
		parts = append(parts, "chapter "+pc.ChapterID)
	}
	if pc.SectionTitle != "" {
		parts = append(parts, "section about "+pc.SectionTitle)
	}
	if pc.SelectedText != "" {
		parts = append(parts, "related to "+truncateRunes(pc.SelectedText, selectedTextLimit))
	}
	return strings.Join(parts, " ")
}

// RelatedQueries suggests up to n follow-up questions built from the key
// terms of query.
func (e *Expander) RelatedQueries(query string, n int) []string {
	terms := e.ExtractKeyTerms(query)
	if len(terms) > maxRelatedTerms {
		terms = terms[:maxRelatedTerms]
	}
	mechanism := toSet(e.dict.MechanismTerms)
	tutorial := toSet(e.dict.TutorialTerms)
	tradeoff := toSet(e.dict.TradeoffTerms)

	var out []string
	for _, t := range terms {
		out = append(out, "what is "+t)
		if mechanism[t] {
			out = append(out, "how does "+t+" work")
		}
		out = append(out, "examples of "+t)
		if tutorial[t] {
			out = append(out, t+" tutorial")
		}
		if tradeoff[t] {
			out = append(out, "advantages of "+t, "disadvantages of "+t)
		}
	}
	return limit(dedupe(out), n)
}

// SuggestImprovements proposes more specific rewrites of query: expansions of
// very short questions, narrower readings of ambiguous words, and a "how to"
// form for action requests.
func (e *Expander) SuggestImprovements(query string) []string {
	lower := strings.ToLower(query)
	var out []string

	if len(strings.Fields(query)) < 3 {
		if terms := e.ExtractKeyTerms(query); len(terms) > 0 {
			out = append(out, "tell me more about "+terms[0], "explain "+terms[0]+" in detail")
		}
	}
	for _, word := range words(lower) {
		for _, specific := range e.dict.AmbiguousTerms[word] {
			out = append(out, replaceTerm(lower, word, specific))
		}
	}
	if !strings.Contains(lower, "how to") {
		for _, w := range actionWords {
			if strings.Contains(lower, w) {
				out = append(out, "how to "+lower)
				break
			}
		}
	}
	return limit(dedupe(out), maxSuggestions)
}

// termsInOrder returns the keys that occur in s as whole words, ordered by
// first occurrence, then longer first, then alphabetically.
func termsInOrder(s string, keys []string) []string {
	type hit struct {
		term string
		pos  int
	}
	var hits []hit
	for _, k := range keys {
		if idx := termIndexes(s, k); len(idx) > 0 {
			hits = append(hits, hit{term: k, pos: idx[0]})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		if len(hits[i].term) != len(hits[j].term) {
			return len(hits[i].term) > len(hits[j].term)
		}
		return hits[i].term < hits[j].term
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.term
	}
	return out
}

// termIndexes returns the byte offsets of non-overlapping occurrences of term
// in s that are bounded by non-word runes.
func termIndexes(s, term string) []int {
	if term == "" {
		return nil
	}
	var idx []int
	for from := 0; from <= len(s)-len(term); {
		i := strings.Index(s[from:], term)
		if i < 0 {
			break
		}
		i += from
		end := i + len(term)
		if wordBoundaryBefore(s, i) && wordBoundaryAfter(s, end) {
			idx = append(idx, i)
			from = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		from = i + size
	}
	return idx
}

// replaceTerm substitutes every whole-word occurrence of term in s.
func replaceTerm(s, term, repl string) string {
	idx := termIndexes(s, term)
	if len(idx) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, i := range idx {
		b.WriteString(s[last:i])
		b.WriteString(repl)
		last = i + len(term)
	}
	b.WriteString(s[last:])
	return b.String()
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0:0]
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func limit(list []string, n int) []string {
	if n >= 0 && len(list) > n {
		return list[:n]
	}
	return list
}
