// Package fulltext provides the in-memory full-text index behind search
// queries: per-field term dictionaries stored as FSTs, roaring-bitmap
// postings, and fuzzy plus prefix term expansion.
package fulltext

import (
	"strings"
	"unicode"
)

// Analyzer turns field text into index tokens. The same analyzer must be
// used for indexing and for queries.
type Analyzer interface {
	Analyze(text string) []string
}

// SimpleAnalyzer lowercases and splits on any rune that is neither a letter
// nor a digit.
type SimpleAnalyzer struct{}

func NewSimpleAnalyzer() *SimpleAnalyzer {
	return &SimpleAnalyzer{}
}

func (a *SimpleAnalyzer) Analyze(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
