package fulltext

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/couchbase/vellum"
	"github.com/couchbase/vellum/levenshtein"
	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
)

// Query evaluates a search query and returns the matching entry handles.
func (ix *Index) Query(q *query.SearchQuery) (*roaring.Bitmap, error) {
	switch {
	case q == nil:
		return nil, fmt.Errorf("nil search query")
	case q.Match != nil:
		return ix.evalMatch(q.Match)
	case q.Bool != nil:
		return ix.evalBool(q.Bool)
	default:
		return nil, fmt.Errorf("search query has neither match nor bool clause")
	}
}

func (ix *Index) evalMatch(clause *query.MatchClause) (*roaring.Bitmap, error) {
	fi, ok := ix.fields[clause.Field]
	if !ok {
		ix.logger.Warn("Search against unindexed field", zap.String("field", clause.Field))
		return roaring.New(), nil
	}

	tokens := ix.analyzer.Analyze(clause.Value)
	if len(tokens) == 0 {
		return roaring.New(), nil
	}

	docsets := make([]*roaring.Bitmap, 0, len(tokens))
	for _, token := range tokens {
		terms, err := fi.expand(token, clause.Fuzziness, clause.PrefixLength, clause.Extended)
		if err != nil {
			return nil, err
		}
		docset := roaring.New()
		for _, term := range terms {
			docset.Or(fi.postings[term])
		}
		docsets = append(docsets, docset)
	}

	if clause.Operator == schema.LogicalAnd {
		return intersectAll(docsets), nil
	}
	return atLeast(docsets, clause.MinimumShouldMatch), nil
}

func (ix *Index) evalBool(clause *query.BoolClause) (*roaring.Bitmap, error) {
	if len(clause.Should) == 0 {
		return roaring.New(), nil
	}
	matched := make([]*roaring.Bitmap, 0, len(clause.Should))
	for i := range clause.Should {
		bm, err := ix.Query(&clause.Should[i])
		if err != nil {
			return nil, err
		}
		matched = append(matched, bm)
	}
	return atLeast(matched, clause.MinimumShouldMatch), nil
}

// intersectAll intersects smallest-first so the running result shrinks as
// fast as possible, stopping early once it is empty.
func intersectAll(sets []*roaring.Bitmap) *roaring.Bitmap {
	if len(sets) == 0 {
		return roaring.New()
	}
	slices.SortFunc(sets, func(a, b *roaring.Bitmap) int {
		return int(a.GetCardinality()) - int(b.GetCardinality())
	})
	result := sets[0].Clone()
	for _, set := range sets[1:] {
		if result.IsEmpty() {
			return result
		}
		result.And(set)
	}
	return result
}

// atLeast keeps the entries present in at least threshold of the sets. A
// threshold below one is treated as one.
func atLeast(sets []*roaring.Bitmap, threshold int) *roaring.Bitmap {
	if threshold <= 1 {
		return roaring.FastOr(sets...)
	}
	counts := make(map[uint32]int)
	for _, set := range sets {
		it := set.Iterator()
		for it.HasNext() {
			counts[it.Next()]++
		}
	}
	result := roaring.New()
	for id, count := range counts {
		if count >= threshold {
			result.Add(id)
		}
	}
	return result
}

// expand returns the dictionary terms a query token reaches: the exact
// term, prefix completions when extended matching is on, and fuzzy
// variants within the edit distance that keep the token's first
// prefixLength runes intact.
func (fi *fieldIndex) expand(token string, fuzziness, prefixLength int, extended bool) ([]string, error) {
	seen := make(map[string]struct{})
	if _, ok := fi.postings[token]; ok {
		seen[token] = struct{}{}
	}

	if extended {
		terms, err := fi.prefixTerms(token)
		if err != nil {
			return nil, err
		}
		for _, term := range terms {
			seen[term] = struct{}{}
		}
	}

	if fuzziness > 0 {
		terms, err := fi.fuzzyTerms(token, uint8(fuzziness))
		if err != nil {
			return nil, err
		}
		anchor := runePrefix(token, prefixLength)
		for _, term := range terms {
			if strings.HasPrefix(term, anchor) {
				seen[term] = struct{}{}
			}
		}
	}

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms, nil
}

// prefixTerms scans the FST range [prefix, prefixSuccessor(prefix)).
func (fi *fieldIndex) prefixTerms(prefix string) ([]string, error) {
	start := []byte(prefix)
	iter, err := fi.fst.Iterator(start, prefixSuccessor(start))

	var terms []string
	for err == nil {
		key, _ := iter.Current()
		terms = append(terms, string(key))
		err = iter.Next()
	}
	if err != vellum.ErrIteratorDone {
		return nil, fmt.Errorf("prefix scan for %q: %w", prefix, err)
	}
	return terms, nil
}

// fuzzyTerms walks the FST with a Levenshtein automaton, transpositions
// counted as a single edit.
func (fi *fieldIndex) fuzzyTerms(token string, distance uint8) ([]string, error) {
	builder, err := levenshtein.NewLevenshteinAutomatonBuilder(distance, true)
	if err != nil {
		return nil, fmt.Errorf("levenshtein builder: %w", err)
	}
	dfa, err := builder.BuildDfa(token, distance)
	if err != nil {
		return nil, fmt.Errorf("fuzzy automaton for %q: %w", token, err)
	}

	iter, err := fi.fst.Search(dfa, nil, nil)

	var terms []string
	for err == nil {
		key, _ := iter.Current()
		terms = append(terms, string(key))
		err = iter.Next()
	}
	if err != vellum.ErrIteratorDone {
		return nil, fmt.Errorf("fuzzy scan for %q: %w", token, err)
	}
	return terms, nil
}

// runePrefix returns the first length runes of s, or all of s when it is
// shorter.
func runePrefix(s string, length int) string {
	if length <= 0 {
		return ""
	}
	runes := []rune(s)
	if length >= len(runes) {
		return s
	}
	return string(runes[:length])
}
