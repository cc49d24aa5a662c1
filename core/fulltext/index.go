package fulltext

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/couchbase/vellum"
	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/core/schema"
)

// Entry is one indexable document with the caller's numeric handle. The
// handle is what query evaluation yields back, as roaring bitmap members.
type Entry struct {
	ID  uint32
	Doc schema.Document
}

// fieldIndex is the per-field term dictionary: raw postings plus an FST
// over the sorted terms for prefix and fuzzy expansion.
type fieldIndex struct {
	postings map[string]*roaring.Bitmap
	terms    []string
	fst      *vellum.FST
}

// Index answers search queries over a fixed set of entries. It is immutable
// once built and safe for concurrent readers; collections rebuild it after
// mutations rather than updating in place.
type Index struct {
	fields   map[string]*fieldIndex
	analyzer Analyzer
	logger   *zap.Logger
}

// Build indexes the string values of the given fields across all entries.
// Non-string field values are skipped. A nil analyzer falls back to the
// simple analyzer and a nil logger to a no-op one.
func Build(fields []string, entries []Entry, analyzer Analyzer, logger *zap.Logger) (*Index, error) {
	if analyzer == nil {
		analyzer = NewSimpleAnalyzer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ix := &Index{
		fields:   make(map[string]*fieldIndex, len(fields)),
		analyzer: analyzer,
		logger:   logger,
	}
	for _, field := range fields {
		fi, err := buildField(field, entries, analyzer)
		if err != nil {
			return nil, fmt.Errorf("indexing field %s: %w", field, err)
		}
		ix.fields[field] = fi
	}
	logger.Debug("Built full-text index",
		zap.Int("fields", len(fields)),
		zap.Int("entries", len(entries)))
	return ix, nil
}

func buildField(field string, entries []Entry, analyzer Analyzer) (*fieldIndex, error) {
	postings := make(map[string]*roaring.Bitmap)
	for _, entry := range entries {
		value, ok := entry.Doc[field].(string)
		if !ok {
			continue
		}
		for _, token := range analyzer.Analyze(value) {
			bm, ok := postings[token]
			if !ok {
				bm = roaring.New()
				postings[token] = bm
			}
			bm.Add(entry.ID)
		}
	}

	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	// The FST doubles as a sorted term dictionary; values are ordinals
	// into the terms slice.
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	for i, term := range terms {
		if err := builder.Insert([]byte(term), uint64(i)); err != nil {
			return nil, err
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}
	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, err
	}

	return &fieldIndex{postings: postings, terms: terms, fst: fst}, nil
}

// Fields returns the indexed field names.
func (ix *Index) Fields() []string {
	fields := make([]string, 0, len(ix.fields))
	for field := range ix.fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// TermCount returns the number of distinct terms indexed for a field.
func (ix *Index) TermCount(field string) int {
	fi, ok := ix.fields[field]
	if !ok {
		return 0
	}
	return len(fi.terms)
}

// prefixSuccessor returns the lexicographically smallest byte string that
// is greater than every string with the given prefix, or nil when no such
// bound exists.
func prefixSuccessor(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	succ := bytes.Clone(prefix)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] < 0xff {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}
