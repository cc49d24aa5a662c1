package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
)

// Resultset is the query.Source a collection hands to query builders. It
// carries a point-in-time snapshot of the collection's documents; narrowing
// operations derive new resultsets without touching the snapshot, so a
// builder chain is stable even while the collection mutates underneath it.
//
// A resultset is meant to live for a single query. Searches consult the
// collection's current index, so a resultset held across a Replace may
// stop matching.
type Resultset struct {
	coll      *Collection
	docs      []schema.Document
	processor *query.DataProcessor
	metrics   *Metrics
	logger    *zap.Logger
}

// with derives a resultset over a narrowed document slice.
func (r *Resultset) with(docs []schema.Document) *Resultset {
	next := *r
	next.docs = docs
	return &next
}

// Find narrows to documents matching the filter.
func (r *Resultset) Find(filter *query.QueryFilter) (query.Source, error) {
	start := time.Now()
	docs, err := r.processor.Filter(context.Background(), r.docs, filter)
	r.record("find", start, err)
	if err != nil {
		return nil, err
	}
	return r.with(docs), nil
}

// Search narrows to documents matched by the full-text query, preserving
// their relative order.
func (r *Resultset) Search(search *query.SearchQuery) (query.Source, error) {
	start := time.Now()
	docs, err := r.searchDocs(search)
	r.record("search", start, err)
	if err != nil {
		return nil, err
	}
	return r.with(docs), nil
}

func (r *Resultset) searchDocs(search *query.SearchQuery) ([]schema.Document, error) {
	ix, err := r.coll.searchIndex()
	if err != nil {
		return nil, err
	}
	matched, err := ix.Query(search)
	if err != nil {
		return nil, err
	}
	kept := make([]schema.Document, 0, matched.GetCardinality())
	for _, doc := range r.docs {
		ord, ok := doc[ordField].(uint32)
		if ok && matched.Contains(ord) {
			kept = append(kept, doc)
		}
	}
	return kept, nil
}

// SortBy orders the documents by a field. The sort is stable, and documents
// whose values cannot be compared keep their relative order.
func (r *Resultset) SortBy(field string, descending bool) query.Source {
	docs := slices.Clone(r.docs)
	sort.SliceStable(docs, func(i, j int) bool {
		cmp, ok := query.CompareValues(docs[i][field], docs[j][field])
		if !ok {
			return false
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return r.with(docs)
}

// Limit caps the resultset at n documents.
func (r *Resultset) Limit(n int) query.Source {
	if n < 0 {
		n = 0
	}
	if n >= len(r.docs) {
		return r
	}
	return r.with(r.docs[:n])
}

// Skip drops the first n documents.
func (r *Resultset) Skip(n int) query.Source {
	if n <= 0 {
		return r
	}
	if n >= len(r.docs) {
		return r.with(r.docs[:0])
	}
	return r.with(r.docs[n:])
}

// Data materializes the resultset. Reserved metadata keys are stripped and
// each document is a fresh map, so callers can mutate results freely.
// A dropped collection yields query.ErrNoResult.
func (r *Resultset) Data() ([]schema.Document, error) {
	start := time.Now()
	if r.coll.isDropped() {
		err := fmt.Errorf("collection %s: %w", r.coll.def.Name, query.ErrNoResult)
		r.record("fetch", start, err)
		return nil, err
	}

	out := make([]schema.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		clean := make(schema.Document, len(doc))
		for key, value := range doc {
			if strings.HasPrefix(key, "$") {
				continue
			}
			clean[key] = value
		}
		out = append(out, clean)
	}
	r.record("fetch", start, nil)
	return out, nil
}

func (r *Resultset) record(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		r.logger.Debug("Resultset operation failed",
			zap.String("collection", r.coll.def.Name),
			zap.String("operation", operation),
			zap.Error(err))
	}
	r.metrics.RecordQuery(r.coll.def.Name, operation, status, time.Since(start))
}
