// Contract between the query builder and the underlying collection engine.
package query

import (
	"github.com/asaidimu/go-maktaba/core/schema"
)

// Source is the handle a QueryBuilder drives: the underlying collection's
// query state. Narrowing calls apply eagerly, in call order, and return the
// handle for further chaining. Implementations are single-owner; a handle is
// not safe for concurrent use.
type Source interface {
	// Find narrows the handle to documents matching the filter. Malformed
	// filters (for example an unregistered custom operator) return an error.
	Find(filter *QueryFilter) (Source, error)

	// Search narrows the handle to documents matching a full-text query.
	Search(search *SearchQuery) (Source, error)

	// SortBy orders the current documents by a field. Tie ordering is
	// whatever the engine provides; it is not part of this contract.
	SortBy(field string, descending bool) Source

	// Limit caps the current document count at n.
	Limit(n int) Source

	// Skip drops the first n current documents.
	Skip(n int) Source

	// Data materializes the current documents as detached copies with
	// internal metadata stripped. A handle bound to a dataset that does not
	// exist returns ErrNoResult, as opposed to an empty, present sequence.
	Data() ([]schema.Document, error)
}
