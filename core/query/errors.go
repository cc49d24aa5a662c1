package query

import (
	"errors"
	"fmt"
)

// ErrNoResult is returned by Source.Data when the underlying dataset does
// not exist at all, as opposed to existing and matching zero documents.
// Engines return it (possibly wrapped); the builder converts it into a
// NotFoundError carrying the query path.
var ErrNoResult = errors.New("query produced no result set")

// NotFoundError reports a fetch against a dataset that yielded no result
// container. The Path identifies the dataset for diagnostics.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Path)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError reports a precondition failure detected while assembling
// a query: a bare-string search without configured search fields, a
// negative limit or skip, or an invalid window size. The builder records
// the first such error and surfaces it at Fetch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}
