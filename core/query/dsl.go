// Package query provides a fluent, chainable API for querying document
// collections: structured filters, sorting, field projection, full-text
// search, neighbor windowing, and a deferred postprocess pipeline evaluated
// at fetch time.
package query

import (
	"github.com/asaidimu/go-maktaba/core/schema"
)

// Logical operators for combining filter conditions.
const (
	LogicalOperatorAnd schema.LogicalOperator = "and"
	LogicalOperatorOr  schema.LogicalOperator = "or"
	LogicalOperatorNot schema.LogicalOperator = "not"
	LogicalOperatorNor schema.LogicalOperator = "nor"
	LogicalOperatorXor schema.LogicalOperator = "xor"
)

// ComparisonOperator defines the set of operators that can be used in a filter condition.
type ComparisonOperator string

// Supported comparison operators.
const (
	ComparisonOperatorEq          ComparisonOperator = "eq"
	ComparisonOperatorNeq         ComparisonOperator = "neq"
	ComparisonOperatorLt          ComparisonOperator = "lt"
	ComparisonOperatorLte         ComparisonOperator = "lte"
	ComparisonOperatorGt          ComparisonOperator = "gt"
	ComparisonOperatorGte         ComparisonOperator = "gte"
	ComparisonOperatorIn          ComparisonOperator = "in"
	ComparisonOperatorNin         ComparisonOperator = "nin"
	ComparisonOperatorContains    ComparisonOperator = "contains"
	ComparisonOperatorNotContains ComparisonOperator = "ncontains"
	ComparisonOperatorStartsWith  ComparisonOperator = "startswith"
	ComparisonOperatorEndsWith    ComparisonOperator = "endswith"
	ComparisonOperatorExists      ComparisonOperator = "exists"
	ComparisonOperatorNotExists   ComparisonOperator = "nexists"
)

// FilterValue represents the value used in a filter condition. It can be of any type,
// allowing for flexible query construction.
type FilterValue any

// FilterCondition defines a single condition for filtering the results of a query.
type FilterCondition struct {
	Field    string             // The field to apply the filter on.
	Operator ComparisonOperator // The comparison operator to use.
	Value    FilterValue        // The value to compare against.
}

// FilterGroup combines multiple filter conditions using a logical operator.
// This allows for the construction of complex, nested filter logic.
type FilterGroup struct {
	Operator   schema.LogicalOperator // The logical operator (AND, OR, etc.) to combine the conditions.
	Conditions []QueryFilter          // The list of conditions or nested groups.
}

// QueryFilter is a union type that can represent either a single filter condition
// or a group of conditions.
type QueryFilter struct {
	Condition *FilterCondition `json:",omitempty"` // A single filter condition.
	Group     *FilterGroup     `json:",omitempty"` // A group of filter conditions.
}

// SortDirection specifies the direction for sorting.
type SortDirection string

// Supported sort directions. Any value other than SortDirectionDesc sorts
// ascending.
const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// SortConfiguration defines the sorting order for a specific field.
type SortConfiguration struct {
	Field     string        // The field to sort by.
	Direction SortDirection // The direction of the sort (ascending or descending).
}

// Full-text matching defaults used by the Search and SearchField entry
// points: tolerate edit-distance-1 typos, anchor the first character, and
// treat every token as a prefix.
const (
	DefaultFuzziness          = 1
	DefaultPrefixLength       = 1
	DefaultMinimumShouldMatch = 1
)

// MatchClause is a fuzzy full-text condition against a single field. All
// analyzed tokens of Value are matched within Field; Operator selects how
// per-token matches combine.
type MatchClause struct {
	// Field is the indexed field to match against.
	Field string
	// Value is the query text; it is analyzed into tokens.
	Value string
	// Operator combines per-token matches: "and" requires every token,
	// anything else requires at least MinimumShouldMatch tokens.
	Operator schema.LogicalOperator `json:",omitempty"`
	// Fuzziness is the tolerated Levenshtein distance per token.
	Fuzziness int
	// PrefixLength is the number of leading characters that must match
	// exactly before fuzziness applies.
	PrefixLength int
	// Extended additionally matches tokens as prefixes of indexed terms,
	// giving search-as-you-type behavior.
	Extended bool
	// MinimumShouldMatch is the per-clause token threshold when Operator
	// is not "and".
	MinimumShouldMatch int
}

// BoolClause combines several search queries; a document matches when at
// least MinimumShouldMatch of the Should members match it.
type BoolClause struct {
	Should             []SearchQuery
	MinimumShouldMatch int
}

// SearchQuery is a union type representing a full-text query: either a
// single match clause or a boolean combination.
type SearchQuery struct {
	Match *MatchClause `json:",omitempty"`
	Bool  *BoolClause  `json:",omitempty"`
}

// NewMatchQuery builds the default lenient match clause used by
// SearchField: fuzziness 1, prefix length 1, extended matching, and a
// minimum-should-match threshold of 1 over the tokens.
func NewMatchQuery(field, text string) *SearchQuery {
	return &SearchQuery{
		Match: &MatchClause{
			Field:              field,
			Value:              text,
			Fuzziness:          DefaultFuzziness,
			PrefixLength:       DefaultPrefixLength,
			Extended:           true,
			MinimumShouldMatch: DefaultMinimumShouldMatch,
		},
	}
}

// NewBoolQuery builds the disjunctive query used by bare-string Search: one
// match clause per listed field, each requiring all tokens within its field
// (operator "and"), combined with minimum-should-match 1 across the group.
func NewBoolQuery(fields []string, text string) *SearchQuery {
	should := make([]SearchQuery, 0, len(fields))
	for _, field := range fields {
		should = append(should, SearchQuery{
			Match: &MatchClause{
				Field:              field,
				Value:              text,
				Operator:           LogicalOperatorAnd,
				Fuzziness:          DefaultFuzziness,
				PrefixLength:       DefaultPrefixLength,
				Extended:           true,
				MinimumShouldMatch: DefaultMinimumShouldMatch,
			},
		})
	}
	return &SearchQuery{
		Bool: &BoolClause{
			Should:             should,
			MinimumShouldMatch: DefaultMinimumShouldMatch,
		},
	}
}

// standardComparisonOperators is a set of all the standard, built-in comparison operators.
var standardComparisonOperators = map[ComparisonOperator]struct{}{
	ComparisonOperatorEq:          {},
	ComparisonOperatorNeq:         {},
	ComparisonOperatorLt:          {},
	ComparisonOperatorLte:         {},
	ComparisonOperatorGt:          {},
	ComparisonOperatorGte:         {},
	ComparisonOperatorIn:          {},
	ComparisonOperatorNin:         {},
	ComparisonOperatorContains:    {},
	ComparisonOperatorNotContains: {},
	ComparisonOperatorStartsWith:  {},
	ComparisonOperatorEndsWith:    {},
	ComparisonOperatorExists:      {},
	ComparisonOperatorNotExists:   {},
}

// IsStandard checks if a comparison operator is one of the standard, built-in operators.
func (c ComparisonOperator) IsStandard() bool {
	_, ok := standardComparisonOperators[c]
	return ok
}

// GetStandardComparisonOperators returns a map of all standard comparison operators.
// This is useful for validation and for registering the standard operators.
func GetStandardComparisonOperators() map[ComparisonOperator]struct{} {
	return standardComparisonOperators
}
