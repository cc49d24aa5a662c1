// Fluent query construction over a collection handle. A builder narrows its
// handle eagerly with each chained call and defers result shaping to a
// postprocess pipeline evaluated at fetch time.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/asaidimu/go-maktaba/core/schema"
	"go.uber.org/zap"
)

// textField is the raw-content field stripped from every fetch result.
const textField = "text"

// BuilderOptions configures a QueryBuilder at construction.
type BuilderOptions struct {
	// FullTextSearchFields are the fields a bare-string Search queries.
	// Order is preserved as clause order.
	FullTextSearchFields []string
	// SlugField names the windowing lookup field. Empty means
	// schema.DefaultSlugField.
	SlugField string
	// Postprocess are initial pipeline steps, run after the text-strip
	// step and before any steps attached through chaining.
	Postprocess []PostprocessStep
	// Logger defaults to a no-op logger when nil.
	Logger *zap.Logger
}

// SurroundOptions sizes the neighbor window. A nil options value defaults
// both sides to 1; a non-nil value is used verbatim, so explicit zeroes are
// honored.
type SurroundOptions struct {
	Before int
	After  int
}

// QueryBuilder assembles a query against a single dataset through chained
// calls, then executes it with Fetch. Every chainable method mutates the
// builder and returns the same instance. A builder is single-owner and
// single-use: it is not safe for concurrent use, and chaining after Fetch
// is not meaningful.
//
// Precondition failures (a bare-string search without configured fields, a
// negative limit) are recorded as a sticky error: the first one wins,
// later chained calls become no-ops, and Fetch returns it.
type QueryBuilder struct {
	source       Source
	path         string
	selectedKeys []string
	steps        []PostprocessStep
	searchFields []string
	slugField    string
	surrounded   bool
	err          error
	logger       *zap.Logger
}

// NewQueryBuilder creates a builder over source. The path identifies the
// dataset in error messages only. A nil source denotes a dataset that does
// not exist; Fetch on such a builder reports NotFound. Construction
// registers the text-strip step as the first pipeline step, ahead of any
// initial steps from opts.
func NewQueryBuilder(source Source, path string, opts *BuilderOptions) *QueryBuilder {
	if opts == nil {
		opts = &BuilderOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	slugField := opts.SlugField
	if slugField == "" {
		slugField = schema.DefaultSlugField
	}

	steps := make([]PostprocessStep, 0, len(opts.Postprocess)+1)
	steps = append(steps, StripFieldStep{Field: textField})
	steps = append(steps, opts.Postprocess...)

	return &QueryBuilder{
		source:       source,
		path:         path,
		steps:        steps,
		searchFields: slices.Clone(opts.FullTextSearchFields),
		slugField:    slugField,
		logger:       logger,
	}
}

// Path returns the dataset identifier the builder was created with.
func (qb *QueryBuilder) Path() string {
	return qb.path
}

// Err returns the sticky precondition error, if any, without executing the
// query.
func (qb *QueryBuilder) Err() error {
	return qb.err
}

func (qb *QueryBuilder) fail(field, message string) *QueryBuilder {
	if qb.err == nil {
		qb.err = &ValidationError{Field: field, Message: message}
		qb.logger.Warn("Query precondition failed",
			zap.String("path", qb.path),
			zap.String("field", field),
			zap.String("message", message))
	}
	return qb
}

// Where narrows the query with a structured filter. Multiple calls compose
// as a logical AND, each further narrowing the already-narrowed handle.
func (qb *QueryBuilder) Where(filter QueryFilter) *QueryBuilder {
	if qb.err != nil || qb.source == nil {
		return qb
	}
	source, err := qb.source.Find(&filter)
	if err != nil {
		qb.err = err
		return qb
	}
	qb.source = source
	return qb
}

// WhereField begins a fluent filter condition for a single field.
func (qb *QueryBuilder) WhereField(field string) *FilterConditionBuilder {
	return &FilterConditionBuilder{builder: qb, field: field}
}

// SortBy orders results by a field. The direction SortDirectionDesc sorts
// descending; any other value, including the empty string, sorts ascending.
// Ordering between equal keys is inherited from the engine, not guaranteed
// here.
func (qb *QueryBuilder) SortBy(field string, direction SortDirection) *QueryBuilder {
	if qb.err != nil || qb.source == nil {
		return qb
	}
	qb.source = qb.source.SortBy(field, direction == SortDirectionDesc)
	return qb
}

// SortByAsc orders results by a field in ascending order.
func (qb *QueryBuilder) SortByAsc(field string) *QueryBuilder {
	return qb.SortBy(field, SortDirectionAsc)
}

// SortByDesc orders results by a field in descending order.
func (qb *QueryBuilder) SortByDesc(field string) *QueryBuilder {
	return qb.SortBy(field, SortDirectionDesc)
}

// Only restricts fetched documents to the given keys. Calling Only again
// replaces the previous selection entirely; the last call wins. When a
// surround window is attached, the slug field joins the selection so the
// window lookup stays possible.
func (qb *QueryBuilder) Only(keys ...string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	selected := slices.Clone(keys)
	if selected == nil {
		selected = []string{}
	}
	if qb.surrounded && !slices.Contains(selected, qb.slugField) {
		selected = append(selected, qb.slugField)
	}
	qb.selectedKeys = selected
	return qb
}

// Search queries every configured full-text search field with the given
// text: one match clause per field requiring all tokens within that field,
// any single matching field sufficing. Configuring FullTextSearchFields is
// a precondition; without them the builder records a validation error.
func (qb *QueryBuilder) Search(text string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if len(qb.searchFields) == 0 {
		return qb.fail("search", "no full-text search fields configured for bare-string search")
	}
	return qb.narrowSearch(NewBoolQuery(qb.searchFields, text))
}

// SearchField queries a single field with the default lenient match:
// fuzziness 1, prefix length 1, extended matching, minimum-should-match 1.
func (qb *QueryBuilder) SearchField(field, text string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if field == "" {
		return qb.fail("search", "search field must not be empty")
	}
	return qb.narrowSearch(NewMatchQuery(field, text))
}

// SearchRaw passes a structured full-text query through to the engine
// verbatim.
func (qb *QueryBuilder) SearchRaw(search *SearchQuery) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if search == nil {
		return qb.fail("search", "search query must not be nil")
	}
	return qb.narrowSearch(search)
}

func (qb *QueryBuilder) narrowSearch(search *SearchQuery) *QueryBuilder {
	if qb.source == nil {
		return qb
	}
	source, err := qb.source.Search(search)
	if err != nil {
		qb.err = err
		return qb
	}
	qb.source = source
	return qb
}

// Surround replaces the result set with a fixed-size window of the
// neighbors around the document whose slug equals the given value,
// excluding that document itself. The window is evaluated as a postprocess
// step over the ordered, filtered, materialized results, so any step
// attached after it operates on the window. If the slug is not found the
// window is all nils. An active Only selection implicitly gains the slug
// field.
func (qb *QueryBuilder) Surround(slug string, opts *SurroundOptions) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	before, after := 1, 1
	if opts != nil {
		before, after = opts.Before, opts.After
	}
	if before < 0 || after < 0 {
		return qb.fail("surround", fmt.Sprintf("window sizes must not be negative, got before=%d after=%d", before, after))
	}

	qb.surrounded = true
	if qb.selectedKeys != nil && !slices.Contains(qb.selectedKeys, qb.slugField) {
		qb.selectedKeys = append(qb.selectedKeys, qb.slugField)
	}
	qb.steps = append(qb.steps, WindowStep{
		Slug:   slug,
		Before: before,
		After:  after,
		Field:  qb.slugField,
	})
	return qb
}

// Limit caps the number of results at n. Negative values are a
// precondition failure; callers holding numeric strings parse them before
// calling.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	if qb.err != nil || qb.source == nil {
		return qb
	}
	if n < 0 {
		return qb.fail("limit", fmt.Sprintf("limit must not be negative, got %d", n))
	}
	qb.source = qb.source.Limit(n)
	return qb
}

// Skip drops the first n results. Negative values are a precondition
// failure.
func (qb *QueryBuilder) Skip(n int) *QueryBuilder {
	if qb.err != nil || qb.source == nil {
		return qb
	}
	if n < 0 {
		return qb.fail("skip", fmt.Sprintf("skip must not be negative, got %d", n))
	}
	qb.source = qb.source.Skip(n)
	return qb
}

// Postprocess appends shaping steps to the pipeline. Steps run in the
// order attached, after the text-strip step and any active projection.
func (qb *QueryBuilder) Postprocess(steps ...PostprocessStep) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	qb.steps = append(qb.steps, steps...)
	return qb
}

// pipeline returns the final step order: the text-strip step registered at
// construction, then the projection when Only is active, then everything
// else in attachment order.
func (qb *QueryBuilder) pipeline() []PostprocessStep {
	if qb.selectedKeys == nil {
		return qb.steps
	}
	projection := ProjectStep{Keys: qb.selectedKeys}
	final := make([]PostprocessStep, 0, len(qb.steps)+1)
	if len(qb.steps) > 0 {
		final = append(final, qb.steps[0], PostprocessStep(projection))
		final = append(final, qb.steps[1:]...)
	} else {
		final = append(final, projection)
	}
	return final
}

// Fetch executes the query: it materializes the narrowed handle, runs the
// postprocess pipeline over the detached results, and returns the shaped
// sequence. A sticky precondition error is returned without touching the
// engine. A dataset that does not exist at all — as opposed to one
// matching zero documents — yields a NotFoundError carrying the builder's
// path. Engine errors propagate unmodified.
func (qb *QueryBuilder) Fetch(ctx context.Context) ([]schema.Document, error) {
	if qb.err != nil {
		return nil, qb.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if qb.source == nil {
		return nil, &NotFoundError{Path: qb.path}
	}

	data, err := qb.source.Data()
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			return nil, &NotFoundError{Path: qb.path}
		}
		return nil, err
	}

	steps := qb.pipeline()
	qb.logger.Debug("Executing fetch",
		zap.String("path", qb.path),
		zap.Int("documents", len(data)),
		zap.Int("steps", len(steps)))
	return ApplySteps(steps, data), nil
}

// String returns a human-readable summary of the assembled query.
func (qb *QueryBuilder) String() string {
	parts := []string{fmt.Sprintf("path=%s", qb.path)}
	if qb.selectedKeys != nil {
		parts = append(parts, fmt.Sprintf("only=[%s]", strings.Join(qb.selectedKeys, ",")))
	}
	if qb.surrounded {
		parts = append(parts, "surrounded")
	}
	parts = append(parts, fmt.Sprintf("steps=%d", len(qb.steps)))
	if qb.err != nil {
		parts = append(parts, fmt.Sprintf("err=%v", qb.err))
	}
	return strings.Join(parts, " | ")
}

// FilterConditionBuilder is used to build a single filter condition
// (e.g., field = value) against its parent builder.
type FilterConditionBuilder struct {
	builder *QueryBuilder
	field   string
}

func (fcb *FilterConditionBuilder) addCondition(operator ComparisonOperator, value FilterValue) *QueryBuilder {
	return fcb.builder.Where(CreateSimpleFilter(fcb.field, operator, value))
}

// Eq adds an equality condition to the query.
func (fcb *FilterConditionBuilder) Eq(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorEq, value)
}

// Neq adds a not-equal condition to the query.
func (fcb *FilterConditionBuilder) Neq(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNeq, value)
}

// Lt adds a less-than condition to the query.
func (fcb *FilterConditionBuilder) Lt(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorLt, value)
}

// Lte adds a less-than-or-equal condition to the query.
func (fcb *FilterConditionBuilder) Lte(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorLte, value)
}

// Gt adds a greater-than condition to the query.
func (fcb *FilterConditionBuilder) Gt(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorGt, value)
}

// Gte adds a greater-than-or-equal condition to the query.
func (fcb *FilterConditionBuilder) Gte(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorGte, value)
}

// In adds an "in" condition, checking if a field's value is within a set of values.
func (fcb *FilterConditionBuilder) In(values ...FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorIn, values)
}

// Nin adds a "not in" condition, checking if a field's value is not within a set of values.
func (fcb *FilterConditionBuilder) Nin(values ...FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNin, values)
}

// Contains adds a condition to check if a string field contains a substring,
// or an array field contains an element.
func (fcb *FilterConditionBuilder) Contains(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorContains, value)
}

// NotContains adds the negation of Contains.
func (fcb *FilterConditionBuilder) NotContains(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNotContains, value)
}

// StartsWith adds a condition to check if a string field starts with a prefix.
func (fcb *FilterConditionBuilder) StartsWith(value string) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorStartsWith, value)
}

// EndsWith adds a condition to check if a string field ends with a suffix.
func (fcb *FilterConditionBuilder) EndsWith(value string) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorEndsWith, value)
}

// Exists adds a condition checking that the field is present.
func (fcb *FilterConditionBuilder) Exists() *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorExists, nil)
}

// NotExists adds a condition checking that the field is absent.
func (fcb *FilterConditionBuilder) NotExists() *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNotExists, nil)
}

// Custom adds a condition with a non-standard operator, evaluated by a
// predicate function registered with the engine's DataProcessor.
func (fcb *FilterConditionBuilder) Custom(operator ComparisonOperator, value FilterValue) *QueryBuilder {
	return fcb.addCondition(operator, value)
}

// CreateSimpleFilter is a helper function to create a single-condition filter.
func CreateSimpleFilter(field string, operator ComparisonOperator, value FilterValue) QueryFilter {
	return QueryFilter{
		Condition: &FilterCondition{
			Field:    field,
			Operator: operator,
			Value:    value,
		},
	}
}

// CreateFilterGroup is a helper function to create a filter group.
func CreateFilterGroup(operator schema.LogicalOperator, conditions ...QueryFilter) QueryFilter {
	return QueryFilter{
		Group: &FilterGroup{
			Operator:   operator,
			Conditions: conditions,
		},
	}
}
