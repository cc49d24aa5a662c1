package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/asaidimu/go-maktaba/core/schema"
	"go.uber.org/zap"
)

// PredicateFunction is a pure Go function that performs custom filtering
// logic on a document. It returns true if the document passes the filter,
// false otherwise, and an error if evaluation fails.
type PredicateFunction func(doc schema.Document, field string, args FilterValue) (bool, error)

// DataProcessor evaluates structured filters against in-memory documents.
// Standard comparison operators are built in; non-standard operators
// dispatch to registered predicate functions.
type DataProcessor struct {
	goFilterFunctions map[ComparisonOperator]PredicateFunction
	mu                sync.RWMutex
	logger            *zap.Logger
}

// NewDataProcessor creates a new DataProcessor instance.
func NewDataProcessor(logger *zap.Logger) *DataProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataProcessor{
		goFilterFunctions: make(map[ComparisonOperator]PredicateFunction),
		logger:            logger,
	}
}

// RegisterFilterFunction registers a Go function for custom filtering.
func (p *DataProcessor) RegisterFilterFunction(operator ComparisonOperator, fn PredicateFunction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goFilterFunctions[operator] = fn
	p.logger.Debug("Registered filter function", zap.String("operator", string(operator)))
}

// RegisterFilterFunctions registers multiple predicate functions from a map.
func (p *DataProcessor) RegisterFilterFunctions(functionMap map[ComparisonOperator]PredicateFunction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for operator, fn := range functionMap {
		p.goFilterFunctions[operator] = fn
		p.logger.Debug("Registered filter function", zap.String("operator", string(operator)))
	}
}

// Filter returns the documents matching the filter, preserving input order.
// A nil filter matches everything.
func (p *DataProcessor) Filter(ctx context.Context, docs []schema.Document, filter *QueryFilter) ([]schema.Document, error) {
	if filter == nil {
		return docs, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	filtered := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		passes, err := p.evaluate(doc, filter)
		if err != nil {
			return nil, fmt.Errorf("filter evaluation failed: %w", err)
		}
		if passes {
			filtered = append(filtered, doc)
		}
	}
	p.logger.Debug("Documents remaining after filter", zap.Int("count", len(filtered)))
	return filtered, nil
}

// Match evaluates a single document against a filter. A nil filter matches.
func (p *DataProcessor) Match(ctx context.Context, filter *QueryFilter, doc schema.Document) (bool, error) {
	if filter == nil {
		return true, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.evaluate(doc, filter)
}

// evaluate recursively evaluates a QueryFilter against one document.
func (p *DataProcessor) evaluate(doc schema.Document, filter *QueryFilter) (bool, error) {
	if filter.Condition != nil {
		if !filter.Condition.Operator.IsStandard() {
			fn, ok := p.goFilterFunctions[filter.Condition.Operator]
			if !ok {
				return false, fmt.Errorf("unregistered filter function for operator: %s", filter.Condition.Operator)
			}
			return fn(doc, filter.Condition.Field, filter.Condition.Value)
		}
		return evaluateStandardCondition(doc, filter.Condition)
	}

	if filter.Group != nil {
		return p.evaluateGroup(doc, filter.Group)
	}

	return false, fmt.Errorf("empty or invalid filter structure")
}

func (p *DataProcessor) evaluateGroup(doc schema.Document, group *FilterGroup) (bool, error) {
	switch group.Operator {
	case schema.LogicalAnd:
		for _, cond := range group.Conditions {
			passes, err := p.evaluate(doc, &cond)
			if err != nil || !passes {
				return false, err
			}
		}
		return true, nil
	case schema.LogicalOr:
		for _, cond := range group.Conditions {
			passes, err := p.evaluate(doc, &cond)
			if err != nil {
				return false, err
			}
			if passes {
				return true, nil
			}
		}
		return false, nil
	case schema.LogicalNot:
		for _, cond := range group.Conditions {
			passes, err := p.evaluate(doc, &cond)
			if err != nil {
				return false, err
			}
			if passes {
				return false, nil
			}
		}
		return true, nil
	case schema.LogicalNor:
		for _, cond := range group.Conditions {
			passes, err := p.evaluate(doc, &cond)
			if err != nil {
				return false, err
			}
			if passes {
				return false, nil
			}
		}
		return true, nil
	case schema.LogicalXor:
		matched := 0
		for _, cond := range group.Conditions {
			passes, err := p.evaluate(doc, &cond)
			if err != nil {
				return false, err
			}
			if passes {
				matched++
			}
		}
		return matched == 1, nil
	default:
		return false, fmt.Errorf("unsupported logical operator: %s", group.Operator)
	}
}

// evaluateStandardCondition performs the in-memory evaluation for standard
// comparison operators. Absent fields fail every operator except the
// negative ones (neq, nin, nexists), which they satisfy.
func evaluateStandardCondition(doc schema.Document, condition *FilterCondition) (bool, error) {
	fieldValue, present := doc[condition.Field]

	switch condition.Operator {
	case ComparisonOperatorExists:
		return present, nil
	case ComparisonOperatorNotExists:
		return !present, nil
	}

	if !present {
		switch condition.Operator {
		case ComparisonOperatorNeq, ComparisonOperatorNin:
			return true, nil
		}
		return false, nil
	}

	switch condition.Operator {
	case ComparisonOperatorEq:
		return valuesEqual(fieldValue, condition.Value), nil
	case ComparisonOperatorNeq:
		return !valuesEqual(fieldValue, condition.Value), nil
	case ComparisonOperatorGt, ComparisonOperatorGte, ComparisonOperatorLt, ComparisonOperatorLte:
		cmp, ok := CompareValues(fieldValue, condition.Value)
		if !ok {
			return false, fmt.Errorf("unsupported types for %s comparison: %T and %T", condition.Operator, fieldValue, condition.Value)
		}
		switch condition.Operator {
		case ComparisonOperatorGt:
			return cmp > 0, nil
		case ComparisonOperatorGte:
			return cmp >= 0, nil
		case ComparisonOperatorLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case ComparisonOperatorIn:
		return valueInList(fieldValue, condition.Value), nil
	case ComparisonOperatorNin:
		return !valueInList(fieldValue, condition.Value), nil
	case ComparisonOperatorContains:
		return valueContains(fieldValue, condition.Value), nil
	case ComparisonOperatorNotContains:
		return !valueContains(fieldValue, condition.Value), nil
	case ComparisonOperatorStartsWith:
		s, ok1 := fieldValue.(string)
		prefix, ok2 := condition.Value.(string)
		return ok1 && ok2 && strings.HasPrefix(s, prefix), nil
	case ComparisonOperatorEndsWith:
		s, ok1 := fieldValue.(string)
		suffix, ok2 := condition.Value.(string)
		return ok1 && ok2 && strings.HasSuffix(s, suffix), nil
	default:
		return false, fmt.Errorf("unsupported standard comparison operator: %s", condition.Operator)
	}
}

// valueInList reports whether value equals any element of list. The list may
// be []any or a typed slice of strings, ints, or float64s.
func valueInList(value any, list FilterValue) bool {
	switch l := list.(type) {
	case []any:
		for _, item := range l {
			if valuesEqual(value, item) {
				return true
			}
		}
	case []FilterValue:
		for _, item := range l {
			if valuesEqual(value, item) {
				return true
			}
		}
	case []string:
		for _, item := range l {
			if valuesEqual(value, item) {
				return true
			}
		}
	case []int:
		for _, item := range l {
			if valuesEqual(value, item) {
				return true
			}
		}
	case []float64:
		for _, item := range l {
			if valuesEqual(value, item) {
				return true
			}
		}
	}
	return false
}

// valueContains handles substring matching for strings and membership for
// array-valued fields.
func valueContains(fieldValue any, needle FilterValue) bool {
	switch fv := fieldValue.(type) {
	case string:
		substring, ok := needle.(string)
		return ok && strings.Contains(fv, substring)
	case []any:
		for _, item := range fv {
			if valuesEqual(item, needle) {
				return true
			}
		}
	case []string:
		for _, item := range fv {
			if valuesEqual(item, needle) {
				return true
			}
		}
	}
	return false
}
