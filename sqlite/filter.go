package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
)

// quoteIdentifier quotes a table or column name for SQLite.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// whereClause recursively translates a query filter into a SQL condition,
// appending bind values to params. Only standard comparison operators and
// and/or/not groups translate; anything else returns an error so the
// caller can fall back to filtering in memory.
func whereClause(def *schema.CollectionDefinition, filter *query.QueryFilter, params *[]any) (string, error) {
	if filter.Condition != nil {
		return conditionSQL(def, filter.Condition, params)
	}
	if filter.Group != nil {
		return groupSQL(def, filter.Group, params)
	}
	return "", fmt.Errorf("filter has neither a condition nor a group")
}

// groupSQL joins the member clauses of a filter group. A not group matches
// rows where none of its members match, so it negates the disjunction.
func groupSQL(def *schema.CollectionDefinition, group *query.FilterGroup, params *[]any) (string, error) {
	clauses := make([]string, 0, len(group.Conditions))
	for i := range group.Conditions {
		clause, err := whereClause(def, &group.Conditions[i], params)
		if err != nil {
			return "", err
		}
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	switch group.Operator {
	case schema.LogicalAnd:
		return "(" + strings.Join(clauses, " AND ") + ")", nil
	case schema.LogicalOr:
		return "(" + strings.Join(clauses, " OR ") + ")", nil
	case schema.LogicalNot:
		return "NOT (" + strings.Join(clauses, " OR ") + ")", nil
	default:
		return "", fmt.Errorf("logical operator %q cannot be pushed down to SQL", group.Operator)
	}
}

// conditionSQL translates one comparison into a parameterized clause.
func conditionSQL(def *schema.CollectionDefinition, cond *query.FilterCondition, params *[]any) (string, error) {
	if cond.Field == "" {
		return "", fmt.Errorf("filter condition has no field")
	}
	column := quoteIdentifier(cond.Field)
	field := def.FindField(cond.Field)

	switch cond.Operator {
	case query.ComparisonOperatorEq:
		if cond.Value == nil {
			return column + " IS NULL", nil
		}
		return comparison(column, "=", field, cond, params)
	case query.ComparisonOperatorNeq:
		if cond.Value == nil {
			return column + " IS NOT NULL", nil
		}
		return comparison(column, "!=", field, cond, params)
	case query.ComparisonOperatorLt:
		return comparison(column, "<", field, cond, params)
	case query.ComparisonOperatorLte:
		return comparison(column, "<=", field, cond, params)
	case query.ComparisonOperatorGt:
		return comparison(column, ">", field, cond, params)
	case query.ComparisonOperatorGte:
		return comparison(column, ">=", field, cond, params)
	case query.ComparisonOperatorIn, query.ComparisonOperatorNin:
		values, err := listValues(field, cond.Field, cond.Value)
		if err != nil {
			return "", err
		}
		if len(values) == 0 {
			// IN over an empty list matches nothing, NOT IN matches everything.
			if cond.Operator == query.ComparisonOperatorIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		op := "IN"
		if cond.Operator == query.ComparisonOperatorNin {
			op = "NOT IN"
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
		*params = append(*params, values...)
		return fmt.Sprintf("%s %s (%s)", column, op, placeholders), nil
	case query.ComparisonOperatorContains:
		*params = append(*params, "%"+likePattern(cond.Value)+"%")
		return column + likeClause, nil
	case query.ComparisonOperatorNotContains:
		*params = append(*params, "%"+likePattern(cond.Value)+"%")
		return column + notLikeClause, nil
	case query.ComparisonOperatorStartsWith:
		*params = append(*params, likePattern(cond.Value)+"%")
		return column + likeClause, nil
	case query.ComparisonOperatorEndsWith:
		*params = append(*params, "%"+likePattern(cond.Value))
		return column + likeClause, nil
	case query.ComparisonOperatorExists:
		return column + " IS NOT NULL", nil
	case query.ComparisonOperatorNotExists:
		return column + " IS NULL", nil
	default:
		return "", fmt.Errorf("operator %q cannot be pushed down to SQL", cond.Operator)
	}
}

const (
	likeClause    = ` LIKE ? ESCAPE '\'`
	notLikeClause = ` NOT LIKE ? ESCAPE '\'`
)

func comparison(column, op string, field *schema.FieldDefinition, cond *query.FilterCondition, params *[]any) (string, error) {
	value, err := bindValue(field, cond.Field, cond.Value)
	if err != nil {
		return "", err
	}
	*params = append(*params, value)
	return column + " " + op + " ?", nil
}

// likePattern renders a literal for use inside a LIKE pattern, escaping
// the wildcard characters so the match stays a substring match.
func likePattern(value any) string {
	s := fmt.Sprintf("%v", value)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// bindValue converts a filter value into the shape SQLite stores for the
// declared field type: booleans become integers and structured values
// become JSON text. Undeclared fields bind as given.
func bindValue(field *schema.FieldDefinition, name string, value any) (any, error) {
	if field == nil || value == nil {
		return value, nil
	}
	switch field.Type {
	case schema.FieldTypeBoolean:
		switch v := value.(type) {
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case int, int64, float64:
			return v, nil
		}
		return nil, fmt.Errorf("field %q is boolean, got %T", name, value)
	case schema.FieldTypeArray, schema.FieldTypeObject, schema.FieldTypeRecord:
		buf, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("serializing value for field %q: %w", name, err)
		}
		return string(buf), nil
	default:
		return value, nil
	}
}

// listValues normalizes the value of an in or nin condition into bind
// values. It accepts the same list shapes the in-memory evaluator does;
// a bare scalar is treated as a single-element list.
func listValues(field *schema.FieldDefinition, name string, value any) ([]any, error) {
	var raw []any
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		raw = v
	case []query.FilterValue:
		raw = make([]any, len(v))
		for i, item := range v {
			raw[i] = item
		}
	case []string:
		raw = make([]any, len(v))
		for i, item := range v {
			raw[i] = item
		}
	case []int:
		raw = make([]any, len(v))
		for i, item := range v {
			raw[i] = item
		}
	case []float64:
		raw = make([]any, len(v))
		for i, item := range v {
			raw[i] = item
		}
	default:
		raw = []any{value}
	}
	values := make([]any, 0, len(raw))
	for _, item := range raw {
		bound, err := bindValue(field, name, item)
		if err != nil {
			return nil, err
		}
		values = append(values, bound)
	}
	return values, nil
}
