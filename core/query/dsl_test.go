package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparisonOperator_IsStandard(t *testing.T) {
	assert.True(t, ComparisonOperatorEq.IsStandard())
	assert.True(t, ComparisonOperatorNotContains.IsStandard())
	assert.True(t, ComparisonOperatorNotExists.IsStandard())
	assert.False(t, ComparisonOperator("isWeekend").IsStandard())
	assert.False(t, ComparisonOperator("").IsStandard())
}

func TestGetStandardComparisonOperators(t *testing.T) {
	ops := GetStandardComparisonOperators()
	assert.Len(t, ops, 14)
	assert.Contains(t, ops, ComparisonOperatorEq)
	assert.Contains(t, ops, ComparisonOperatorStartsWith)
	assert.NotContains(t, ops, ComparisonOperator("like"))
}

func TestNewMatchQuery(t *testing.T) {
	q := NewMatchQuery("title", "gossamer yers")

	assert.Nil(t, q.Bool)
	assert.NotNil(t, q.Match)
	assert.Equal(t, "title", q.Match.Field)
	assert.Equal(t, "gossamer yers", q.Match.Value)
	assert.Equal(t, DefaultFuzziness, q.Match.Fuzziness)
	assert.Equal(t, DefaultPrefixLength, q.Match.PrefixLength)
	assert.True(t, q.Match.Extended)
	assert.Equal(t, DefaultMinimumShouldMatch, q.Match.MinimumShouldMatch)
	assert.Empty(t, q.Match.Operator)
}

func TestNewBoolQuery(t *testing.T) {
	q := NewBoolQuery([]string{"title", "body"}, "threads")

	assert.Nil(t, q.Match)
	assert.NotNil(t, q.Bool)
	assert.Equal(t, 1, q.Bool.MinimumShouldMatch)
	assert.Len(t, q.Bool.Should, 2)

	fields := []string{}
	for _, clause := range q.Bool.Should {
		assert.NotNil(t, clause.Match)
		fields = append(fields, clause.Match.Field)
		assert.Equal(t, "threads", clause.Match.Value)
		assert.Equal(t, LogicalOperatorAnd, clause.Match.Operator)
		assert.Equal(t, DefaultFuzziness, clause.Match.Fuzziness)
		assert.Equal(t, DefaultPrefixLength, clause.Match.PrefixLength)
		assert.True(t, clause.Match.Extended)
		assert.Equal(t, DefaultMinimumShouldMatch, clause.Match.MinimumShouldMatch)
	}
	// Clause order follows field order.
	assert.Equal(t, []string{"title", "body"}, fields)
}

func TestNewBoolQuery_NoFields(t *testing.T) {
	q := NewBoolQuery(nil, "threads")
	assert.NotNil(t, q.Bool)
	assert.Empty(t, q.Bool.Should)
}
