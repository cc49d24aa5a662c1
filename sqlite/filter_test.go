package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
)

func articlesDefinition() *schema.CollectionDefinition {
	return &schema.CollectionDefinition{
		Name: "articles",
		Fields: map[string]*schema.FieldDefinition{
			"slug":      {Name: "slug", Type: schema.FieldTypeString},
			"title":     {Name: "title", Type: schema.FieldTypeString},
			"published": {Name: "published", Type: schema.FieldTypeBoolean},
			"views":     {Name: "views", Type: schema.FieldTypeInteger},
			"score":     {Name: "score", Type: schema.FieldTypeNumber},
			"tags":      {Name: "tags", Type: schema.FieldTypeArray},
		},
	}
}

func TestWhereClauseConditions(t *testing.T) {
	def := articlesDefinition()
	cases := []struct {
		name   string
		filter query.QueryFilter
		sql    string
		params []any
	}{
		{
			"eq",
			query.CreateSimpleFilter("slug", query.ComparisonOperatorEq, "intro"),
			`"slug" = ?`,
			[]any{"intro"},
		},
		{
			"eq nil is IS NULL",
			query.CreateSimpleFilter("title", query.ComparisonOperatorEq, nil),
			`"title" IS NULL`,
			nil,
		},
		{
			"neq",
			query.CreateSimpleFilter("views", query.ComparisonOperatorNeq, 10),
			`"views" != ?`,
			[]any{10},
		},
		{
			"neq nil is IS NOT NULL",
			query.CreateSimpleFilter("title", query.ComparisonOperatorNeq, nil),
			`"title" IS NOT NULL`,
			nil,
		},
		{
			"lt",
			query.CreateSimpleFilter("views", query.ComparisonOperatorLt, 5),
			`"views" < ?`,
			[]any{5},
		},
		{
			"lte",
			query.CreateSimpleFilter("views", query.ComparisonOperatorLte, 5),
			`"views" <= ?`,
			[]any{5},
		},
		{
			"gt",
			query.CreateSimpleFilter("score", query.ComparisonOperatorGt, 4.5),
			`"score" > ?`,
			[]any{4.5},
		},
		{
			"gte",
			query.CreateSimpleFilter("score", query.ComparisonOperatorGte, 4.5),
			`"score" >= ?`,
			[]any{4.5},
		},
		{
			"boolean binds as integer",
			query.CreateSimpleFilter("published", query.ComparisonOperatorEq, true),
			`"published" = ?`,
			[]any{int64(1)},
		},
		{
			"in",
			query.CreateSimpleFilter("slug", query.ComparisonOperatorIn, []any{"intro", "setup"}),
			`"slug" IN (?,?)`,
			[]any{"intro", "setup"},
		},
		{
			"nin",
			query.CreateSimpleFilter("slug", query.ComparisonOperatorNin, []string{"draft"}),
			`"slug" NOT IN (?)`,
			[]any{"draft"},
		},
		{
			"in over empty list matches nothing",
			query.CreateSimpleFilter("slug", query.ComparisonOperatorIn, []any{}),
			"1=0",
			nil,
		},
		{
			"nin over empty list matches everything",
			query.CreateSimpleFilter("slug", query.ComparisonOperatorNin, nil),
			"1=1",
			nil,
		},
		{
			"in with bare scalar",
			query.CreateSimpleFilter("views", query.ComparisonOperatorIn, 7),
			`"views" IN (?)`,
			[]any{7},
		},
		{
			"contains",
			query.CreateSimpleFilter("title", query.ComparisonOperatorContains, "guide"),
			`"title" LIKE ? ESCAPE '\'`,
			[]any{"%guide%"},
		},
		{
			"ncontains",
			query.CreateSimpleFilter("title", query.ComparisonOperatorNotContains, "draft"),
			`"title" NOT LIKE ? ESCAPE '\'`,
			[]any{"%draft%"},
		},
		{
			"startswith",
			query.CreateSimpleFilter("title", query.ComparisonOperatorStartsWith, "Get"),
			`"title" LIKE ? ESCAPE '\'`,
			[]any{"Get%"},
		},
		{
			"endswith",
			query.CreateSimpleFilter("title", query.ComparisonOperatorEndsWith, "Guide"),
			`"title" LIKE ? ESCAPE '\'`,
			[]any{"%Guide"},
		},
		{
			"contains escapes wildcards",
			query.CreateSimpleFilter("title", query.ComparisonOperatorContains, "50%_off"),
			`"title" LIKE ? ESCAPE '\'`,
			[]any{`%50\%\_off%`},
		},
		{
			"exists",
			query.CreateSimpleFilter("title", query.ComparisonOperatorExists, nil),
			`"title" IS NOT NULL`,
			nil,
		},
		{
			"nexists",
			query.CreateSimpleFilter("title", query.ComparisonOperatorNotExists, nil),
			`"title" IS NULL`,
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var params []any
			sql, err := whereClause(def, &tc.filter, &params)

			assert.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestWhereClauseGroups(t *testing.T) {
	def := articlesDefinition()
	published := query.CreateSimpleFilter("published", query.ComparisonOperatorEq, true)
	popular := query.CreateSimpleFilter("views", query.ComparisonOperatorGt, 100)

	cases := []struct {
		name   string
		filter query.QueryFilter
		sql    string
		params []any
	}{
		{
			"and",
			query.CreateFilterGroup(schema.LogicalAnd, published, popular),
			`("published" = ? AND "views" > ?)`,
			[]any{int64(1), 100},
		},
		{
			"or",
			query.CreateFilterGroup(schema.LogicalOr, published, popular),
			`("published" = ? OR "views" > ?)`,
			[]any{int64(1), 100},
		},
		{
			"not negates the disjunction",
			query.CreateFilterGroup(schema.LogicalNot, published, popular),
			`NOT ("published" = ? OR "views" > ?)`,
			[]any{int64(1), 100},
		},
		{
			"nested",
			query.CreateFilterGroup(schema.LogicalAnd,
				published,
				query.CreateFilterGroup(schema.LogicalOr,
					popular,
					query.CreateSimpleFilter("score", query.ComparisonOperatorGte, 4.0),
				),
			),
			`("published" = ? AND ("views" > ? OR "score" >= ?))`,
			[]any{int64(1), 100, 4.0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var params []any
			sql, err := whereClause(def, &tc.filter, &params)

			assert.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestWhereClauseRejects(t *testing.T) {
	def := articlesDefinition()
	published := query.CreateSimpleFilter("published", query.ComparisonOperatorEq, true)

	cases := []struct {
		name    string
		filter  query.QueryFilter
		message string
	}{
		{"empty filter", query.QueryFilter{}, "neither a condition nor a group"},
		{"empty field", query.CreateSimpleFilter("", query.ComparisonOperatorEq, 1), "no field"},
		{
			"custom operator",
			query.CreateSimpleFilter("views", "isPrime", nil),
			`operator "isPrime" cannot be pushed down`,
		},
		{
			"nor group",
			query.CreateFilterGroup(schema.LogicalNor, published),
			`logical operator "nor" cannot be pushed down`,
		},
		{
			"xor group",
			query.CreateFilterGroup(schema.LogicalXor, published),
			`logical operator "xor" cannot be pushed down`,
		},
		{
			"boolean field with string value",
			query.CreateSimpleFilter("published", query.ComparisonOperatorEq, "yes"),
			`field "published" is boolean`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var params []any
			_, err := whereClause(def, &tc.filter, &params)
			assert.ErrorContains(t, err, tc.message)
		})
	}
}

func TestBindValueStructured(t *testing.T) {
	def := articlesDefinition()

	bound, err := bindValue(def.FindField("tags"), "tags", []any{"go", "db"})

	assert.NoError(t, err)
	assert.Equal(t, `["go","db"]`, bound, "structured values bind as JSON text")
}

func TestBindValueUndeclaredField(t *testing.T) {
	bound, err := bindValue(nil, "anything", 42)

	assert.NoError(t, err)
	assert.Equal(t, 42, bound)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"articles"`, quoteIdentifier("articles"))
	assert.Equal(t, `"odd""name"`, quoteIdentifier(`odd"name`))
}
