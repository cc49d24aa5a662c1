package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
	"github.com/asaidimu/go-maktaba/core/store"
)

func TestParseWhere(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		field    string
		operator query.ComparisonOperator
		value    any
	}{
		{"string value", "title=eq:Introduction", "title", query.ComparisonOperatorEq, "Introduction"},
		{"integer value", "order=gt:3", "order", query.ComparisonOperatorGt, 3},
		{"float value", "score=lte:4.5", "score", query.ComparisonOperatorLte, 4.5},
		{"boolean value", "draft=neq:true", "draft", query.ComparisonOperatorNeq, true},
		{"exists takes no value", "author=exists", "author", query.ComparisonOperatorExists, nil},
		{"nexists takes no value", "author=nexists", "author", query.ComparisonOperatorNotExists, nil},
		{"in splits on commas", "tag=in:go,rust,2", "tag", query.ComparisonOperatorIn, []any{"go", "rust", 2}},
		{"nin splits on commas", "tag=nin:draft,hidden", "tag", query.ComparisonOperatorNin, []any{"draft", "hidden"}},
		{"value may contain colons", "at=gte:2024-01-02T15:04:05Z", "at", query.ComparisonOperatorGte, "2024-01-02T15:04:05Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := parseWhere(tc.raw)

			assert.NoError(t, err)
			if assert.NotNil(t, filter.Condition) {
				assert.Equal(t, tc.field, filter.Condition.Field)
				assert.Equal(t, tc.operator, filter.Condition.Operator)
				if tc.value == nil {
					assert.Nil(t, filter.Condition.Value)
				} else {
					assert.Equal(t, query.FilterValue(tc.value), filter.Condition.Value)
				}
			}
		})
	}
}

func TestParseWhereRejects(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		message string
	}{
		{"no separator", "title", "want field=op:value"},
		{"empty field", "=eq:x", "want field=op:value"},
		{"unknown operator", "title=matches:x", `unknown operator "matches"`},
		{"custom operator", "title=myCustomOp:x", `unknown operator "myCustomOp"`},
		{"missing value", "title=eq", "needs a value"},
		{"in without values", "tag=in", "needs comma-separated values"},
		{"in with empty value", "tag=in:", "needs comma-separated values"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseWhere(tc.raw)
			assert.ErrorContains(t, err, tc.message)
		})
	}
}

func TestTypedValue(t *testing.T) {
	cases := []struct {
		raw  string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", 42},
		{"-7", -7},
		{"3.5", 3.5},
		{"hello", "hello"},
		{"2024-01-02", "2024-01-02"},
		{"True", "True"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, typedValue(tc.raw))
		})
	}
}

func TestParseSort(t *testing.T) {
	cases := []struct {
		raw       string
		field     string
		direction query.SortDirection
	}{
		{"date", "date", query.SortDirection("")},
		{"date:desc", "date", query.SortDirectionDesc},
		{"date:asc", "date", query.SortDirectionAsc},
		{"date:upward", "date", query.SortDirection("upward")},
		{":desc", "", query.SortDirectionDesc},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			field, direction := parseSort(tc.raw)
			assert.Equal(t, tc.field, field)
			assert.Equal(t, tc.direction, direction)
		})
	}
}

func TestParseCount(t *testing.T) {
	n, err := parseCount("limit", "12")
	assert.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = parseCount("skip", " 3 ")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = parseCount("limit", "many")
	assert.ErrorContains(t, err, `invalid limit "many"`)

	_, err = parseCount("skip", "")
	assert.ErrorContains(t, err, "not an integer")
}

func TestParsePipeline(t *testing.T) {
	collection, spec, err := parsePipeline(
		"guides | where draft eq false | where author exists | search getting started" +
			" | sort date desc | only slug title | skip 2 | limit 5")

	assert.NoError(t, err)
	assert.Equal(t, "guides", collection)
	assert.Equal(t, []string{"draft=eq:false", "author=exists"}, spec.wheres)
	assert.Equal(t, "getting started", spec.search)
	assert.Equal(t, []string{"date:desc"}, spec.sorts)
	assert.Equal(t, []string{"slug", "title"}, spec.only)
	assert.Equal(t, "2", spec.skip)
	assert.Equal(t, "5", spec.limit)
}

func TestParsePipelineBareCollection(t *testing.T) {
	collection, spec, err := parsePipeline("  guides  ")

	assert.NoError(t, err)
	assert.Equal(t, "guides", collection)
	assert.Empty(t, spec.wheres)
	assert.Empty(t, spec.search)
}

func TestParsePipelineSurround(t *testing.T) {
	_, spec, err := parsePipeline("guides | surround intro")
	assert.NoError(t, err)
	assert.Equal(t, "intro", spec.surround)
	assert.Equal(t, 1, spec.before, "window sizes default to one")
	assert.Equal(t, 1, spec.after)

	_, spec, err = parsePipeline("guides | surround intro 2 3")
	assert.NoError(t, err)
	assert.Equal(t, "intro", spec.surround)
	assert.Equal(t, 2, spec.before)
	assert.Equal(t, 3, spec.after)
}

func TestParsePipelineSearchField(t *testing.T) {
	_, spec, err := parsePipeline("guides | search-field title getting started")

	assert.NoError(t, err)
	assert.Equal(t, "title=getting started", spec.searchField)
}

func TestParsePipelineRejects(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		message string
	}{
		{"empty line", "", "must start with a collection name"},
		{"multi-word collection", "my guides | limit 1", "must start with a collection name"},
		{"empty stage", "guides | | limit 1", "empty pipeline stage"},
		{"unknown stage", "guides | group author", `unknown pipeline stage "group"`},
		{"where too short", "guides | where draft", "where wants"},
		{"search without text", "guides | search", "search wants"},
		{"search-field without text", "guides | search-field title", "search-field wants"},
		{"sort too long", "guides | sort date desc extra", "sort wants"},
		{"only without fields", "guides | only", "only wants"},
		{"limit without count", "guides | limit", "limit wants"},
		{"skip with extra", "guides | skip 1 2", "skip wants"},
		{"surround two args", "guides | surround intro 2", "surround wants"},
		{"surround bad count", "guides | surround intro two three", "invalid before"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parsePipeline(tc.input)
			assert.ErrorContains(t, err, tc.message)
		})
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(nil)
	assert.NoError(t, err)

	coll, err := s.CreateCollection(&schema.CollectionDefinition{
		Name:         "guides",
		SearchFields: []string{"title"},
	})
	assert.NoError(t, err)
	for _, doc := range []schema.Document{
		{"slug": "intro", "title": "Introduction", "order": 1, "draft": false},
		{"slug": "setup", "title": "Setup Guide", "order": 2, "draft": true},
		{"slug": "usage", "title": "Daily Usage", "order": 3, "draft": false},
		{"slug": "faq", "title": "Questions", "order": 4, "draft": false},
	} {
		_, err := coll.Insert(doc)
		assert.NoError(t, err)
	}
	return s
}

func TestQuerySpecApply(t *testing.T) {
	s := newTestStore(t)
	collection, spec, err := parsePipeline("guides | where draft eq false | sort order desc | only slug | limit 2")
	assert.NoError(t, err)

	qb := s.Query(collection)
	assert.NoError(t, spec.apply(qb))

	docs, err := qb.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []schema.Document{{"slug": "faq"}, {"slug": "usage"}}, docs)
}

func TestQuerySpecApplySurround(t *testing.T) {
	s := newTestStore(t)
	collection, spec, err := parsePipeline("guides | surround setup")
	assert.NoError(t, err)

	qb := s.Query(collection)
	assert.NoError(t, spec.apply(qb))

	docs, err := qb.Fetch(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, docs, 3) {
		assert.Equal(t, "intro", docs[0]["slug"])
		assert.Equal(t, "setup", docs[1]["slug"])
		assert.Equal(t, "usage", docs[2]["slug"])
	}
}

func TestQuerySpecApplyErrors(t *testing.T) {
	cases := []struct {
		name    string
		spec    querySpec
		message string
	}{
		{"bad filter", querySpec{wheres: []string{"broken"}}, "invalid filter"},
		{"bad search field", querySpec{searchField: "titleonly"}, "want field=text"},
		{"empty sort field", querySpec{sorts: []string{":desc"}}, "invalid sort"},
		{"bad limit", querySpec{limit: "lots"}, "invalid limit"},
		{"bad skip", querySpec{skip: "some"}, "invalid skip"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			err := tc.spec.apply(s.Query("guides"))
			assert.ErrorContains(t, err, tc.message)
		})
	}
}
