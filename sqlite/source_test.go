package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
	"github.com/asaidimu/go-maktaba/core/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE articles (
		slug TEXT PRIMARY KEY,
		title TEXT,
		published INTEGER,
		views INTEGER,
		score REAL,
		tags TEXT,
		updated_at TEXT
	)`)
	assert.NoError(t, err)

	rows := [][]any{
		{"intro", "Introduction", 1, 120, 4.5, `["basics"]`, "2024-03-01T10:00:00Z"},
		{"setup", "Setup Guide", 1, 80, 3.9, `["install","basics"]`, "2024-03-02T10:00:00Z"},
		{"draft-notes", "Draft Notes", 0, 3, nil, nil, "2024-03-03T10:00:00Z"},
	}
	for _, row := range rows {
		_, err := db.Exec(
			`INSERT INTO articles (slug, title, published, views, score, tags, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row...)
		assert.NoError(t, err)
	}
	return db
}

func sourceDefinition() *schema.CollectionDefinition {
	return &schema.CollectionDefinition{
		Name:         "articles",
		SearchFields: []string{"title"},
		Fields: map[string]*schema.FieldDefinition{
			"slug":       {Name: "slug", Type: schema.FieldTypeString},
			"title":      {Name: "title", Type: schema.FieldTypeString},
			"published":  {Name: "published", Type: schema.FieldTypeBoolean},
			"views":      {Name: "views", Type: schema.FieldTypeInteger},
			"score":      {Name: "score", Type: schema.FieldTypeNumber},
			"tags":       {Name: "tags", Type: schema.FieldTypeArray},
			"updated_at": {Name: "updated_at", Type: schema.FieldTypeDatetime},
		},
	}
}

func TestSourceLoad(t *testing.T) {
	db := openTestDB(t)
	src, err := NewSource(db, "articles", sourceDefinition(), nil)
	assert.NoError(t, err)

	docs, err := src.Load(context.Background())

	assert.NoError(t, err)
	assert.Len(t, docs, 3)

	bySlug := make(map[string]schema.Document, len(docs))
	for _, doc := range docs {
		bySlug[doc["slug"].(string)] = doc
	}

	intro := bySlug["intro"]
	assert.Equal(t, "Introduction", intro["title"])
	assert.Equal(t, true, intro["published"], "integer column coerces to bool")
	assert.Equal(t, int64(120), intro["views"])
	assert.Equal(t, 4.5, intro["score"])
	assert.Equal(t, []any{"basics"}, intro["tags"], "JSON text decodes by declared type")
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), intro["updated_at"])

	draft := bySlug["draft-notes"]
	assert.Equal(t, false, draft["published"])
	assert.Nil(t, draft["score"], "NULL stays nil")
	assert.Nil(t, draft["tags"])
}

func TestSourceLoadFilterPushdown(t *testing.T) {
	db := openTestDB(t)
	filter := query.CreateSimpleFilter("published", query.ComparisonOperatorEq, true)
	src, err := NewSource(db, "articles", sourceDefinition(), &Options{Filter: &filter})
	assert.NoError(t, err)

	docs, err := src.Load(context.Background())

	assert.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, true, doc["published"])
	}
}

func TestSourceLoadOrderByAndLimit(t *testing.T) {
	db := openTestDB(t)
	src, err := NewSource(db, "articles", sourceDefinition(), &Options{
		OrderBy: []query.SortConfiguration{{Field: "views", Direction: query.SortDirectionDesc}},
		Limit:   2,
	})
	assert.NoError(t, err)

	docs, err := src.Load(context.Background())

	assert.NoError(t, err)
	if assert.Len(t, docs, 2) {
		assert.Equal(t, "intro", docs[0]["slug"])
		assert.Equal(t, "setup", docs[1]["slug"])
	}
}

func TestSourceLoadUntypedDefinition(t *testing.T) {
	db := openTestDB(t)
	src, err := NewSource(db, "articles", &schema.CollectionDefinition{Name: "articles"}, nil)
	assert.NoError(t, err)

	docs, err := src.Load(context.Background())

	assert.NoError(t, err)
	assert.Len(t, docs, 3)
	for _, doc := range docs {
		if doc["slug"] != "intro" {
			continue
		}
		assert.Equal(t, int64(1), doc["published"], "raw driver value without a declared type")
		assert.Equal(t, `["basics"]`, doc["tags"], "JSON stays text without a declared type")
	}
}

func TestSourceLoadUnpushableFilter(t *testing.T) {
	db := openTestDB(t)
	filter := query.CreateSimpleFilter("views", "isPrime", nil)
	src, err := NewSource(db, "articles", sourceDefinition(), &Options{Filter: &filter})
	assert.NoError(t, err)

	_, err = src.Load(context.Background())

	assert.ErrorContains(t, err, "cannot be pushed down")
}

func TestNewSourceValidation(t *testing.T) {
	db := openTestDB(t)
	def := sourceDefinition()

	_, err := NewSource(nil, "articles", def, nil)
	assert.ErrorContains(t, err, "database handle is nil")

	_, err = NewSource(db, "", def, nil)
	assert.ErrorContains(t, err, "table name is empty")

	_, err = NewSource(db, "articles", nil, nil)
	assert.ErrorContains(t, err, "definition is nil")
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("", "articles", sourceDefinition(), nil)
	assert.ErrorContains(t, err, "path is empty")
}

func TestSourceMountedIntoStore(t *testing.T) {
	db := openTestDB(t)
	src, err := NewSource(db, "articles", sourceDefinition(), nil)
	assert.NoError(t, err)
	st, err := store.NewStore(nil)
	assert.NoError(t, err)

	coll, err := st.Mount(context.Background(), sourceDefinition(), src, false)

	assert.NoError(t, err)
	assert.Equal(t, 3, coll.Len())

	docs, err := st.Query("articles").
		WhereField("published").Eq(true).
		SortByDesc("views").
		Only("slug").
		Fetch(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []schema.Document{{"slug": "intro"}, {"slug": "setup"}}, docs)
}
