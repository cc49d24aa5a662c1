package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func required() *bool {
	b := true
	return &b
}

func typedDefinition() *CollectionDefinition {
	return &CollectionDefinition{
		Name: "guides",
		Fields: map[string]*FieldDefinition{
			"slug":      {Name: "slug", Type: FieldTypeString, Required: required()},
			"title":     {Name: "title", Type: FieldTypeString},
			"order":     {Name: "order", Type: FieldTypeInteger},
			"score":     {Name: "score", Type: FieldTypeNumber},
			"published": {Name: "published", Type: FieldTypeBoolean},
			"updatedAt": {Name: "updatedAt", Type: FieldTypeDatetime},
			"tags":      {Name: "tags", Type: FieldTypeArray},
			"author":    {Name: "author", Type: FieldTypeObject},
		},
	}
}

func TestValidateUntypedAcceptsAnything(t *testing.T) {
	v := NewValidator(&CollectionDefinition{Name: "notes"})

	ok, issues := v.Validate(Document{"whatever": struct{}{}}, false)

	assert.True(t, ok)
	assert.Empty(t, issues)
}

func TestValidateAcceptsTypedDocument(t *testing.T) {
	v := NewValidator(typedDefinition())

	ok, issues := v.Validate(Document{
		"slug":      "intro",
		"title":     "Introduction",
		"order":     1,
		"score":     4.5,
		"published": true,
		"updatedAt": time.Now(),
		"tags":      []string{"basics"},
		"author":    map[string]any{"name": "Amina"},
	}, false)

	assert.True(t, ok)
	assert.Empty(t, issues)
}

func TestValidateRequiredField(t *testing.T) {
	v := NewValidator(typedDefinition())

	ok, issues := v.Validate(Document{"title": "No slug"}, false)

	assert.False(t, ok)
	if assert.Len(t, issues, 1) {
		assert.Equal(t, "REQUIRED_FIELD_MISSING", issues[0].Code)
		assert.Equal(t, "slug", issues[0].Path)
	}
}

func TestValidateLooseIgnoresMissingRequired(t *testing.T) {
	v := NewValidator(typedDefinition())

	ok, issues := v.Validate(Document{"title": "Partial update"}, true)

	assert.True(t, ok)
	assert.Empty(t, issues)
}

func TestValidateNilValueSkipsTypeCheck(t *testing.T) {
	v := NewValidator(typedDefinition())

	ok, _ := v.Validate(Document{"slug": "intro", "order": nil}, false)

	assert.True(t, ok)
}

func TestValidateTypeChecks(t *testing.T) {
	cases := []struct {
		name  string
		field string
		value any
		valid bool
	}{
		{"string", "title", "Introduction", true},
		{"string rejects number", "title", 7, false},
		{"integer", "order", 3, true},
		{"integer accepts integral float", "order", float64(3), true},
		{"integer rejects fraction", "order", 3.5, false},
		{"integer coerces numeric string", "order", "12", true},
		{"integer rejects word", "order", "twelve", false},
		{"number", "score", 4.5, true},
		{"number accepts int", "score", 4, true},
		{"number coerces numeric string", "score", "4.5", true},
		{"number rejects word", "score", "high", false},
		{"boolean", "published", false, true},
		{"boolean coerces string", "published", "TRUE", true},
		{"boolean rejects other strings", "published", "yep", false},
		{"datetime accepts time", "updatedAt", time.Now(), true},
		{"datetime accepts RFC 3339", "updatedAt", "2024-03-01T10:00:00Z", true},
		{"datetime rejects other layouts", "updatedAt", "01/03/2024", false},
		{"array", "tags", []any{"a"}, true},
		{"array of strings", "tags", []string{"a"}, true},
		{"array rejects scalar", "tags", "a", false},
		{"object", "author", map[string]any{"name": "Amina"}, true},
		{"object accepts document", "author", Document{"name": "Amina"}, true},
		{"object rejects string", "author", "Amina", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator(typedDefinition())
			doc := Document{"slug": "intro", tc.field: tc.value}

			ok, issues := v.Validate(doc, false)

			assert.Equal(t, tc.valid, ok)
			if !tc.valid && assert.Len(t, issues, 1) {
				assert.Equal(t, "INVALID_TYPE", issues[0].Code)
				assert.Equal(t, tc.field, issues[0].Path)
			}
		})
	}
}

func TestValidateIgnoresUndeclaredAndReservedKeys(t *testing.T) {
	v := NewValidator(typedDefinition())

	ok, _ := v.Validate(Document{
		"slug":    "intro",
		"$id":     "metadata is never validated",
		"extra":   struct{}{},
		"another": 42,
	}, false)

	assert.True(t, ok)
}

func TestValidatorIsReusable(t *testing.T) {
	v := NewValidator(typedDefinition())

	ok, _ := v.Validate(Document{"title": 7}, true)
	assert.False(t, ok)

	ok, issues := v.Validate(Document{"slug": "intro"}, false)
	assert.True(t, ok, "issues from the previous document do not leak")
	assert.Empty(t, issues)
}

func TestValidateDefinition(t *testing.T) {
	cases := []struct {
		name string
		def  *CollectionDefinition
		code string
	}{
		{"nil definition", nil, "DEFINITION_MISSING"},
		{"empty name", &CollectionDefinition{}, "NAME_MISSING"},
		{"blank name", &CollectionDefinition{Name: "   "}, "NAME_MISSING"},
		{"reserved name", &CollectionDefinition{Name: "$meta"}, "NAME_RESERVED"},
		{
			"empty search field",
			&CollectionDefinition{Name: "guides", SearchFields: []string{""}},
			"SEARCH_FIELD_EMPTY",
		},
		{
			"duplicate search field",
			&CollectionDefinition{Name: "guides", SearchFields: []string{"title", "title"}},
			"SEARCH_FIELD_DUPLICATE",
		},
		{
			"undeclared search field",
			&CollectionDefinition{
				Name:         "guides",
				SearchFields: []string{"body"},
				Fields: map[string]*FieldDefinition{
					"slug": {Name: "slug", Type: FieldTypeString},
				},
			},
			"SEARCH_FIELD_UNDECLARED",
		},
		{
			"undeclared slug field",
			&CollectionDefinition{
				Name: "guides",
				Fields: map[string]*FieldDefinition{
					"title": {Name: "title", Type: FieldTypeString},
				},
			},
			"SLUG_FIELD_UNDECLARED",
		},
		{
			"field keyed under another name",
			&CollectionDefinition{
				Name: "guides",
				Fields: map[string]*FieldDefinition{
					"slug":  {Name: "slug", Type: FieldTypeString},
					"title": {Name: "heading", Type: FieldTypeString},
				},
			},
			"FIELD_NAME_MISMATCH",
		},
		{
			"nil field definition",
			&CollectionDefinition{
				Name:   "guides",
				Fields: map[string]*FieldDefinition{"slug": nil},
			},
			"FIELD_MISSING",
		},
		{
			"reserved field name",
			&CollectionDefinition{
				Name: "guides",
				Fields: map[string]*FieldDefinition{
					"slug": {Name: "slug", Type: FieldTypeString},
					"$ord": {Name: "$ord", Type: FieldTypeInteger},
				},
			},
			"FIELD_NAME_RESERVED",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateDefinition(tc.def)

			assert.False(t, result.Valid)
			codes := make([]string, 0, len(result.Issues))
			for _, issue := range result.Issues {
				codes = append(codes, issue.Code)
			}
			assert.Contains(t, codes, tc.code)
		})
	}
}

func TestValidateDefinitionAccepts(t *testing.T) {
	untyped := &CollectionDefinition{Name: "notes", SearchFields: []string{"title", "text"}}
	assert.True(t, ValidateDefinition(untyped).Valid)

	typed := typedDefinition()
	typed.SearchFields = []string{"title"}
	assert.True(t, ValidateDefinition(typed).Valid)

	renamedSlug := &CollectionDefinition{
		Name:      "notes",
		SlugField: "path",
		Fields: map[string]*FieldDefinition{
			"path": {Name: "path", Type: FieldTypeString},
		},
	}
	assert.True(t, ValidateDefinition(renamedSlug).Valid)
}
