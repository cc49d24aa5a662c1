// Validation of documents against a collection definition. Collections
// without declared fields skip validation entirely; typed collections check
// presence and type of every declared field, with light coercion for values
// arriving as strings from lenient sources (front matter, CSV-ish columns).
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validator checks documents against a collection definition. A validator is
// cheap to construct and may be reused across documents.
type Validator struct {
	def    *CollectionDefinition
	issues []Issue
}

// NewValidator creates a Validator for the given definition.
func NewValidator(def *CollectionDefinition) *Validator {
	return &Validator{
		def:    def,
		issues: make([]Issue, 0),
	}
}

// Validate checks a document against the definition. The loose parameter
// ignores missing required fields, which suits partial updates. Reserved
// "$"-prefixed metadata keys are never validated.
func (v *Validator) Validate(doc Document, loose bool) (bool, []Issue) {
	v.issues = make([]Issue, 0)
	if v.def == nil || len(v.def.Fields) == 0 {
		return true, nil
	}

	for name, field := range v.def.Fields {
		value, present := doc[name]
		if !present || value == nil {
			if field.Required != nil && *field.Required && !loose {
				v.addIssue("REQUIRED_FIELD_MISSING", name, fmt.Sprintf("required field %q is missing", name))
			}
			continue
		}
		if !v.checkType(name, value, field.Type) {
			v.addIssue("INVALID_TYPE", name, fmt.Sprintf("field %q is not a valid %s", name, field.Type))
		}
	}

	return len(v.issues) == 0, v.issues
}

func (v *Validator) addIssue(code, path, message string) {
	v.issues = append(v.issues, Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: "error",
	})
}

func (v *Validator) checkType(name string, value any, expected FieldType) bool {
	switch expected {
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeBoolean:
		if _, ok := value.(bool); ok {
			return true
		}
		_, ok := coerceBool(value)
		return ok
	case FieldTypeInteger:
		switch value.(type) {
		case int, int32, int64, uint, uint32, uint64:
			return true
		case float64:
			f := value.(float64)
			return f == float64(int64(f))
		}
		_, ok := coerceInt(value)
		return ok
	case FieldTypeNumber:
		switch value.(type) {
		case int, int32, int64, uint, uint32, uint64, float32, float64:
			return true
		}
		_, ok := coerceFloat(value)
		return ok
	case FieldTypeDatetime:
		switch t := value.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, t)
			return err == nil
		}
		return false
	case FieldTypeArray:
		switch value.(type) {
		case []any, []string, []int, []float64:
			return true
		}
		return false
	case FieldTypeObject, FieldTypeRecord:
		switch value.(type) {
		case map[string]any, Document:
			return true
		}
		return false
	default:
		// Unknown declared type is a definition bug, not a document bug.
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	s, ok := value.(string)
	if !ok {
		return false, false
	}
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func coerceInt(value any) (int64, bool) {
	s, ok := value.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func coerceFloat(value any) (float64, bool) {
	s, ok := value.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ValidateDefinition checks that a collection definition is internally
// consistent: a non-empty name, declared search fields and slug field
// resolvable against the typed fields when typing is present.
func ValidateDefinition(def *CollectionDefinition) *ValidationResult {
	result := &ValidationResult{Valid: true, Issues: []Issue{}}
	fail := func(code, path, message string) {
		result.Valid = false
		result.Issues = append(result.Issues, Issue{Code: code, Message: message, Path: path, Severity: "error"})
	}

	if def == nil {
		fail("DEFINITION_MISSING", "", "collection definition is nil")
		return result
	}
	if strings.TrimSpace(def.Name) == "" {
		fail("NAME_MISSING", "name", "collection name must not be empty")
	}
	if strings.HasPrefix(def.Name, "$") {
		fail("NAME_RESERVED", "name", "collection names must not start with '$'")
	}

	seen := make(map[string]bool, len(def.SearchFields))
	for _, field := range def.SearchFields {
		if field == "" {
			fail("SEARCH_FIELD_EMPTY", "searchFields", "search fields must not be empty strings")
			continue
		}
		if seen[field] {
			fail("SEARCH_FIELD_DUPLICATE", "searchFields", fmt.Sprintf("search field %q listed twice", field))
		}
		seen[field] = true
		if len(def.Fields) > 0 && def.FindField(field) == nil {
			fail("SEARCH_FIELD_UNDECLARED", "searchFields", fmt.Sprintf("search field %q is not a declared field", field))
		}
	}

	for name, field := range def.Fields {
		if field == nil {
			fail("FIELD_MISSING", name, fmt.Sprintf("field %q has no definition", name))
			continue
		}
		if field.Name != "" && field.Name != name {
			fail("FIELD_NAME_MISMATCH", name, fmt.Sprintf("field keyed %q declares name %q", name, field.Name))
		}
		if strings.HasPrefix(name, "$") {
			fail("FIELD_NAME_RESERVED", name, "field names must not start with '$'")
		}
	}

	if len(def.Fields) > 0 {
		if slug := def.Slug(); def.FindField(slug) == nil {
			fail("SLUG_FIELD_UNDECLARED", "slugField", fmt.Sprintf("slug field %q is not a declared field", slug))
		}
	}

	return result
}
