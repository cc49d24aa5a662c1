// Package schema defines the document model and collection definitions shared
// by the query layer, the in-memory store, and the document sources.
package schema

import (
	"maps"
)

// LogicalOperator for combining filter conditions.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and" // All conditions must be true
	LogicalOr  LogicalOperator = "or"  // At least one condition must be true
	LogicalNot LogicalOperator = "not" // Negates a condition or group of conditions
	LogicalNor LogicalOperator = "nor" // None of the conditions must be true
	LogicalXor LogicalOperator = "xor" // Exactly one of the conditions must be true
)

// FieldType represents the field types a collection definition may declare.
// Typing is optional; untyped collections accept any document shape.
type FieldType string

const (
	FieldTypeString   FieldType = "string"   // Text data
	FieldTypeNumber   FieldType = "number"   // Floating-point numeric data
	FieldTypeInteger  FieldType = "integer"  // Whole-number numeric data
	FieldTypeBoolean  FieldType = "boolean"  // True/false values
	FieldTypeDatetime FieldType = "datetime" // RFC 3339 timestamps
	FieldTypeArray    FieldType = "array"    // Ordered list of items
	FieldTypeObject   FieldType = "object"   // Structured data with nested fields
	FieldTypeRecord   FieldType = "record"   // Free-form key-value object, resolves to map[string]any
)

// FieldDefinition describes one declared field of a collection.
type FieldDefinition struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	// Required indicates if the field is mandatory on insert.
	Required *bool `json:"required,omitempty"`
	// Description provides a brief explanation of the field.
	Description *string `json:"description,omitempty"`
}

// DefaultSlugField is the document field used for windowing lookups and
// upsert identity when a definition does not name one.
const DefaultSlugField = "slug"

// CollectionDefinition describes a logical dataset held by the store: its
// name, the fields participating in full-text search, the slug field used
// for windowing and upserts, and optional field typing.
type CollectionDefinition struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	// SearchFields lists the fields indexed for full-text search. Order is
	// preserved; it is also the clause order for bare-string search.
	SearchFields []string `json:"searchFields,omitempty"`
	// SlugField names the unique lookup field. Empty means DefaultSlugField.
	SlugField string `json:"slugField,omitempty"`
	// Fields optionally types the collection. When present, inserts are
	// validated against it.
	Fields   map[string]*FieldDefinition `json:"fields,omitempty"`
	Metadata map[string]any              `json:"metadata,omitempty"`
}

// Slug returns the effective slug field name.
func (d *CollectionDefinition) Slug() string {
	if d.SlugField == "" {
		return DefaultSlugField
	}
	return d.SlugField
}

// FindField returns the declared definition for a field, or nil when the
// collection is untyped or the field is undeclared.
func (d *CollectionDefinition) FindField(name string) *FieldDefinition {
	if d.Fields == nil {
		return nil
	}
	return d.Fields[name]
}

// Issue represents a validation or operational issue.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Severity string `json:"severity,omitempty"` // e.g., "error", "warning"
}

// ValidationResult aggregates the outcome of a validation pass.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Document is a single record: field names mapped to values. Documents held
// by the store additionally carry reserved "$"-prefixed metadata keys, which
// are stripped before results reach callers.
type Document map[string]any

// Clone returns a detached top-level copy of the document. Nested values are
// shared; pipeline steps treat documents as immutable.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}
