// Package utils converts between typed Go structs and the schema.Document
// maps the store works with.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/asaidimu/go-maktaba/core/schema"
)

// StructToMap converts a struct, or pointer to one, into a document. The
// conversion goes through encoding/json, so field names follow json tags
// and numbers arrive as float64. Nested structs become nested
// map[string]any values, which dotted filter paths can reach into.
func StructToMap[T any](record T) (schema.Document, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("record cannot be a nil pointer")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}
	var doc schema.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling record into document: %w", err)
	}
	return doc, nil
}

// MapToStruct converts a document into a new value of the struct type T,
// the inverse of StructToMap. T may also be a pointer to a struct.
func MapToStruct[T any](doc schema.Document) (T, error) {
	var result T

	if doc == nil {
		return result, fmt.Errorf("document cannot be nil")
	}
	typ := reflect.TypeOf(result)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return result, fmt.Errorf("target type must be a struct or a pointer to a struct")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return result, fmt.Errorf("marshaling document: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshaling document into %s: %w", typ.Name(), err)
	}
	return result, nil
}
