package query

import (
	"reflect"
	"strconv"
	"time"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}

// ToFloat64 attempts to convert a value of any numeric type to float64.
// Numeric strings convert too, so values arriving from lenient sources
// still compare correctly.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toTime attempts to interpret a value as a timestamp: either a time.Time
// or an RFC 3339 string.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// valuesEqual compares two values for filter equality. Numeric values of
// different Go types compare by magnitude; everything else falls back to
// deep equality.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := ToFloat64(a); aok {
		if bf, bok := ToFloat64(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// CompareValues orders two values: -1, 0, or 1 when comparable, with ok
// false when the pair has no defined ordering. Numbers order by magnitude,
// timestamps chronologically, strings lexicographically, and booleans with
// false before true. The store's sort uses the same ordering as the filter
// operators.
func CompareValues(a, b any) (int, bool) {
	if af, aok := ToFloat64(a); aok {
		if bf, bok := ToFloat64(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			switch {
			case as < bs:
				return -1, true
			case as > bs:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0, true
			case bb:
				return -1, true
			default:
				return 1, true
			}
		}
	}

	return 0, false
}
