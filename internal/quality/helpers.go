package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// stringField reads a trimmed string column; non-strings and absent
// columns read as empty.
func stringField(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// int64Field coerces the integer shapes rows and JSON payloads produce.
// Whole-valued floats count; anything else reports false.
func int64Field(row map[string]any, key string) (int64, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false
	}
	return toInt64(v)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case decimal.Decimal:
		if !n.IsInteger() {
			return 0, false
		}
		return n.IntPart(), true
	case string:
		n = strings.TrimSpace(n)
		if n == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// fieldValue finds an item key case-insensitively, matching the
// projection rules writes go through.
func fieldValue(item map[string]any, name string) (any, bool) {
	if v, ok := item[name]; ok {
		return v, true
	}
	for k, v := range item {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// valuesEqual compares a stored value with a recorded one across the
// type drift JSON round-trips introduce (int64 vs float64, decimal vs
// string). Printed forms settle it.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
