package model

import (
	"reflect"
	"strconv"
)

// ContainsValue reports whether actual structurally contains expected:
// every expected object key must be present with a contained value, every
// expected array element must be contained by some actual element, and
// scalars compare by ValuesEqual. Extra fields and elements are ignored.
func ContainsValue(actual, expected any) bool {
	switch ev := expected.(type) {
	case map[string]any:
		am, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range ev {
			av, ok := am[k]
			if !ok {
				return false
			}
			if !ContainsValue(av, v) {
				return false
			}
		}
		return true
	case []any:
		aa, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, want := range ev {
			found := false
			for _, elem := range aa {
				if ContainsValue(elem, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return ValuesEqual(actual, expected)
	}
}

// ValuesEqual compares two JSON scalars, coercing numeric types.
// false, 0, "" and nil are all distinct.
func ValuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	an, aIsNum := toFloat64(actual)
	en, eIsNum := toFloat64(expected)
	if aIsNum || eIsNum {
		return aIsNum && eIsNum && an == en
	}

	switch e := expected.(type) {
	case string:
		a, ok := actual.(string)
		return ok && a == e
	case bool:
		a, ok := actual.(bool)
		return ok && a == e
	}
	return reflect.DeepEqual(actual, expected)
}

// ScalarString formats a JSON scalar for regex matching. Objects and arrays
// are not scalars.
func ScalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	default:
		if f, ok := toFloat64(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return "", false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
