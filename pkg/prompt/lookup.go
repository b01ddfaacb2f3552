package prompt

import (
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Context holds the variables available to macros and inclusion conditions.
// A nil Context means "no context": macros are left alone and every conditional
// section is skipped. An empty, non-nil Context still triggers substitution.
type Context map[string]any

// Lookup resolves a dotted path such as "user.locale" against ctx, walking one mapping
// per segment. It reports false when any segment is missing or an intermediate value
// is not a mapping.
func Lookup(path string, ctx Context) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	var cur any = ctx
	for _, part := range strings.Split(path, ".") {
		next, ok := field(cur, part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func field(cur any, key string) (any, bool) {
	switch m := cur.(type) {
	case Context:
		v, ok := m[key]
		return v, ok
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	case *orderedmap.OrderedMap[string, any]:
		return m.Get(key)
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(cur)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// Truthy reports whether v counts as true in an inclusion condition. Absent (nil),
// false, numeric zero, the empty string and empty collections are false; everything
// else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case Text:
		return x != ""
	case Null:
		return false
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// equal compares a context value with an expected condition value. Numbers compare by
// value regardless of their Go type, since JSON, YAML and hand-built contexts disagree
// on int versus float.
func equal(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if _, isBool := actual.(bool); isBool {
		b, ok := expected.(bool)
		return ok && b == actual.(bool)
	}
	if _, isBool := expected.(bool); isBool {
		return false
	}
	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && a == e
	}
	if as, ok := asString(actual); ok {
		es, ok := asString(expected)
		return ok && as == es
	}
	ta, te := reflect.TypeOf(actual), reflect.TypeOf(expected)
	if ta.Comparable() && te.Comparable() {
		return actual == expected
	}
	return reflect.DeepEqual(actual, expected)
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case Text:
		return string(x), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
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
	}
	return 0, false
}
