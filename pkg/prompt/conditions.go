package prompt

import "reflect"

// Conditions gate a section on values in the compile context. Keys are dotted paths;
// every entry must hold for the section to be included.
//
//	{"user.locale": "pt-BR"}          equality
//	{"flags.beta": true}              truthy
//	{"flags.legacy": false}           falsey (absent counts)
//	{"user.role": []any{"admin"}}     membership
type Conditions map[string]any

// Match evaluates the conditions against ctx. Empty conditions always match; any
// condition with a nil ctx fails. Missing paths are treated as absent, never as errors.
func (c Conditions) Match(ctx Context) bool {
	if len(c) == 0 {
		return true
	}
	if ctx == nil {
		return false
	}
	// Sorted for deterministic short-circuiting.
	for _, path := range sortedKeys(c) {
		actual, _ := Lookup(path, ctx)
		if !matchOne(actual, c[path]) {
			return false
		}
	}
	return true
}

func matchOne(actual, expected any) bool {
	switch e := expected.(type) {
	case bool:
		if e {
			return Truthy(actual)
		}
		return !Truthy(actual)
	case string, nil:
		return equal(actual, e)
	}

	// Maps compare whole, like any other non-sequence value
	if rv := reflect.ValueOf(expected); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if equal(actual, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	}
	return equal(actual, expected)
}

// Clone returns a deep copy of the conditions.
func (c Conditions) Clone() Conditions {
	if c == nil {
		return nil
	}
	out := make(Conditions, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies the container shapes produced by decoders and condition
// literals. Other values are returned as is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = cloneValue(it)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, it := range x {
			out[k] = cloneValue(it)
		}
		return out
	case Context:
		out := make(Context, len(x))
		for k, it := range x {
			out[k] = cloneValue(it)
		}
		return out
	}
	return v
}
