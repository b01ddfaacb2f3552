package prompt

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Payload is a structured section body. It is a closed set of shapes:
// Text, Scalar, List, Set, Map and Null.
type Payload interface {
	isPayload()
}

// Text is a plain string body.
type Text string

// Scalar wraps a primitive (bool, number, or anything that only stringifies).
type Scalar struct {
	Value any
}

// List is an ordered sequence of payloads rendered as list items.
type List []Payload

// Set is an unordered collection. Items are sorted by their text form before rendering.
type Set []Payload

// Map is an ordered mapping. Keys become parent list items.
type Map []Entry

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   string
	Value Payload
}

// Null is an explicitly empty value.
type Null struct{}

func (Text) isPayload()   {}
func (Scalar) isPayload() {}
func (List) isPayload()   {}
func (Set) isPayload()    {}
func (Map) isPayload()    {}
func (Null) isPayload()   {}

// M builds a Map from alternating key/value arguments, converting values with FromValue.
// A trailing key without a value maps to Null.
func M(kv ...any) Map {
	m := make(Map, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		var v any
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		m = append(m, Entry{Key: stringify(kv[i]), Value: FromValue(v)})
	}
	return m
}

// L builds a List, converting each item with FromValue.
func L(items ...any) List {
	l := make(List, 0, len(items))
	for _, it := range items {
		l = append(l, FromValue(it))
	}
	return l
}

// S builds a Set, converting each item with FromValue.
func S(items ...any) Set {
	return Set(L(items...))
}

// FromValue converts a decoded Go value into a Payload. It never fails: shapes it does
// not recognise become a Scalar that renders through fmt.
func FromValue(v any) Payload {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Payload:
		return x
	case string:
		return Text(x)
	case []string:
		l := make(List, 0, len(x))
		for _, s := range x {
			l = append(l, Text(s))
		}
		return l
	case []any:
		return L(x...)
	case map[string]any:
		return mapFromKeys(sortedKeys(x), func(k string) any { return x[k] })
	case Context:
		return mapFromKeys(sortedKeys(x), func(k string) any { return x[k] })
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return mapFromKeys(keys, func(k string) any { return x[k] })
	case *orderedmap.OrderedMap[string, any]:
		m := make(Map, 0, x.Len())
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			m = append(m, Entry{Key: pair.Key, Value: FromValue(pair.Value)})
		}
		return m
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar{Value: x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null{}
		}
		l := make(List, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			l = append(l, FromValue(rv.Index(i).Interface()))
		}
		return l
	case reflect.Map:
		if rv.IsNil() {
			return Null{}
		}
		// Non-string keys are stringified; sort on that form for stable output.
		byKey := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			byKey[stringify(iter.Key().Interface())] = iter.Value().Interface()
		}
		return mapFromKeys(sortedKeys(byKey), func(k string) any { return byKey[k] })
	case reflect.Pointer:
		if rv.IsNil() {
			return Null{}
		}
	}
	return Scalar{Value: v}
}

func mapFromKeys(keys []string, get func(string) any) Map {
	m := make(Map, 0, len(keys))
	for _, k := range keys {
		m = append(m, Entry{Key: k, Value: FromValue(get(k))})
	}
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// indentUnit is the per-depth indentation of nested list items.
const indentUnit = "  "

var blankRuns = regexp.MustCompile(`\n{3,}`)

// normalizeBlankLines collapses runs of two or more blank lines into one.
func normalizeBlankLines(s string) string {
	return blankRuns.ReplaceAllString(s, "\n\n")
}

// Render converts a payload into text. Ordered lists are numbered with a single counter
// that runs across the whole tree, so nested items continue the parent's sequence.
func Render(p Payload, ordered bool) string {
	switch x := p.(type) {
	case nil, Null:
		return ""
	case Text:
		return normalizeBlankLines(strings.TrimSpace(string(x)))
	case Scalar:
		return strings.TrimSpace(stringify(x.Value))
	}

	r := &listRenderer{ordered: ordered}
	r.nested(p, 0)
	return normalizeBlankLines(strings.Join(r.lines, "\n"))
}

// listRenderer accumulates list lines. counter is the last number handed out and is
// shared by every depth of one Render call.
type listRenderer struct {
	ordered bool
	counter int
	lines   []string
}

func (r *listRenderer) marker() string {
	if !r.ordered {
		return "-"
	}
	r.counter++
	return strconv.Itoa(r.counter) + "."
}

func (r *listRenderer) emit(level int, text string) {
	line := strings.Repeat(indentUnit, level) + r.marker()
	if text != "" {
		line += " " + text
	}
	r.lines = append(r.lines, line)
}

func (r *listRenderer) nested(p Payload, level int) {
	switch x := p.(type) {
	case Map:
		for _, e := range x {
			r.entry(e, level)
		}
	case List:
		r.sequence(x, level)
	case Set:
		r.sequence(sortSet(x), level)
	case Text:
		if s := strings.TrimSpace(string(x)); s != "" {
			r.emit(level, s)
		}
	case Scalar:
		if s := strings.TrimSpace(stringify(x.Value)); s != "" {
			r.emit(level, s)
		}
	case nil, Null:
	}
}

// entry renders one labelled node: "key: value" for scalars, or "key" followed by its
// children one level deeper.
func (r *listRenderer) entry(e Entry, level int) {
	key := strings.TrimSpace(e.Key)
	switch v := e.Value.(type) {
	case nil, Null:
		r.emit(level, key)
	case Text:
		r.emit(level, key+": "+strings.TrimSpace(string(v)))
	case Scalar:
		r.emit(level, key+": "+strings.TrimSpace(stringify(v.Value)))
	case List, Set, Map:
		if only, ok := singleScalar(v); ok {
			r.emit(level, key+": "+only)
			return
		}
		r.emit(level, key)
		r.nested(v, level+1)
	}
}

func (r *listRenderer) sequence(items []Payload, level int) {
	for _, item := range items {
		if isEmptyContainer(item) {
			continue
		}
		switch x := item.(type) {
		case Map:
			if len(x) == 1 {
				r.entry(x[0], level)
				continue
			}
			r.emit(level, "")
			r.nested(x, level+1)
		case List:
			if label, children, ok := pairStyle(x); ok {
				r.emit(level, label)
				r.nested(children, level+1)
				continue
			}
			r.emit(level, "")
			r.nested(x, level+1)
		case Set:
			r.emit(level, "")
			r.nested(x, level+1)
		default:
			r.nested(x, level)
		}
	}
}

func isEmptyContainer(p Payload) bool {
	switch x := p.(type) {
	case List:
		return len(x) == 0
	case Set:
		return len(x) == 0
	case Map:
		return len(x) == 0
	}
	return false
}

// pairStyle recognises ["Label", child]: exactly two items, the first one text. The
// child may be a container or a single scalar.
func pairStyle(l List) (string, Payload, bool) {
	if len(l) != 2 {
		return "", nil, false
	}
	label, ok := l[0].(Text)
	if !ok {
		return "", nil, false
	}
	switch l[1].(type) {
	case List, Set, Map, Text, Scalar:
		return strings.TrimSpace(string(label)), l[1], true
	}
	return "", nil, false
}

// singleScalar reports whether a container holds exactly one scalar item, returning its
// text so the caller can render it inline.
func singleScalar(p Payload) (string, bool) {
	var items []Payload
	switch x := p.(type) {
	case List:
		items = x
	case Set:
		items = x
	default:
		return "", false
	}
	if len(items) != 1 {
		return "", false
	}
	switch it := items[0].(type) {
	case Text:
		s := strings.TrimSpace(string(it))
		return s, s != ""
	case Scalar:
		s := strings.TrimSpace(stringify(it.Value))
		return s, s != ""
	}
	return "", false
}

func sortSet(s Set) []Payload {
	items := make([]Payload, len(s))
	copy(items, s)
	sort.SliceStable(items, func(i, j int) bool {
		return sortKey(items[i]) < sortKey(items[j])
	})
	return items
}

func sortKey(p Payload) string {
	switch x := p.(type) {
	case Text:
		return string(x)
	case Scalar:
		return stringify(x.Value)
	case nil, Null:
		return ""
	}
	return Render(p, false)
}

// stringify formats a value for output. Integral floats print without a fraction so that
// numbers decoded from JSON read the way they were written.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Text:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
