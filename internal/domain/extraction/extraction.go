// Package extraction provides declarative lookups over loosely structured
// agent output. Instead of probing ad hoc key paths in code, callers list
// (path, transform) rules and let the package evaluate them in order.
package extraction

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Lookup walks a dot-separated path through nested maps. Numeric segments
// index into slices.
func Lookup(raw map[string]any, path string) (any, bool) {
	if raw == nil || path == "" {
		return nil, false
	}
	var cur any = raw
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Rule pairs a lookup path with a transform that converts the value found
// there. A transform rejects values it cannot interpret by returning false.
type Rule[T any] struct {
	Path      string
	Transform func(v any) (T, bool)
}

// First evaluates rules in order and returns the result of the first one
// whose path resolves and whose transform accepts the value.
func First[T any](raw map[string]any, rules ...Rule[T]) (T, bool) {
	for _, r := range rules {
		v, ok := Lookup(raw, r.Path)
		if !ok {
			continue
		}
		if out, ok := r.Transform(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

// Float converts numbers and numeric strings. Booleans, blank strings, NaN
// and infinities are rejected.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, false
		}
	}
	var f float64
	if err := mapstructure.WeakDecode(v, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String accepts string values only.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Bool converts booleans and their common textual or numeric encodings.
func Bool(v any) (bool, bool) {
	var b bool
	if err := mapstructure.WeakDecode(v, &b); err != nil {
		return false, false
	}
	return b, true
}

// Format renders a scalar for inclusion in a sentence. Whole floats print
// without a fractional part so that JSON numbers read naturally.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "unknown"
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return Format(float64(x))
	}
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return "unknown"
	}
	return s
}
