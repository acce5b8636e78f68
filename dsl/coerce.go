package dsl

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
	"golang.org/x/exp/constraints"
)

// toList views v as a list. Strings, byte slices and maps are not lists.
func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return t, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isList(v any) bool {
	_, ok := toList(v)
	return ok
}

// asInt64 converts Go and JSON numbers holding whole values.
func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return wholeFloat(f)
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return wholeFloat(rv.Float())
	}
	return 0, false
}

func wholeFloat(f float64) (int64, bool) {
	if f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// asFloat64 converts Go and JSON numbers.
func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// number is the set of native numeric types bounded by MinValue/MaxValue.
type number interface {
	constraints.Integer | constraints.Float
}

// bounds holds optional inclusive limits.
type bounds[T number] struct {
	min, max *T
}

// check returns the violated kind and its limit, or "" when v is within bounds.
func (b bounds[T]) check(v T) (code string, limit T) {
	if b.max != nil && v > *b.max {
		return "max_value", *b.max
	}
	if b.min != nil && v < *b.min {
		return "min_value", *b.min
	}
	return "", limit
}

func boundOf[T number](v any, conv func(any) (T, bool), name string, b *Base) *T {
	if v == nil {
		return nil
	}
	n, ok := conv(v)
	if !ok {
		b.errorf("%s %v is not a number", name, v)
		return nil
	}
	return &n
}

func formatNumber[T number](v T) string {
	switch x := any(v).(type) {
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
