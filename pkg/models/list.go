package models

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ModelList is an ordered collection of records. Slicing a ModelList
// with Go's native slice syntax already returns a ModelList of the same
// concrete type; Filter and SortByPath are the operations that need
// more than slice syntax.
type ModelList[T any] []T

// Filter returns a new ModelList containing only the elements for which
// pred returns true. It does not mutate the receiver.
func (l ModelList[T]) Filter(pred func(T) bool) ModelList[T] {
	out := make(ModelList[T], 0, len(l))
	for _, item := range l {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Dump renders every element as a nested map, applying exclude
// recursively (see Dump in dump.go).
func (l ModelList[T]) Dump(exclude map[string]struct{}) []any {
	out := make([]any, len(l))
	for i, item := range l {
		out[i] = Dump(item, exclude)
	}
	return out
}

var pathSegmentRe = regexp.MustCompile(`[^.\[\]]+|\[\d+\]`)

// pathSegments splits a dotted-and-bracketed path like "a.b[0].c" into
// ["a", "b", "[0]", "c"]; no full JSONPath grammar is supported, matching
// spec.md 4.5's "small interpreter over (string | int) path segments."
func pathSegments(path string) []string {
	return pathSegmentRe.FindAllString(path, -1)
}

// valueAtPath navigates v (a struct, map, or slice, possibly nested)
// along segments and returns the leaf value as a comparable/orderable
// Go value for sorting purposes.
func valueAtPath(v reflect.Value, segments []string) (reflect.Value, error) {
	cur := v
	for _, seg := range segments {
		for cur.Kind() == reflect.Ptr || cur.Kind() == reflect.Interface {
			if cur.IsNil() {
				return reflect.Value{}, fmt.Errorf("nil value navigating path segment %q", seg)
			}
			cur = cur.Elem()
		}
		if strings.HasPrefix(seg, "[") {
			idxStr := strings.TrimSuffix(strings.TrimPrefix(seg, "["), "]")
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid index segment %q: %w", seg, err)
			}
			switch cur.Kind() {
			case reflect.Slice, reflect.Array:
				if idx < 0 || idx >= cur.Len() {
					return reflect.Value{}, fmt.Errorf("index %d out of range", idx)
				}
				cur = cur.Index(idx)
			default:
				return reflect.Value{}, fmt.Errorf("cannot index into %s", cur.Kind())
			}
			continue
		}
		switch cur.Kind() {
		case reflect.Struct:
			found := false
			for _, f := range reflect.VisibleFields(cur.Type()) {
				if jsonFieldName(f) == seg {
					cur = cur.FieldByIndex(f.Index)
					found = true
					break
				}
			}
			if !found {
				return reflect.Value{}, fmt.Errorf("no field %q", seg)
			}
		case reflect.Map:
			val := cur.MapIndex(reflect.ValueOf(seg))
			if !val.IsValid() {
				return reflect.Value{}, fmt.Errorf("no key %q", seg)
			}
			cur = val
		default:
			return reflect.Value{}, fmt.Errorf("cannot navigate %q into %s", seg, cur.Kind())
		}
	}
	return cur, nil
}

func asFloat(v reflect.Value) (float64, bool) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(v.String(), 64)
		return f, err == nil
	}
	return 0, false
}

// SortByPath returns a new ModelList sorted by the value found at path
// (dotted/bracketed navigation, see pathSegments). Numeric and string
// leaves are supported; an error is returned if any element's path
// cannot be navigated.
func (l ModelList[T]) SortByPath(path string, reverse bool) (ModelList[T], error) {
	segments := pathSegments(path)
	out := make(ModelList[T], len(l))
	copy(out, l)

	var navErr error
	sort.SliceStable(out, func(i, j int) bool {
		vi, err := valueAtPath(reflect.ValueOf(out[i]), segments)
		if err != nil {
			navErr = err
			return false
		}
		vj, err := valueAtPath(reflect.ValueOf(out[j]), segments)
		if err != nil {
			navErr = err
			return false
		}
		if fi, ok := asFloat(vi); ok {
			if fj, ok2 := asFloat(vj); ok2 {
				if reverse {
					return fi > fj
				}
				return fi < fj
			}
		}
		si, sj := fmt.Sprint(vi.Interface()), fmt.Sprint(vj.Interface())
		if reverse {
			return si > sj
		}
		return si < sj
	})
	if navErr != nil {
		return nil, navErr
	}
	return out, nil
}
