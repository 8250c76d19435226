package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// jsonFieldName returns the dump key for a struct field: the first
// component of its json tag, or its lower-cased Go name if untagged.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

// Dump converts v (a record, or any struct/map/slice built from
// records) into a plain nested map[string]any / []any tree, suitable
// for indentation-markup or JSON rendering. exclude is applied
// recursively: any key present in it is omitted from every nested
// mapping, matching the original implementation's recursive exclude
// over "timestamp" and similar fields.
func Dump(v any, exclude map[string]struct{}) any {
	return dumpValue(reflect.ValueOf(v), exclude)
}

func dumpValue(rv reflect.Value, exclude map[string]struct{}) any {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return dumpValue(rv.Elem(), exclude)
	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
		m := make(map[string]any, rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			name := jsonFieldName(f)
			if _, skip := exclude[name]; skip {
				continue
			}
			if f.Anonymous {
				embedded := dumpValue(rv.Field(i), exclude)
				if nested, ok := embedded.(map[string]any); ok {
					for k, v := range nested {
						m[k] = v
					}
					continue
				}
			}
			m[name] = dumpValue(rv.Field(i), exclude)
		}
		return m
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			if _, skip := exclude[key]; skip {
				continue
			}
			m[key] = dumpValue(iter.Value(), exclude)
		}
		return m
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = dumpValue(rv.Index(i), exclude)
		}
		return out
	default:
		return rv.Interface()
	}
}

// DumpJSON renders v via Dump and then as compact JSON text.
func DumpJSON(v any, exclude map[string]struct{}) ([]byte, error) {
	return json.Marshal(Dump(v, exclude))
}

// FromMapping decodes a plain map[string]any (as produced by Dump, or
// parsed from JSON) back into a typed record T. It round-trips through
// JSON rather than hand-rolling a reflective decoder: T's own json tags
// are the single source of truth for both directions, so dump and parse
// can never drift apart.
func FromMapping[T any](m map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(m)
	if err != nil {
		return out, fmt.Errorf("failed to remarshal mapping: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode mapping into %T: %w", out, err)
	}
	return out, nil
}

// DumpIndent renders v as indentation-based markup (two spaces per
// nesting level), the non-JSON text form spec.md 6 requires alongside
// JSON.
func DumpIndent(v any, exclude map[string]struct{}) string {
	var buf bytes.Buffer
	writeIndent(&buf, Dump(v, exclude), 0)
	return buf.String()
}

func writeIndent(buf *bytes.Buffer, v any, depth int) {
	prefix := strings.Repeat("  ", depth)
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := val[k]
			switch child.(type) {
			case map[string]any, []any:
				fmt.Fprintf(buf, "%s%s:\n", prefix, k)
				writeIndent(buf, child, depth+1)
			default:
				fmt.Fprintf(buf, "%s%s: %v\n", prefix, k, child)
			}
		}
	case []any:
		for _, item := range val {
			switch item.(type) {
			case map[string]any, []any:
				fmt.Fprintf(buf, "%s-\n", prefix)
				writeIndent(buf, item, depth+1)
			default:
				fmt.Fprintf(buf, "%s- %v\n", prefix, item)
			}
		}
	default:
		fmt.Fprintf(buf, "%s%v\n", prefix, val)
	}
}
