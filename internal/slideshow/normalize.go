package slideshow

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// PrimaryMonitor is the synthetic identifier used when a probe only reports
// presence (a bool or number) instead of connector names.
const PrimaryMonitor = "primary"

// NormalizeMonitors classifies a probe result and converts it to a
// deduplicated, order-stable list of non-empty monitor identifiers.
//
//   - nil, "", empty collections and falsy scalars mean no monitors.
//   - A string is a single identifier; it is never split into runes.
//   - Slices and arrays contribute one identifier per truthy element.
//   - map[string]bool contributes the keys mapped to true; other maps
//     contribute their keys. Map results are sorted.
//   - bool and numeric values stand for presence of PrimaryMonitor.
//   - Any other non-nil value is treated as a present PrimaryMonitor.
func NormalizeMonitors(v any) []string {
	switch m := v.(type) {
	case nil:
		return nil
	case string:
		return single(m)
	case []string:
		return dedupe(m)
	case map[string]bool:
		names := make([]string, 0, len(m))
		for name, on := range m {
			if on {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return dedupe(names)
	case fmt.Stringer:
		if isNilPointer(m) {
			return nil
		}
		return single(m.String())
	case bool:
		return presence(m)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return single(rv.String())
	case reflect.Slice, reflect.Array:
		names := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if name, ok := identifier(rv.Index(i)); ok {
				names = append(names, name)
			}
		}
		return dedupe(names)
	case reflect.Map:
		names := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if name, ok := identifier(iter.Key()); ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return dedupe(names)
	case reflect.Bool:
		return presence(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return presence(rv.Int() != 0)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return presence(rv.Uint() != 0)
	case reflect.Float32, reflect.Float64:
		return presence(rv.Float() != 0)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return NormalizeMonitors(rv.Elem().Interface())
	}

	return presence(true)
}

// identifier converts one collection element to a monitor name.
func identifier(rv reflect.Value) (string, bool) {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return strings.TrimSpace(s.String()), true
		}
		rv = rv.Elem()
	}

	if !rv.IsValid() || rv.IsZero() {
		return "", false
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return strings.TrimSpace(s.String()), true
	}
	if rv.Kind() == reflect.String {
		return strings.TrimSpace(rv.String()), true
	}
	return fmt.Sprint(rv.Interface()), true
}

func single(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return []string{name}
}

func presence(present bool) []string {
	if !present {
		return nil
	}
	return []string{PrimaryMonitor}
}

func dedupe(names []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
