package chunker

import "reflect"

// SanitizeMetadata returns a copy of meta holding only primitive values.
// Strings and bools are kept as-is, integer kinds become int64 and float kinds float64.
// Nil, slices, maps, structs, pointers and other composite values are dropped.
func SanitizeMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if pv, ok := primitive(v); ok {
			out[k] = pv
		}
	}
	return out
}

func primitive(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return nil, false
	}
}
