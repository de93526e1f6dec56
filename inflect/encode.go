package inflect

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// ToQuery encodes params as a URL query string. Slices are sent as repeated
// "key[]" entries and nested maps as "key[sub]" entries, recursively. Nil
// values are skipped. Keys are emitted in sorted order.
func ToQuery(params map[string]any) string {
	values := url.Values{}
	annotateParams(values, params)
	return values.Encode()
}

func annotateParams(values url.Values, params map[string]any) {
	for key, value := range params {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			nested := make(map[string]any, len(v))
			for dk, dv := range v {
				nested[fmt.Sprintf("%s[%s]", key, dk)] = dv
			}
			annotateParams(values, nested)
		case map[string]string:
			for dk, dv := range v {
				values.Add(fmt.Sprintf("%s[%s]", key, dk), dv)
			}
		case string:
			values.Add(key, v)
		default:
			rv := reflect.ValueOf(value)
			if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
				listKey := key + "[]"
				for i := 0; i < rv.Len(); i++ {
					values.Add(listKey, fmt.Sprint(rv.Index(i).Interface()))
				}
				continue
			}
			values.Add(key, fmt.Sprint(value))
		}
	}
}

// ToJSON serializes v as compact JSON. When root is not empty the value is
// first wrapped as {root: v}, which is how the service expects request bodies.
func ToJSON(v any, root string) ([]byte, error) {
	if root != "" {
		v = map[string]any{root: v}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return data, nil
}

// JSONToMap decodes a JSON document into generic values: objects become
// map[string]any, arrays []any and numbers float64.
func JSONToMap(data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	return out, nil
}

// RemoveRoot strips a single enclosing wrapper key. Anything that is not a
// map with exactly one entry is returned unchanged.
func RemoveRoot(data any) any {
	if m, ok := data.(map[string]any); ok && len(m) == 1 {
		for _, v := range m {
			return v
		}
	}
	return data
}

// FormatTagFilter rewrites the "contains" and "notcontains" tag filters from
// maps into the "key:value,key:value" form the tags endpoint expects. Other
// entries are left untouched. The input map is not modified.
func FormatTagFilter(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, key := range []string{"contains", "notcontains"} {
		tags, ok := out[key].(map[string]string)
		if !ok || len(tags) == 0 {
			continue
		}
		names := make([]string, 0, len(tags))
		for name := range tags {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, name+":"+tags[name])
		}
		out[key] = strings.Join(pairs, ",")
	}
	return out
}
