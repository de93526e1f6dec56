package requestor

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EncodeParams flattens params into a query string. Lists become key[i],
// maps become key[k], times are sent as unix seconds and nil values are
// dropped. Keys are sorted.
func EncodeParams(params map[string]any) string {
	values := url.Values{}
	for key, value := range params {
		flatten(values, key, value)
	}
	return values.Encode()
}

func flatten(values url.Values, key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		values.Add(key, v)
	case time.Time:
		values.Add(key, strconv.FormatInt(v.Unix(), 10))
	case *time.Time:
		if v != nil {
			values.Add(key, strconv.FormatInt(v.Unix(), 10))
		}
	case bool:
		values.Add(key, strconv.FormatBool(v))
	case fmt.Stringer:
		values.Add(key, v.String())
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				flatten(values, fmt.Sprintf("%s[%d]", key, i), rv.Index(i).Interface())
			}
		case reflect.Map:
			keys := rv.MapKeys()
			sort.Slice(keys, func(i, j int) bool {
				return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
			})
			for _, k := range keys {
				flatten(values, fmt.Sprintf("%s[%v]", key, k.Interface()), rv.MapIndex(k).Interface())
			}
		case reflect.Pointer:
			if !rv.IsNil() {
				flatten(values, key, rv.Elem().Interface())
			}
		default:
			values.Add(key, fmt.Sprint(value))
		}
	}
}

// buildURL appends the encoded params to rawURL, respecting an existing query
func buildURL(rawURL string, params map[string]any) string {
	encoded := EncodeParams(params)
	if encoded == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + encoded
	}
	return rawURL + "?" + encoded
}
