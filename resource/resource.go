package resource

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"

	"github.com/s0up4200/vivialconnect/inflect"
	"github.com/s0up4200/vivialconnect/requestor"
)

// Resource is a local reflection of one remote object. Attributes are keyed
// by their wire (snake_case) names. A Resource is not safe for concurrent
// mutation.
type Resource struct {
	kind   Kind
	prefix string
	attrs  map[string]any
}

// New creates an unsaved resource of kind with a copy of attrs
func New(kind Kind, attrs map[string]any) *Resource {
	return NewWithPrefix(kind, "", attrs)
}

// NewWithPrefix creates a resource nested under a parent path (see Prefix)
func NewWithPrefix(kind Kind, prefix string, attrs map[string]any) *Resource {
	r := &Resource{
		kind:   kind,
		prefix: prefix,
		attrs:  make(map[string]any, len(attrs)),
	}
	r.merge(attrs)
	return r
}

// Raw returns r. Types that embed *Resource inherit it, which lets generic
// code reach the underlying resource.
func (r *Resource) Raw() *Resource {
	return r
}

// Kind returns the resource kind
func (r *Resource) Kind() Kind {
	return r.kind
}

// Prefix returns the parent path the resource is nested under, if any
func (r *Resource) Prefix() string {
	return r.prefix
}

// ID returns the value of the primary key attribute
func (r *Resource) ID() any {
	return r.attrs[r.kind.PrimaryKey]
}

// IDString returns the primary key formatted for use in paths
func (r *Resource) IDString() string {
	return FormatID(r.ID())
}

// SetID sets the primary key attribute. A nil id marks the resource new.
func (r *Resource) SetID(id any) {
	if id == nil {
		delete(r.attrs, r.kind.PrimaryKey)
		return
	}
	r.attrs[r.kind.PrimaryKey] = id
}

// IsNew reports whether the resource has not been saved yet
func (r *Resource) IsNew() bool {
	return isEmptyID(r.ID())
}

// Get returns the raw attribute value
func (r *Resource) Get(key string) (any, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

// Set assigns an attribute
func (r *Resource) Set(key string, value any) {
	r.attrs[key] = value
}

// Has reports whether the attribute is present
func (r *Resource) Has(key string) bool {
	_, ok := r.attrs[key]
	return ok
}

// Delete removes an attribute
func (r *Resource) Delete(key string) {
	delete(r.attrs, key)
}

// String returns the attribute as a string, or "" when missing or nil
func (r *Resource) String(key string) string {
	switch v := r.attrs[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return FormatID(v)
	}
}

// Int returns the attribute as an integer, or 0 when it cannot be converted
func (r *Resource) Int(key string) int64 {
	switch v := r.attrs[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Float returns the attribute as a float, or 0 when it cannot be converted
func (r *Resource) Float(key string) float64 {
	switch v := r.attrs[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Bool returns the attribute as a boolean
func (r *Resource) Bool(key string) bool {
	switch v := r.attrs[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	}
	return false
}

// Time parses a timestamp attribute. The service mixes ISO 8601 strings
// with and without zone designators.
func (r *Resource) Time(key string) (time.Time, error) {
	switch v := r.attrs[key].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: attribute %q: %v", requestor.ErrResource, key, err)
		}
		return t, nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("%w: attribute %q not set", requestor.ErrResource, key)
	default:
		return time.Time{}, fmt.Errorf("%w: attribute %q is %T, not a timestamp", requestor.ErrResource, key, v)
	}
}

// Attributes returns a deep copy of the attribute map
func (r *Resource) Attributes() map[string]any {
	return copyMap(r.attrs)
}

// ToMap is an alias of Attributes kept for symmetry with Wrap.
func (r *Resource) ToMap() map[string]any {
	return r.Attributes()
}

// Wrap returns the attributes nested under root, which is how request
// bodies are shaped. An empty root returns the bare attributes.
func (r *Resource) Wrap(root string) map[string]any {
	if root == "" {
		return r.Attributes()
	}
	return map[string]any{root: r.Attributes()}
}

// Equal reports whether both resources denote the same remote object: same
// kind, same id and same parent prefix.
func (r *Resource) Equal(other *Resource) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.kind.Name == other.kind.Name &&
		r.prefix == other.prefix &&
		r.IDString() == other.IDString()
}

// Decode copies the attributes into out, a pointer to a struct. Fields match
// wire names through their mapstructure tag or, without one, through the
// CamelCase form of the wire name. Timestamp strings decode into time.Time.
func (r *Resource) Decode(out any) error {
	return DecodeMap(r.attrs, out)
}

// DecodeMap decodes a generic map the same way Resource.Decode does.
func DecodeMap(in any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(timeHook),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		MatchName: func(mapKey, fieldName string) bool {
			return strings.EqualFold(mapKey, fieldName) ||
				inflect.Camelize(mapKey) == fieldName
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create decoder: %v", requestor.ErrResource, err)
	}
	if err := decoder.Decode(in); err != nil {
		return fmt.Errorf("%w: failed to decode %T: %v", requestor.ErrResource, out, err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		return dateparse.ParseIn(v, time.UTC)
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	}
	return data, nil
}

// Update merges attrs into the existing attributes
func (r *Resource) Update(attrs map[string]any) {
	r.merge(attrs)
}

// merge copies attrs over the existing attributes
func (r *Resource) merge(attrs map[string]any) {
	for k, v := range attrs {
		r.attrs[k] = copyValue(v)
	}
}

// replace discards every attribute and installs attrs
func (r *Resource) replace(attrs map[string]any) {
	r.attrs = make(map[string]any, len(attrs))
	r.merge(attrs)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
