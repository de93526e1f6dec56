package resource

import (
	"fmt"
	"strings"

	"github.com/s0up4200/vivialconnect/inflect"
)

const accountPrefix = "/accounts/%s"

// Kind describes a resource type: its wire names, primary key and whether
// its paths live under the owning account.
type Kind struct {
	Name          string
	Singular      string
	Plural        string
	PrimaryKey    string
	AccountScoped bool
}

// KindOption customizes a Kind
type KindOption func(*Kind)

// WithSingular overrides the singular wire name
func WithSingular(singular string) KindOption {
	return func(k *Kind) {
		k.Singular = singular
	}
}

// WithPlural overrides the plural wire name
func WithPlural(plural string) KindOption {
	return func(k *Kind) {
		k.Plural = plural
	}
}

// WithPrimaryKey overrides the primary key attribute
func WithPrimaryKey(key string) KindOption {
	return func(k *Kind) {
		k.PrimaryKey = key
	}
}

// Unscoped marks a kind whose paths are not prefixed with the account.
func Unscoped() KindOption {
	return func(k *Kind) {
		k.AccountScoped = false
	}
}

// NewKind derives a Kind from a Go type name. The singular name defaults to
// the snake_case form of name and the plural to its pluralization. The
// plural is derived after options run, so overriding the singular also
// changes the default plural.
func NewKind(name string, opts ...KindOption) Kind {
	k := Kind{
		Name:          name,
		PrimaryKey:    "id",
		AccountScoped: true,
	}
	for _, opt := range opts {
		opt(&k)
	}
	if k.Singular == "" {
		k.Singular = inflect.Underscore(name)
	}
	if k.Plural == "" {
		k.Plural = inflect.Pluralize(k.Singular)
	}
	return k
}

func (k Kind) base(accountID, prefix string) string {
	if !k.AccountScoped {
		return prefix
	}
	return fmt.Sprintf(accountPrefix, accountID) + prefix
}

// CollectionPath returns /accounts/{account}{prefix}/{plural}.json
func (k Kind) CollectionPath(accountID, prefix string) string {
	return k.base(accountID, prefix) + "/" + k.Plural + ".json"
}

// ElementPath returns /accounts/{account}{prefix}/{plural}/{id}.json
func (k Kind) ElementPath(accountID, prefix string, id any) string {
	return k.base(accountID, prefix) + "/" + k.Plural + "/" + FormatID(id) + ".json"
}

// CustomPath returns /accounts/{account}{prefix}/{plural}[/{id}]{custom}.json.
// The id segment is omitted when id is empty.
func (k Kind) CustomPath(accountID, prefix string, id any, custom string) string {
	var b strings.Builder
	b.WriteString(k.base(accountID, prefix))
	b.WriteString("/")
	b.WriteString(k.Plural)
	if !isEmptyID(id) {
		b.WriteString("/")
		b.WriteString(FormatID(id))
	}
	b.WriteString(custom)
	b.WriteString(".json")
	return b.String()
}

// Prefix builds the path segment that nests a kind under a parent element,
// for example /messages/7 for attachments of message 7.
func Prefix(parentPlural string, parentID any) string {
	return "/" + parentPlural + "/" + FormatID(parentID)
}

// FormatID renders an identifier for use in a path. JSON numbers decode as
// float64, so integral floats are printed without a fractional part.
func FormatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	case float32:
		return FormatID(float64(v))
	default:
		return fmt.Sprint(v)
	}
}

func isEmptyID(id any) bool {
	switch v := id.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}
