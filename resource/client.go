package resource

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/s0up4200/vivialconnect/inflect"
	"github.com/s0up4200/vivialconnect/requestor"
)

// Requestor sends one signed request and returns the decoded JSON body.
// *requestor.Requestor implements it.
type Requestor interface {
	Do(ctx context.Context, method, path string, params map[string]any, payload any) (any, error)
	AccountID() string
}

// Client runs CRUD operations for any Kind. Every operation issues exactly
// one request.
type Client struct {
	req    Requestor
	logger zerolog.Logger
}

// NewClient creates a resource client on top of req
func NewClient(req Requestor, logger zerolog.Logger) *Client {
	return &Client{
		req:    req,
		logger: logger,
	}
}

// AccountID returns the account all scoped paths are built for
func (c *Client) AccountID() string {
	return c.req.AccountID()
}

// CallOption adjusts how a single operation builds its path
type CallOption func(*callOptions)

type callOptions struct {
	prefix string
}

// In nests the operation under a parent path built with Prefix.
func In(prefix string) CallOption {
	return func(o *callOptions) {
		o.prefix = prefix
	}
}

func applyCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withQuery appends query encoded with inflect.ToQuery
func withQuery(path string, query map[string]any) string {
	if len(query) == 0 {
		return path
	}
	if encoded := inflect.ToQuery(query); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

// Find fetches one element by id
func (c *Client) Find(ctx context.Context, kind Kind, id any, query map[string]any, opts ...CallOption) (*Resource, error) {
	if isEmptyID(id) {
		return nil, fmt.Errorf("%w: %s id is required", requestor.ErrResource, kind.Singular)
	}
	o := applyCallOptions(opts)

	path := withQuery(kind.ElementPath(c.AccountID(), o.prefix, id), query)
	body, err := c.req.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %s: %w", kind.Singular, FormatID(id), err)
	}
	return BuildObject(kind, o.prefix, body)
}

// FindAll fetches the collection. A single object in the response is
// promoted to a one-element list.
func (c *Client) FindAll(ctx context.Context, kind Kind, query map[string]any, opts ...CallOption) ([]*Resource, error) {
	o := applyCallOptions(opts)

	path := withQuery(kind.CollectionPath(c.AccountID(), o.prefix), query)
	body, err := c.req.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Plural, err)
	}
	return BuildList(kind, o.prefix, body)
}

// FindFirst returns the first element of FindAll, or nil when the
// collection is empty.
func (c *Client) FindFirst(ctx context.Context, kind Kind, query map[string]any, opts ...CallOption) (*Resource, error) {
	all, err := c.FindAll(ctx, kind, query, opts...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// Create builds a resource from attrs and saves it
func (c *Client) Create(ctx context.Context, kind Kind, attrs map[string]any, opts ...CallOption) (*Resource, error) {
	o := applyCallOptions(opts)
	r := NewWithPrefix(kind, o.prefix, attrs)
	if err := c.Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Save creates the resource when it is new (POST to the collection) and
// updates it otherwise (PUT to the element). The attributes returned by the
// service are merged into r.
func (c *Client) Save(ctx context.Context, r *Resource) error {
	kind := r.Kind()
	payload := r.Wrap(kind.Singular)

	var (
		body any
		err  error
	)
	if r.IsNew() {
		body, err = c.req.Do(ctx, http.MethodPost, kind.CollectionPath(c.AccountID(), r.Prefix()), nil, payload)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", kind.Singular, err)
		}
	} else {
		body, err = c.req.Do(ctx, http.MethodPut, kind.ElementPath(c.AccountID(), r.Prefix(), r.ID()), nil, payload)
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", kind.Singular, r.IDString(), err)
		}
	}

	if attrs, ok := objectAttrs(kind, body); ok {
		r.merge(attrs)
	}

	c.logger.Debug().
		Str("kind", kind.Singular).
		Str("id", r.IDString()).
		Msg("Saved resource")

	return nil
}

// Destroy deletes the resource on the service
func (c *Client) Destroy(ctx context.Context, r *Resource) error {
	kind := r.Kind()
	if r.IsNew() {
		return fmt.Errorf("%w: cannot destroy unsaved %s", requestor.ErrResource, kind.Singular)
	}
	if _, err := c.req.Do(ctx, http.MethodDelete, kind.ElementPath(c.AccountID(), r.Prefix(), r.ID()), nil, nil); err != nil {
		return fmt.Errorf("failed to destroy %s %s: %w", kind.Singular, r.IDString(), err)
	}
	return nil
}

// Reload fetches the resource again and replaces every local attribute
func (c *Client) Reload(ctx context.Context, r *Resource) error {
	kind := r.Kind()
	if r.IsNew() {
		return fmt.Errorf("%w: cannot reload unsaved %s", requestor.ErrResource, kind.Singular)
	}
	body, err := c.req.Do(ctx, http.MethodGet, kind.ElementPath(c.AccountID(), r.Prefix(), r.ID()), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to reload %s %s: %w", kind.Singular, r.IDString(), err)
	}
	attrs, ok := objectAttrs(kind, body)
	if !ok {
		return fmt.Errorf("%w: unexpected %s body %T", requestor.ErrResource, kind.Singular, body)
	}
	r.replace(attrs)
	return nil
}

// Count returns the size of the collection, GET {plural}/count.json
func (c *Client) Count(ctx context.Context, kind Kind, query map[string]any, opts ...CallOption) (int, error) {
	body, err := c.Get(ctx, kind, nil, "/count", query, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind.Plural, err)
	}
	return ToInt(inflect.RemoveRoot(body))
}

// Get issues a GET against a custom path below the kind's collection or
// element and returns the raw decoded body.
func (c *Client) Get(ctx context.Context, kind Kind, id any, custom string, query map[string]any, opts ...CallOption) (any, error) {
	o := applyCallOptions(opts)
	path := withQuery(kind.CustomPath(c.AccountID(), o.prefix, id, custom), query)
	return c.req.Do(ctx, http.MethodGet, path, nil, nil)
}

// Post issues a POST with payload against a custom path and returns the raw
// decoded body.
func (c *Client) Post(ctx context.Context, kind Kind, id any, custom string, payload any, opts ...CallOption) (any, error) {
	o := applyCallOptions(opts)
	return c.req.Do(ctx, http.MethodPost, kind.CustomPath(c.AccountID(), o.prefix, id, custom), nil, payload)
}

// Do passes a request straight to the requestor. params are encoded with
// requestor.EncodeParams rather than inflect.ToQuery.
func (c *Client) Do(ctx context.Context, method, path string, params map[string]any, payload any) (any, error) {
	return c.req.Do(ctx, method, path, params, payload)
}

// objectAttrs returns the attributes of a single object body. A root is
// only removed when it is the kind's singular name wrapping an object, so an
// element with one attribute such as {"id": 1} is kept whole.
func objectAttrs(kind Kind, body any) (map[string]any, bool) {
	m, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	if len(m) == 1 {
		if inner, ok := m[kind.Singular].(map[string]any); ok {
			return inner, true
		}
	}
	return m, true
}

// BuildObject wraps a response body, root removed, as a resource
func BuildObject(kind Kind, prefix string, body any) (*Resource, error) {
	attrs, ok := objectAttrs(kind, body)
	if !ok {
		return nil, fmt.Errorf("%w: expected %s object, got %T", requestor.ErrResource, kind.Singular, body)
	}
	return NewWithPrefix(kind, prefix, attrs), nil
}

// BuildList wraps a collection response as resources. Elements wrapped in
// the kind's singular root are unwrapped as well.
func BuildList(kind Kind, prefix string, body any) ([]*Resource, error) {
	var elements []any
	switch v := inflect.RemoveRoot(body).(type) {
	case nil:
		return []*Resource{}, nil
	case map[string]any:
		elements = []any{v}
	case []any:
		elements = v
	default:
		// a bare one-attribute object such as {"id": 1}
		m, ok := body.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected %s list, got %T", requestor.ErrResource, kind.Plural, v)
		}
		elements = []any{m}
	}

	resources := make([]*Resource, 0, len(elements))
	for _, element := range elements {
		r, err := BuildObject(kind, prefix, element)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// BuildPage wraps the "items" list of a paginated response
func BuildPage(kind Kind, body any) ([]*Resource, error) {
	page, ok := body.(map[string]any)
	if !ok {
		return []*Resource{}, nil
	}
	items, ok := page["items"].([]any)
	if !ok {
		return []*Resource{}, nil
	}
	resources := make([]*Resource, 0, len(items))
	for _, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected %s item %T", requestor.ErrResource, kind.Singular, item)
		}
		resources = append(resources, New(kind, attrs))
	}
	return resources, nil
}

// ToInt converts a decoded JSON scalar to an int
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid count %q", requestor.ErrResource, n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: invalid count %v", requestor.ErrResource, v)
}
