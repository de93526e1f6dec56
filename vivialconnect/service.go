package vivialconnect

import (
	"context"

	"github.com/s0up4200/vivialconnect/resource"
)

// entity is satisfied by every type embedding *resource.Resource
type entity interface {
	Raw() *resource.Resource
}

// finder implements the read operations shared by all services
type finder[T entity] struct {
	c    *resource.Client
	kind resource.Kind
	wrap func(*resource.Resource) T
}

// Find fetches one resource by id
func (f *finder[T]) Find(ctx context.Context, id any) (T, error) {
	r, err := f.c.Find(ctx, f.kind, id, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.wrap(r), nil
}

// FindAll fetches the collection, filtered by query
func (f *finder[T]) FindAll(ctx context.Context, query map[string]any) ([]T, error) {
	rs, err := f.c.FindAll(ctx, f.kind, query)
	if err != nil {
		return nil, err
	}
	return wrapAll(rs, f.wrap), nil
}

// FindFirst returns the first resource matching query. It returns nil and
// no error when nothing matches.
func (f *finder[T]) FindFirst(ctx context.Context, query map[string]any) (T, error) {
	r, err := f.c.FindFirst(ctx, f.kind, query)
	if err != nil || r == nil {
		var zero T
		return zero, err
	}
	return f.wrap(r), nil
}

// Count returns the number of resources in the collection
func (f *finder[T]) Count(ctx context.Context, query map[string]any) (int, error) {
	return f.c.Count(ctx, f.kind, query)
}

// Kind returns the resource kind the service manages
func (f *finder[T]) Kind() resource.Kind {
	return f.kind
}

// crud adds the write operations
type crud[T entity] struct {
	finder[T]
}

// New returns an unsaved resource holding attrs
func (s *crud[T]) New(attrs map[string]any) T {
	return s.wrap(resource.New(s.kind, attrs))
}

// Create saves a new resource built from attrs
func (s *crud[T]) Create(ctx context.Context, attrs map[string]any) (T, error) {
	r, err := s.c.Create(ctx, s.kind, attrs)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.wrap(r), nil
}

// Save creates or updates the resource
func (s *crud[T]) Save(ctx context.Context, e T) error {
	return s.c.Save(ctx, e.Raw())
}

// Destroy deletes the resource
func (s *crud[T]) Destroy(ctx context.Context, e T) error {
	return s.c.Destroy(ctx, e.Raw())
}

// Reload replaces the local attributes with the current remote state
func (s *crud[T]) Reload(ctx context.Context, e T) error {
	return s.c.Reload(ctx, e.Raw())
}

func newCrud[T entity](c *resource.Client, kind resource.Kind, wrap func(*resource.Resource) T) crud[T] {
	return crud[T]{finder: finder[T]{c: c, kind: kind, wrap: wrap}}
}

func wrapAll[T entity](rs []*resource.Resource, wrap func(*resource.Resource) T) []T {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		out = append(out, wrap(r))
	}
	return out
}
