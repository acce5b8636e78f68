package shape

import (
	"context"
	"fmt"
	"reflect"
)

// Queryset is a searchable collection of candidate related objects. Implementations may hit
// a database; the engine treats every failure as "does not exist".
type Queryset interface {
	// Get returns the single object whose attribute field equals value. It returns
	// ErrNotFound when nothing matches.
	Get(ctx context.Context, field string, value any) (any, error)
	// All returns every candidate, in a stable order.
	All(ctx context.Context) ([]any, error)
}

// Locator builds and resolves hyperlinks for endpoints. It is normally backed by a router.
type Locator interface {
	Build(ctx context.Context, endpoint string, ref any) (string, error)
	Resolve(ctx context.Context, locator string) (endpoint string, ref string, err error)
}

// Persister stores validated data. It is supplied by the embedding application.
type Persister interface {
	Create(ctx context.Context, data map[string]any) (any, error)
	Update(ctx context.Context, instance any, data map[string]any) (any, error)
}

// Deleter removes an instance; bulk updates in removal mode call it.
type Deleter interface {
	Delete(ctx context.Context, instance any) error
}

// Validator checks a value. A failing validator returns a *ValidationError; other errors
// are reported with their Error() text under the "invalid" code.
type Validator interface {
	Validate(ctx context.Context, value any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, value any) error

func (f ValidatorFunc) Validate(ctx context.Context, value any) error { return f(ctx, value) }

// SliceQueryset is an in-memory Queryset over a fixed set of objects. Attributes are
// resolved with the same rules as serializer sources.
type SliceQueryset []any

// Get compares attribute values by their string form so that "3" from form input matches 3.
func (q SliceQueryset) Get(_ context.Context, field string, value any) (any, error) {
	path := ParsePath(field)
	want := fmt.Sprint(value)
	var match any
	n := 0
	for _, obj := range q {
		v, res, err := path.Resolve(obj)
		if err != nil || res != Found {
			continue
		}
		if Equal(v, value) || fmt.Sprint(v) == want {
			match = obj
			n++
		}
	}
	switch n {
	case 0:
		return nil, ErrNotFound
	case 1:
		return match, nil
	default:
		return nil, ErrMultipleFound
	}
}

func (q SliceQueryset) All(context.Context) ([]any, error) {
	out := make([]any, len(q))
	copy(out, q)
	return out, nil
}

// SliceOf converts a typed slice into a SliceQueryset.
func SliceOf[T any](items []T) SliceQueryset {
	out := make(SliceQueryset, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// Equal reports deep equality, treating nil-able empty values as equal to nil.
func Equal(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	return reflect.DeepEqual(a, b)
}
