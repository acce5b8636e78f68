package dsl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
)

// renderFrame is one level of a representation in progress. Frames chain through the
// context so that nested renders can see their ancestors.
type renderFrame struct {
	parent *renderFrame
	id     any
	depth  int
	limit  int // deepest level rendered in full; -1 when unbounded
}

type renderKey struct{}

type identity struct {
	typ reflect.Type
	ptr uintptr
}

// identityOf returns a comparable identity for reference values, nil for plain values.
func identityOf(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}
	}
	return nil
}

// enterRender pushes a frame for s rendering instance. shallow is true when the instance is
// already being rendered further up, or when the depth budget is spent.
func enterRender(ctx context.Context, s *Schema, instance any) (context.Context, bool) {
	parent, _ := ctx.Value(renderKey{}).(*renderFrame)
	depth, limit := 0, -1
	if parent != nil {
		depth, limit = parent.depth+1, parent.limit
	}
	if maxDepth := shape.SettingsFrom(ctx).MaxDepth; maxDepth > 0 && (limit < 0 || maxDepth < limit) {
		limit = maxDepth
	}
	shallow := limit >= 0 && depth > limit
	id := identityOf(instance)
	if id != nil {
		for f := parent; f != nil; f = f.parent {
			if f.id == id {
				shallow = true
				break
			}
		}
	}
	if s.depth > 0 && (limit < 0 || depth+s.depth < limit) {
		limit = depth + s.depth
	}
	if shallow {
		zerolog.Ctx(ctx).Debug().Str("schema", s.name).Int("depth", depth).Msg("rendering nested serializer shallowly")
	}
	return context.WithValue(ctx, renderKey{}, &renderFrame{parent: parent, id: id, depth: depth, limit: limit}), shallow
}

// represent is the serialization algorithm.
func (s *Schema) represent(ctx context.Context, instance any) (*shape.OrderedMap, error) {
	ctx, shallow := enterRender(ctx, s, instance)
	out := shape.NewOrderedMap(len(s.fields))
	for _, bf := range s.fields {
		spec := bf.spec()
		if spec.WriteOnly() || (shallow && isNested(bf.field)) {
			continue
		}
		v, res, err := bf.source.Resolve(instance)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.name, bf.name, err)
		}
		switch res {
		case shape.Absent:
			def, hasDefault, err := spec.DefaultValue(ctx)
			switch {
			case err != nil:
				return nil, err
			case hasDefault:
				v = def
			case spec.AllowNull():
				out.Set(bf.name, nil)
				continue
			case !bf.required():
				continue
			default:
				return nil, fmt.Errorf("%s.%s: %T has no attribute %q", s.name, bf.name, instance, bf.source)
			}
		case shape.NilIntermediate:
			out.Set(bf.name, nil)
			continue
		}
		if v == nil {
			out.Set(bf.name, nil)
			continue
		}
		r, err := bf.field.ToRepresentation(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.name, bf.name, err)
		}
		out.Set(bf.name, r)
	}
	return out, nil
}
