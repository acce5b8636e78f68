package dsl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	shape "github.com/reoring/shape"
)

// ListField holds a list of values converted by a child field.
type ListField struct {
	*Base
	child                Field
	allowEmpty           bool
	minLength, maxLength *int
}

// List returns a field whose input is a list of child values. Errors are reported per
// index.
func List(child Field, opts ...Option) *ListField {
	b, o := newBase("list", opts, optAllowEmpty, optMinLength, optMaxLength)
	b.declare(shape.CodeNotAList, shape.CodeEmpty, shape.CodeMinLength, shape.CodeMaxLength)
	f := &ListField{Base: b, child: child, allowEmpty: o.allowEmpty == nil || *o.allowEmpty,
		minLength: o.minLength, maxLength: o.maxLength}
	if child == nil {
		b.errorf("list child is nil")
	} else {
		if err := child.Spec().Err(); err != nil {
			b.errorf("child: %v", err)
		}
		if child.Spec().Source() != "" {
			b.errorf("list child may not declare a Source")
		}
	}
	b.finish()
	return f
}

// Child returns the element field.
func (f *ListField) Child() Field { return f.child }

func (f *ListField) isNested() bool { return isNested(f.child) }

func (f *ListField) ToInternalValue(ctx context.Context, data any) (any, error) {
	items, ok := toList(data)
	if !ok {
		return nil, f.fail(shape.CodeNotAList, map[string]string{"input_type": typeName(data)})
	}
	if err := checkLength(f.Base, len(items), f.allowEmpty, f.minLength, f.maxLength); err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	errs := make(shape.ErrorArray, len(items))
	failed := false
	for i, it := range items {
		v, err := runField(ctx, f.child, it)
		if err != nil {
			node, ok := errorNode(err)
			if !ok {
				return nil, err
			}
			errs[i] = node
			failed = true
			continue
		}
		errs[i] = shape.ErrorDict{}
		out[i] = v
	}
	if failed {
		return nil, &shape.ValidationError{Detail: errs}
	}
	return out, nil
}

func (f *ListField) ToRepresentation(ctx context.Context, value any) (any, error) {
	items, ok := toList(value)
	if !ok {
		return nil, fmt.Errorf("dsl: cannot render %T as a list", value)
	}
	out := make([]any, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		v, err := f.child.ToRepresentation(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// checkLength applies the empty and length rules shared by list-like fields.
func checkLength(b *Base, n int, allowEmpty bool, minLength, maxLength *int) error {
	if n == 0 && !allowEmpty {
		return b.fail(shape.CodeEmpty, nil)
	}
	if maxLength != nil && n > *maxLength {
		return b.fail(shape.CodeMaxLength, map[string]string{"max_length": strconv.Itoa(*maxLength)})
	}
	if minLength != nil && n < *minLength {
		return b.fail(shape.CodeMinLength, map[string]string{"min_length": strconv.Itoa(*minLength)})
	}
	return nil
}

// DictField holds a string-keyed map whose values are converted by a child field.
type DictField struct {
	*Base
	child      Field
	allowEmpty bool
}

// Dict returns a field whose input is a mapping of child values. Errors are reported per
// key.
func Dict(child Field, opts ...Option) *DictField {
	b, o := newBase("dict", opts, optAllowEmpty)
	b.declare(shape.CodeNotADict, shape.CodeEmpty)
	f := &DictField{Base: b, child: child, allowEmpty: o.allowEmpty == nil || *o.allowEmpty}
	if child == nil {
		b.errorf("dict child is nil")
	} else if err := child.Spec().Err(); err != nil {
		b.errorf("child: %v", err)
	}
	b.finish()
	return f
}

func (f *DictField) Child() Field { return f.child }

func (f *DictField) isNested() bool { return isNested(f.child) }

func (f *DictField) ToInternalValue(ctx context.Context, data any) (any, error) {
	m, ok := shape.AsMapping(data)
	if !ok {
		return nil, f.fail(shape.CodeNotADict, map[string]string{"input_type": typeName(data)})
	}
	keys := m.Keys()
	if len(keys) == 0 && !f.allowEmpty {
		return nil, f.fail(shape.CodeEmpty, nil)
	}
	out := make(map[string]any, len(keys))
	errs := shape.ErrorDict{}
	for _, k := range keys {
		raw, _ := m.Get(k)
		v, err := runField(ctx, f.child, raw)
		if err != nil {
			node, ok := errorNode(err)
			if !ok {
				return nil, err
			}
			errs[k] = node
			continue
		}
		out[k] = v
	}
	if len(errs) > 0 {
		return nil, &shape.ValidationError{Detail: errs}
	}
	return out, nil
}

func (f *DictField) ToRepresentation(ctx context.Context, value any) (any, error) {
	m, ok := shape.AsMapping(value)
	if !ok {
		return nil, fmt.Errorf("dsl: cannot render %T as a dict", value)
	}
	keys := m.Keys()
	out := shape.NewOrderedMap(len(keys))
	for _, k := range keys {
		raw, _ := m.Get(k)
		if raw == nil {
			out.Set(k, nil)
			continue
		}
		v, err := f.child.ToRepresentation(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out.Set(k, v)
	}
	return out, nil
}

// JSONField accepts any JSON-encodable value.
type JSONField struct{ *Base }

// JSON returns a free-form field.
func JSON(opts ...Option) *JSONField {
	b, _ := newBase("json", opts)
	b.finish()
	return &JSONField{Base: b}
}

func (f *JSONField) ToInternalValue(_ context.Context, data any) (any, error) {
	if _, err := json.Marshal(data); err != nil {
		return nil, f.fail(shape.CodeInvalid, nil)
	}
	return shape.Plain(data), nil
}

func (f *JSONField) ToRepresentation(_ context.Context, value any) (any, error) {
	return value, nil
}

// PassthroughField renders the attribute unchanged and never accepts input.
type PassthroughField struct{ *Base }

// ReadOnlyField returns a read-only field that renders its attribute as is.
func ReadOnlyField(opts ...Option) *PassthroughField {
	b, _ := newBase("read_only", append([]Option{ReadOnly()}, opts...))
	b.finish()
	return &PassthroughField{Base: b}
}

func (f *PassthroughField) ToInternalValue(_ context.Context, data any) (any, error) {
	return data, nil
}

func (f *PassthroughField) ToRepresentation(_ context.Context, value any) (any, error) {
	return value, nil
}

// HiddenField always takes its default; input under its name is ignored and it is never
// rendered.
type HiddenField struct{ *Base }

// Hidden returns a field that contributes def to validated data.
func Hidden(def any, opts ...Option) *HiddenField {
	b, _ := newBase("hidden", append([]Option{Default(def), WriteOnly()}, opts...))
	b.ignoreInput = true
	b.finish()
	return &HiddenField{Base: b}
}

// HiddenFunc is Hidden with a computed default (the current user, a timestamp).
func HiddenFunc(fn func(ctx context.Context) (any, error), opts ...Option) *HiddenField {
	b, _ := newBase("hidden", append([]Option{DefaultFunc(fn), WriteOnly()}, opts...))
	b.ignoreInput = true
	b.finish()
	return &HiddenField{Base: b}
}

func (f *HiddenField) ToInternalValue(_ context.Context, data any) (any, error) {
	return data, nil
}

func (f *HiddenField) ToRepresentation(_ context.Context, value any) (any, error) {
	return value, nil
}

// MethodFunc computes a read-only value from the whole instance.
type MethodFunc func(ctx context.Context, instance any) (any, error)

// MethodField renders a computed value.
type MethodField struct {
	*Base
	fn MethodFunc
}

// Method returns a read-only field rendered by fn.
func Method(fn MethodFunc, opts ...Option) *MethodField {
	b, _ := newBase("method", append([]Option{ReadOnly(), Source("*")}, opts...))
	if fn == nil {
		b.errorf("method is nil")
	}
	b.finish()
	return &MethodField{Base: b, fn: fn}
}

func (f *MethodField) ToInternalValue(_ context.Context, data any) (any, error) {
	return data, nil
}

func (f *MethodField) ToRepresentation(ctx context.Context, value any) (any, error) {
	return f.fn(ctx, value)
}
