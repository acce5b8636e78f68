package dsl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
)

// defaultLookup is the attribute related objects are identified by unless LookupField says
// otherwise. Attribute matching ignores case, so it finds an ID struct field.
const defaultLookup = "id"

// ReverseWriter stores a writable reverse relation after its parent was saved.
type ReverseWriter interface {
	SetRelated(ctx context.Context, instance any, field string, related []any) error
}

// ReverseWriterFunc adapts a function to ReverseWriter.
type ReverseWriterFunc func(ctx context.Context, instance any, field string, related []any) error

func (f ReverseWriterFunc) SetRelated(ctx context.Context, instance any, field string, related []any) error {
	return f(ctx, instance, field, related)
}

func newRelated(typ string, opts []Option, accepted ...string) (*Base, *options) {
	b, o := newBase(typ, opts, append(accepted, optQueryset, optMany, optAllowEmpty)...)
	b.emptyAsNil = true
	b.declare(shape.CodeDoesNotExist, shape.CodeIncorrectType)
	return b, o
}

// finishRelated checks the queryset rules and wraps the field in a ManyRelatedField when
// Many was given.
func finishRelated(b *Base, o *options, f Field) Field {
	switch {
	case !b.readOnly && o.queryset == nil:
		b.errorf("writable related field requires a Queryset (or ReadOnly)")
	case b.readOnly && o.queryset != nil:
		b.errorf("read-only related field may not declare a Queryset")
	}
	if !o.many {
		if o.has(optAllowEmpty) {
			b.errorf("AllowEmpty requires Many")
		}
		b.finish()
		return f
	}
	return manyOf(b, o, f)
}

// manyOf moves the presence policy of child's descriptor onto a new list-level descriptor.
func manyOf(b *Base, o *options, child Field) *ManyRelatedField {
	mb := &Base{
		typ:        "many_related",
		order:      b.order,
		source:     b.source,
		required:   b.required,
		readOnly:   b.readOnly,
		writeOnly:  b.writeOnly,
		allowNull:  b.allowNull,
		hasDefault: b.hasDefault,
		def:        b.def,
		defFunc:    b.defFunc,
		label:      b.label,
		helpText:   b.helpText,
		validators: b.validators,
		messages:   b.messages,
		errs:       b.errs,
		kinds:      map[string]string{},
	}
	mb.declare(shape.CodeRequired, shape.CodeNull, shape.CodeInvalid, shape.CodeNotAList, shape.CodeEmpty)
	for _, k := range sortedKeys(b.messages) {
		_, onList := mb.kinds[k]
		_, onItem := b.kinds[k]
		if !onList && !onItem {
			mb.errorf("error message for %q, which %s fields never raise", k, b.typ)
		}
	}
	b.source, b.required, b.hasDefault, b.def, b.defFunc = "", false, false, nil, nil
	b.validators, b.errs, b.allowNull = nil, nil, false
	return &ManyRelatedField{Base: mb, child: child, allowEmpty: o.allowEmpty == nil || *o.allowEmpty}
}

// ManyRelatedField is a list of related objects handled by one child relation.
type ManyRelatedField struct {
	*Base
	child      Field
	allowEmpty bool
}

// Child returns the relation applied to each item.
func (f *ManyRelatedField) Child() Field { return f.child }

func (f *ManyRelatedField) ToInternalValue(ctx context.Context, data any) (any, error) {
	items, ok := toList(data)
	if !ok {
		return nil, f.fail(shape.CodeNotAList, map[string]string{"input_type": typeName(data)})
	}
	if len(items) == 0 && !f.allowEmpty {
		return nil, f.fail(shape.CodeEmpty, nil)
	}
	out := make([]any, len(items))
	for i, it := range items {
		v, err := runField(ctx, f.child, it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *ManyRelatedField) ToRepresentation(ctx context.Context, value any) (any, error) {
	items, err := collection(ctx, value)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		if out[i], err = f.child.ToRepresentation(ctx, it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// collection lists the members of a to-many attribute: a slice, or a Queryset such as a
// lazily loaded relation.
func collection(ctx context.Context, value any) ([]any, error) {
	if q, ok := value.(shape.Queryset); ok {
		return q.All(ctx)
	}
	items, ok := toList(value)
	if !ok {
		return nil, fmt.Errorf("dsl: cannot render %T as a collection", value)
	}
	return items, nil
}

func lookupFailed(ctx context.Context, b *Base, err error, value any) {
	zerolog.Ctx(ctx).Debug().Err(err).Str("field", b.typ).Interface("value", value).Msg("related lookup failed")
}

// PrimaryKeyRelatedField identifies related objects by primary key.
type PrimaryKeyRelatedField struct {
	*Base
	queryset shape.Queryset
	pkField  Field
	lookup   shape.Path
}

// PrimaryKeyRelated returns a relation represented by the target's primary key. Writable
// relations need Queryset; PKField converts keys in both directions.
func PrimaryKeyRelated(opts ...Option) Field {
	b, o := newRelated("pk", opts, optPKField, optLookupField)
	f := &PrimaryKeyRelatedField{Base: b, queryset: o.queryset, pkField: o.pkField, lookup: lookupPath(o)}
	if o.has(optPKField) && o.pkField == nil {
		b.errorf("PKField is nil")
	}
	return finishRelated(b, o, f)
}

func lookupPath(o *options) shape.Path {
	if o.lookupField != "" {
		return shape.ParsePath(o.lookupField)
	}
	return shape.ParsePath(defaultLookup)
}

func (f *PrimaryKeyRelatedField) ToInternalValue(ctx context.Context, data any) (any, error) {
	if f.pkField != nil {
		v, err := f.pkField.ToInternalValue(ctx, data)
		if err != nil {
			return nil, err
		}
		data = v
	}
	if !isScalar(data) {
		return nil, f.fail(shape.CodeIncorrectType, map[string]string{"data_type": typeName(data)})
	}
	obj, err := f.queryset.Get(ctx, f.lookup.String(), data)
	if err != nil {
		lookupFailed(ctx, f.Base, err, data)
		return nil, f.fail(shape.CodeDoesNotExist, map[string]string{"pk_value": fmt.Sprint(data)})
	}
	return obj, nil
}

func (f *PrimaryKeyRelatedField) ToRepresentation(ctx context.Context, value any) (any, error) {
	pk := value
	if !isScalar(value) {
		v, res, err := f.lookup.Resolve(value)
		if err != nil {
			return nil, err
		}
		if res != shape.Found {
			return nil, fmt.Errorf("dsl: %T has no attribute %q", value, f.lookup)
		}
		pk = v
	}
	if f.pkField != nil && pk != nil {
		return f.pkField.ToRepresentation(ctx, pk)
	}
	return pk, nil
}

// isScalar reports whether v can serve as a lookup key: not a bool, collection or object.
func isScalar(v any) bool {
	switch v.(type) {
	case bool:
		return false
	case string:
		return true
	}
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	case reflect.Array:
		// fixed-size identifiers such as uuid.UUID
		return true
	}
	return false
}

// SlugRelatedField identifies related objects by a unique attribute.
type SlugRelatedField struct {
	*Base
	queryset shape.Queryset
	slug     shape.Path
}

// SlugRelated returns a relation represented by the target's slugField attribute.
func SlugRelated(slugField string, opts ...Option) Field {
	b, o := newRelated("slug_related", opts)
	f := &SlugRelatedField{Base: b, queryset: o.queryset, slug: shape.ParsePath(slugField)}
	if slugField == "" {
		b.errorf("slug field is empty")
	}
	return finishRelated(b, o, f)
}

func (f *SlugRelatedField) ToInternalValue(ctx context.Context, data any) (any, error) {
	if !isScalar(data) {
		return nil, f.fail(shape.CodeInvalid, nil)
	}
	obj, err := f.queryset.Get(ctx, f.slug.String(), data)
	if err != nil {
		lookupFailed(ctx, f.Base, err, data)
		return nil, f.fail(shape.CodeDoesNotExist, map[string]string{"slug_name": f.slug.String(), "value": fmt.Sprint(data)})
	}
	return obj, nil
}

func (f *SlugRelatedField) ToRepresentation(_ context.Context, value any) (any, error) {
	v, res, err := f.slug.Resolve(value)
	if err != nil {
		return nil, err
	}
	if res != shape.Found {
		return nil, fmt.Errorf("dsl: %T has no attribute %q", value, f.slug)
	}
	return v, nil
}

// HyperlinkedRelatedField represents related objects by their locator.
type HyperlinkedRelatedField struct {
	*Base
	queryset shape.Queryset
	endpoint string
	locator  shape.Locator
	lookup   shape.Path
}

// HyperlinkedRelated returns a relation represented as a link to endpoint, built and
// resolved by loc.
func HyperlinkedRelated(endpoint string, loc shape.Locator, opts ...Option) Field {
	b, o := newRelated("hyperlink", opts, optLookupField)
	f := newHyperlinked(b, o, endpoint, loc)
	return finishRelated(b, o, f)
}

// HyperlinkedIdentity returns a read-only link to the instance itself.
func HyperlinkedIdentity(endpoint string, loc shape.Locator, opts ...Option) Field {
	b, o := newRelated("hyperlink", append([]Option{ReadOnly(), Source("*")}, opts...), optLookupField)
	if o.many {
		b.errorf("Many does not apply to identity links")
		o.many = false
	}
	f := newHyperlinked(b, o, endpoint, loc)
	return finishRelated(b, o, f)
}

func newHyperlinked(b *Base, o *options, endpoint string, loc shape.Locator) *HyperlinkedRelatedField {
	b.declare(shape.CodeNoMatch, shape.CodeIncorrectMatch)
	if endpoint == "" {
		b.errorf("endpoint is empty")
	}
	if loc == nil {
		b.errorf("locator is nil")
	}
	return &HyperlinkedRelatedField{Base: b, queryset: o.queryset, endpoint: endpoint, locator: loc, lookup: lookupPath(o)}
}

func (f *HyperlinkedRelatedField) ToInternalValue(ctx context.Context, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return nil, f.fail(shape.CodeIncorrectType, map[string]string{"data_type": typeName(data)})
	}
	endpoint, ref, err := f.locator.Resolve(ctx, s)
	if err != nil {
		return nil, f.fail(shape.CodeNoMatch, nil)
	}
	if endpoint != f.endpoint {
		return nil, f.fail(shape.CodeIncorrectMatch, nil)
	}
	obj, err := f.queryset.Get(ctx, f.lookup.String(), ref)
	if err != nil {
		lookupFailed(ctx, f.Base, err, ref)
		return nil, f.fail(shape.CodeDoesNotExist, nil)
	}
	return obj, nil
}

func (f *HyperlinkedRelatedField) ToRepresentation(ctx context.Context, value any) (any, error) {
	ref, res, err := f.lookup.Resolve(value)
	if err != nil {
		return nil, err
	}
	if res != shape.Found || ref == nil || reflect.ValueOf(ref).IsZero() {
		// unsaved objects have no link
		return nil, nil
	}
	link, err := f.locator.Build(ctx, f.endpoint, ref)
	if err != nil {
		return nil, fmt.Errorf("dsl: building link to %q: %w", f.endpoint, err)
	}
	return link, nil
}

// StringRelatedField renders related objects with fmt.Sprint. It is always read-only.
type StringRelatedField struct{ *Base }

// StringRelated returns a read-only relation rendered as text.
func StringRelated(opts ...Option) Field {
	b, o := newRelated("string_related", append([]Option{ReadOnly()}, opts...))
	return finishRelated(b, o, &StringRelatedField{Base: b})
}

func (f *StringRelatedField) ToInternalValue(_ context.Context, data any) (any, error) {
	return data, nil
}

func (f *StringRelatedField) ToRepresentation(_ context.Context, value any) (any, error) {
	return fmt.Sprint(value), nil
}

// ReverseRelatedField renders the collection of objects pointing at the instance. It is
// read-only unless declared Writable with a ReverseWriter.
type ReverseRelatedField struct {
	*Base
	child      Field
	allowEmpty bool
	writer     ReverseWriter
}

// ReverseRelated returns a reverse collection whose members are handled by child.
func ReverseRelated(child Field, opts ...Option) *ReverseRelatedField {
	b, o := newBase("reverse_related", opts, optWritable, optReverseWrites, optAllowEmpty)
	b.declare(shape.CodeNotAList, shape.CodeEmpty)
	f := &ReverseRelatedField{Base: b, child: child, allowEmpty: o.allowEmpty == nil || *o.allowEmpty, writer: o.reverseWriter}
	switch {
	case o.readOnly && o.writable:
		b.errorf("may not set both ReadOnly and Writable")
	case o.writable && o.reverseWriter == nil:
		b.errorf("Writable reverse relation requires ReverseWrites")
	case !o.writable && o.reverseWriter != nil:
		b.errorf("ReverseWrites requires Writable")
	}
	if !o.writable {
		b.readOnly, b.required = true, false
	}
	if child == nil {
		b.errorf("reverse relation child is nil")
	} else if o.writable && child.Spec().ReadOnly() {
		b.errorf("writable reverse relation needs a writable child")
	}
	b.finish()
	return f
}

func (f *ReverseRelatedField) Child() Field { return f.child }

func (f *ReverseRelatedField) isNested() bool { return isNested(f.child) }

func (f *ReverseRelatedField) ToInternalValue(ctx context.Context, data any) (any, error) {
	items, ok := toList(data)
	if !ok {
		return nil, f.fail(shape.CodeNotAList, map[string]string{"input_type": typeName(data)})
	}
	if len(items) == 0 && !f.allowEmpty {
		return nil, f.fail(shape.CodeEmpty, nil)
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
			errs[i], failed = node, true
			continue
		}
		errs[i], out[i] = shape.ErrorDict{}, v
	}
	if failed {
		return nil, &shape.ValidationError{Detail: errs}
	}
	return out, nil
}

func (f *ReverseRelatedField) ToRepresentation(ctx context.Context, value any) (any, error) {
	items, err := collection(ctx, value)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		if out[i], err = f.child.ToRepresentation(ctx, it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// store hands the saved relation to the writer.
func (f *ReverseRelatedField) store(ctx context.Context, instance any, name string, related any) error {
	items, _ := toList(related)
	if err := f.writer.SetRelated(ctx, instance, name, items); err != nil {
		return fmt.Errorf("dsl: storing %q: %w", name, err)
	}
	return nil
}
