package dsl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hengadev/errsx"

	shape "github.com/reoring/shape"
)

// ValidateFunc is the object-level hook. It sees the validated attributes once every field
// passed and may return replacement attributes (nil keeps them).
type ValidateFunc func(ctx context.Context, attrs map[string]any) (map[string]any, error)

// CreateFunc persists validated data as a new instance.
type CreateFunc func(ctx context.Context, data map[string]any) (any, error)

// UpdateFunc applies validated data to an existing instance.
type UpdateFunc func(ctx context.Context, instance any, data map[string]any) (any, error)

// DeleteFunc removes an instance during bulk updates with AllowRemove.
type DeleteFunc func(ctx context.Context, instance any) error

// Builder declares a serializer schema. Methods record declarations; Build validates them.
type Builder struct {
	name       string
	parents    []*Schema
	fields     []*boundField
	only       []string
	exclude    []string
	readOnly   []string
	unknown    shape.UnknownPolicy
	validators []shape.Validator
	hook       ValidateFunc
	create     CreateFunc
	update     UpdateFunc
	deleter    DeleteFunc
	persister  shape.Persister
	depth      int
	dups       []string
}

// Serializer starts a schema declaration named name. Names identify schemas in the
// registry and in configuration errors.
func Serializer(name string) *Builder {
	return &Builder{name: name, unknown: shape.UnknownIgnore}
}

// Extends inherits the fields of parents. Earlier parents win over later ones, and fields
// declared on the builder override inherited ones.
func (b *Builder) Extends(parents ...*Schema) *Builder {
	b.parents = append(b.parents, parents...)
	return b
}

// Field declares a field. Declaration order is representation order.
func (b *Builder) Field(name string, f Field) *Builder {
	for _, bf := range b.fields {
		if bf.name == name {
			b.dups = append(b.dups, name)
			return b
		}
	}
	b.fields = append(b.fields, &boundField{name: name, field: f})
	return b
}

// Fields declares several fields at once, ordered by their creation.
func (b *Builder) Fields(fields map[string]Field) *Builder {
	names := sortedKeys(fields)
	sort.SliceStable(names, func(i, j int) bool {
		return fieldOrder(fields[names[i]]) < fieldOrder(fields[names[j]])
	})
	for _, n := range names {
		b.Field(n, fields[n])
	}
	return b
}

func fieldOrder(f Field) int64 {
	if f == nil || f.Spec() == nil {
		return 0
	}
	return f.Spec().Order()
}

// Only keeps the named fields and drops the rest.
func (b *Builder) Only(names ...string) *Builder {
	b.only = append(b.only, names...)
	return b
}

// Exclude drops the named fields.
func (b *Builder) Exclude(names ...string) *Builder {
	b.exclude = append(b.exclude, names...)
	return b
}

// ReadOnlyFields marks declared or inherited fields read-only.
func (b *Builder) ReadOnlyFields(names ...string) *Builder {
	b.readOnly = append(b.readOnly, names...)
	return b
}

// Unknown sets the policy for input keys matching no field. The default ignores them.
func (b *Builder) Unknown(p shape.UnknownPolicy) *Builder {
	b.unknown = p
	return b
}

// Validators appends object-level validators. They receive the validated attributes as a
// map[string]any and run in order, after all fields passed, before the Validate hook.
func (b *Builder) Validators(vs ...shape.Validator) *Builder {
	b.validators = append(b.validators, vs...)
	return b
}

// Validate installs the object-level hook.
func (b *Builder) Validate(fn ValidateFunc) *Builder {
	b.hook = fn
	return b
}

func (b *Builder) Create(fn CreateFunc) *Builder {
	b.create = fn
	return b
}

func (b *Builder) Update(fn UpdateFunc) *Builder {
	b.update = fn
	return b
}

func (b *Builder) Delete(fn DeleteFunc) *Builder {
	b.deleter = fn
	return b
}

// Persister stores data through p when no Create/Update hook is declared. If p also
// implements shape.Deleter it serves bulk removals.
func (b *Builder) Persister(p shape.Persister) *Builder {
	b.persister = p
	return b
}

// Depth bounds how many levels of nested serializers are rendered below this schema;
// deeper levels render their leaf fields only.
func (b *Builder) Depth(n int) *Builder {
	b.depth = n
	return b
}

// Build validates the declaration. All problems are reported together in a
// *shape.ConfigError wrapping an errsx.Map keyed by field or setting.
func (b *Builder) Build() (*Schema, error) {
	var errs errsx.Map
	if b.name == "" {
		errs.Set("name", fmt.Errorf("schema name is empty"))
	}
	for _, d := range b.dups {
		errs.Set(d, fmt.Errorf("declared more than once"))
	}

	own := make(map[string]bool, len(b.fields))
	for _, bf := range b.fields {
		own[bf.name] = true
	}
	var fields []*boundField
	known := map[string]bool{}
	for _, p := range b.parents {
		if p == nil {
			errs.Set("extends", fmt.Errorf("nil parent schema"))
			continue
		}
		for _, bf := range p.fields {
			if own[bf.name] || known[bf.name] {
				continue
			}
			known[bf.name] = true
			cp := *bf
			fields = append(fields, &cp)
		}
	}
	for _, bf := range b.fields {
		cp := *bf
		fields = append(fields, &cp)
	}
	// declarations are checked before Only/Exclude can hide them
	fields = filterFields(fields, func(bf *boundField) bool {
		switch {
		case bf.name == "":
			errs.Set("fields", fmt.Errorf("field with empty name"))
			return false
		case bf.field == nil || bf.field.Spec() == nil:
			errs.Set(bf.name, fmt.Errorf("field is nil"))
			return false
		}
		if err := bf.field.Spec().Err(); err != nil {
			errs.Set(bf.name, err)
		}
		return true
	})

	byName := make(map[string]*boundField, len(fields))
	for _, bf := range fields {
		byName[bf.name] = bf
	}
	undeclared := func(names []string) []string {
		var out []string
		for _, n := range names {
			if _, ok := byName[n]; !ok {
				out = append(out, n)
			}
		}
		return out
	}
	if len(b.only) > 0 && len(b.exclude) > 0 {
		errs.Set("only", fmt.Errorf("Only and Exclude may not both be set"))
	}
	if u := undeclared(b.only); len(u) > 0 {
		errs.Set("only", fmt.Errorf("undeclared fields %v", u))
	}
	if u := undeclared(b.exclude); len(u) > 0 {
		errs.Set("exclude", fmt.Errorf("undeclared fields %v", u))
	}
	if u := undeclared(b.readOnly); len(u) > 0 {
		errs.Set("read_only_fields", fmt.Errorf("undeclared fields %v", u))
	}
	if len(b.only) > 0 {
		keep := toSet(b.only)
		fields = filterFields(fields, func(bf *boundField) bool { return keep[bf.name] })
	}
	if len(b.exclude) > 0 {
		drop := toSet(b.exclude)
		fields = filterFields(fields, func(bf *boundField) bool { return !drop[bf.name] })
	}
	ro := toSet(b.readOnly)

	s := &Schema{
		Base:       schemaBase(nil),
		name:       b.name,
		byName:     make(map[string]*boundField, len(fields)),
		unknown:    b.unknown,
		validators: b.validators,
		hook:       b.hook,
		create:     b.create,
		update:     b.update,
		deleter:    b.deleter,
		persister:  b.persister,
		depth:      b.depth,
	}
	for _, bf := range fields {
		spec := bf.field.Spec()
		source := spec.Source()
		if source == "" {
			source = bf.name
		}
		bf.source = shape.ParsePath(source)
		bf.readOnly = bf.readOnly || spec.ReadOnly() || ro[bf.name]
		s.fields = append(s.fields, bf)
		s.byName[bf.name] = bf
	}
	if !errs.IsEmpty() {
		return nil, &shape.ConfigError{Schema: b.name, Err: errs.AsError()}
	}
	return s, nil
}

// MustBuild is Build that panics on configuration errors.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func filterFields(fields []*boundField, keep func(*boundField) bool) []*boundField {
	out := fields[:0]
	for _, bf := range fields {
		if keep(bf) {
			out = append(out, bf)
		}
	}
	return out
}

// boundField is a field placed in a schema under a name.
type boundField struct {
	name     string
	source   shape.Path
	field    Field
	readOnly bool
}

func (bf *boundField) spec() *Base { return bf.field.Spec() }

func (bf *boundField) required() bool { return !bf.readOnly && bf.spec().Required() }

// Schema is an immutable serializer declaration, safe for concurrent use. A Schema is itself
// a Field, so schemas nest.
type Schema struct {
	*Base
	name       string
	fields     []*boundField
	byName     map[string]*boundField
	unknown    shape.UnknownPolicy
	validators []shape.Validator
	hook       ValidateFunc
	create     CreateFunc
	update     UpdateFunc
	deleter    DeleteFunc
	persister  shape.Persister
	depth      int
}

func schemaBase(opts []Option) *Base {
	b, _ := newBase("serializer", opts)
	b.declare(shape.CodeUnknownField)
	b.finish()
	return b
}

// Name returns the declared schema name.
func (s *Schema) Name() string { return s.name }

// FieldNames lists field names in declaration order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.fields))
	for i, bf := range s.fields {
		out[i] = bf.name
	}
	return out
}

// Field returns the field declared under name.
func (s *Schema) Field(name string) (Field, bool) {
	bf, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return bf.field, true
}

// With returns a copy of the schema carrying field options, for nesting it under another
// schema (Source, ReadOnly, AllowNull, ...).
func (s *Schema) With(opts ...Option) *Schema {
	cp := *s
	cp.Base = schemaBase(opts)
	return &cp
}

func (s *Schema) isNested() bool { return true }

// ToInternalValue validates data against every field, then runs the object validators
// and the Validate hook.
func (s *Schema) ToInternalValue(ctx context.Context, data any) (any, error) {
	return s.validate(ctx, data)
}

// ToRepresentation renders instance in declaration order.
func (s *Schema) ToRepresentation(ctx context.Context, instance any) (any, error) {
	return s.represent(ctx, instance)
}
