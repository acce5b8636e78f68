package dsl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateSchema is returned when a name is registered twice.
	ErrDuplicateSchema = errors.New("dsl: schema already registered")
	// ErrUnknownSchema is returned when a reference names no registered schema.
	ErrUnknownSchema = errors.New("dsl: schema not registered")
)

// Registry maps schema names to schemas. Registration is append-only; lookups may run
// concurrently with registration.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	logger  zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// RegistryLogger reports registrations to l. Registries are silent by default.
func RegistryLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{schemas: map[string]*Schema{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultRegistry is the process-wide registry used by Register and Ref.
var DefaultRegistry = NewRegistry()

// Register adds s under its name.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return errors.New("dsl: registering nil schema")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[s.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, s.name)
	}
	r.schemas[s.name] = s
	r.logger.Debug().Str("schema", s.name).Msg("registered schema")
	return nil
}

// MustRegister is Register that panics on error and returns s, for package-level
// declarations.
func (r *Registry) MustRegister(s *Schema) *Schema {
	if err := r.Register(s); err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names lists the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.schemas)
}

// Ref returns a field that resolves the schema registered under name on first use. Many
// makes it a list of that schema.
func (r *Registry) Ref(name string, opts ...Option) *DeferredField {
	b, o := newBase("serializer", opts, optMany, optAllowEmpty, optMinLength, optMaxLength)
	b.declare(unknownFieldCodes...)
	if !o.many {
		for _, opt := range []string{optAllowEmpty, optMinLength, optMaxLength} {
			if o.has(opt) {
				b.errorf("option %s requires Many", opt)
			}
		}
	}
	b.finish()
	return &DeferredField{
		Base: b,
		name: name,
		resolve: func() (Field, error) {
			s, err := r.Lookup(name)
			if err != nil {
				return nil, err
			}
			if o.many {
				l := s.Many(opts...)
				return l, l.Err()
			}
			return s.With(opts...), nil
		},
	}
}

// Register adds s to DefaultRegistry.
func Register(s *Schema) error { return DefaultRegistry.Register(s) }

// MustRegister adds s to DefaultRegistry and returns it.
func MustRegister(s *Schema) *Schema { return DefaultRegistry.MustRegister(s) }

// Ref references a schema of DefaultRegistry by name.
func Ref(name string, opts ...Option) *DeferredField { return DefaultRegistry.Ref(name, opts...) }

// Lazy returns a field produced by fn on first use. It lets a schema refer to itself or to
// schemas declared later.
func Lazy(fn func() Field, opts ...Option) *DeferredField {
	b, _ := newBase("serializer", opts)
	b.declare(unknownFieldCodes...)
	b.finish()
	return &DeferredField{
		Base: b,
		resolve: func() (Field, error) {
			f := fn()
			if f == nil {
				return nil, errors.New("dsl: lazy field resolved to nil")
			}
			return f, nil
		},
	}
}

var unknownFieldCodes = []string{"unknown_field", "not_a_list", "empty", "min_length", "max_length"}

// DeferredField stands in for a field resolved on first use. Its presence policy comes
// from its own options; conversions are delegated to the target.
type DeferredField struct {
	*Base
	name    string
	resolve func() (Field, error)
	once    sync.Once
	target  Field
	err     error
}

// Target resolves the field once and returns it.
func (d *DeferredField) Target() (Field, error) {
	d.once.Do(func() { d.target, d.err = d.resolve() })
	return d.target, d.err
}

// RefName is the referenced schema name, empty for Lazy fields.
func (d *DeferredField) RefName() string { return d.name }

func (d *DeferredField) isNested() bool { return true }

func (d *DeferredField) ToInternalValue(ctx context.Context, data any) (any, error) {
	t, err := d.Target()
	if err != nil {
		return nil, err
	}
	return t.ToInternalValue(ctx, data)
}

func (d *DeferredField) ToRepresentation(ctx context.Context, value any) (any, error) {
	t, err := d.Target()
	if err != nil {
		return nil, err
	}
	return t.ToRepresentation(ctx, value)
}
