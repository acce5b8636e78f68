package dsl

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
)

var (
	// ErrNoData is returned when validating a serializer constructed without input.
	ErrNoData = errors.New("dsl: serializer has no input data")
	// ErrNotValidated is returned when Save or Data run before validation.
	ErrNotValidated = errors.New("dsl: serializer has not been validated")
	// ErrInvalid is returned when Save runs after failed validation.
	ErrInvalid = errors.New("dsl: cannot save invalid data")
	// ErrSaveAfterData is returned when Save runs after Data was read.
	ErrSaveAfterData = errors.New("dsl: cannot save after data was rendered")
	// ErrNotImplemented is returned when no persistence hook covers an operation.
	ErrNotImplemented = errors.New("dsl: persistence not implemented")
	// ErrNestedWrites is returned when a Persister would receive nested or dotted data.
	ErrNestedWrites = errors.New("dsl: nested writes are not supported by the persister")
	// ErrReentrant is returned when validation is re-entered from its own hooks.
	ErrReentrant = errors.New("dsl: validation re-entered")
)

type validationState int

const (
	stateUnvalidated validationState = iota
	stateValidating
	stateValid
	stateInvalid
)

// InstanceOption configures a serializer instance.
type InstanceOption func(*instanceConfig)

type instanceConfig struct {
	instance    any
	hasInstance bool
	data        any
	hasData     bool
	source      shape.Source
	partial     bool
	values      map[string]any
}

// WithInstance binds the object to render or update.
func WithInstance(v any) InstanceOption {
	return func(c *instanceConfig) { c.instance, c.hasInstance = v, true }
}

// WithData supplies decoded primitive input.
func WithData(v any) InstanceOption {
	return func(c *instanceConfig) { c.data, c.hasData = v, true }
}

// WithSource supplies raw input, decoded on first validation.
func WithSource(src shape.Source) InstanceOption {
	return func(c *instanceConfig) { c.source, c.hasData = src, true }
}

// Partial validates a partial update: absent fields are neither required nor defaulted.
func Partial() InstanceOption {
	return func(c *instanceConfig) { c.partial = true }
}

// WithContext exposes caller values to validators and hooks through shape.ContextValue.
func WithContext(values map[string]any) InstanceOption {
	return func(c *instanceConfig) { c.values = values }
}

func newInstanceConfig(opts []InstanceOption) instanceConfig {
	var c instanceConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

func (c *instanceConfig) context(ctx context.Context) context.Context {
	ctx = shape.WithPartial(ctx, c.partial)
	ctx = shape.WithInstance(ctx, c.instance)
	return shape.WithValues(ctx, c.values)
}

// decode materializes the input once.
func (c *instanceConfig) decode(ctx context.Context) (any, error) {
	if c.source != nil {
		v, err := c.source.Decode(ctx)
		if err != nil {
			return nil, err
		}
		c.data, c.source = v, nil
	}
	return c.data, nil
}

// Instance is one use of a Schema: it owns the instance, the input, and the memoized
// validation and rendering results. It is not safe for concurrent use.
type Instance struct {
	schema    *Schema
	cfg       instanceConfig
	state     validationState
	validated map[string]any
	errors    shape.ErrorNode
	err       error
	data      *shape.OrderedMap
	rendered  bool
}

// New creates a serializer instance for s.
func (s *Schema) New(opts ...InstanceOption) *Instance {
	return &Instance{schema: s, cfg: newInstanceConfig(opts)}
}

func (s *Instance) Schema() *Schema { return s.schema }

// Instance returns the bound instance; after Save it is the saved one.
func (s *Instance) Instance() any { return s.cfg.instance }

// IsValid validates once and reports the outcome. Later calls reuse the result.
func (s *Instance) IsValid(ctx context.Context) bool {
	_, err := s.Validate(ctx)
	return err == nil
}

// Validate returns the validated data, or a *shape.ValidationError whose tree mirrors the
// schema. The result is memoized.
func (s *Instance) Validate(ctx context.Context) (map[string]any, error) {
	switch s.state {
	case stateValid:
		return s.validated, nil
	case stateInvalid:
		if s.err != nil {
			return nil, s.err
		}
		return nil, &shape.ValidationError{Detail: s.errors}
	case stateValidating:
		return nil, ErrReentrant
	}
	if !s.cfg.hasData {
		return nil, ErrNoData
	}
	s.state = stateValidating
	ctx = s.cfg.context(ctx)
	v, err := s.run(ctx)
	if err != nil {
		s.state = stateInvalid
		if node, ok := errorNode(err); ok {
			s.errors = node
		} else {
			s.err = err
		}
		zerolog.Ctx(ctx).Debug().Err(err).Str("schema", s.schema.name).Msg("validation failed")
		return nil, err
	}
	s.state, s.validated = stateValid, v
	return v, nil
}

func (s *Instance) run(ctx context.Context) (map[string]any, error) {
	data, err := s.cfg.decode(ctx)
	if err != nil {
		return nil, objectError(ctx, err)
	}
	v, err := runField(ctx, s.schema, data)
	if err != nil {
		return nil, objectError(ctx, err)
	}
	m, _ := v.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// Errors returns the error tree of a failed validation, or nil.
func (s *Instance) Errors() shape.ErrorNode { return s.errors }

// ValidatedData returns the validated data, or nil before successful validation.
func (s *Instance) ValidatedData() map[string]any {
	if s.state != stateValid {
		return nil
	}
	return s.validated
}

// Data renders the bound instance; without one, the validated data, or after failed
// validation the recognized part of the input. The result is memoized.
func (s *Instance) Data(ctx context.Context) (*shape.OrderedMap, error) {
	if s.rendered {
		return s.data, nil
	}
	if s.cfg.hasData && s.state == stateUnvalidated {
		return nil, fmt.Errorf("%w: call Validate before Data", ErrNotValidated)
	}
	ctx = s.cfg.context(ctx)
	var out *shape.OrderedMap
	var err error
	switch {
	case s.cfg.hasInstance && s.state != stateInvalid:
		out, err = s.schema.represent(ctx, s.cfg.instance)
	case s.state == stateValid:
		out, err = s.schema.represent(ctx, s.validated)
	default:
		out, err = s.initial(ctx)
	}
	if err != nil {
		return nil, err
	}
	s.data, s.rendered = out, true
	return out, nil
}

// initial echoes the writable fields found in the input, or their defaults without input.
func (s *Instance) initial(ctx context.Context) (*shape.OrderedMap, error) {
	out := shape.NewOrderedMap(len(s.schema.fields))
	if !s.cfg.hasData {
		for _, bf := range s.schema.fields {
			if bf.readOnly {
				continue
			}
			def, _, err := bf.spec().DefaultValue(ctx)
			if err != nil {
				return nil, err
			}
			out.Set(bf.name, def)
		}
		return out, nil
	}
	m, ok := shape.AsMapping(s.cfg.data)
	if !ok {
		return out, nil
	}
	for _, bf := range s.schema.fields {
		if bf.readOnly {
			continue
		}
		if v, ok := m.Get(bf.name); ok {
			out.Set(bf.name, v)
		}
	}
	return out, nil
}

// Save persists the validated data, merged with extra, through the schema's hooks or
// persister. It creates when no instance is bound and updates otherwise. The saved object
// becomes the bound instance.
func (s *Instance) Save(ctx context.Context, extra map[string]any) (any, error) {
	if s.rendered {
		return nil, ErrSaveAfterData
	}
	switch s.state {
	case stateInvalid:
		return nil, ErrInvalid
	case stateValid:
	default:
		return nil, ErrNotValidated
	}
	ctx = s.cfg.context(ctx)
	data := make(map[string]any, len(s.validated)+len(extra))
	for k, v := range s.validated {
		data[k] = v
	}
	for k, v := range extra {
		data[k] = v
	}
	reverse := s.schema.takeReverseWrites(data)

	var instance any
	var err error
	if s.cfg.hasInstance {
		instance, err = s.schema.doUpdate(ctx, s.cfg.instance, data)
	} else {
		instance, err = s.schema.doCreate(ctx, data)
	}
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("dsl: %s: save returned no instance", s.schema.name)
	}
	for _, w := range reverse {
		if err := w.field.store(ctx, instance, w.name, w.value); err != nil {
			return nil, err
		}
	}
	zerolog.Ctx(ctx).Debug().Str("schema", s.schema.name).Bool("update", s.cfg.hasInstance).Msg("saved")
	s.cfg.instance, s.cfg.hasInstance = instance, true
	return instance, nil
}

type reverseWrite struct {
	field *ReverseRelatedField
	name  string
	value any
}

// takeReverseWrites removes writable reverse relations from data; they are stored after
// the parent exists.
func (s *Schema) takeReverseWrites(data map[string]any) []reverseWrite {
	var out []reverseWrite
	for _, bf := range s.fields {
		rr, ok := bf.field.(*ReverseRelatedField)
		if !ok || bf.readOnly || len(bf.source) != 1 {
			continue
		}
		v, present := data[bf.source[0]]
		if !present {
			continue
		}
		delete(data, bf.source[0])
		out = append(out, reverseWrite{field: rr, name: bf.name, value: v})
	}
	return out
}

func (s *Schema) doCreate(ctx context.Context, data map[string]any) (any, error) {
	if s.create != nil {
		return s.create(ctx, data)
	}
	if s.persister != nil {
		if err := s.checkNestedWrites(data); err != nil {
			return nil, err
		}
		return s.persister.Create(ctx, data)
	}
	return nil, fmt.Errorf("%w: %s has no Create hook or Persister", ErrNotImplemented, s.name)
}

func (s *Schema) doUpdate(ctx context.Context, instance any, data map[string]any) (any, error) {
	if s.update != nil {
		return s.update(ctx, instance, data)
	}
	if s.persister != nil {
		if err := s.checkNestedWrites(data); err != nil {
			return nil, err
		}
		return s.persister.Update(ctx, instance, data)
	}
	return nil, fmt.Errorf("%w: %s has no Update hook or Persister", ErrNotImplemented, s.name)
}

func (s *Schema) doDelete(ctx context.Context, instance any) error {
	if s.deleter != nil {
		return s.deleter(ctx, instance)
	}
	if d, ok := s.persister.(shape.Deleter); ok {
		return d.Delete(ctx, instance)
	}
	return fmt.Errorf("%w: %s has no Delete hook", ErrNotImplemented, s.name)
}

func (s *Schema) canDelete() bool {
	if s.deleter != nil {
		return true
	}
	_, ok := s.persister.(shape.Deleter)
	return ok
}

// checkNestedWrites refuses data a flat persister cannot store: writable nested serializers
// and dotted sources.
func (s *Schema) checkNestedWrites(data map[string]any) error {
	for _, bf := range s.fields {
		if bf.readOnly || len(bf.source) == 0 {
			continue
		}
		if _, present := data[bf.source[0]]; !present {
			continue
		}
		if isNested(bf.field) {
			return fmt.Errorf("%w: %s.%s is a writable nested field; declare Create/Update hooks", ErrNestedWrites, s.name, bf.name)
		}
		if len(bf.source) > 1 {
			return fmt.Errorf("%w: %s.%s has dotted source %q; declare Create/Update hooks", ErrNestedWrites, s.name, bf.name, bf.source)
		}
	}
	return nil
}
