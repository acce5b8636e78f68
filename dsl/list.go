package dsl

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
)

// ListSchema validates and renders lists of one child schema. It is a Field, so a schema
// can hold a list of nested objects.
type ListSchema struct {
	*Base
	child                *Schema
	allowEmpty           bool
	minLength, maxLength *int
	matchOn              string
	matchSource          shape.Path
	allowRemove          bool
}

// Many returns a list schema over s. MatchOn and AllowRemove configure bulk updates.
func (s *Schema) Many(opts ...Option) *ListSchema {
	b, o := newBase("list", opts, optAllowEmpty, optMinLength, optMaxLength, optMatchOn, optAllowRemove, optMany)
	b.declare(shape.CodeNotAList, shape.CodeEmpty, shape.CodeMinLength, shape.CodeMaxLength)
	l := &ListSchema{
		Base:        b,
		child:       s,
		allowEmpty:  o.allowEmpty == nil || *o.allowEmpty,
		minLength:   o.minLength,
		maxLength:   o.maxLength,
		matchOn:     o.matchOn,
		allowRemove: o.allowRemove,
	}
	if o.matchOn != "" {
		bf, ok := s.byName[o.matchOn]
		switch {
		case !ok:
			b.errorf("MatchOn names undeclared field %q", o.matchOn)
		case bf.readOnly:
			b.errorf("MatchOn field %q must be writable", o.matchOn)
		default:
			l.matchSource = bf.source
		}
	}
	if o.allowRemove {
		if o.matchOn == "" {
			b.errorf("AllowRemove requires MatchOn")
		}
		if !s.canDelete() {
			b.errorf("AllowRemove requires a Delete hook on %s", s.name)
		}
	}
	b.finish()
	return l
}

// Child returns the item schema.
func (l *ListSchema) Child() *Schema { return l.child }

func (l *ListSchema) isNested() bool { return true }

// shapeError reports list-level problems under the non-field key.
func (l *ListSchema) shapeError(ctx context.Context, err error) error {
	ve, ok := shape.AsValidationError(err)
	if !ok {
		return err
	}
	nfk := shape.SettingsFrom(ctx).NonFieldErrorsKey
	return &shape.ValidationError{Detail: shape.ErrorDict{nfk: ve.Detail}}
}

// ToInternalValue validates each item with the child schema. Errors align with the input:
// valid positions hold an empty dict.
func (l *ListSchema) ToInternalValue(ctx context.Context, data any) (any, error) {
	items, ok := toList(data)
	if !ok {
		return nil, l.shapeError(ctx, l.fail(shape.CodeNotAList, map[string]string{"input_type": typeName(data)}))
	}
	if err := checkLength(l.Base, len(items), l.allowEmpty, l.minLength, l.maxLength); err != nil {
		return nil, l.shapeError(ctx, err)
	}
	index, err := l.instanceIndex(ctx, shape.InstanceFrom(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	errs := make(shape.ErrorArray, len(items))
	failed := false
	for i, it := range items {
		var current any
		if index != nil {
			current = index[l.inputKey(it)]
		}
		v, err := runField(shape.WithInstance(ctx, current), l.child, it)
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

// instanceIndex maps match keys to existing instances for bulk updates. It is nil when the
// list has no identity or no instances.
func (l *ListSchema) instanceIndex(ctx context.Context, instance any) (map[string]any, error) {
	if l.matchOn == "" || instance == nil {
		return nil, nil
	}
	items, err := collection(ctx, instance)
	if err != nil {
		return nil, err
	}
	index := make(map[string]any, len(items))
	for _, it := range items {
		v, res, err := l.matchSource.Resolve(it)
		if err != nil {
			return nil, err
		}
		if res == shape.Found && v != nil {
			index[fmt.Sprint(v)] = it
		}
	}
	return index, nil
}

// inputKey reads the match key from a raw input item.
func (l *ListSchema) inputKey(item any) string {
	m, ok := shape.AsMapping(item)
	if !ok {
		return ""
	}
	v, ok := m.Get(l.matchOn)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// validatedKey reads the match key from a validated item.
func (l *ListSchema) validatedKey(item any) string {
	v, res, err := l.matchSource.Resolve(item)
	if err != nil || res != shape.Found || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (l *ListSchema) ToRepresentation(ctx context.Context, value any) (any, error) {
	items, err := collection(ctx, value)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		r, err := l.child.represent(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// ListInstance is one use of a ListSchema.
type ListInstance struct {
	schema    *ListSchema
	cfg       instanceConfig
	state     validationState
	validated []any
	errors    shape.ErrorNode
	err       error
	data      []any
	rendered  bool
}

// New creates a list serializer instance. The instance, if any, is the list of existing
// objects.
func (l *ListSchema) New(opts ...InstanceOption) *ListInstance {
	return &ListInstance{schema: l, cfg: newInstanceConfig(opts)}
}

func (s *ListInstance) Schema() *ListSchema { return s.schema }

func (s *ListInstance) Instance() any { return s.cfg.instance }

func (s *ListInstance) IsValid(ctx context.Context) bool {
	_, err := s.Validate(ctx)
	return err == nil
}

// Validate returns the validated items, memoized like Instance.Validate.
func (s *ListInstance) Validate(ctx context.Context) ([]any, error) {
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
	if err := s.schema.Err(); err != nil {
		return nil, &shape.ConfigError{Schema: s.schema.child.name, Err: err}
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
		return nil, err
	}
	s.state, s.validated = stateValid, v
	return v, nil
}

func (s *ListInstance) run(ctx context.Context) ([]any, error) {
	data, err := s.cfg.decode(ctx)
	if err != nil {
		return nil, objectError(ctx, err)
	}
	v, err := runField(ctx, s.schema, data)
	if err != nil {
		if ve, ok := shape.AsValidationError(err); ok {
			if _, isList := ve.Detail.(shape.ErrorList); isList {
				return nil, s.schema.shapeError(ctx, err)
			}
		}
		return nil, err
	}
	items, _ := v.([]any)
	return items, nil
}

func (s *ListInstance) Errors() shape.ErrorNode { return s.errors }

func (s *ListInstance) ValidatedData() []any {
	if s.state != stateValid {
		return nil
	}
	return s.validated
}

// Data renders the bound instances, else the validated items, else the raw input list.
func (s *ListInstance) Data(ctx context.Context) ([]any, error) {
	if s.rendered {
		return s.data, nil
	}
	if s.cfg.hasData && s.state == stateUnvalidated {
		return nil, fmt.Errorf("%w: call Validate before Data", ErrNotValidated)
	}
	ctx = s.cfg.context(ctx)
	var out []any
	switch {
	case s.cfg.hasInstance && s.state != stateInvalid:
		v, err := s.schema.ToRepresentation(ctx, s.cfg.instance)
		if err != nil {
			return nil, err
		}
		out = v.([]any)
	case s.state == stateValid:
		v, err := s.schema.ToRepresentation(ctx, s.validated)
		if err != nil {
			return nil, err
		}
		out = v.([]any)
	default:
		items, _ := toList(s.cfg.data)
		out = append([]any{}, items...)
	}
	s.data, s.rendered = out, true
	return out, nil
}

// Save creates every item, or with a bound instance list performs a bulk update: items
// matching an instance by the MatchOn field update it, the rest are created, and instances
// missing from the input are deleted under AllowRemove and kept otherwise.
func (s *ListInstance) Save(ctx context.Context, extra map[string]any) ([]any, error) {
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
	l, child := s.schema, s.schema.child
	merge := func(item any) map[string]any {
		m, _ := item.(map[string]any)
		out := make(map[string]any, len(m)+len(extra))
		for k, v := range m {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	var index map[string]any
	if s.cfg.hasInstance {
		if l.matchOn == "" {
			return nil, fmt.Errorf("%w: bulk update of %s requires MatchOn", ErrNotImplemented, child.name)
		}
		var err error
		if index, err = l.instanceIndex(ctx, s.cfg.instance); err != nil {
			return nil, err
		}
		if index == nil {
			index = map[string]any{}
		}
	}

	out := make([]any, 0, len(s.validated))
	matched := map[string]bool{}
	for _, item := range s.validated {
		key := ""
		if index != nil {
			key = l.validatedKey(item)
		}
		var saved any
		var err error
		if current, ok := index[key]; ok && key != "" && !matched[key] {
			matched[key] = true
			saved, err = child.doUpdate(shape.WithInstance(ctx, current), current, merge(item))
		} else {
			saved, err = child.doCreate(ctx, merge(item))
		}
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	if s.cfg.hasInstance {
		existing, err := collection(ctx, s.cfg.instance)
		if err != nil {
			return nil, err
		}
		for _, it := range existing {
			key := l.validatedKey(it)
			if matched[key] {
				continue
			}
			if l.allowRemove {
				if err := child.doDelete(ctx, it); err != nil {
					return nil, err
				}
				zerolog.Ctx(ctx).Debug().Str("schema", child.name).Str("key", key).Msg("removed")
				continue
			}
			out = append(out, it)
		}
	}
	s.cfg.instance, s.cfg.hasInstance = out, true
	return out, nil
}
