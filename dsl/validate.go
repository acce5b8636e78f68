package dsl

import (
	"context"

	shape "github.com/reoring/shape"
)

// validate is the deserialization algorithm: per-field conversion in declaration order with
// every field error collected, then object validators and the hook when all fields passed.
func (s *Schema) validate(ctx context.Context, data any) (map[string]any, error) {
	nfk := shape.SettingsFrom(ctx).NonFieldErrorsKey
	m, ok := shape.AsMapping(data)
	if !ok {
		msg := s.message(shape.CodeInvalid, map[string]string{"datatype": typeName(data)})
		return nil, &shape.ValidationError{Detail: shape.ErrorDict{
			nfk: shape.ErrorList{{Code: shape.CodeInvalid, Message: msg}},
		}}
	}
	partial := shape.IsPartial(ctx)
	instance := shape.InstanceFrom(ctx)

	out := map[string]any{}
	errs := shape.ErrorDict{}
	for _, bf := range s.fields {
		if bf.readOnly {
			continue
		}
		spec := bf.spec()
		raw, present := m.Get(bf.name)
		if spec.ignoreInput {
			present = false
		}
		var v any
		if !present {
			if partial {
				continue
			}
			def, hasDefault, err := spec.DefaultValue(ctx)
			switch {
			case err != nil:
				return nil, err
			case hasDefault:
				v = def
			case bf.required():
				errs[bf.name] = spec.fail(shape.CodeRequired, nil).Detail
				continue
			default:
				continue
			}
		} else {
			fctx := ctx
			if isNested(bf.field) {
				fctx = shape.WithInstance(ctx, nestedInstance(instance, bf.source))
			}
			conv, err := runField(fctx, bf.field, raw)
			if err != nil {
				node, ok := errorNode(err)
				if !ok {
					return nil, err
				}
				errs[bf.name] = node
				continue
			}
			v = conv
		}
		shape.SetValue(out, bf.source, v)
	}
	if s.unknown == shape.UnknownStrict {
		for _, k := range m.Keys() {
			if _, ok := s.byName[k]; !ok {
				errs[k] = s.fail(shape.CodeUnknownField, nil).Detail
			}
		}
	}
	if len(errs) > 0 {
		return nil, &shape.ValidationError{Detail: errs}
	}

	if err := runValidators(ctx, s.Base, s.validators, out); err != nil {
		return nil, objectError(ctx, err)
	}
	if s.hook != nil {
		attrs, err := s.hook(ctx, out)
		if err != nil {
			return nil, objectError(ctx, err)
		}
		if attrs != nil {
			out = attrs
		}
	}
	return out, nil
}

// nestedInstance resolves the existing counterpart of a nested field, so validators of the
// nested schema can see it.
func nestedInstance(instance any, source shape.Path) any {
	if instance == nil {
		return nil
	}
	v, res, err := source.Resolve(instance)
	if err != nil || res != shape.Found {
		return nil
	}
	return v
}

// objectError shapes an error raised by object-level validation as a field-keyed tree.
// Messages not tied to a field land under the non-field key. Other errors pass through.
func objectError(ctx context.Context, err error) error {
	ve, ok := shape.AsValidationError(err)
	if !ok {
		return err
	}
	nfk := shape.SettingsFrom(ctx).NonFieldErrorsKey
	switch d := ve.Detail.(type) {
	case shape.ErrorDict:
		if nfk == shape.NonFieldErrors {
			return ve
		}
		out := make(shape.ErrorDict, len(d))
		for k, n := range d {
			if k == shape.NonFieldErrors {
				k = nfk
			}
			out[k] = n
		}
		return &shape.ValidationError{Detail: out}
	case nil:
		return &shape.ValidationError{Detail: shape.ErrorDict{}}
	default:
		return &shape.ValidationError{Detail: shape.ErrorDict{nfk: d}}
	}
}
