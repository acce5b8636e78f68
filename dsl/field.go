package dsl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/i18n"
)

// Field is one typed slot of a serializer schema. Concrete fields embed *Base, which carries
// the presence policy; the two conversions only see present, non-empty values.
type Field interface {
	Spec() *Base
	// ToRepresentation converts a native value into primitive output data.
	ToRepresentation(ctx context.Context, value any) (any, error)
	// ToInternalValue converts primitive input into a native value. Bad input is reported
	// with a *shape.ValidationError; any other error aborts validation.
	ToInternalValue(ctx context.Context, data any) (any, error)
}

// nestedField is implemented by fields that render another serializer.
type nestedField interface {
	isNested() bool
}

func isNested(f Field) bool {
	n, ok := f.(nestedField)
	return ok && n.isNested()
}

var creationCounter atomic.Int64

// Base is the descriptor shared by every field: presence policy, labels, validators and the
// error kinds the field may raise.
type Base struct {
	typ        string
	order      int64
	source     string
	required   bool
	readOnly   bool
	writeOnly  bool
	allowNull  bool
	allowBlank bool
	hasDefault bool
	def        any
	defFunc    func(context.Context) (any, error)
	label      string
	helpText   string
	validators []shape.Validator
	kinds      map[string]string
	messages   map[string]string
	errs       []error

	// blankable fields apply the blank check to string input.
	blankable bool
	// trim strips whitespace before the blank check.
	trim bool
	// emptyAsNil treats "" as null (relations).
	emptyAsNil bool
	// ignoreInput fields always take their default.
	ignoreInput bool
}

func newBase(typ string, opts []Option, accepted ...string) (*Base, *options) {
	o := applyOptions(opts)
	b := &Base{
		typ:   typ,
		order: creationCounter.Add(1),
		kinds: map[string]string{},
	}
	b.declare(shape.CodeRequired, shape.CodeNull, shape.CodeInvalid)

	allowed := make(map[string]bool, len(accepted))
	for _, a := range accepted {
		allowed[a] = true
	}
	for _, name := range o.given {
		if !commonOptions[name] && !allowed[name] {
			b.errorf("option %s does not apply to %s fields", name, typ)
		}
	}

	if o.source != nil {
		b.source = *o.source
	}
	b.readOnly = o.readOnly
	b.writeOnly = o.writeOnly
	b.allowNull = o.allowNull
	b.allowBlank = o.allowBlank
	b.hasDefault = o.hasDefault
	b.def = o.def
	b.defFunc = o.defFunc
	b.label = o.label
	b.helpText = o.helpText
	b.validators = o.validators
	b.messages = o.messages

	if o.readOnly && o.writeOnly {
		b.errorf("may not set both ReadOnly and WriteOnly")
	}
	explicit := o.required != nil && *o.required
	if explicit && o.readOnly {
		b.errorf("may not set both ReadOnly and Required")
	}
	if explicit && o.hasDefault {
		b.errorf("may not set both Required and Default")
	}
	b.required = !o.readOnly && !o.hasDefault
	if o.required != nil && !o.readOnly {
		b.required = *o.required
	}
	return b, o
}

// declare registers error kinds the field may raise, keyed for the message catalogue as
// "<type>.<kind>".
func (b *Base) declare(codes ...string) {
	for _, c := range codes {
		b.kinds[c] = b.typ + "." + c
	}
}

func (b *Base) errorf(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// finish checks message overrides against the declared kinds. Fields call it last.
func (b *Base) finish() {
	for _, k := range sortedKeys(b.messages) {
		if _, ok := b.kinds[k]; !ok {
			b.errorf("error message for %q, which %s fields never raise", k, b.typ)
		}
	}
}

// Spec returns the descriptor itself so that embedding types satisfy Field.
func (b *Base) Spec() *Base { return b }

// Type names the field kind ("integer", "char", "serializer", ...).
func (b *Base) Type() string { return b.typ }

// Order is the process-wide creation index of the field.
func (b *Base) Order() int64 { return b.order }

// Source is the configured source path, or "" when the field name is used.
func (b *Base) Source() string { return b.source }

func (b *Base) Required() bool   { return b.required }
func (b *Base) ReadOnly() bool   { return b.readOnly }
func (b *Base) WriteOnly() bool  { return b.writeOnly }
func (b *Base) AllowNull() bool  { return b.allowNull }
func (b *Base) AllowBlank() bool { return b.allowBlank }
func (b *Base) HasDefault() bool { return b.hasDefault }
func (b *Base) Label() string    { return b.label }
func (b *Base) HelpText() string { return b.helpText }

// Validators returns the declared validators in order.
func (b *Base) Validators() []shape.Validator { return b.validators }

// Kinds lists the error kinds the field may raise, sorted.
func (b *Base) Kinds() []string { return sortedKeys(b.kinds) }

// Err reports configuration problems found while constructing the field.
func (b *Base) Err() error { return errors.Join(b.errs...) }

// DefaultValue computes the default. ok is false when the field has none.
func (b *Base) DefaultValue(ctx context.Context) (v any, ok bool, err error) {
	if !b.hasDefault {
		return nil, false, nil
	}
	if b.defFunc != nil {
		v, err = b.defFunc(ctx)
		return v, true, err
	}
	return b.def, true, nil
}

// fail builds the error for kind code. Raising a kind the field never declared is a
// programming error.
func (b *Base) fail(code string, data map[string]string) *shape.ValidationError {
	return shape.NewError(code, b.message(code, data))
}

func (b *Base) message(code string, data map[string]string) string {
	key, ok := b.kinds[code]
	if !ok {
		panic(fmt.Sprintf("dsl: %s field raised undeclared error kind %q", b.typ, code))
	}
	if tmpl, ok := b.messages[code]; ok {
		return i18n.Format(tmpl, data)
	}
	return i18n.T(key, data)
}

// copyBase returns a copy with a fresh creation index.
func (b *Base) copyBase() *Base {
	nb := *b
	nb.order = creationCounter.Add(1)
	nb.errs = append([]error(nil), b.errs...)
	return &nb
}

// runField applies the empty-value policy to a present input value, converts it and runs
// the field validators. Absent values are the caller's concern.
func runField(ctx context.Context, f Field, data any) (any, error) {
	b := f.Spec()
	if s, ok := data.(string); ok {
		t := s
		if b.trim {
			t = strings.TrimSpace(s)
		}
		switch {
		case t != "":
		case b.emptyAsNil:
			data = nil
		case b.blankable:
			if b.allowBlank {
				return "", nil
			}
			return nil, b.fail(shape.CodeBlank, nil)
		}
	}
	if data == nil {
		if b.allowNull {
			return nil, nil
		}
		return nil, b.fail(shape.CodeNull, nil)
	}
	v, err := f.ToInternalValue(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := runValidators(ctx, b, b.validators, v); err != nil {
		return nil, err
	}
	return v, nil
}

// runValidators runs vs in order and stops at the first failure. Errors that are not
// validation errors become an "invalid" message carrying their text.
func runValidators(ctx context.Context, b *Base, vs []shape.Validator, v any) error {
	for _, val := range vs {
		err := val.Validate(ctx, v)
		if err == nil {
			continue
		}
		if ve, ok := shape.AsValidationError(err); ok {
			return ve
		}
		zerolog.Ctx(ctx).Debug().Err(err).Str("field", b.typ).Msg("validator failed")
		return shape.NewError(shape.CodeInvalid, err.Error())
	}
	return nil
}

// errorNode extracts the error tree of a validation error. ok is false for other errors.
func errorNode(err error) (shape.ErrorNode, bool) {
	ve, ok := shape.AsValidationError(err)
	if !ok || ve.Detail == nil {
		return nil, false
	}
	return ve.Detail, true
}

// typeName describes input data the way messages refer to it.
func typeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case string:
		return "str"
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return "int"
		}
		return "float"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case []any:
		return "list"
	case map[string]any, shape.Mapping:
		return "dict"
	}
	if isList(v) {
		return "list"
	}
	if _, ok := shape.AsMapping(v); ok {
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
