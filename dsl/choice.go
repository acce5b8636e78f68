package dsl

import (
	"context"
	"fmt"

	shape "github.com/reoring/shape"
)

// ChoiceField accepts one of a fixed set of values. Input is matched by its string form, so
// "1" selects the choice 1.
type ChoiceField struct {
	*Base
	choices []any
	byText  map[string]any
}

func newChoiceBase(typ string, choices []any, opts []Option, accepted ...string) (*Base, map[string]any, *options) {
	b, o := newBase(typ, opts, accepted...)
	b.declare(shape.CodeInvalidChoice)
	if len(choices) == 0 {
		b.errorf("no choices declared")
	}
	byText := make(map[string]any, len(choices))
	for _, c := range choices {
		byText[fmt.Sprint(c)] = c
	}
	return b, byText, o
}

// Choice returns a field restricted to choices.
func Choice(choices []any, opts ...Option) *ChoiceField {
	b, byText, _ := newChoiceBase("choice", choices, opts, optAllowBlank)
	b.blankable = true
	b.declare(shape.CodeBlank)
	b.finish()
	return &ChoiceField{Base: b, choices: choices, byText: byText}
}

// Choices returns the declared choices in order.
func (f *ChoiceField) Choices() []any { return f.choices }

func (f *ChoiceField) ToInternalValue(_ context.Context, data any) (any, error) {
	if v, ok := f.byText[fmt.Sprint(data)]; ok && !isList(data) {
		return v, nil
	}
	return nil, f.fail(shape.CodeInvalidChoice, map[string]string{"input": fmt.Sprint(data)})
}

func (f *ChoiceField) ToRepresentation(_ context.Context, value any) (any, error) {
	if v, ok := f.byText[fmt.Sprint(value)]; ok {
		return v, nil
	}
	return value, nil
}

// MultipleChoiceField accepts a list of distinct choices.
type MultipleChoiceField struct {
	*Base
	choices    []any
	byText     map[string]any
	allowEmpty bool
}

// MultipleChoice returns a field accepting several of choices. Duplicates collapse.
func MultipleChoice(choices []any, opts ...Option) *MultipleChoiceField {
	b, byText, o := newChoiceBase("multiple_choice", choices, opts, optAllowEmpty)
	b.declare(shape.CodeNotAList, shape.CodeEmpty)
	f := &MultipleChoiceField{Base: b, choices: choices, byText: byText, allowEmpty: o.allowEmpty == nil || *o.allowEmpty}
	b.finish()
	return f
}

func (f *MultipleChoiceField) Choices() []any { return f.choices }

func (f *MultipleChoiceField) ToInternalValue(_ context.Context, data any) (any, error) {
	items, ok := toList(data)
	if !ok {
		return nil, f.fail(shape.CodeNotAList, map[string]string{"input_type": typeName(data)})
	}
	if len(items) == 0 && !f.allowEmpty {
		return nil, f.fail(shape.CodeEmpty, nil)
	}
	out := make([]any, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		key := fmt.Sprint(it)
		v, ok := f.byText[key]
		if !ok {
			return nil, f.fail(shape.CodeInvalidChoice, map[string]string{"input": key})
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *MultipleChoiceField) ToRepresentation(_ context.Context, value any) (any, error) {
	items, ok := toList(value)
	if !ok {
		return nil, fmt.Errorf("dsl: cannot render %T as a list of choices", value)
	}
	out := make([]any, len(items))
	for i, it := range items {
		if v, ok := f.byText[fmt.Sprint(it)]; ok {
			out[i] = v
			continue
		}
		out[i] = it
	}
	return out, nil
}
