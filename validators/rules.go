package validators

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/i18n"
)

// Op is a comparison operator for If.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Condition is a predicate over validated attributes. Build it with If, IfAll or IfAny and
// attach validators with Then.
type Condition struct {
	path shape.Path
	op   Op
	want any
	all  []Condition
	any  []Condition
}

// If compares the attribute at field (dotted for nested data) with want. A missing
// attribute never satisfies the condition.
func If(field string, op Op, want any) Condition {
	return Condition{path: shape.ParsePath(field), op: op, want: want}
}

// IfAll holds when every condition holds.
func IfAll(conds ...Condition) Condition { return Condition{all: conds} }

// IfAny holds when at least one condition holds.
func IfAny(conds ...Condition) Condition { return Condition{any: conds} }

func (c Condition) And(others ...Condition) Condition {
	return IfAll(append([]Condition{c}, others...)...)
}

func (c Condition) Or(others ...Condition) Condition {
	return IfAny(append([]Condition{c}, others...)...)
}

// Holds evaluates the condition against v.
func (c Condition) Holds(v any) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.Holds(v) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.Holds(v) {
				return true
			}
		}
		return false
	}
	cur, ok := lookup(v, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// Then runs vs when the condition holds. Failures of every validator are merged.
func (c Condition) Then(vs ...shape.Validator) shape.Validator {
	all := All(vs...)
	return shape.ValidatorFunc(func(ctx context.Context, v any) error {
		if !c.Holds(v) {
			return nil
		}
		return all.Validate(ctx, v)
	})
}

// All runs every validator and merges their error trees. An error that is not a
// *shape.ValidationError is returned as is.
func All(vs ...shape.Validator) shape.Validator {
	return shape.ValidatorFunc(func(ctx context.Context, v any) error {
		var node shape.ErrorNode
		for _, val := range vs {
			if val == nil {
				continue
			}
			err := val.Validate(ctx, v)
			if err == nil {
				continue
			}
			ve, ok := shape.AsValidationError(err)
			if !ok {
				return err
			}
			node = mergeNodes(node, ve.Detail)
		}
		if node == nil {
			return nil
		}
		return &shape.ValidationError{Detail: node}
	})
}

// Any passes when at least one validator passes. When all fail, the error with the fewest
// issues is returned.
func Any(vs ...shape.Validator) shape.Validator {
	return shape.ValidatorFunc(func(ctx context.Context, v any) error {
		var best error
		bestN := 0
		for _, val := range vs {
			if val == nil {
				continue
			}
			err := val.Validate(ctx, v)
			if err == nil {
				return nil
			}
			n := 1
			if ve, ok := shape.AsValidationError(err); ok {
				n = len(ve.Issues())
			}
			if best == nil || n < bestN {
				best, bestN = err, n
			}
		}
		return best
	})
}

// Required requires the attribute at field to be present and neither null nor blank.
func Required(field string) shape.Validator {
	p := shape.ParsePath(field)
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		cur, ok := lookup(v, p)
		if ok && cur != nil && cur != "" {
			return nil
		}
		return fieldError(p, shape.ErrorList{{Code: shape.CodeRequired, Message: i18n.T("validators.required", nil)}})
	})
}

// AtLeastOne requires the collection at field to hold at least one element. A missing or
// non-collection attribute passes.
func AtLeastOne(field string) shape.Validator {
	p := shape.ParsePath(field)
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		cur, ok := lookup(v, p)
		if !ok {
			return nil
		}
		rv := reflect.ValueOf(cur)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Len() == 0 {
				return fieldError(p, shape.ErrorList{{Code: shape.CodeMinLength, Message: i18n.T("validators.at_least_one", nil)}})
			}
		}
		return nil
	})
}

// UniqueBy requires the elements of the collection at field to have distinct values at key.
// Keys compare by their string form, so align the key to a single type. Each duplicate is
// reported at its own index; the first occurrence is not.
func UniqueBy(field, key string) shape.Validator {
	cp, kp := shape.ParsePath(field), shape.ParsePath(key)
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		cur, ok := lookup(v, cp)
		if !ok {
			return nil
		}
		rv := reflect.ValueOf(cur)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil
		}
		seen := make(map[string]bool, rv.Len())
		items := make(shape.ErrorArray, rv.Len())
		dup := false
		for i := range items {
			items[i] = shape.ErrorDict{}
			kv, ok := lookup(rv.Index(i).Interface(), kp)
			if !ok {
				continue
			}
			k := fmt.Sprint(kv)
			if !seen[k] {
				seen[k] = true
				continue
			}
			dup = true
			items[i] = nest(kp, shape.ErrorList{{
				Code:    shape.CodeUnique,
				Message: i18n.T("validators.unique_by", map[string]string{"key": key}),
			}})
		}
		if !dup {
			return nil
		}
		return fieldError(cp, items)
	})
}

func lookup(v any, p shape.Path) (any, bool) {
	cur, res, err := p.Resolve(v)
	if err != nil || res != shape.Found {
		return nil, false
	}
	return cur, true
}

// nest wraps node in one ErrorDict level per path element.
func nest(p shape.Path, node shape.ErrorNode) shape.ErrorNode {
	for i := len(p) - 1; i >= 0; i-- {
		node = shape.ErrorDict{p[i]: node}
	}
	return node
}

func fieldError(p shape.Path, node shape.ErrorNode) *shape.ValidationError {
	return &shape.ValidationError{Detail: nest(p, node)}
}

// mergeNodes combines two error trees. Lists concatenate, dicts merge per key, and a list
// merged into a dict lands under the non-field key.
func mergeNodes(a, b shape.ErrorNode) shape.ErrorNode {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch x := a.(type) {
	case shape.ErrorList:
		switch y := b.(type) {
		case shape.ErrorList:
			return append(append(shape.ErrorList{}, x...), y...)
		case shape.ErrorDict:
			return mergeNodes(shape.ErrorDict{shape.NonFieldErrors: x}, y)
		}
	case shape.ErrorDict:
		switch y := b.(type) {
		case shape.ErrorList:
			return mergeNodes(x, shape.ErrorDict{shape.NonFieldErrors: y})
		case shape.ErrorDict:
			out := make(shape.ErrorDict, len(x)+len(y))
			for k, n := range x {
				out[k] = n
			}
			for k, n := range y {
				out[k] = mergeNodes(out[k], n)
			}
			return out
		}
	case shape.ErrorArray:
		if y, ok := b.(shape.ErrorArray); ok && len(y) == len(x) {
			out := make(shape.ErrorArray, len(x))
			for i := range x {
				out[i] = mergeNodes(x[i], y[i])
			}
			return out
		}
	}
	return a
}

func compare(cur any, op Op, want any) bool {
	if a, ok := toDecimal(cur); ok {
		if b, ok := toDecimal(want); ok {
			c := a.Cmp(b)
			switch op {
			case Eq:
				return c == 0
			case Ne:
				return c != 0
			case Lt:
				return c < 0
			case Le:
				return c <= 0
			case Gt:
				return c > 0
			case Ge:
				return c >= 0
			}
			return false
		}
	}
	switch op {
	case Eq:
		return shape.Equal(cur, want)
	case Ne:
		return !shape.Equal(cur, want)
	}
	if a, ok := cur.(string); ok {
		if b, ok := want.(string); ok {
			c := strings.Compare(a, b)
			switch op {
			case Lt:
				return c < 0
			case Le:
				return c <= 0
			case Gt:
				return c > 0
			case Ge:
				return c >= 0
			}
		}
	}
	return false
}
