package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/i18n"
)

// Unique is a field-level validator requiring that no object of q other than the instance
// being updated has value at field. Lookup failures other than ErrNotFound are returned.
func Unique(q shape.Queryset, field string) shape.Validator {
	return shape.ValidatorFunc(func(ctx context.Context, v any) error {
		obj, err := q.Get(ctx, field, v)
		switch {
		case errors.Is(err, shape.ErrNotFound):
			return nil
		case errors.Is(err, shape.ErrMultipleFound):
		case err != nil:
			return fmt.Errorf("unique %s: %w", field, err)
		default:
			if same(obj, shape.InstanceFrom(ctx)) {
				return nil
			}
		}
		return shape.NewError(shape.CodeUnique, i18n.T(shape.CodeUnique, nil))
	})
}

// UniqueTogether is an object-level validator requiring that no other object of q shares
// the values of all fields. On partial updates missing attributes are taken from the
// instance; if one is still missing the check is skipped.
func UniqueTogether(q shape.Queryset, fields ...string) shape.Validator {
	paths := make([]shape.Path, len(fields))
	for i, f := range fields {
		paths[i] = shape.ParsePath(f)
	}
	return shape.ValidatorFunc(func(ctx context.Context, v any) error {
		instance := shape.InstanceFrom(ctx)
		want := make([]string, len(paths))
		for i, p := range paths {
			cur, ok := lookup(v, p)
			if !ok && instance != nil {
				cur, ok = lookup(instance, p)
			}
			if !ok {
				return nil
			}
			want[i] = fmt.Sprint(cur)
		}
		all, err := q.All(ctx)
		if err != nil {
			return fmt.Errorf("unique together: %w", err)
		}
		for _, obj := range all {
			if same(obj, instance) || !matches(obj, paths, want) {
				continue
			}
			msg := i18n.T("unique_together.unique", map[string]string{"field_names": strings.Join(fields, ", ")})
			return shape.NewError(shape.CodeUnique, msg)
		}
		return nil
	})
}

func matches(obj any, paths []shape.Path, want []string) bool {
	for i, p := range paths {
		cur, ok := lookup(obj, p)
		if !ok || fmt.Sprint(cur) != want[i] {
			return false
		}
	}
	return true
}

func same(obj, instance any) bool {
	return instance != nil && shape.Equal(obj, instance)
}
