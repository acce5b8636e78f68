package shape

import "context"

type contextKey int

const (
	_ctxKeyPartial contextKey = iota
	_ctxKeyInstance
	_ctxKeyValues
)

// WithPartial marks the context as a partial update: absent fields are neither required nor
// defaulted.
func WithPartial(ctx context.Context, partial bool) context.Context {
	return context.WithValue(ctx, _ctxKeyPartial, partial)
}

// IsPartial reports whether the current validation is a partial update.
func IsPartial(ctx context.Context) bool {
	b, _ := ctx.Value(_ctxKeyPartial).(bool)
	return b
}

// WithInstance records the instance a serializer was bound to. Validators that must exclude
// the current object (uniqueness checks on update) read it back with InstanceFrom.
func WithInstance(ctx context.Context, instance any) context.Context {
	return context.WithValue(ctx, _ctxKeyInstance, instance)
}

// InstanceFrom returns the instance bound to the running serializer, or nil.
func InstanceFrom(ctx context.Context) any {
	return ctx.Value(_ctxKeyInstance)
}

// WithValues attaches caller-provided context values (request user, tenant, ...).
func WithValues(ctx context.Context, values map[string]any) context.Context {
	if len(values) == 0 {
		return ctx
	}
	merged := make(map[string]any, len(values))
	if prev, ok := ctx.Value(_ctxKeyValues).(map[string]any); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	for k, v := range values {
		merged[k] = v
	}
	return context.WithValue(ctx, _ctxKeyValues, merged)
}

// ContextValue returns a caller-provided context value.
func ContextValue(ctx context.Context, key string) (any, bool) {
	m, _ := ctx.Value(_ctxKeyValues).(map[string]any)
	v, ok := m[key]
	return v, ok
}
