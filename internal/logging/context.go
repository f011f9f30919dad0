package logging

import (
	"context"
	"maps"
)

type contextKey string

const contextFieldsKey contextKey = "markpress.logging.fields"

// ContextWithFields returns a context carrying structured logging fields that
// provider adapters merge into subsequent entries. Fields already on the
// context are kept; new keys win on collision.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}

	existing := ContextFields(ctx)
	merged := make(map[string]any, len(existing)+len(fields))
	maps.Copy(merged, existing)
	maps.Copy(merged, fields)
	return context.WithValue(ctx, contextFieldsKey, merged)
}

// ContextFields extracts logging fields previously attached to the context.
// The returned map is a copy; callers may mutate it.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}

	fields, ok := ctx.Value(contextFieldsKey).(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}
