package shared

import "context"

type principalContextKey struct{}

// ContextWithPrincipalID stores the authenticated principal id in context.
func ContextWithPrincipalID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, principalContextKey{}, id)
}

// PrincipalIDFromContext extracts the authenticated principal id.
func PrincipalIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(principalContextKey{}).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
