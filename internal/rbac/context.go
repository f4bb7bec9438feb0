package rbac

import "context"

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns "" when no role was attached.
func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(roleKey{}).(string)
	return s
}
