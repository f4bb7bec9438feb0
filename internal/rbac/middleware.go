package rbac

import (
	"context"
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require lets the request through only if the role in context holds perm.
func Require(perm string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return defaultChecker.Has(role, perm) })
}

// RequireAny passes when the role holds at least one of perms. Handlers
// still decide ownership.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return defaultChecker.Any(role, perms...) })
}

func guard(allowed func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role := RoleFromContext(r.Context()); role == "" || !allowed(role) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","code":"FORBIDDEN"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Can reports whether the role in ctx holds perm under the default policy.
func Can(ctx context.Context, perm string) bool {
	role := RoleFromContext(ctx)
	return role != "" && defaultChecker.Has(role, perm)
}
