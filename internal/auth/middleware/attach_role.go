package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type UserLookup interface {
	Get(ctx context.Context, id string) (users.User, error)
}

// AttachRoleFromDB replaces the role claim with the role stored for the
// subject, so role changes apply before the token expires. Tokens for
// deleted users are rejected.
func AttachRoleFromDB(lookup UserLookup, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := lookup.Get(ctx, SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, quiz.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "unknown user")
			default:
				log.Error("role lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}
