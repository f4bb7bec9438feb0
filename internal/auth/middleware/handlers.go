package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type tokenResponse struct {
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	User        users.User `json:"user"`
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(a *AuthService, repo *users.Repo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		u, err := repo.Authenticate(r.Context(), req.Email, req.Password)
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			log.Error("login failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		issue(w, a, u, http.StatusOK, log)
	}
}

// POST /auth/register  { "email": "...", "name": "...", "password": "..." }
// Self-registration always creates a student.
func RegisterHandler(a *AuthService, repo *users.Repo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		u, err := repo.Register(r.Context(), req.Email, req.Name, req.Password, users.RoleStudent)
		switch {
		case errors.Is(err, quiz.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, users.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			log.Error("register failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		log.Info("user registered", zap.String("user_id", u.ID))
		issue(w, a, u, http.StatusCreated, log)
	}
}

// POST /auth/password  { "oldPassword": "...", "newPassword": "..." }
func ChangePasswordHandler(repo *users.Repo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := SubjectFromContext(r.Context())
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req struct {
			OldPassword string `json:"oldPassword"`
			NewPassword string `json:"newPassword"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		err := repo.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, quiz.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, users.ErrInvalidCredentials):
			writeError(w, http.StatusForbidden, "incorrect old password")
		case errors.Is(err, quiz.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			log.Error("change password failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func issue(w http.ResponseWriter, a *AuthService, u users.User, status int, log *zap.Logger) {
	tok, exp, err := a.IssueJWT(u.ID, u.Role, u.Email)
	if err != nil {
		log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp.UTC(), User: u})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
