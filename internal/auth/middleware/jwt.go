package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const issuer = "mindengage-quiz"

type AuthService struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

type Claims struct {
	Role  string `json:"role"` // "admin" or "student"
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role, email string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := &Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(a.hmac)
	return s, exp, err
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// JWTMiddleware rejects requests without a valid bearer token and puts the
// subject, role and email claims into the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := WithSubject(r.Context(), c.Subject)
			ctx = rbac.WithRole(ctx, c.Role)
			ctx = withEmail(ctx, c.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
