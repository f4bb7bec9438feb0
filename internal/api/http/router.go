package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/ledger"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type Deps struct {
	DB      *sql.DB
	Store   quiz.Store
	Ledger  *ledger.Ledger
	Users   *users.Repo
	Events  *syncx.EventRepo
	Auth    *auth.AuthService
	Metrics *metrics.Metrics
	Log     *zap.Logger

	CORSOrigins        []string
	LoginRatePerMinute int
	RequestTimeout     time.Duration
}

// NewRouter mounts every route. Protected routes go JWT → role from DB →
// RBAC.
func NewRouter(d Deps) http.Handler {
	if d.LoginRatePerMinute <= 0 {
		d.LoginRatePerMinute = 10
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Group(func(pub chi.Router) {
		pub.Use(RateLimit(d.LoginRatePerMinute))
		pub.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users, d.Log))
		pub.Post("/auth/register", auth.RegisterHandler(d.Auth, d.Users, d.Log))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth), auth.AttachRoleFromDB(d.Users, d.Log))

		pr.With(rbac.Require(rbac.PermPasswordChange)).
			Post("/auth/password", auth.ChangePasswordHandler(d.Users, d.Log))

		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes", ListQuizzesHandler(d.Store, d.Log))
		pr.With(rbac.Require(rbac.PermQuizCreate)).
			Post("/quizzes", CreateQuizHandler(d.Store, d.Log))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes/{quizID}", GetQuizHandler(d.Store, d.Log))
		pr.With(rbac.Require(rbac.PermQuizUpdate)).
			Patch("/quizzes/{quizID}", UpdateQuizHandler(d.Store, d.Log))
		pr.With(rbac.Require(rbac.PermQuizDelete)).
			Delete("/quizzes/{quizID}", DeleteQuizHandler(d.Store, d.Log))

		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/quizzes/{quizID}/attempts", SubmitAttemptHandler(d.Ledger, d.Log))
		pr.With(rbac.Require(rbac.PermResultsView)).
			Get("/quizzes/{quizID}/results", QuizResultsHandler(d.Ledger, d.Store, d.Log))

		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/attempts/me", MyAttemptsHandler(d.Ledger, d.Log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}", GetAttemptHandler(d.Ledger, d.Store, d.Log))

		pr.Route("/admin", func(ar chi.Router) {
			if d.Events != nil {
				ar.With(rbac.Require(rbac.PermEventsView)).
					Get("/events", ListEventsHandler(d.Events, d.Log))
			}
			ar.With(rbac.Require(rbac.PermUsersList)).
				Get("/users", ListUsersHandler(d.Users, d.Log))
			ar.With(rbac.Require(rbac.PermUsersBulkUpsert)).
				Post("/users/bulk", BulkUpsertUsersHandler(d.Users, d.Log))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.PingContext(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "NOT_READY", "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}

// requestLogger logs one line per request at info, or warn for 5xx.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if status >= 500 {
				log.Warn("request", fields...)
				return
			}
			log.Info("request", fields...)
		})
	}
}
