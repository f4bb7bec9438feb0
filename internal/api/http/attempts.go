package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/ledger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type submitReq struct {
	UserID    string                  `json:"userId"`
	Answers   []quiz.AnswerSubmission `json:"answers"`
	TimeSpent *int                    `json:"timeSpent"` // seconds
}

// POST /quizzes/{quizID}/attempts
// The attempt is always recorded for the caller; a userId in the body must
// match the token subject.
func SubmitAttemptHandler(l *ledger.Ledger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		var req submitReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.UserID != "" && req.UserID != sub {
			forbidden(w)
			return
		}
		res, err := l.Submit(r.Context(), sub, chi.URLParam(r, "quizID"), req.Answers, req.TimeSpent)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// GET /attempts/me
func MyAttemptsHandler(l *ledger.Ledger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := l.AttemptsForUser(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /attempts/{attemptID}
// Students see their own attempts; authors see attempts on their quizzes.
func GetAttemptHandler(l *ledger.Ledger, store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		a, err := l.Attempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, log, err)
			return
		}
		if a.UserID == sub {
			writeJSON(w, http.StatusOK, a)
			return
		}
		if !isAuthor(r) {
			forbidden(w)
			return
		}
		q, err := store.GetQuizWithQuestions(r.Context(), a.QuizID)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		if q.CreatorID != sub {
			forbidden(w)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /quizzes/{quizID}/results
func QuizResultsHandler(l *ledger.Ledger, store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := loadOwnQuiz(w, r, store, log)
		if !ok {
			return
		}
		res, err := l.QuizResults(r.Context(), q.ID)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
