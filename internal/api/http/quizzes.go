package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const defaultPassingScore = 60

type optionReq struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type questionReq struct {
	Type    quiz.QuestionType `json:"type"`
	Text    string            `json:"text"`
	Options []optionReq       `json:"options"`
}

type createQuizReq struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	PassingScore *int          `json:"passingScore"`
	TimeLimit    *int          `json:"timeLimit"`
	IsActive     *bool         `json:"isActive"`
	Questions    []questionReq `json:"questions"`
}

func (req createQuizReq) toQuiz(creator string) quiz.Quiz {
	q := quiz.Quiz{
		Title:        req.Title,
		Description:  req.Description,
		PassingScore: defaultPassingScore,
		TimeLimit:    req.TimeLimit,
		IsActive:     true,
		CreatorID:    creator,
	}
	if req.PassingScore != nil {
		q.PassingScore = *req.PassingScore
	}
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	for _, qr := range req.Questions {
		qs := quiz.Question{Type: qr.Type, Text: qr.Text}
		for _, o := range qr.Options {
			qs.Options = append(qs.Options, quiz.Option{Text: o.Text, IsCorrect: o.IsCorrect})
		}
		q.Questions = append(q.Questions, qs)
	}
	return q
}

// Students never see the answer key.
type publicOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type publicQuestion struct {
	ID      string            `json:"id"`
	Type    quiz.QuestionType `json:"type"`
	Text    string            `json:"text"`
	Order   int               `json:"order"`
	Options []publicOption    `json:"options"`
}

type publicQuiz struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	PassingScore int              `json:"passingScore"`
	TimeLimit    *int             `json:"timeLimit,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	Questions    []publicQuestion `json:"questions"`
}

func toPublic(q quiz.Quiz) publicQuiz {
	out := publicQuiz{
		ID:           q.ID,
		Title:        q.Title,
		Description:  q.Description,
		PassingScore: q.PassingScore,
		TimeLimit:    q.TimeLimit,
		CreatedAt:    q.CreatedAt,
		Questions:    make([]publicQuestion, 0, len(q.Questions)),
	}
	for _, qs := range q.Questions {
		pq := publicQuestion{ID: qs.ID, Type: qs.Type, Text: qs.Text, Order: qs.Order, Options: make([]publicOption, 0, len(qs.Options))}
		for _, o := range qs.Options {
			pq.Options = append(pq.Options, publicOption{ID: o.ID, Text: o.Text, Order: o.Order})
		}
		out.Questions = append(out.Questions, pq)
	}
	return out
}

// isAuthor reports whether the caller may manage quizzes. Authors only ever
// see their own quizzes.
func isAuthor(r *http.Request) bool { return rbac.Can(r.Context(), rbac.PermQuizUpdate) }

// loadOwnQuiz fetches a quiz the calling author created. It writes the
// error response and returns false otherwise.
func loadOwnQuiz(w http.ResponseWriter, r *http.Request, store quiz.Store, log *zap.Logger) (quiz.Quiz, bool) {
	q, err := store.GetQuizWithQuestions(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeErr(w, log, err)
		return quiz.Quiz{}, false
	}
	if q.CreatorID != auth.SubjectFromContext(r.Context()) {
		forbidden(w)
		return quiz.Quiz{}, false
	}
	return q, true
}

// GET /quizzes?limit=50&offset=0
// Authors get their own quizzes; students get active ones.
func ListQuizzesHandler(store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := quiz.ListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if isAuthor(r) {
			opts.CreatorID = auth.SubjectFromContext(r.Context())
		} else {
			opts.ActiveOnly = true
		}
		list, err := store.ListQuizzes(r.Context(), opts)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /quizzes
func CreateQuizHandler(store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuizReq
		if !decodeJSON(w, r, &req) {
			return
		}
		q, err := store.CreateQuiz(r.Context(), req.toQuiz(auth.SubjectFromContext(r.Context())))
		if err != nil {
			writeErr(w, log, err)
			return
		}
		log.Info("quiz created", zap.String("quiz_id", q.ID), zap.Int("questions", len(q.Questions)))
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /quizzes/{quizID}
func GetQuizHandler(store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isAuthor(r) {
			if q, ok := loadOwnQuiz(w, r, store, log); ok {
				writeJSON(w, http.StatusOK, q)
			}
			return
		}
		q, err := store.GetQuizWithQuestions(r.Context(), chi.URLParam(r, "quizID"))
		if err == nil && !q.IsActive {
			err = quiz.ErrNotFound
		}
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toPublic(q))
	}
}

// PATCH /quizzes/{quizID}  metadata only
func UpdateQuizHandler(store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := loadOwnQuiz(w, r, store, log)
		if !ok {
			return
		}
		var p quiz.Patch
		if !decodeJSON(w, r, &p) {
			return
		}
		upd, err := store.UpdateQuiz(r.Context(), q.ID, p)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, upd)
	}
}

// DELETE /quizzes/{quizID}  removes questions and attempts too
func DeleteQuizHandler(store quiz.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := loadOwnQuiz(w, r, store, log)
		if !ok {
			return
		}
		if err := store.DeleteQuiz(r.Context(), q.ID); err != nil {
			writeErr(w, log, err)
			return
		}
		log.Info("quiz deleted", zap.String("quiz_id", q.ID))
		w.WriteHeader(http.StatusNoContent)
	}
}
