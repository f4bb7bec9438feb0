package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const maxBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeErr maps the error taxonomy onto HTTP statuses. Storage and unknown
// errors are logged and hidden from the client.
func writeErr(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, quiz.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, quiz.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, quiz.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "ALREADY_COMPLETED", "you have already completed this quiz")
	case errors.Is(err, quiz.ErrEmptyQuiz):
		writeError(w, http.StatusUnprocessableEntity, "EMPTY_QUIZ", "quiz has no questions")
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "STORAGE", "internal error")
	}
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "FORBIDDEN", "forbidden")
}

// decodeJSON reads at most 1 MiB of JSON into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "bad json")
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
