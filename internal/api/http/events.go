package http

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// GET /admin/events?after=0&limit=100
// Clients page by passing the last offset they saw as after.
func ListEventsHandler(events *syncx.EventRepo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		if err != nil {
			after = 0
		}
		list, err := events.Since(r.Context(), after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
