package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/users"
)

// POST /admin/users/bulk
// Accepts a multipart file= (CSV or JSON) or a raw JSON array / CSV body.
func BulkUpsertUsersHandler(repo *users.Repo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 10*maxBody)
		var rows []users.Row
		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, ferr := r.FormFile("file")
			if ferr != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION", "file required")
				return
			}
			defer f.Close()
			rows, err = users.ParseRows(f)
		} else {
			rows, err = users.ParseRows(r.Body)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "bad import: "+err.Error())
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}

		ins, upd, err := repo.BulkUpsert(r.Context(), rows)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		log.Info("users imported", zap.Int("inserted", ins), zap.Int("updated", upd))
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// GET /admin/users?role=student
func ListUsersHandler(repo *users.Repo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			writeErr(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
