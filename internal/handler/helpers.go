package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wrenhall/chorebank/internal/store"
)

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps the store error taxonomy to HTTP statuses: not-found to
// 404, version conflicts to 409, validation to 400, everything else to a
// logged 500 with a generic body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("version conflict, reload and retry"))
	case store.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		logger.Error(action, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to "+action))
	}
}
