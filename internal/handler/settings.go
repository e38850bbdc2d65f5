package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wrenhall/chorebank/internal/store"
)

// Settings the server acts on. Unknown keys are rejected rather than
// silently stored.
var knownSettings = map[string]bool{
	"timezone":   true,
	"week_start": true,
}

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.settings.GetAll()
	if err != nil {
		writeError(w, h.logger, err, "get settings")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	for key := range req {
		if !knownSettings[key] {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown setting: "+key))
			return
		}
	}
	for key, value := range req {
		if err := h.settings.Set(key, value); err != nil {
			writeError(w, h.logger, err, "save setting")
			return
		}
	}
	writeJSON(w, http.StatusOK, req)
}
