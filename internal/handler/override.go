package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/calendar"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
)

type OverrideHandler struct {
	overrides *store.OverrideStore
	logger    *slog.Logger
}

func NewOverrideHandler(overrides *store.OverrideStore, logger *slog.Logger) *OverrideHandler {
	return &OverrideHandler{overrides: overrides, logger: logger}
}

func validDate(s string) bool {
	_, err := calendar.ParseDate(s)
	return err == nil
}

type overrideRequest struct {
	ChoreID    int64            `json:"chore_id"`
	Date       string           `json:"date"`
	CreatedBy  int64            `json:"created_by"`
	AssignedTo *int64           `json:"assigned_to"`
	Value      *decimal.Decimal `json:"value"`
}

// Add schedules a one-off occurrence of a chore on a date.
func (h *OverrideHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if !validDate(req.Date) {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	o, err := h.overrides.UpsertAdd(req.ChoreID, req.Date, req.CreatedBy, req.AssignedTo, req.Value)
	if err != nil {
		writeError(w, h.logger, err, "add override")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// Remove cancels a chore's occurrence on a date. Removing a prior Add or
// Move undoes it instead of layering a removal on top.
func (h *OverrideHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if !validDate(req.Date) {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	if err := h.overrides.UpsertRemove(req.ChoreID, req.Date, req.CreatedBy); err != nil {
		writeError(w, h.logger, err, "remove override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	ChoreID   int64  `json:"chore_id"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	CreatedBy int64  `json:"created_by"`
}

// Move reschedules one occurrence from one date to another atomically.
func (h *OverrideHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if !validDate(req.FromDate) || !validDate(req.ToDate) {
		writeJSON(w, http.StatusBadRequest, errorBody("dates must be YYYY-MM-DD"))
		return
	}

	if err := h.overrides.Move(req.ChoreID, req.FromDate, req.ToDate, req.CreatedBy); err != nil {
		writeError(w, h.logger, err, "move override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns overrides for a date, or for a start/end range.
func (h *OverrideHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		overrides []model.ScheduleOverride
		err       error
	)
	switch {
	case q.Get("date") != "":
		if !validDate(q.Get("date")) {
			writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
		overrides, err = h.overrides.ListForDate(q.Get("date"))
	case q.Get("start") != "" && q.Get("end") != "":
		if !validDate(q.Get("start")) || !validDate(q.Get("end")) {
			writeJSON(w, http.StatusBadRequest, errorBody("dates must be YYYY-MM-DD"))
			return
		}
		overrides, err = h.overrides.ListForRange(q.Get("start"), q.Get("end"))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("date or start/end is required"))
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "list overrides")
		return
	}
	if overrides == nil {
		overrides = []model.ScheduleOverride{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

func (h *OverrideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.overrides.Delete(id); err != nil {
		writeError(w, h.logger, err, "delete override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
