package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/schedule"
	"github.com/wrenhall/chorebank/internal/store"
)

type ChoreHandler struct {
	chores *store.ChoreStore
	cache  *schedule.DefinitionCache
	logger *slog.Logger
}

func NewChoreHandler(chores *store.ChoreStore, cache *schedule.DefinitionCache, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: chores, cache: cache, logger: logger}
}

type choreRequest struct {
	Name              string           `json:"name"`
	Icon              string           `json:"icon"`
	Description       string           `json:"description"`
	AssignedTo        *int64           `json:"assigned_to"`
	EarnValue         *decimal.Decimal `json:"earn_value"`
	PenaltyValue      *decimal.Decimal `json:"penalty_value"`
	ScheduleType      string           `json:"schedule_type"`
	ActiveDays        int              `json:"active_days"`
	WeeklyTargetCount int              `json:"weekly_target_count"`
	StartDate         *string          `json:"start_date"`
	EndDate           *string          `json:"end_date"`
	AutoApprove       bool             `json:"auto_approve"`
}

func (req *choreRequest) toDefinition() *model.ChoreDefinition {
	d := &model.ChoreDefinition{
		Name:              req.Name,
		Icon:              req.Icon,
		Description:       req.Description,
		AssignedTo:        req.AssignedTo,
		ScheduleType:      model.ScheduleType(req.ScheduleType),
		ActiveDays:        req.ActiveDays,
		WeeklyTargetCount: req.WeeklyTargetCount,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		AutoApprove:       req.AutoApprove,
		IsActive:          true,
	}
	if req.EarnValue != nil {
		d.EarnValue = *req.EarnValue
	}
	if req.PenaltyValue != nil {
		d.PenaltyValue = *req.PenaltyValue
	}
	return d
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	chore, err := h.chores.Create(req.toDefinition())
	if err != nil {
		writeError(w, h.logger, err, "create chore")
		return
	}

	h.cache.Invalidate()
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		chores []model.ChoreDefinition
		err    error
	)
	if r.URL.Query().Get("active") == "true" {
		chores, err = h.chores.ListActive()
	} else {
		chores, err = h.chores.List()
	}
	if err != nil {
		writeError(w, h.logger, err, "list chores")
		return
	}
	if chores == nil {
		chores = []model.ChoreDefinition{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	chore, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err, "get chore")
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, errorBody("chore not found"))
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err, "get chore")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, errorBody("chore not found"))
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	d := req.toDefinition()
	d.ID = id
	d.IsActive = existing.IsActive
	d.SortOrder = existing.SortOrder

	chore, err := h.chores.Update(d)
	if err != nil {
		writeError(w, h.logger, err, "update chore")
		return
	}

	h.cache.Invalidate()
	writeJSON(w, http.StatusOK, chore)
}

// Deactivate retires a chore without touching its history.
func (h *ChoreHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.chores.Deactivate(id); err != nil {
		writeError(w, h.logger, err, "deactivate chore")
		return
	}
	h.cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.chores.Delete(id); err != nil {
		writeError(w, h.logger, err, "delete chore")
		return
	}
	h.cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}
