package handler

import (
	"log/slog"
	"net/http"

	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
)

type AchievementHandler struct {
	achievements *store.AchievementStore
	clk          clock.Clock
	logger       *slog.Logger
}

func NewAchievementHandler(achievements *store.AchievementStore, clk clock.Clock, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, clk: clk, logger: logger}
}

// List returns the active achievement catalog.
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.achievements.ListActive()
	if err != nil {
		writeError(w, h.logger, err, "list achievements")
		return
	}
	if achievements == nil {
		achievements = []model.Achievement{}
	}
	writeJSON(w, http.StatusOK, achievements)
}

// Progress returns a member's progress toward unearned achievements.
func (h *AchievementHandler) Progress(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	progress, err := h.achievements.ListProgress(memberID)
	if err != nil {
		writeError(w, h.logger, err, "list achievement progress")
		return
	}
	if progress == nil {
		progress = []model.AchievementProgress{}
	}
	writeJSON(w, http.StatusOK, progress)
}

// Earned returns the achievements a member has unlocked.
func (h *AchievementHandler) Earned(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	earned, err := h.achievements.ListEarned(memberID)
	if err != nil {
		writeError(w, h.logger, err, "list earned achievements")
		return
	}
	if earned == nil {
		earned = []model.MemberAchievement{}
	}
	writeJSON(w, http.StatusOK, earned)
}

// Bonuses returns a member's currently usable grants: unexpired, with
// uses remaining.
func (h *AchievementHandler) Bonuses(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	bonuses, err := h.achievements.ListActiveBonuses(memberID, h.clk.Now())
	if err != nil {
		writeError(w, h.logger, err, "list achievement bonuses")
		return
	}
	if bonuses == nil {
		bonuses = []model.MemberAchievementBonus{}
	}
	writeJSON(w, http.StatusOK, bonuses)
}
