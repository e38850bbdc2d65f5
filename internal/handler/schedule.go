package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/wrenhall/chorebank/internal/calendar"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/schedule"
)

type ScheduleHandler struct {
	resolver *schedule.Resolver
	clk      clock.Clock
	logger   *slog.Logger
}

func NewScheduleHandler(resolver *schedule.Resolver, clk clock.Clock, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{resolver: resolver, clk: clk, logger: logger}
}

// dateParam reads ?date=YYYY-MM-DD, defaulting to today.
func (h *ScheduleHandler) dateParam(r *http.Request) (time.Time, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		s = h.clk.Today()
	}
	t, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ForDate returns every chore that falls on the date after overrides apply.
func (h *ScheduleHandler) ForDate(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	chores, err := h.resolver.ChoresForDate(date)
	if err != nil {
		writeError(w, h.logger, err, "resolve schedule")
		return
	}
	if chores == nil {
		chores = []model.ChoreDefinition{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// ForMember returns the date's chores assigned to one member.
func (h *ScheduleHandler) ForMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	date, ok := h.dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	chores, err := h.resolver.ChoresForMember(memberID, date)
	if err != nil {
		writeError(w, h.logger, err, "resolve schedule")
		return
	}
	if chores == nil {
		chores = []model.ChoreDefinition{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// WeeklyProgress returns per-chore target progress for the week containing
// the date (today when absent).
func (h *ScheduleHandler) WeeklyProgress(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	date, ok := h.dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	progress, err := h.resolver.WeeklyProgress(memberID, date)
	if err != nil {
		writeError(w, h.logger, err, "compute weekly progress")
		return
	}

	out := make([]schedule.Progress, 0, len(progress))
	for _, p := range progress {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChoreID < out[j].ChoreID })
	writeJSON(w, http.StatusOK, out)
}
