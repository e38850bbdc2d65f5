package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wrenhall/chorebank/internal/achievement"
	"github.com/wrenhall/chorebank/internal/ledger"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
	"github.com/wrenhall/chorebank/internal/websocket"
)

// OutcomeHandler owns the chore log lifecycle: creating the day's log rows
// and recording status transitions through the ledger engine.
type OutcomeHandler struct {
	logs      *store.ChoreLogStore
	engine    *ledger.Engine
	evaluator *achievement.Evaluator
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewOutcomeHandler(logs *store.ChoreLogStore, engine *ledger.Engine, evaluator *achievement.Evaluator, hub *websocket.Hub, logger *slog.Logger) *OutcomeHandler {
	return &OutcomeHandler{logs: logs, engine: engine, evaluator: evaluator, hub: hub, logger: logger}
}

type logRequest struct {
	ChoreID int64  `json:"chore_id"`
	Date    string `json:"date"`
}

// GetOrCreate materializes the log row for a (chore, date) pair. Idempotent:
// the existing row comes back when one is already there.
func (h *OutcomeHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if !validDate(req.Date) {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	log, err := h.logs.GetOrCreate(req.ChoreID, req.Date)
	if err != nil {
		writeError(w, h.logger, err, "create chore log")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *OutcomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	log, err := h.logs.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err, "get chore log")
		return
	}
	if log == nil {
		writeJSON(w, http.StatusNotFound, errorBody("chore log not found"))
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// ListForDate returns every log on a date.
func (h *OutcomeHandler) ListForDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if !validDate(date) {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	logs, err := h.logs.ListForDate(date)
	if err != nil {
		writeError(w, h.logger, err, "list chore logs")
		return
	}
	if logs == nil {
		logs = []model.ChoreLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

type outcomeRequest struct {
	Status  string `json:"status"`
	ActorID int64  `json:"actor_id"`
	Version int64  `json:"version"`
	Note    string `json:"note"`
}

// RecordOutcome applies a status transition to a log. The request carries
// the version the client read; a stale version comes back as 409.
func (h *OutcomeHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	outcome, err := h.engine.RecordOutcome(id, model.LogStatus(req.Status), req.ActorID, req.Version, req.Note)
	if err != nil {
		writeError(w, h.logger, err, "record outcome")
		return
	}

	h.notify(outcome)
	writeJSON(w, http.StatusOK, outcome)
}

// notify broadcasts the outcome and kicks off achievement evaluation in
// the background. Evaluation failures are logged and never surface to the
// request that triggered them.
func (h *OutcomeHandler) notify(outcome *ledger.Outcome) {
	log := outcome.Log
	h.hub.Broadcast(websocket.ChoreOutcomeEvent(log.ID, string(log.Status), log.CompletedBy))
	if txn := outcome.Transaction; txn != nil {
		h.hub.Broadcast(websocket.LedgerEvent(txn.ID, string(txn.Type), txn.MemberID))
	}

	memberID := evaluationTarget(outcome)
	if memberID == 0 {
		return
	}
	go func() {
		unlocked, err := h.evaluator.Evaluate(memberID, "chore_outcome")
		if err != nil {
			h.logger.Error("achievement evaluation", "member_id", memberID, "error", err)
			return
		}
		for _, u := range unlocked {
			h.hub.Broadcast(websocket.AchievementEvent(memberID, u.Achievement.Code, u.Achievement.Name))
		}
	}()
}

// evaluationTarget picks whose achievements the outcome can affect: the
// transaction's member when money moved, otherwise whoever did the work.
func evaluationTarget(outcome *ledger.Outcome) int64 {
	if outcome.Transaction != nil {
		return outcome.Transaction.MemberID
	}
	if outcome.Log.CompletedBy != nil {
		return *outcome.Log.CompletedBy
	}
	return 0
}

type notesRequest struct {
	Notes   string `json:"notes"`
	Version int64  `json:"version"`
}

// UpdateNotes edits the free-text notes on a log, version-guarded like any
// other log write.
func (h *OutcomeHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	log, err := h.logs.UpdateNotes(id, req.Notes, req.Version)
	if err != nil {
		writeError(w, h.logger, err, "update notes")
		return
	}
	writeJSON(w, http.StatusOK, log)
}
