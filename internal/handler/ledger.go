package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/ledger"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
	"github.com/wrenhall/chorebank/internal/websocket"
)

type LedgerHandler struct {
	ledger *store.LedgerStore
	engine *ledger.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewLedgerHandler(ls *store.LedgerStore, engine *ledger.Engine, hub *websocket.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ls, engine: engine, hub: hub, logger: logger}
}

type accountRequest struct {
	MemberID int64  `json:"member_id"`
	Name     string `json:"name"`
}

func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}

	account, err := h.ledger.CreateAccount(req.MemberID, req.Name)
	if err != nil {
		writeError(w, h.logger, err, "create account")
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	accounts, err := h.ledger.ListAccountsByMember(memberID)
	if err != nil {
		writeError(w, h.logger, err, "list accounts")
		return
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Balance sums an account's transactions.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	balance, err := h.ledger.Balance(id)
	if err != nil {
		writeError(w, h.logger, err, "compute balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance})
}

func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	txns, err := h.ledger.ListByAccount(id)
	if err != nil {
		writeError(w, h.logger, err, "list transactions")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

type manualRequest struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	ActorID     int64           `json:"actor_id"`
}

// CreateManual records a bonus, penalty, payout, or adjustment. The amount
// is a magnitude; the type fixes the sign.
func (h *LedgerHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	txn, err := h.engine.CreateManual(req.AccountID, req.Amount, model.TransactionType(req.Type), req.Description, req.ActorID)
	if err != nil {
		writeError(w, h.logger, err, "create transaction")
		return
	}

	h.hub.Broadcast(websocket.LedgerEvent(txn.ID, string(txn.Type), txn.MemberID))
	writeJSON(w, http.StatusCreated, txn)
}

type transferRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// Transfer moves money between accounts as a paired debit and credit
// sharing a transfer group.
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	legs, err := h.engine.Transfer(req.FromAccountID, req.ToAccountID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.logger, err, "transfer")
		return
	}

	for _, leg := range legs {
		h.hub.Broadcast(websocket.LedgerEvent(leg.ID, string(leg.Type), leg.MemberID))
	}
	writeJSON(w, http.StatusCreated, legs)
}

type descriptionRequest struct {
	Description string `json:"description"`
	Version     int64  `json:"version"`
}

// UpdateDescription edits a transaction's memo, version-guarded.
func (h *LedgerHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req descriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	txn, err := h.ledger.UpdateDescription(id, req.Description, req.Version)
	if err != nil {
		writeError(w, h.logger, err, "update transaction")
		return
	}
	writeJSON(w, http.StatusOK, txn)
}
