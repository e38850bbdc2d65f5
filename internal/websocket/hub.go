// Package websocket pushes household events to connected clients so every
// device sees an approval, payout, or unlocked achievement without polling.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is a real-time notification broadcast to all clients.
type Event struct {
	Type    string         `json:"type"`
	ID      int64          `json:"id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ChoreOutcomeEvent announces a chore log status change.
func ChoreOutcomeEvent(logID int64, status string, memberID *int64) Event {
	p := map[string]any{"status": status}
	if memberID != nil {
		p["member_id"] = *memberID
	}
	return Event{Type: "chore_outcome", ID: logID, Payload: p}
}

// LedgerEvent announces a new transaction.
func LedgerEvent(txnID int64, txnType string, memberID int64) Event {
	return Event{Type: "ledger_entry", ID: txnID, Payload: map[string]any{
		"transaction_type": txnType,
		"member_id":        memberID,
	}}
}

// AchievementEvent announces a newly earned achievement.
func AchievementEvent(memberID int64, code, name string) Event {
	return Event{Type: "achievement_unlocked", ID: memberID, Payload: map[string]any{
		"code": code,
		"name": name,
	}}
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients. A client whose buffer
// is full misses the event rather than blocking the sender.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
