package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/wrenhall/chorebank/internal/achievement"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/handler"
	"github.com/wrenhall/chorebank/internal/ledger"
	"github.com/wrenhall/chorebank/internal/middleware"
	"github.com/wrenhall/chorebank/internal/schedule"
	"github.com/wrenhall/chorebank/internal/store"
	ws "github.com/wrenhall/chorebank/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	memberH      *handler.MemberHandler
	choreH       *handler.ChoreHandler
	overrideH    *handler.OverrideHandler
	scheduleH    *handler.ScheduleHandler
	outcomeH     *handler.OutcomeHandler
	ledgerH      *handler.LedgerHandler
	achievementH *handler.AchievementHandler
	settingsH    *handler.SettingsHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

// New wires stores, the schedule resolver, the ledger engine, and the
// achievement evaluator onto one database handle.
func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewFamilyMemberStore(db)
	choreStore := store.NewChoreStore(db)
	overrideStore := store.NewOverrideStore(db)
	logStore := store.NewChoreLogStore(db)
	ledgerStore := store.NewLedgerStore(db)
	achievementStore := store.NewAchievementStore(db)
	settingsStore := store.NewSettingsStore(db)

	clk := clock.NewFamily(settingsStore, logger.With("component", "clock"))

	cache := schedule.NewDefinitionCache(choreStore, schedule.DefaultCacheTTL)
	resolver := schedule.NewResolver(cache, overrideStore, logStore, clk)

	engine := ledger.NewEngine(choreStore, logStore, ledgerStore, achievementStore, clk, logger.With("component", "ledger"))
	evaluator := achievement.NewEvaluator(achievementStore, logStore, ledgerStore, resolver, clk, logger.With("component", "achievement"))

	return &Server{
		db:           db,
		hub:          hub,
		memberH:      handler.NewMemberHandler(memberStore, logger.With("component", "member")),
		choreH:       handler.NewChoreHandler(choreStore, cache, logger.With("component", "chore")),
		overrideH:    handler.NewOverrideHandler(overrideStore, logger.With("component", "override")),
		scheduleH:    handler.NewScheduleHandler(resolver, clk, logger.With("component", "schedule")),
		outcomeH:     handler.NewOutcomeHandler(logStore, engine, evaluator, hub, logger.With("component", "outcome")),
		ledgerH:      handler.NewLedgerHandler(ledgerStore, engine, hub, logger.With("component", "ledger_http")),
		achievementH: handler.NewAchievementHandler(achievementStore, clk, logger.With("component", "achievement_http")),
		settingsH:    handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		rateLimiter:  middleware.NewRateLimiter(120, time.Minute),
		logger:       logger,
	}
}

// RateLimiter exposes the limiter so main can run its cleanup sweep.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub exposes the websocket hub for shutdown accounting.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Family members
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("PUT /api/members/sort", s.memberH.Reorder)

	// Chore definitions
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("POST /api/chores/{id}/deactivate", s.choreH.Deactivate)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Schedule overrides
	mux.HandleFunc("POST /api/overrides/add", s.overrideH.Add)
	mux.HandleFunc("POST /api/overrides/remove", s.overrideH.Remove)
	mux.HandleFunc("POST /api/overrides/move", s.overrideH.Move)
	mux.HandleFunc("GET /api/overrides", s.overrideH.List)
	mux.HandleFunc("DELETE /api/overrides/{id}", s.overrideH.Delete)

	// Resolved schedule
	mux.HandleFunc("GET /api/schedule", s.scheduleH.ForDate)
	mux.HandleFunc("GET /api/schedule/members/{id}", s.scheduleH.ForMember)
	mux.HandleFunc("GET /api/schedule/members/{id}/progress", s.scheduleH.WeeklyProgress)

	// Chore logs and outcomes
	mux.HandleFunc("POST /api/logs", s.outcomeH.GetOrCreate)
	mux.HandleFunc("GET /api/logs", s.outcomeH.ListForDate)
	mux.HandleFunc("GET /api/logs/{id}", s.outcomeH.Get)
	mux.HandleFunc("POST /api/logs/{id}/outcome", s.outcomeH.RecordOutcome)
	mux.HandleFunc("PUT /api/logs/{id}/notes", s.outcomeH.UpdateNotes)

	// Accounts and transactions
	mux.HandleFunc("POST /api/accounts", s.ledgerH.CreateAccount)
	mux.HandleFunc("GET /api/members/{id}/accounts", s.ledgerH.ListAccounts)
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.ledgerH.Balance)
	mux.HandleFunc("GET /api/accounts/{id}/transactions", s.ledgerH.ListTransactions)
	mux.HandleFunc("POST /api/transactions", s.ledgerH.CreateManual)
	mux.HandleFunc("POST /api/transfers", s.ledgerH.Transfer)
	mux.HandleFunc("PUT /api/transactions/{id}/description", s.ledgerH.UpdateDescription)

	// Achievements
	mux.HandleFunc("GET /api/achievements", s.achievementH.List)
	mux.HandleFunc("GET /api/members/{id}/achievements", s.achievementH.Earned)
	mux.HandleFunc("GET /api/members/{id}/achievements/progress", s.achievementH.Progress)
	mux.HandleFunc("GET /api/members/{id}/achievements/bonuses", s.achievementH.Bonuses)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.GetAll)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Set)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return s.rateLimiter.Limit(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}
