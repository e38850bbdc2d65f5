// Package ledger turns chore outcomes into signed transactions. A status
// transition produces zero or one financial event; manual entries and
// transfers come in through their own paths.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
)

// BonusSource exposes the achievement grants that modify earnings: active
// multipliers scale an earning, a forgiveness token eats a penalty.
// Satisfied by *store.AchievementStore.
type BonusSource interface {
	ListActiveBonuses(memberID int64, now time.Time) ([]model.MemberAchievementBonus, error)
	ConsumeBonusUse(bonusID int64) error
}

type Engine struct {
	chores  *store.ChoreStore
	logs    *store.ChoreLogStore
	ledger  *store.LedgerStore
	bonuses BonusSource
	clk     clock.Clock
	logger  *slog.Logger
}

func NewEngine(chores *store.ChoreStore, logs *store.ChoreLogStore, ledger *store.LedgerStore, bonuses BonusSource, clk clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{chores: chores, logs: logs, ledger: ledger, bonuses: bonuses, clk: clk, logger: logger}
}

// Outcome is the result of recording a status transition: the updated log
// and the transaction it produced, if any.
type Outcome struct {
	Log         *model.ChoreLog    `json:"log"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// Pending can move to any first outcome; completed waits for approval;
// a help request resolves to completed or missed once a guardian responds.
// Approved, missed and skipped are terminal for the date.
var transitions = map[model.LogStatus][]model.LogStatus{
	model.StatusPending:   {model.StatusCompleted, model.StatusMissed, model.StatusSkipped, model.StatusHelp},
	model.StatusCompleted: {model.StatusApproved},
	model.StatusHelp:      {model.StatusCompleted, model.StatusMissed},
}

func canTransition(from, to model.LogStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RecordOutcome drives the state machine for one log. The caller supplies
// the version it read; a concurrent writer makes this fail with
// ErrConflict and nothing is written. Entering approved with a positive
// earn value creates exactly one earning; entering missed with a positive
// penalty creates one deduction — both guarded by the existing-link check.
func (e *Engine) RecordOutcome(logID int64, newStatus model.LogStatus, actorID int64, expectedVersion int64, note string) (*Outcome, error) {
	log, err := e.logs.GetByID(logID)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("chore log %d: %w", logID, store.ErrNotFound)
	}

	chore, err := e.chores.GetByID(log.ChoreID)
	if err != nil {
		return nil, err
	}
	if chore == nil {
		return nil, fmt.Errorf("chore %d: %w", log.ChoreID, store.ErrNotFound)
	}

	if !canTransition(log.Status, newStatus) {
		return nil, &store.ValidationError{
			Msg: fmt.Sprintf("cannot move chore log from %s to %s", log.Status, newStatus),
		}
	}

	now := e.clk.Now()
	target := newStatus

	switch newStatus {
	case model.StatusCompleted:
		log.CompletedBy = &actorID
		log.CompletedAt = &now
		if chore.AutoApprove {
			target = model.StatusApproved
			log.ApprovedBy = &actorID
			log.ApprovedAt = &now
		}
	case model.StatusApproved:
		log.ApprovedBy = &actorID
		log.ApprovedAt = &now
	case model.StatusHelp:
		log.HelpNote = note
	case model.StatusMissed, model.StatusSkipped:
		if note != "" {
			log.Notes = note
		}
	}
	log.Status = target

	updated, err := e.logs.UpdateStatus(log, expectedVersion)
	if err != nil {
		return nil, err
	}

	txn, err := e.settleLog(updated, chore, actorID)
	if err != nil {
		// The status change stuck; surface the ledger failure on its own.
		return nil, fmt.Errorf("settle chore log %d: %w", updated.ID, err)
	}

	return &Outcome{Log: updated, Transaction: txn}, nil
}

// settleLog creates the financial consequence of a terminal status, if
// the log doesn't already have one.
func (e *Engine) settleLog(log *model.ChoreLog, chore *model.ChoreDefinition, actorID int64) (*model.Transaction, error) {
	switch log.Status {
	case model.StatusApproved:
		if !chore.EarnValue.IsPositive() {
			return nil, nil
		}
	case model.StatusMissed:
		if !chore.PenaltyValue.IsPositive() {
			return nil, nil
		}
	default:
		return nil, nil
	}

	existing, err := e.ledger.GetChoreTransaction(log.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Already settled — a repeat approval must not pay twice.
		return existing, nil
	}

	memberID := creditedMember(log, chore, actorID)
	account, err := e.ledger.EnsureAccount(memberID)
	if err != nil {
		return nil, err
	}

	logRef := log.ID
	txn := &model.Transaction{
		AccountID:       account.ID,
		ChoreLogID:      &logRef,
		MemberID:        memberID,
		TransactionDate: log.Date,
	}

	if log.Status == model.StatusApproved {
		txn.Type = model.TxnChoreEarning
		txn.Amount = e.applyEarningBonus(memberID, chore.EarnValue)
		txn.Description = fmt.Sprintf("Earned: %s", chore.Name)
	} else {
		if e.forgivePenalty(memberID) {
			e.logger.Info("penalty forgiven by achievement bonus",
				"member_id", memberID, "chore_id", chore.ID, "date", log.Date)
			return nil, nil
		}
		txn.Type = model.TxnChoreDeduction
		txn.Amount = chore.PenaltyValue.Neg()
		txn.Description = fmt.Sprintf("Missed: %s", chore.Name)
	}

	return e.ledger.CreateTransaction(txn)
}

// creditedMember decides whose account the money lands in: whoever did
// the chore, else the assignee, else the acting user.
func creditedMember(log *model.ChoreLog, chore *model.ChoreDefinition, actorID int64) int64 {
	if log.CompletedBy != nil {
		return *log.CompletedBy
	}
	if chore.AssignedTo != nil {
		return *chore.AssignedTo
	}
	return actorID
}

// applyEarningBonus scales an earning by the best active multiplier grant.
func (e *Engine) applyEarningBonus(memberID int64, base decimal.Decimal) decimal.Decimal {
	if e.bonuses == nil {
		return base
	}
	grants, err := e.bonuses.ListActiveBonuses(memberID, e.clk.Now())
	if err != nil {
		e.logger.Warn("list achievement bonuses", "member_id", memberID, "error", err)
		return base
	}

	best := decimal.NewFromInt(1)
	for _, g := range grants {
		if g.BonusType == model.BonusEarningMultiplier && g.Multiplier.GreaterThan(best) {
			best = g.Multiplier
		}
	}
	return base.Mul(best).Round(2)
}

// forgivePenalty consumes one forgiveness token if the member holds one.
func (e *Engine) forgivePenalty(memberID int64) bool {
	if e.bonuses == nil {
		return false
	}
	grants, err := e.bonuses.ListActiveBonuses(memberID, e.clk.Now())
	if err != nil {
		e.logger.Warn("list achievement bonuses", "member_id", memberID, "error", err)
		return false
	}
	for _, g := range grants {
		if g.BonusType != model.BonusPenaltyForgive {
			continue
		}
		if err := e.bonuses.ConsumeBonusUse(g.ID); err != nil {
			e.logger.Warn("consume forgiveness token", "bonus_id", g.ID, "error", err)
			return false
		}
		return true
	}
	return false
}

// CreateManual records a hand-entered transaction. The caller passes a
// positive magnitude; the sign comes from the type: bonuses credit,
// penalties and payouts debit, adjustments keep the sign they were given.
func (e *Engine) CreateManual(accountID int64, amount decimal.Decimal, typ model.TransactionType, description string, actorID int64) (*model.Transaction, error) {
	account, err := e.ledger.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, store.ErrNotFound)
	}

	if amount.IsZero() {
		return nil, &store.ValidationError{Msg: "amount must not be zero"}
	}

	signed := amount
	switch typ {
	case model.TxnBonus:
		if amount.IsNegative() {
			return nil, &store.ValidationError{Msg: "bonus amount must be positive"}
		}
	case model.TxnPenalty, model.TxnPayout:
		if amount.IsNegative() {
			return nil, &store.ValidationError{Msg: "amount must be a positive magnitude"}
		}
		signed = amount.Neg()
	case model.TxnAdjustment:
		// Signed as given.
	default:
		return nil, &store.ValidationError{
			Msg: fmt.Sprintf("type %q is not a manual transaction type", typ),
		}
	}

	return e.ledger.CreateTransaction(&model.Transaction{
		AccountID:       account.ID,
		MemberID:        account.MemberID,
		Amount:          signed,
		Type:            typ,
		Description:     description,
		TransactionDate: e.clk.Today(),
	})
}

// Transfer moves money between two accounts: paired debit and credit legs
// sharing one group id, written atomically.
func (e *Engine) Transfer(fromAccountID, toAccountID int64, amount decimal.Decimal, description string) ([]model.Transaction, error) {
	from, err := e.ledger.GetAccount(fromAccountID)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("account %d: %w", fromAccountID, store.ErrNotFound)
	}
	to, err := e.ledger.GetAccount(toAccountID)
	if err != nil {
		return nil, err
	}
	if to == nil {
		return nil, fmt.Errorf("account %d: %w", toAccountID, store.ErrNotFound)
	}

	groupID, err := e.ledger.Transfer(from, to, amount, description, e.clk.Today())
	if err != nil {
		return nil, err
	}
	return e.ledger.ListByTransferGroup(groupID)
}
