package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a child's named balance bucket.
type Account struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionType string

const (
	TxnChoreEarning   TransactionType = "chore_earning"
	TxnChoreDeduction TransactionType = "chore_deduction"
	TxnBonus          TransactionType = "bonus"
	TxnPenalty        TransactionType = "penalty"
	TxnAdjustment     TransactionType = "adjustment"
	TxnPayout         TransactionType = "payout"
	TxnTransfer       TransactionType = "transfer"
)

// Transaction is an immutable financial event. Amounts are never changed
// after creation; corrections are new offsetting transactions. Metadata
// updates go through the version-guarded path.
type Transaction struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"account_id"`
	ChoreLogID      *int64          `json:"chore_log_id"`
	MemberID        int64           `json:"member_id"`
	TransferGroupID *string         `json:"transfer_group_id"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	Description     string          `json:"description"`
	TransactionDate string          `json:"transaction_date"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
}
