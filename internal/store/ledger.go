package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/model"
)

// LedgerStore persists accounts and their transactions. Transaction
// amounts are immutable after insert; metadata corrections go through the
// version-guarded path, monetary corrections are new offsetting rows.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// --- Account methods ---

const accountCols = `id, member_id, name, created_at`

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	err := scanner.Scan(&a.ID, &a.MemberID, &a.Name, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *LedgerStore) CreateAccount(memberID int64, name string) (*model.Account, error) {
	result, err := s.db.Exec(
		`INSERT INTO accounts (member_id, name) VALUES (?, ?)`,
		memberID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAccount(id)
}

func (s *LedgerStore) GetAccount(id int64) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// EnsureAccount returns the member's oldest account, creating a default
// one on first use.
func (s *LedgerStore) EnsureAccount(memberID int64) (*model.Account, error) {
	row := s.db.QueryRow(
		`SELECT `+accountCols+` FROM accounts WHERE member_id = ? ORDER BY id ASC LIMIT 1`,
		memberID,
	)
	a, err := scanAccount(row)
	if err == nil {
		return a, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get member account: %w", err)
	}
	return s.CreateAccount(memberID, "Allowance")
}

func (s *LedgerStore) ListAccountsByMember(memberID int64) ([]model.Account, error) {
	rows, err := s.db.Query(
		`SELECT `+accountCols+` FROM accounts WHERE member_id = ? ORDER BY id ASC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// --- Transaction methods ---

const txnCols = `id, account_id, chore_log_id, member_id, transfer_group_id,
	amount, type, description, transaction_date, version, created_at`

func scanTxn(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var choreLogID sql.NullInt64
	var transferGroup sql.NullString
	var amount string

	err := scanner.Scan(
		&t.ID, &t.AccountID, &choreLogID, &t.MemberID, &transferGroup,
		&amount, &t.Type, &t.Description, &t.TransactionDate, &t.Version, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if choreLogID.Valid {
		t.ChoreLogID = &choreLogID.Int64
	}
	if transferGroup.Valid {
		t.TransferGroupID = &transferGroup.String
	}
	if t.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *LedgerStore) CreateTransaction(t *model.Transaction) (*model.Transaction, error) {
	var id int64
	err := withRetry(func() error {
		result, err := s.db.Exec(
			`INSERT INTO transactions
				(account_id, chore_log_id, member_id, transfer_group_id, amount, type, description, transaction_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.AccountID, nullInt(t.ChoreLogID), t.MemberID, nullStr(t.TransferGroupID),
			t.Amount.String(), t.Type, t.Description, t.TransactionDate,
		)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return s.GetTransaction(id)
}

func (s *LedgerStore) GetTransaction(id int64) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+txnCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTxn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// GetChoreTransaction returns the earning or deduction already linked to a
// chore log, or nil. The ledger engine checks this before inserting; the
// one-to-one link is the idempotency guard, not a unique index.
func (s *LedgerStore) GetChoreTransaction(choreLogID int64) (*model.Transaction, error) {
	row := s.db.QueryRow(
		`SELECT `+txnCols+` FROM transactions
		 WHERE chore_log_id = ? AND type IN ('chore_earning', 'chore_deduction')
		 LIMIT 1`,
		choreLogID,
	)
	t, err := scanTxn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore transaction: %w", err)
	}
	return t, nil
}

// Transfer writes both legs of an account-to-account transfer in a single
// database transaction: a debit on from, a credit on to, one shared group
// id. Either both rows land or neither does.
func (s *LedgerStore) Transfer(from, to *model.Account, amount decimal.Decimal, description, date string) (string, error) {
	if !amount.IsPositive() {
		return "", invalidf("transfer amount must be positive")
	}
	if from.ID == to.ID {
		return "", invalidf("transfer source and destination are the same account")
	}

	groupID := uuid.NewString()

	err := withRetry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		insert := `INSERT INTO transactions
			(account_id, member_id, transfer_group_id, amount, type, description, transaction_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)`

		if _, err := tx.Exec(insert,
			from.ID, from.MemberID, groupID, amount.Neg().String(),
			model.TxnTransfer, description, date,
		); err != nil {
			return fmt.Errorf("insert debit leg: %w", err)
		}

		if _, err := tx.Exec(insert,
			to.ID, to.MemberID, groupID, amount.String(),
			model.TxnTransfer, description, date,
		); err != nil {
			return fmt.Errorf("insert credit leg: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return groupID, nil
}

// ListByTransferGroup returns both legs of a transfer.
func (s *LedgerStore) ListByTransferGroup(groupID string) ([]model.Transaction, error) {
	return s.listTxns(`SELECT `+txnCols+` FROM transactions WHERE transfer_group_id = ? ORDER BY id ASC`, groupID)
}

func (s *LedgerStore) ListByAccount(accountID int64) ([]model.Transaction, error) {
	return s.listTxns(`SELECT `+txnCols+` FROM transactions WHERE account_id = ? ORDER BY transaction_date DESC, id DESC`, accountID)
}

func (s *LedgerStore) listTxns(query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// Balance sums the account's signed amounts. The sum happens in Go with
// decimals so no precision is lost to SQLite's numeric coercion.
func (s *LedgerStore) Balance(accountID int64) (decimal.Decimal, error) {
	rows, err := s.db.Query(`SELECT amount FROM transactions WHERE account_id = ?`, accountID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum balance: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Decimal{}, fmt.Errorf("scan amount: %w", err)
		}
		d, err := parseAmount(raw)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// TotalEarnedByMember sums positive chore earnings for a member, for the
// achievement evaluator.
func (s *LedgerStore) TotalEarnedByMember(memberID int64) (decimal.Decimal, error) {
	rows, err := s.db.Query(
		`SELECT amount FROM transactions WHERE member_id = ? AND type = 'chore_earning'`,
		memberID,
	)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum earnings: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Decimal{}, fmt.Errorf("scan amount: %w", err)
		}
		d, err := parseAmount(raw)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// UpdateDescription corrects transaction metadata under the version guard.
// Amounts are never touched here.
func (s *LedgerStore) UpdateDescription(id int64, description string, expectedVersion int64) (*model.Transaction, error) {
	var affected int64
	err := withRetry(func() error {
		result, err := s.db.Exec(
			`UPDATE transactions SET description = ?, version = version + 1
			 WHERE id = ? AND version = ?`,
			description, id, expectedVersion,
		)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if affected == 0 {
		current, err := s.GetTransaction(id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("transaction %d version %d: %w", id, expectedVersion, ErrConflict)
	}
	return s.GetTransaction(id)
}
