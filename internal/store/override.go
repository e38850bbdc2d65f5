package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/model"
)

// OverrideStore persists per-date exceptions to the recurring plan. The
// UNIQUE(chore_id, date) constraint means the last writer for a pair is
// authoritative; there is never more than one row to reconcile.
type OverrideStore struct {
	db *sql.DB
}

func NewOverrideStore(db *sql.DB) *OverrideStore {
	return &OverrideStore{db: db}
}

const overrideCols = `id, chore_id, date, type, assigned_to, value, created_by, created_at`

func scanOverride(scanner interface{ Scan(...any) error }) (*model.ScheduleOverride, error) {
	var o model.ScheduleOverride
	var assignedTo sql.NullInt64
	var value sql.NullString

	err := scanner.Scan(&o.ID, &o.ChoreID, &o.Date, &o.Type, &assignedTo, &value, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		o.AssignedTo = &assignedTo.Int64
	}
	if value.Valid {
		d, err := parseAmount(value.String)
		if err != nil {
			return nil, err
		}
		o.Value = &d
	}
	return &o, nil
}

func (s *OverrideStore) choreExists(q interface {
	QueryRow(string, ...any) *sql.Row
}, choreID int64) error {
	var one int
	err := q.QueryRow(`SELECT 1 FROM chore_definitions WHERE id = ?`, choreID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("chore %d: %w", choreID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check chore: %w", err)
	}
	return nil
}

// UpsertAdd places (or replaces) an Add override for the pair. An optional
// assignee or value override rides along.
func (s *OverrideStore) UpsertAdd(choreID int64, date string, createdBy int64, assignedTo *int64, value *decimal.Decimal) (*model.ScheduleOverride, error) {
	return s.upsert(choreID, date, model.OverrideAdd, createdBy, assignedTo, value)
}

func (s *OverrideStore) upsert(choreID int64, date string, typ model.OverrideType, createdBy int64, assignedTo *int64, value *decimal.Decimal) (*model.ScheduleOverride, error) {
	if err := s.choreExists(s.db, choreID); err != nil {
		return nil, err
	}

	var val sql.NullString
	if value != nil {
		val = sql.NullString{String: value.String(), Valid: true}
	}

	err := withRetry(func() error {
		_, err := s.db.Exec(
			`INSERT INTO schedule_overrides (chore_id, date, type, assigned_to, value, created_by)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(chore_id, date) DO UPDATE SET
				type = excluded.type, assigned_to = excluded.assigned_to,
				value = excluded.value, created_by = excluded.created_by,
				created_at = datetime('now')`,
			choreID, date, typ, nullInt(assignedTo), val, createdBy,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}
	return s.getByPair(choreID, date)
}

// UpsertRemove removes the chore from the date. If the existing override
// for the pair is an Add or Move, the row is deleted outright so no
// residue is left; removing a recurring slot writes a Remove row.
func (s *OverrideStore) UpsertRemove(choreID int64, date string, createdBy int64) error {
	if err := s.choreExists(s.db, choreID); err != nil {
		return err
	}

	return withRetry(func() error {
		existing, err := s.getByPair(choreID, date)
		if err != nil {
			return err
		}
		if existing != nil && existing.Type != model.OverrideRemove {
			_, err := s.db.Exec(`DELETE FROM schedule_overrides WHERE id = ?`, existing.ID)
			if err != nil {
				return fmt.Errorf("delete add override: %w", err)
			}
			return nil
		}

		_, err = s.db.Exec(
			`INSERT INTO schedule_overrides (chore_id, date, type, created_by)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(chore_id, date) DO UPDATE SET
				type = excluded.type, assigned_to = NULL, value = NULL,
				created_by = excluded.created_by, created_at = datetime('now')`,
			choreID, date, model.OverrideRemove, createdBy,
		)
		if err != nil {
			return fmt.Errorf("upsert remove override: %w", err)
		}
		return nil
	})
}

// Move rehomes a chore from one date to another: a Remove on the source and
// a Move marker on the target, both inside one transaction so a crash can
// never lose the chore for both dates.
func (s *OverrideStore) Move(choreID int64, fromDate, toDate string, createdBy int64) error {
	if fromDate == toDate {
		return invalidf("move target date equals source date")
	}

	return withRetry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		if err := s.choreExists(tx, choreID); err != nil {
			return err
		}

		// Source side: an Add/Move marker for the source date is deleted,
		// a recurring slot gets a Remove row.
		var existingID int64
		var existingType model.OverrideType
		err = tx.QueryRow(
			`SELECT id, type FROM schedule_overrides WHERE chore_id = ? AND date = ?`,
			choreID, fromDate,
		).Scan(&existingID, &existingType)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(
				`INSERT INTO schedule_overrides (chore_id, date, type, created_by) VALUES (?, ?, ?, ?)`,
				choreID, fromDate, model.OverrideRemove, createdBy,
			); err != nil {
				return fmt.Errorf("insert remove override: %w", err)
			}
		case err != nil:
			return fmt.Errorf("get source override: %w", err)
		case existingType != model.OverrideRemove:
			if _, err := tx.Exec(`DELETE FROM schedule_overrides WHERE id = ?`, existingID); err != nil {
				return fmt.Errorf("delete source override: %w", err)
			}
		}

		if _, err := tx.Exec(
			`INSERT INTO schedule_overrides (chore_id, date, type, created_by)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(chore_id, date) DO UPDATE SET
				type = excluded.type, created_by = excluded.created_by,
				created_at = datetime('now')`,
			choreID, toDate, model.OverrideMove, createdBy,
		); err != nil {
			return fmt.Errorf("upsert move override: %w", err)
		}

		return tx.Commit()
	})
}

func (s *OverrideStore) getByPair(choreID int64, date string) (*model.ScheduleOverride, error) {
	row := s.db.QueryRow(
		`SELECT `+overrideCols+` FROM schedule_overrides WHERE chore_id = ? AND date = ?`,
		choreID, date,
	)
	o, err := scanOverride(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}
	return o, nil
}

// GetByPair returns the override for (chore, date), or nil.
func (s *OverrideStore) GetByPair(choreID int64, date string) (*model.ScheduleOverride, error) {
	return s.getByPair(choreID, date)
}

// ListForDate returns every override targeting a single date. The resolver
// calls this uncached; overrides mutate too often to be worth caching.
func (s *OverrideStore) ListForDate(date string) ([]model.ScheduleOverride, error) {
	return s.listWhere(`date = ?`, date)
}

// ListForRange returns overrides with start <= date <= end.
func (s *OverrideStore) ListForRange(start, end string) ([]model.ScheduleOverride, error) {
	return s.listWhere(`date >= ? AND date <= ?`, start, end)
}

func (s *OverrideStore) listWhere(where string, args ...any) ([]model.ScheduleOverride, error) {
	rows, err := s.db.Query(
		`SELECT `+overrideCols+` FROM schedule_overrides WHERE `+where+` ORDER BY date ASC, chore_id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var overrides []model.ScheduleOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides = append(overrides, *o)
	}
	return overrides, rows.Err()
}

func (s *OverrideStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM schedule_overrides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("override %d: %w", id, ErrNotFound)
	}
	return nil
}
