package store

import (
	"database/sql"
	"fmt"

	"github.com/wrenhall/chorebank/internal/model"
)

type ChoreLogStore struct {
	db *sql.DB
}

func NewChoreLogStore(db *sql.DB) *ChoreLogStore {
	return &ChoreLogStore{db: db}
}

const logCols = `id, chore_id, date, status, completed_by, completed_at,
	approved_by, approved_at, help_note, notes, version, created_at, updated_at`

func scanLog(scanner interface{ Scan(...any) error }) (*model.ChoreLog, error) {
	var l model.ChoreLog
	var completedBy, approvedBy sql.NullInt64
	var completedAt, approvedAt sql.NullTime

	err := scanner.Scan(
		&l.ID, &l.ChoreID, &l.Date, &l.Status, &completedBy, &completedAt,
		&approvedBy, &approvedAt, &l.HelpNote, &l.Notes, &l.Version,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedBy.Valid {
		l.CompletedBy = &completedBy.Int64
	}
	if completedAt.Valid {
		l.CompletedAt = &completedAt.Time
	}
	if approvedBy.Valid {
		l.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		l.ApprovedAt = &approvedAt.Time
	}
	return &l, nil
}

// GetOrCreate returns the log for (chore, date), creating a pending one on
// first interaction. Logs are lazy; a chore with no interaction on a date
// has no row.
func (s *ChoreLogStore) GetOrCreate(choreID int64, date string) (*model.ChoreLog, error) {
	err := withRetry(func() error {
		_, err := s.db.Exec(
			`INSERT INTO chore_logs (chore_id, date) VALUES (?, ?)
			 ON CONFLICT(chore_id, date) DO NOTHING`,
			choreID, date,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure chore log: %w", err)
	}
	return s.GetByPair(choreID, date)
}

func (s *ChoreLogStore) GetByID(id int64) (*model.ChoreLog, error) {
	row := s.db.QueryRow(`SELECT `+logCols+` FROM chore_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore log: %w", err)
	}
	return l, nil
}

func (s *ChoreLogStore) GetByPair(choreID int64, date string) (*model.ChoreLog, error) {
	row := s.db.QueryRow(`SELECT `+logCols+` FROM chore_logs WHERE chore_id = ? AND date = ?`, choreID, date)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore log: %w", err)
	}
	return l, nil
}

// UpdateStatus writes the mutable log fields, guarded by the version the
// caller read. A stale version leaves the row untouched and returns
// ErrConflict.
func (s *ChoreLogStore) UpdateStatus(l *model.ChoreLog, expectedVersion int64) (*model.ChoreLog, error) {
	var completedAt, approvedAt sql.NullTime
	if l.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *l.CompletedAt, Valid: true}
	}
	if l.ApprovedAt != nil {
		approvedAt = sql.NullTime{Time: *l.ApprovedAt, Valid: true}
	}

	var affected int64
	err := withRetry(func() error {
		result, err := s.db.Exec(
			`UPDATE chore_logs SET
				status = ?, completed_by = ?, completed_at = ?,
				approved_by = ?, approved_at = ?, help_note = ?, notes = ?,
				version = version + 1, updated_at = datetime('now')
			 WHERE id = ? AND version = ?`,
			l.Status, nullInt(l.CompletedBy), completedAt,
			nullInt(l.ApprovedBy), approvedAt, l.HelpNote, l.Notes,
			l.ID, expectedVersion,
		)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update chore log: %w", err)
	}

	if affected == 0 {
		current, err := s.GetByID(l.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("chore log %d: %w", l.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("chore log %d version %d: %w", l.ID, expectedVersion, ErrConflict)
	}
	return s.GetByID(l.ID)
}

// ListRange returns all logs with start <= date <= end in one read. Weekly
// progress is computed from this batch, never from per-day queries.
func (s *ChoreLogStore) ListRange(start, end string) ([]model.ChoreLog, error) {
	return s.list(`SELECT `+logCols+` FROM chore_logs WHERE date >= ? AND date <= ? ORDER BY date ASC, chore_id ASC`, start, end)
}

func (s *ChoreLogStore) ListForDate(date string) ([]model.ChoreLog, error) {
	return s.list(`SELECT `+logCols+` FROM chore_logs WHERE date = ? ORDER BY chore_id ASC`, date)
}

func (s *ChoreLogStore) list(query string, args ...any) ([]model.ChoreLog, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chore logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ChoreLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// CountApproved counts approved logs credited to a member.
func (s *ChoreLogStore) CountApproved(memberID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chore_logs WHERE completed_by = ? AND status = 'approved'`,
		memberID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved logs: %w", err)
	}
	return n, nil
}

// ApprovedDatesSince returns the distinct dates with an approved log for
// the member, newest first, bounded below by sinceDate.
func (s *ChoreLogStore) ApprovedDatesSince(memberID int64, sinceDate string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT date FROM chore_logs
		 WHERE completed_by = ? AND status = 'approved' AND date >= ?
		 ORDER BY date DESC`,
		memberID, sinceDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// UpdateNotes edits the free-text notes without moving the status. Still
// version-guarded; notes ride on the same row.
func (s *ChoreLogStore) UpdateNotes(id int64, notes string, expectedVersion int64) (*model.ChoreLog, error) {
	l, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("chore log %d: %w", id, ErrNotFound)
	}
	l.Notes = notes
	return s.UpdateStatus(l, expectedVersion)
}
