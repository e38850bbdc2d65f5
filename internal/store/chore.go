package store

import (
	"database/sql"
	"fmt"

	"github.com/wrenhall/chorebank/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, name, icon, description, assigned_to, earn_value, penalty_value,
	schedule_type, active_days, weekly_target_count, start_date, end_date,
	auto_approve, is_active, sort_order, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.ChoreDefinition, error) {
	var c model.ChoreDefinition
	var assignedTo sql.NullInt64
	var earn, penalty string
	var startDate, endDate sql.NullString
	var autoApprove, isActive int

	err := scanner.Scan(
		&c.ID, &c.Name, &c.Icon, &c.Description, &assignedTo, &earn, &penalty,
		&c.ScheduleType, &c.ActiveDays, &c.WeeklyTargetCount, &startDate, &endDate,
		&autoApprove, &isActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	if startDate.Valid {
		c.StartDate = &startDate.String
	}
	if endDate.Valid {
		c.EndDate = &endDate.String
	}
	if c.EarnValue, err = parseAmount(earn); err != nil {
		return nil, err
	}
	if c.PenaltyValue, err = parseAmount(penalty); err != nil {
		return nil, err
	}
	c.AutoApprove = autoApprove != 0
	c.IsActive = isActive != 0
	return &c, nil
}

func validateChore(c *model.ChoreDefinition) error {
	if c.Name == "" {
		return invalidf("chore name is required")
	}
	if c.EarnValue.IsNegative() {
		return invalidf("earn value must not be negative")
	}
	if c.PenaltyValue.IsNegative() {
		return invalidf("penalty value must not be negative")
	}
	switch c.ScheduleType {
	case model.ScheduleSpecificDays, model.ScheduleWeeklyFrequency:
	default:
		return invalidf("unknown schedule type %q", c.ScheduleType)
	}
	if c.ScheduleType == model.ScheduleWeeklyFrequency && c.WeeklyTargetCount < 1 {
		return invalidf("weekly-frequency chore needs a target count of at least 1")
	}
	return nil
}

func (s *ChoreStore) Create(c *model.ChoreDefinition) (*model.ChoreDefinition, error) {
	if err := validateChore(c); err != nil {
		return nil, err
	}

	// Specific-days chores never consult the weekly target.
	target := c.WeeklyTargetCount
	if c.ScheduleType == model.ScheduleSpecificDays {
		target = 0
	}

	result, err := s.db.Exec(
		`INSERT INTO chore_definitions
			(name, icon, description, assigned_to, earn_value, penalty_value,
			 schedule_type, active_days, weekly_target_count, start_date, end_date,
			 auto_approve, is_active, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Icon, c.Description, nullInt(c.AssignedTo),
		c.EarnValue.String(), c.PenaltyValue.String(),
		c.ScheduleType, c.ActiveDays, target, nullStr(c.StartDate), nullStr(c.EndDate),
		boolInt(c.AutoApprove), boolInt(c.IsActive), c.SortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.ChoreDefinition, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chore_definitions WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) List() ([]model.ChoreDefinition, error) {
	return s.list(`SELECT ` + choreCols + ` FROM chore_definitions ORDER BY sort_order ASC, name ASC`)
}

// ListActive returns active definitions only, in resolver order.
func (s *ChoreStore) ListActive() ([]model.ChoreDefinition, error) {
	return s.list(`SELECT ` + choreCols + ` FROM chore_definitions WHERE is_active = 1 ORDER BY sort_order ASC, name ASC`)
}

func (s *ChoreStore) list(query string, args ...any) ([]model.ChoreDefinition, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.ChoreDefinition
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(c *model.ChoreDefinition) (*model.ChoreDefinition, error) {
	if err := validateChore(c); err != nil {
		return nil, err
	}

	target := c.WeeklyTargetCount
	if c.ScheduleType == model.ScheduleSpecificDays {
		target = 0
	}

	result, err := s.db.Exec(
		`UPDATE chore_definitions SET
			name = ?, icon = ?, description = ?, assigned_to = ?,
			earn_value = ?, penalty_value = ?, schedule_type = ?, active_days = ?,
			weekly_target_count = ?, start_date = ?, end_date = ?,
			auto_approve = ?, is_active = ?, sort_order = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		c.Name, c.Icon, c.Description, nullInt(c.AssignedTo),
		c.EarnValue.String(), c.PenaltyValue.String(), c.ScheduleType, c.ActiveDays,
		target, nullStr(c.StartDate), nullStr(c.EndDate),
		boolInt(c.AutoApprove), boolInt(c.IsActive), c.SortOrder, c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update chore %d: %w", c.ID, ErrNotFound)
	}
	return s.GetByID(c.ID)
}

// Deactivate soft-retires a definition. Logs keep referencing it; it simply
// stops resolving.
func (s *ChoreStore) Deactivate(id int64) error {
	result, err := s.db.Exec(
		`UPDATE chore_definitions SET is_active = 0, updated_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate chore: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("deactivate chore %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete hard-deletes a definition and cascades its logs and overrides.
// Management surfaces prefer Deactivate.
func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chore_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
