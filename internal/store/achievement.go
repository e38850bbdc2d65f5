package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wrenhall/chorebank/internal/model"
)

type AchievementStore struct {
	db *sql.DB
}

func NewAchievementStore(db *sql.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

const achievementCols = `id, code, name, description, icon, condition_type,
	params, bonus_type, bonus_params, is_active, created_at`

func scanAchievement(scanner interface{ Scan(...any) error }) (*model.Achievement, error) {
	var a model.Achievement
	var params string
	var bonusType, bonusParams sql.NullString
	var isActive int

	err := scanner.Scan(
		&a.ID, &a.Code, &a.Name, &a.Description, &a.Icon, &a.ConditionType,
		&params, &bonusType, &bonusParams, &isActive, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Params = []byte(params)
	if bonusType.Valid {
		bt := model.BonusType(bonusType.String)
		a.BonusType = &bt
	}
	if bonusParams.Valid {
		a.BonusParams = []byte(bonusParams.String)
	}
	a.IsActive = isActive != 0
	return &a, nil
}

func (s *AchievementStore) ListActive() ([]model.Achievement, error) {
	rows, err := s.db.Query(`SELECT ` + achievementCols + ` FROM achievements WHERE is_active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []model.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

func (s *AchievementStore) GetByCode(code string) (*model.Achievement, error) {
	row := s.db.QueryRow(`SELECT `+achievementCols+` FROM achievements WHERE code = ?`, code)
	a, err := scanAchievement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get achievement: %w", err)
	}
	return a, nil
}

// UpsertProgress writes the current/target pair for (member, achievement).
// One row per pair, always.
func (s *AchievementStore) UpsertProgress(memberID, achievementID, current, target int64) error {
	_, err := s.db.Exec(
		`INSERT INTO achievement_progress (member_id, achievement_id, current, target)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(member_id, achievement_id) DO UPDATE SET
			current = excluded.current, target = excluded.target,
			updated_at = datetime('now')`,
		memberID, achievementID, current, target,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *AchievementStore) ListProgress(memberID int64) ([]model.AchievementProgress, error) {
	rows, err := s.db.Query(
		`SELECT id, member_id, achievement_id, current, target, updated_at
		 FROM achievement_progress WHERE member_id = ? ORDER BY achievement_id ASC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var progress []model.AchievementProgress
	for rows.Next() {
		var p model.AchievementProgress
		if err := rows.Scan(&p.ID, &p.MemberID, &p.AchievementID, &p.Current, &p.Target, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

// MarkEarned records the badge for the member. Returns false when the
// member already holds it; the UNIQUE(member_id, achievement_id)
// constraint is the guard.
func (s *AchievementStore) MarkEarned(memberID, achievementID int64) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO member_achievements (member_id, achievement_id) VALUES (?, ?)`,
		memberID, achievementID,
	)
	if err != nil {
		return false, fmt.Errorf("mark earned: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AchievementStore) HasEarned(memberID, achievementID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM member_achievements WHERE member_id = ? AND achievement_id = ?`,
		memberID, achievementID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check earned: %w", err)
	}
	return true, nil
}

func (s *AchievementStore) ListEarned(memberID int64) ([]model.MemberAchievement, error) {
	rows, err := s.db.Query(
		`SELECT id, member_id, achievement_id, earned_at
		 FROM member_achievements WHERE member_id = ? ORDER BY earned_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list earned: %w", err)
	}
	defer rows.Close()

	var earned []model.MemberAchievement
	for rows.Next() {
		var e model.MemberAchievement
		if err := rows.Scan(&e.ID, &e.MemberID, &e.AchievementID, &e.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan earned: %w", err)
		}
		earned = append(earned, e)
	}
	return earned, rows.Err()
}

func (s *AchievementStore) GrantBonus(b *model.MemberAchievementBonus) (*model.MemberAchievementBonus, error) {
	var expiresAt sql.NullTime
	if b.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *b.ExpiresAt, Valid: true}
	}
	var remaining sql.NullInt64
	if b.RemainingUses != nil {
		remaining = sql.NullInt64{Int64: int64(*b.RemainingUses), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO member_achievement_bonuses
			(member_id, achievement_id, bonus_type, multiplier, remaining_uses, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.MemberID, b.AchievementID, b.BonusType, b.Multiplier.String(), remaining, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("grant bonus: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getBonus(id)
}

func (s *AchievementStore) getBonus(id int64) (*model.MemberAchievementBonus, error) {
	row := s.db.QueryRow(
		`SELECT id, member_id, achievement_id, bonus_type, multiplier, remaining_uses, expires_at, created_at
		 FROM member_achievement_bonuses WHERE id = ?`, id)
	b, err := scanBonus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bonus: %w", err)
	}
	return b, nil
}

func scanBonus(scanner interface{ Scan(...any) error }) (*model.MemberAchievementBonus, error) {
	var b model.MemberAchievementBonus
	var multiplier string
	var remaining sql.NullInt64
	var expiresAt sql.NullTime

	err := scanner.Scan(&b.ID, &b.MemberID, &b.AchievementID, &b.BonusType, &multiplier, &remaining, &expiresAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	if b.Multiplier, err = parseAmount(multiplier); err != nil {
		return nil, err
	}
	if remaining.Valid {
		r := int(remaining.Int64)
		b.RemainingUses = &r
	}
	if expiresAt.Valid {
		b.ExpiresAt = &expiresAt.Time
	}
	return &b, nil
}

// ListActiveBonuses returns the member's unexpired, unexhausted grants as
// of now.
func (s *AchievementStore) ListActiveBonuses(memberID int64, now time.Time) ([]model.MemberAchievementBonus, error) {
	rows, err := s.db.Query(
		`SELECT id, member_id, achievement_id, bonus_type, multiplier, remaining_uses, expires_at, created_at
		 FROM member_achievement_bonuses
		 WHERE member_id = ?
		   AND (expires_at IS NULL OR expires_at > ?)
		   AND (remaining_uses IS NULL OR remaining_uses > 0)
		 ORDER BY created_at DESC`,
		memberID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list bonuses: %w", err)
	}
	defer rows.Close()

	var bonuses []model.MemberAchievementBonus
	for rows.Next() {
		b, err := scanBonus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bonus: %w", err)
		}
		bonuses = append(bonuses, *b)
	}
	return bonuses, rows.Err()
}

// ConsumeBonusUse decrements a capped grant. No-op for uncapped grants.
func (s *AchievementStore) ConsumeBonusUse(bonusID int64) error {
	_, err := s.db.Exec(
		`UPDATE member_achievement_bonuses
		 SET remaining_uses = remaining_uses - 1
		 WHERE id = ? AND remaining_uses IS NOT NULL AND remaining_uses > 0`,
		bonusID,
	)
	if err != nil {
		return fmt.Errorf("consume bonus use: %w", err)
	}
	return nil
}
