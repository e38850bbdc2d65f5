package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ConditionType string

const (
	CondChoresCompleted    ConditionType = "chores_completed"
	CondStreakDays         ConditionType = "streak_days"
	CondTotalEarned        ConditionType = "total_earned"
	CondWeeklyTargetStreak ConditionType = "weekly_target_streak"
	CondBonusChores        ConditionType = "bonus_chores"
)

type BonusType string

const (
	BonusEarningMultiplier BonusType = "earning_multiplier"
	BonusPenaltyForgive    BonusType = "penalty_forgiveness"
	BonusFlatReward        BonusType = "flat_reward"
)

// Achievement is a catalog entry. Params is a JSON blob whose shape is
// keyed by ConditionType; it is decoded into a typed params struct at the
// evaluation boundary, never inspected as raw JSON elsewhere.
type Achievement struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Icon          string          `json:"icon"`
	ConditionType ConditionType   `json:"condition_type"`
	Params        json.RawMessage `json:"params"`
	BonusType     *BonusType      `json:"bonus_type"`
	BonusParams   json.RawMessage `json:"bonus_params"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AchievementProgress is upserted per (member, achievement), never duplicated.
type AchievementProgress struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	AchievementID int64     `json:"achievement_id"`
	Current       int64     `json:"current"`
	Target        int64     `json:"target"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MemberAchievement marks an earned badge. A member earns a given
// achievement at most once.
type MemberAchievement struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	AchievementID int64     `json:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at"`
}

// MemberAchievementBonus is an active grant attached to an earned
// achievement: a multiplier, a forgiveness token, or a one-shot reward.
type MemberAchievementBonus struct {
	ID            int64           `json:"id"`
	MemberID      int64           `json:"member_id"`
	AchievementID int64           `json:"achievement_id"`
	BonusType     BonusType       `json:"bonus_type"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	RemainingUses *int            `json:"remaining_uses"`
	ExpiresAt     *time.Time      `json:"expires_at"`
	CreatedAt     time.Time       `json:"created_at"`
}
