package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScheduleType string

const (
	ScheduleSpecificDays    ScheduleType = "specific_days"
	ScheduleWeeklyFrequency ScheduleType = "weekly_frequency"
)

// ChoreDefinition is the recurring task template. ActiveDays is a 7-bit
// mask with bit 0 = Sunday, matching time.Weekday numbering. For
// weekly-frequency chores the mask marks eligible days, not mandatory ones.
type ChoreDefinition struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Icon              string          `json:"icon"`
	Description       string          `json:"description"`
	AssignedTo        *int64          `json:"assigned_to"`
	EarnValue         decimal.Decimal `json:"earn_value"`
	PenaltyValue      decimal.Decimal `json:"penalty_value"`
	ScheduleType      ScheduleType    `json:"schedule_type"`
	ActiveDays        int             `json:"active_days"`
	WeeklyTargetCount int             `json:"weekly_target_count"`
	StartDate         *string         `json:"start_date"`
	EndDate           *string         `json:"end_date"`
	AutoApprove       bool            `json:"auto_approve"`
	IsActive          bool            `json:"is_active"`
	SortOrder         int             `json:"sort_order"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type OverrideType string

const (
	OverrideAdd    OverrideType = "add"
	OverrideRemove OverrideType = "remove"
	OverrideMove   OverrideType = "move"
)

// ScheduleOverride is a date-scoped exception to the recurring plan.
// At most one override exists per (chore, date) pair.
type ScheduleOverride struct {
	ID         int64            `json:"id"`
	ChoreID    int64            `json:"chore_id"`
	Date       string           `json:"date"`
	Type       OverrideType     `json:"type"`
	AssignedTo *int64           `json:"assigned_to"`
	Value      *decimal.Decimal `json:"value"`
	CreatedBy  int64            `json:"created_by"`
	CreatedAt  time.Time        `json:"created_at"`
}

type LogStatus string

const (
	StatusPending   LogStatus = "pending"
	StatusCompleted LogStatus = "completed"
	StatusApproved  LogStatus = "approved"
	StatusMissed    LogStatus = "missed"
	StatusSkipped   LogStatus = "skipped"
	StatusHelp      LogStatus = "help"
)

// ChoreLog records one chore on one date. Unique per (chore, date).
// Version is the optimistic concurrency token: writes that read-then-write
// a log carry the version they read and fail if it has moved.
type ChoreLog struct {
	ID          int64      `json:"id"`
	ChoreID     int64      `json:"chore_id"`
	Date        string     `json:"date"`
	Status      LogStatus  `json:"status"`
	CompletedBy *int64     `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	ApprovedBy  *int64     `json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at"`
	HelpNote    string     `json:"help_note"`
	Notes       string     `json:"notes"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
