package model

import "time"

type MemberRole string

const (
	RoleGuardian MemberRole = "guardian"
	RoleChild    MemberRole = "child"
)

type FamilyMember struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Color       string     `json:"color"`
	AvatarEmoji string     `json:"avatar_emoji"`
	Role        MemberRole `json:"role"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
