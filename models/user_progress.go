package models

import (
	"time"

	"gorm.io/gorm"
)

// ProgressStatus advances TODO → IN_PROGRESS → DONE and never moves back.
type ProgressStatus string

const (
	ProgressTodo       ProgressStatus = "TODO"
	ProgressInProgress ProgressStatus = "IN_PROGRESS"
	ProgressDone       ProgressStatus = "DONE"
)

// UserMissionProgress is the single per-(user, mission) state row. Once the
// status reaches DONE, completedAt and xpEarned are frozen; later events may
// only touch soft fields (lastOpenedAt, userCode).
type UserMissionProgress struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"not null;uniqueIndex:idx_user_mission" json:"user_id"`
	MissionID string `gorm:"not null;uniqueIndex:idx_user_mission" json:"mission_id"`

	Status       ProgressStatus `gorm:"not null;default:'TODO'" json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	LastOpenedAt *time.Time     `json:"last_opened_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`

	XPEarned          *int    `gorm:"column:xp_earned" json:"xp_earned,omitempty"`
	TimeSpentSeconds  *int    `json:"time_spent_seconds,omitempty"`
	TestAttemptsCount int     `gorm:"default:0" json:"test_attempts_count"`
	Grade             *string `json:"grade,omitempty"`
	UserCode          *string `gorm:"type:text" json:"user_code,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
