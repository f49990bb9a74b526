package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the sandbox verdict for a completion submission.
type SubmissionStatus string

const (
	SubmissionPassed SubmissionStatus = "PASSED"
	SubmissionFailed SubmissionStatus = "FAILED"
)

// TaskSubmission is an append-only log of completion submissions. One row
// per completeTask call, pass or fail; rows are never updated or deleted.
type TaskSubmission struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`
	TaskID string `gorm:"index;not null" json:"task_id"`

	Code             string           `gorm:"type:text;not null" json:"code"`
	Status           SubmissionStatus `gorm:"not null" json:"status"`
	PassedCount      int              `json:"passed_count"`
	TotalCount       int              `json:"total_count"`
	TimeSpentSeconds *int             `json:"time_spent_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// QuizAttempt is an append-only log of quiz submissions, written
// unconditionally on every grading call.
type QuizAttempt struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`
	QuizID string `gorm:"index;not null" json:"quiz_id"`

	Answers          datatypes.JSON `json:"answers"` // questionID → optionID
	Score            int            `json:"score"`
	Total            int            `json:"total"`
	Percent          int            `json:"percent"`
	Passed           bool           `json:"passed"`
	TimeSpentSeconds *int           `json:"time_spent_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TaskReview is an append-only log of AI-assisted reviews, also the source
// for the daily quota count.
type TaskReview struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`
	TaskID string `gorm:"index;not null" json:"task_id"`

	Code         string         `gorm:"type:text;not null" json:"code"`
	Grade        string         `gorm:"not null" json:"grade"`
	Summary      string         `gorm:"type:text" json:"summary"`
	Strengths    datatypes.JSON `json:"strengths"`
	Improvements datatypes.JSON `json:"improvements"`
	Model        string         `json:"model"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// AnalyticsLog is an append-only event stream written alongside completion
// events. Never read back by this service.
type AnalyticsLog struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	Event  string `gorm:"not null;index" json:"event"`
	UserID string `gorm:"index;not null" json:"user_id"`

	SessionID        *string        `json:"session_id,omitempty"`
	MissionID        *string        `json:"mission_id,omitempty"`
	MissionType      *string        `json:"mission_type,omitempty"`
	XPAwarded        *int           `gorm:"column:xp_awarded" json:"xp_awarded,omitempty"`
	TimeSpentSeconds *int           `json:"time_spent_seconds,omitempty"`
	AttemptsCount    *int           `json:"attempts_count,omitempty"`
	StreakCurrent    *int           `json:"streak_current,omitempty"`
	Payload          datatypes.JSON `json:"payload,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
