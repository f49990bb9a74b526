package models

import (
	"time"
)

// User is the learner account. Identity itself is owned by the gateway's
// auth service; this service only keeps progression counters and stats.
// XP counters and grade average are mutated exclusively through the
// progress ledger and the review flow.
type User struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name     *string `json:"name,omitempty"`
	NickName *string `json:"nick_name,omitempty"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Image    *string `json:"image,omitempty"`

	// XP counters. xp_today and xp_month are rolled over by the reset worker.
	XPTotal int `gorm:"column:xp_total;default:0" json:"xp_total"`
	XPMonth int `gorm:"column:xp_month;default:0" json:"xp_month"`
	XPToday int `gorm:"column:xp_today;default:0" json:"xp_today"`

	StreakCurrent   int        `gorm:"default:0" json:"streak_current"`
	StreakBest      int        `gorm:"default:0" json:"streak_best"`
	StreakUpdatedAt *time.Time `json:"streak_updated_at,omitempty"`

	// Mean of graded TASK missions, rounded to two decimals. Nil until the
	// first review lands.
	GradeAvg *float64 `json:"grade_avg,omitempty"`

	PlanBonusClaimedAt *time.Time `json:"plan_bonus_claimed_at,omitempty"`

	Timestamps
}
