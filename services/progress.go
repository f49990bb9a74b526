package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
)

// ProgressEventKind names the mutating events the ledger understands.
type ProgressEventKind string

const (
	EventOpened      ProgressEventKind = "opened"
	EventTestAttempt ProgressEventKind = "test_attempt"
	EventCompleted   ProgressEventKind = "completed"
	EventGraded      ProgressEventKind = "graded"
)

// ProgressEvent is one mutating event against a (user, mission) progress
// row. XPAwarded is pre-computed by the caller; the ledger only decides
// whether it may still be granted.
type ProgressEvent struct {
	Kind             ProgressEventKind
	At               time.Time
	Passed           bool // completed only
	XPAwarded        int  // completed only
	TimeSpentSeconds *int
	UserCode         *string
	Grade            *string // graded only
}

// NextProgress is the pure transition function: given the existing row (nil
// when absent) and an event, it returns the next row state and whether this
// event moves the row into DONE for the first time. Status is monotonic;
// once DONE, only lastOpenedAt, userCode and grade may still change.
func NextProgress(existing *models.UserMissionProgress, userID, missionID string, ev ProgressEvent) (models.UserMissionProgress, bool) {
	now := ev.At

	var next models.UserMissionProgress
	if existing != nil {
		next = *existing
	} else {
		next = models.UserMissionProgress{
			ID:        uuid.NewString(),
			UserID:    userID,
			MissionID: missionID,
			Status:    models.ProgressInProgress,
			StartedAt: &now,
		}
	}

	next.LastOpenedAt = &now
	if next.StartedAt == nil {
		started := now
		next.StartedAt = &started
	}
	if ev.UserCode != nil {
		next.UserCode = ev.UserCode
	}

	alreadyDone := existing != nil && existing.Status == models.ProgressDone
	becameDone := false

	switch ev.Kind {
	case EventOpened:
		if !alreadyDone {
			next.Status = models.ProgressInProgress
		}

	case EventTestAttempt:
		if !alreadyDone {
			next.Status = models.ProgressInProgress
			next.TestAttemptsCount++
		}

	case EventCompleted:
		if !alreadyDone {
			if ev.TimeSpentSeconds != nil {
				next.TimeSpentSeconds = ev.TimeSpentSeconds
			}
			if ev.Passed {
				next.Status = models.ProgressDone
				completed := now
				next.CompletedAt = &completed
				xp := ev.XPAwarded
				next.XPEarned = &xp
				becameDone = true
			} else {
				next.Status = models.ProgressInProgress
			}
		}

	case EventGraded:
		// Grades are stored regardless of completion state.
		next.Grade = ev.Grade
		if !alreadyDone {
			next.Status = models.ProgressInProgress
		}
	}

	return next, becameDone
}

// ApplyProgressEvent runs the read → transition → write cycle inside the
// caller's transaction and, exactly when the event transitions the row into
// DONE, atomically bumps the user's XP counters by the awarded amount.
func ApplyProgressEvent(tx *gorm.DB, userID, missionID string, ev ProgressEvent) (*models.UserMissionProgress, bool, error) {
	var existing models.UserMissionProgress
	var existingPtr *models.UserMissionProgress

	err := tx.Where("user_id = ? AND mission_id = ?", userID, missionID).First(&existing).Error
	if err == nil {
		existingPtr = &existing
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	next, becameDone := NextProgress(existingPtr, userID, missionID, ev)

	if existingPtr == nil {
		if err := tx.Create(&next).Error; err != nil {
			return nil, false, err
		}
	} else {
		if err := tx.Save(&next).Error; err != nil {
			return nil, false, err
		}
	}

	if becameDone && ev.XPAwarded > 0 {
		if err := AwardXPCounters(tx, userID, ev.XPAwarded); err != nil {
			return nil, false, err
		}
		log.Printf("🎯 XP awarded: user=%s mission=%s xp=%d", userID, missionID, ev.XPAwarded)
	}

	return &next, becameDone, nil
}

// AwardXPCounters increments the user's total/monthly/daily XP counters.
func AwardXPCounters(tx *gorm.DB, userID string, xp int) error {
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"xp_total": gorm.Expr("xp_total + ?", xp),
			"xp_month": gorm.Expr("xp_month + ?", xp),
			"xp_today": gorm.Expr("xp_today + ?", xp),
		}).Error
}
