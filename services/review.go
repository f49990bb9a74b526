// services/review.go
package services

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

const reviewDailyLimit = 3

// gradePoints maps a letter grade to its numeric weight for the running
// average.
var gradePoints = map[string]float64{
	"A": 5, "A-": 4.5, "B+": 4, "B": 3.5, "C+": 3, "C": 2.5, "D": 2, "E": 1,
}

// ReviewService runs AI-assisted reviews behind a per-user daily quota and
// folds each grade into the user's average.
type ReviewService struct {
	DB       *gorm.DB
	Reviewer Reviewer
	Model    string
	Now      func() time.Time
}

func NewReviewService(db *gorm.DB, reviewer Reviewer, model string) *ReviewService {
	return &ReviewService{DB: db, Reviewer: reviewer, Model: model, Now: time.Now}
}

// usedToday counts reviews since local midnight. The quota day follows the
// server's local clock, not UTC.
func (s *ReviewService) usedToday(userID string) (int64, error) {
	now := s.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var used int64
	err := s.DB.Model(&models.TaskReview{}).
		Where("user_id = ? AND created_at >= ?", userID, midnight).
		Count(&used).Error
	return used, err
}

// Quota reports how many reviews the user has left today.
func (s *ReviewService) Quota(userID string) (remaining int, limit int, err error) {
	used, err := s.usedToday(userID)
	if err != nil {
		return 0, reviewDailyLimit, err
	}
	remaining = reviewDailyLimit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, reviewDailyLimit, nil
}

// ReviewInput is the validated review request body. Locale falls back to
// the Accept-Language header when the body omits it.
type ReviewInput struct {
	Code   string `json:"source" validate:"required"`
	Locale string `json:"locale,omitempty"`
}

// ReviewOutput is the verdict plus what the quota looks like afterwards.
type ReviewOutput struct {
	Grade        string   `json:"grade"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Remaining    int      `json:"remaining"`
	Limit        int      `json:"limit"`
}

// Review grades the code for a TASK mission. Only tasks are reviewable;
// the grade average must stay a function of task grades alone. The quota
// is checked before the model call; the review row, the progress grade
// and the user's grade average land in one transaction after it.
func (s *ReviewService) Review(ctx context.Context, userID, missionID string, in ReviewInput) (*ReviewOutput, error) {
	if s.Reviewer == nil {
		return nil, utils.ErrUpstreamUnavailable()
	}

	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeTask},
		"Task")
	if err != nil {
		return nil, err
	}
	if mission.Task == nil {
		return nil, utils.ErrNotFound()
	}

	used, err := s.usedToday(userID)
	if err != nil {
		return nil, err
	}
	if used >= reviewDailyLimit {
		return nil, utils.ErrQuotaExceeded(reviewDailyLimit)
	}

	verdict, err := s.Reviewer.Review(ctx, ReviewRequest{
		Title:        mission.Title,
		Description:  mission.Description,
		Requirements: string(mission.Requirements),
		Language:     mission.Task.Language,
		Code:         in.Code,
		Locale:       in.Locale,
	})
	if err != nil {
		log.Printf("⚠️ Review failed: user=%s mission=%s err=%v", userID, missionID, err)
		return nil, utils.ErrReviewFailed()
	}
	if _, ok := gradePoints[verdict.Grade]; !ok {
		log.Printf("⚠️ Review returned unknown grade %q: user=%s mission=%s", verdict.Grade, userID, missionID)
		return nil, utils.ErrReviewFailed()
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		review := models.TaskReview{
			ID:           uuid.NewString(),
			UserID:       userID,
			TaskID:       mission.Task.ID,
			Code:         in.Code,
			Grade:        verdict.Grade,
			Summary:      verdict.Summary,
			Strengths:    mustJSON(verdict.Strengths),
			Improvements: mustJSON(verdict.Improvements),
			Model:        s.Model,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		if _, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind:  EventGraded,
			At:    s.Now(),
			Grade: &verdict.Grade,
		}); err != nil {
			return err
		}

		return recomputeGradeAvg(tx, userID)
	})
	if err != nil {
		return nil, err
	}

	remaining := reviewDailyLimit - int(used) - 1
	if remaining < 0 {
		remaining = 0
	}
	log.Printf("🎓 Review stored: user=%s mission=%s grade=%s", userID, missionID, verdict.Grade)
	return &ReviewOutput{
		Grade:        verdict.Grade,
		Summary:      verdict.Summary,
		Strengths:    verdict.Strengths,
		Improvements: verdict.Improvements,
		Remaining:    remaining,
		Limit:        reviewDailyLimit,
	}, nil
}

// mustJSON marshals a string slice for storage. A nil slice becomes [].
func mustJSON(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}

// recomputeGradeAvg averages the graded TASK missions only, rounded to
// two decimals, and stores it on the user row. Grades on other mission
// types never count.
func recomputeGradeAvg(tx *gorm.DB, userID string) error {
	var grades []string
	err := tx.Model(&models.UserMissionProgress{}).
		Joins("JOIN missions ON missions.id = user_mission_progresses.mission_id").
		Where("user_mission_progresses.user_id = ? AND user_mission_progresses.grade IS NOT NULL AND missions.type = ?",
			userID, models.MissionTypeTask).
		Pluck("user_mission_progresses.grade", &grades).Error
	if err != nil {
		return err
	}

	sum := 0.0
	count := 0
	for _, g := range grades {
		if points, ok := gradePoints[g]; ok {
			sum += points
			count++
		}
	}
	if count == 0 {
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("grade_avg", nil).Error
	}

	avg := math.Round(sum/float64(count)*100) / 100
	return tx.Model(&models.User{}).Where("id = ?", userID).Update("grade_avg", avg).Error
}
