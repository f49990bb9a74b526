// services/execution.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// ExecutionService proxies learner code to the sandbox and, on completion
// submissions, settles progress, XP and analytics in one transaction.
type ExecutionService struct {
	DB       *gorm.DB
	Executor *ExecutorClient
}

func NewExecutionService(db *gorm.DB, executor *ExecutorClient) *ExecutionService {
	return &ExecutionService{DB: db, Executor: executor}
}

// ExecuteInput is the validated body of an execute call.
type ExecuteInput struct {
	Source           string  `json:"source" validate:"required"`
	Mode             string  `json:"mode" validate:"required,oneof=runCode fullTest completeTask"`
	TimeSpentSeconds *int    `json:"time_spent_seconds,omitempty" validate:"omitempty,min=0"`
	SessionID        *string `json:"session_id,omitempty"`
}

// Execute runs one sandbox round trip for the mission. runCode and fullTest
// pass the sandbox verdict through (public cases only); completeTask settles
// the attempt against the progress ledger.
func (s *ExecutionService) Execute(ctx context.Context, userID, missionID string, in ExecuteInput) (map[string]interface{}, error) {
	if in.SessionID != nil {
		in.SessionID = utils.ClampString(*in.SessionID, 120)
	}

	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeTask, models.MissionTypeBugfix},
		"Task", "Task.Tests")
	if err != nil {
		return nil, err
	}
	if mission.Task == nil {
		return nil, utils.ErrNotFound()
	}
	totalTests := len(mission.Task.Tests)
	publicCount := totalTests
	if publicCount > 3 {
		publicCount = 3
	}

	progress, err := findProgress(s.DB, userID, missionID)
	if err != nil {
		return nil, err
	}

	if !s.Executor.IsHealthy(ctx) {
		return nil, utils.ErrUpstreamUnavailable()
	}

	data, err := s.Executor.Execute(ctx, userID, missionID, in.Source, in.Mode)
	if err != nil {
		return nil, err
	}

	// fullTest runs count against the attempt multiplier, but only until
	// the mission is done; replays after completion are free.
	if in.Mode == ModeFullTest && (progress == nil || progress.Status != models.ProgressDone) {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			_, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
				Kind:     EventTestAttempt,
				At:       time.Now(),
				UserCode: &in.Source,
			})
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	// runCode already executes against public cases only, so its reply
	// passes through untouched. fullTest runs the whole suite and must be
	// cut back to the public verdicts.
	if in.Mode != ModeCompleteTask {
		if in.Mode == ModeFullTest {
			truncateResults(data, publicCount)
		}
		return data, nil
	}

	return s.settleCompletion(mission, progress, data, userID, in)
}

// truncateResults keeps only the public-case verdicts in the sandbox reply.
func truncateResults(data map[string]interface{}, publicCount int) {
	results, ok := data["results"].([]interface{})
	if !ok {
		return
	}
	if len(results) > publicCount {
		data["results"] = results[:publicCount]
	}
}

// settleCompletion writes the submission row, advances the progress ledger
// and logs the analytics event atomically. The XP award uses the attempt
// count as it stood BEFORE this submission.
func (s *ExecutionService) settleCompletion(mission *models.Mission, progress *models.UserMissionProgress, data map[string]interface{}, userID string, in ExecuteInput) (map[string]interface{}, error) {
	passed, _ := data["isTaskPassed"].(bool)
	passedCount := intField(data, "passedCount")
	totalTests := len(mission.Task.Tests)

	attemptsBefore := 0
	if progress != nil {
		attemptsBefore = progress.TestAttemptsCount
	}
	alreadyDone := progress != nil && progress.Status == models.ProgressDone

	xpAwarded := 0
	if passed && !alreadyDone {
		xpAwarded = ComputeAwardedXP(mission.XP, mission.EtaMinutes, in.TimeSpentSeconds, attemptsBefore)
	}

	status := models.SubmissionFailed
	if passed {
		status = models.SubmissionPassed
	}

	var updated *models.UserMissionProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		submission := models.TaskSubmission{
			ID:               uuid.NewString(),
			UserID:           userID,
			TaskID:           mission.Task.ID,
			Code:             in.Source,
			Status:           status,
			PassedCount:      passedCount,
			TotalCount:       totalTests,
			TimeSpentSeconds: in.TimeSpentSeconds,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		row, becameDone, err := ApplyProgressEvent(tx, userID, mission.ID, ProgressEvent{
			Kind:             EventCompleted,
			At:               time.Now(),
			Passed:           passed,
			XPAwarded:        xpAwarded,
			TimeSpentSeconds: in.TimeSpentSeconds,
			UserCode:         &in.Source,
		})
		if err != nil {
			return err
		}
		updated = row

		if passed {
			if err := s.logCompletion(tx, userID, mission, in, xpAwarded, attemptsBefore, passedCount, totalTests, alreadyDone); err != nil {
				return err
			}
		}
		if becameDone {
			log.Printf("✅ Mission completed: user=%s mission=%s xp=%d", userID, mission.ID, xpAwarded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if passed && utils.ArchiveEnabled() {
		go func(code string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			key := fmt.Sprintf("submissions/%s/%s/%s.py", userID, mission.ID, uuid.NewString())
			if err := utils.ArchiveSubmission(ctx, key, []byte(code)); err != nil {
				log.Printf("⚠️ Submission archive failed: %v", err)
			}
		}(in.Source)
	}

	data["passedCount"] = passedCount
	data["totalCount"] = totalTests
	data["xpAwarded"] = xpAwarded
	if in.TimeSpentSeconds != nil {
		data["timeSpentSeconds"] = *in.TimeSpentSeconds
	}
	if updated != nil {
		data["testAttemptsCount"] = updated.TestAttemptsCount
	}
	return data, nil
}

func (s *ExecutionService) logCompletion(tx *gorm.DB, userID string, mission *models.Mission, in ExecuteInput, xpAwarded, attemptsBefore, passedCount, totalCount int, alreadyDone bool) error {
	var user models.User
	if err := tx.Select("streak_current").Where("id = ?", userID).First(&user).Error; err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"passedCount":      passedCount,
		"totalCount":       totalCount,
		"etaMinutes":       mission.EtaMinutes,
		"alreadyCompleted": alreadyDone,
	})

	missionType := string(mission.Type)
	entry := models.AnalyticsLog{
		ID:               uuid.NewString(),
		Event:            "mission_completed",
		UserID:           userID,
		SessionID:        in.SessionID,
		MissionID:        &mission.ID,
		MissionType:      &missionType,
		XPAwarded:        &xpAwarded,
		TimeSpentSeconds: in.TimeSpentSeconds,
		AttemptsCount:    &attemptsBefore,
		StreakCurrent:    &user.StreakCurrent,
		Payload:          datatypes.JSON(payload),
	}
	return tx.Create(&entry).Error
}

func intField(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
