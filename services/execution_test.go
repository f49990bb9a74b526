package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
)

// seedTask creates a visible module with one TASK mission backed by five
// test cases, two of them public.
func seedTask(t *testing.T, db *gorm.DB) *models.Mission {
	t.Helper()

	module := models.Module{ID: uuid.NewString(), Name: uuid.NewString(), Code: uuid.NewString(), Title: "Basics"}
	require.NoError(t, db.Create(&module).Error)

	mission := models.Mission{
		ID:         uuid.NewString(),
		ModuleID:   module.ID,
		Type:       models.MissionTypeTask,
		Title:      "FizzBuzz",
		XP:         100,
		EtaMinutes: 9,
	}
	require.NoError(t, db.Create(&mission).Error)

	task := models.TaskDetail{ID: uuid.NewString(), MissionID: mission.ID, Language: "python"}
	require.NoError(t, db.Create(&task).Error)

	for i := 0; i < 5; i++ {
		testCase := models.TaskTestCase{
			ID:       uuid.NewString(),
			TaskID:   task.ID,
			Input:    "1",
			IsPublic: i < 2,
			Order:    i,
		}
		require.NoError(t, db.Create(&testCase).Error)
	}

	require.NoError(t, db.Preload("Task.Tests").First(&mission, "id = ?", mission.ID).Error)
	return &mission
}

// fakeExecutor returns a sandbox stub answering /health with 200 and
// /api/execute with the given body.
func fakeExecutor(t *testing.T, body map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "/api/execute", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func newExecutionService(db *gorm.DB, upstreamURL string) *ExecutionService {
	return NewExecutionService(db, NewExecutorClient(upstreamURL, "secret", ""))
}

func TestExecute_CompleteTaskAwardsXP(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	server := fakeExecutor(t, map[string]interface{}{"isTaskPassed": true, "passedCount": 5})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	result, err := svc.Execute(context.Background(), user.ID, mission.ID, ExecuteInput{
		Source: "print(1)", Mode: ModeCompleteTask, TimeSpentSeconds: intPtr(100),
	})
	require.NoError(t, err)

	// 100 XP * 1.2 fast bonus * 1.0 attempts.
	require.Equal(t, 120, result["xpAwarded"])
	require.Equal(t, 5, result["passedCount"])
	require.Equal(t, 5, result["totalCount"])

	progress, err := findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProgressDone, progress.Status)
	require.Equal(t, 120, *progress.XPEarned)

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	require.Equal(t, 120, fresh.XPTotal)

	var submissions int64
	require.NoError(t, db.Model(&models.TaskSubmission{}).Where("user_id = ?", user.ID).Count(&submissions).Error)
	require.EqualValues(t, 1, submissions)

	var analytics int64
	require.NoError(t, db.Model(&models.AnalyticsLog{}).
		Where("user_id = ? AND event = ?", user.ID, "mission_completed").Count(&analytics).Error)
	require.EqualValues(t, 1, analytics)
}

func TestExecute_RepeatCompletionLogsButDoesNotAward(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	server := fakeExecutor(t, map[string]interface{}{"isTaskPassed": true, "passedCount": 5})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	in := ExecuteInput{Source: "print(1)", Mode: ModeCompleteTask, TimeSpentSeconds: intPtr(100)}
	_, err := svc.Execute(context.Background(), user.ID, mission.ID, in)
	require.NoError(t, err)
	result, err := svc.Execute(context.Background(), user.ID, mission.ID, in)
	require.NoError(t, err)
	require.Equal(t, 0, result["xpAwarded"])

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	require.Equal(t, 120, fresh.XPTotal, "repeat completion must not award again")

	var submissions int64
	require.NoError(t, db.Model(&models.TaskSubmission{}).Where("user_id = ?", user.ID).Count(&submissions).Error)
	require.EqualValues(t, 2, submissions, "every completion call logs a submission")
}

func TestExecute_FailedCompletionLogsSubmissionOnly(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	server := fakeExecutor(t, map[string]interface{}{"isTaskPassed": false, "passedCount": 3})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	result, err := svc.Execute(context.Background(), user.ID, mission.ID, ExecuteInput{
		Source: "print(1)", Mode: ModeCompleteTask,
	})
	require.NoError(t, err)
	require.Equal(t, 0, result["xpAwarded"])

	progress, err := findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProgressInProgress, progress.Status)

	var submissions int64
	require.NoError(t, db.Model(&models.TaskSubmission{}).Where("user_id = ?", user.ID).Count(&submissions).Error)
	require.EqualValues(t, 1, submissions)
}

func TestExecute_FullTestCountsAttemptsUntilDone(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	server := fakeExecutor(t, map[string]interface{}{
		"results": []interface{}{
			map[string]interface{}{"passed": true},
			map[string]interface{}{"passed": true},
			map[string]interface{}{"passed": false},
			map[string]interface{}{"passed": false},
			map[string]interface{}{"passed": false},
		},
	})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	in := ExecuteInput{Source: "print(1)", Mode: ModeFullTest}
	result, err := svc.Execute(context.Background(), user.ID, mission.ID, in)
	require.NoError(t, err)

	// Only the public slice of the verdicts comes back.
	require.Len(t, result["results"], 3)

	_, err = svc.Execute(context.Background(), user.ID, mission.ID, in)
	require.NoError(t, err)

	progress, err := findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.Equal(t, 2, progress.TestAttemptsCount)

	// Completing freezes the count; later full tests are free replays.
	require.NoError(t, db.Model(progress).Updates(map[string]interface{}{"status": models.ProgressDone}).Error)
	_, err = svc.Execute(context.Background(), user.ID, mission.ID, in)
	require.NoError(t, err)

	progress, err = findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.Equal(t, 2, progress.TestAttemptsCount)
}

func TestExecute_AttemptPenaltyUsesCountBeforeSubmission(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	// Five prior full-test attempts put the learner in the 0.75 bucket.
	require.NoError(t, db.Create(&models.UserMissionProgress{
		ID: uuid.NewString(), UserID: user.ID, MissionID: mission.ID,
		Status: models.ProgressInProgress, TestAttemptsCount: 5,
	}).Error)

	server := fakeExecutor(t, map[string]interface{}{"isTaskPassed": true, "passedCount": 5})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	result, err := svc.Execute(context.Background(), user.ID, mission.ID, ExecuteInput{
		Source: "print(1)", Mode: ModeCompleteTask, TimeSpentSeconds: intPtr(100),
	})
	require.NoError(t, err)

	// 100 XP * 1.2 * 0.75.
	require.Equal(t, 90, result["xpAwarded"])
}

func TestExecute_UnhealthyExecutorRejectsBeforeRunning(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	server := fakeExecutor(t, nil)
	server.Close() // sandbox down
	svc := newExecutionService(db, server.URL)

	_, err := svc.Execute(context.Background(), user.ID, mission.ID, ExecuteInput{
		Source: "print(1)", Mode: ModeRunCode,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "upstream_unavailable")
}

func TestExecute_UnknownMissionIs404(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)

	server := fakeExecutor(t, nil)
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	_, err := svc.Execute(context.Background(), user.ID, uuid.NewString(), ExecuteInput{
		Source: "print(1)", Mode: ModeRunCode,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not_found")
}

func TestExecute_RunCodeResultsPassThrough(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	// runCode only executes public cases upstream; whatever comes back is
	// returned as-is, with no attempt counted.
	server := fakeExecutor(t, map[string]interface{}{
		"results": []interface{}{
			map[string]interface{}{"passed": true},
			map[string]interface{}{"passed": true},
			map[string]interface{}{"passed": false},
			map[string]interface{}{"passed": false},
			map[string]interface{}{"passed": false},
		},
	})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	result, err := svc.Execute(context.Background(), user.ID, mission.ID, ExecuteInput{
		Source: "print(1)", Mode: ModeRunCode,
	})
	require.NoError(t, err)
	require.Len(t, result["results"], 5)

	progress, err := findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.Nil(t, progress, "runCode must not touch progress")
}

func TestExecute_CompletionAnalyticsEntry(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedTask(t, db)

	server := fakeExecutor(t, map[string]interface{}{"isTaskPassed": true, "passedCount": 5})
	defer server.Close()
	svc := newExecutionService(db, server.URL)

	longSession := strings.Repeat("s", 200)
	_, err := svc.Execute(context.Background(), user.ID, mission.ID, ExecuteInput{
		Source: "print(1)", Mode: ModeCompleteTask, TimeSpentSeconds: intPtr(100), SessionID: &longSession,
	})
	require.NoError(t, err)

	var entry models.AnalyticsLog
	require.NoError(t, db.First(&entry, "user_id = ? AND event = ?", user.ID, "mission_completed").Error)
	require.NotNil(t, entry.SessionID)
	require.Len(t, *entry.SessionID, 120)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Payload, &payload))
	require.EqualValues(t, 5, payload["passedCount"])
	require.EqualValues(t, 5, payload["totalCount"])
	require.EqualValues(t, mission.EtaMinutes, payload["etaMinutes"])
	require.Equal(t, false, payload["alreadyCompleted"])
}
