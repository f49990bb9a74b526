package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
)

// seedSprint builds one module with a single sprint holding a task, an
// article and a quiz, and returns the three missions in that order.
func seedSprint(t *testing.T, db *gorm.DB) (sprintID string, missions []models.Mission) {
	t.Helper()

	module := models.Module{ID: uuid.NewString(), Name: uuid.NewString(), Code: uuid.NewString(), Title: "Basics"}
	require.NoError(t, db.Create(&module).Error)

	sprint := models.Sprint{ID: uuid.NewString(), ModuleID: module.ID, Name: uuid.NewString(), Title: "Week 1"}
	require.NoError(t, db.Create(&sprint).Error)

	types := []models.MissionType{models.MissionTypeTask, models.MissionTypeArticle, models.MissionTypeQuiz}
	for i, missionType := range types {
		mission := models.Mission{
			ID:         uuid.NewString(),
			ModuleID:   module.ID,
			SprintID:   &sprint.ID,
			Type:       missionType,
			Title:      string(missionType),
			XP:         50,
			EtaMinutes: 10,
			Order:      i,
		}
		require.NoError(t, db.Create(&mission).Error)
		missions = append(missions, mission)
	}
	return sprint.ID, missions
}

func markDone(t *testing.T, db *gorm.DB, userID, missionID string) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind: EventCompleted, At: time.Now(), Passed: true, XPAwarded: 50,
		})
		return err
	})
	require.NoError(t, err)
}

// addPendingTask puts one more TASK mission into the sprint so the plan
// can be complete while the selector still has somewhere to go.
func addPendingTask(t *testing.T, db *gorm.DB, moduleID, sprintID string, order int) models.Mission {
	t.Helper()
	mission := models.Mission{
		ID:         uuid.NewString(),
		ModuleID:   moduleID,
		SprintID:   &sprintID,
		Type:       models.MissionTypeTask,
		Title:      "extra task",
		XP:         50,
		EtaMinutes: 10,
		Order:      order,
	}
	require.NoError(t, db.Create(&mission).Error)
	return mission
}

func TestClaimPlanBonus_AwardsOncePerDay(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	sprintID, missions := seedSprint(t, db)
	addPendingTask(t, db, missions[0].ModuleID, sprintID, len(missions))
	for _, mission := range missions {
		markDone(t, db, user.ID, mission.ID)
	}
	svc := NewDashboardService(db)

	result, err := svc.ClaimPlanBonus(user.ID)
	require.NoError(t, err)
	require.Equal(t, planBonusXP, result.XPAwarded)

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	require.Equal(t, 3*50+planBonusXP, fresh.XPTotal)
	require.NotNil(t, fresh.PlanBonusClaimedAt)

	_, err = svc.ClaimPlanBonus(user.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "conflict")
}

func TestClaimPlanBonus_IncompletePlanIsRejected(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	_, missions := seedSprint(t, db)
	// Only the article is done; tasks and quizzes still block the plan.
	markDone(t, db, user.ID, missions[1].ID)
	svc := NewDashboardService(db)

	_, err := svc.ClaimPlanBonus(user.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad_request")

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	require.Equal(t, 50, fresh.XPTotal, "no bonus on an incomplete plan")
}

func TestClaimPlanBonus_NextDayClaimsAgain(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	sprintID, missions := seedSprint(t, db)
	addPendingTask(t, db, missions[0].ModuleID, sprintID, len(missions))
	for _, mission := range missions {
		markDone(t, db, user.ID, mission.ID)
	}

	svc := NewDashboardService(db)
	_, err := svc.ClaimPlanBonus(user.ID)
	require.NoError(t, err)

	svc.Now = func() time.Time { return time.Now().AddDate(0, 0, 1) }
	_, err = svc.ClaimPlanBonus(user.ID)
	require.NoError(t, err, "a new local day resets the claim guard")
}

func TestClaimPlanBonus_ExhaustedModuleIsRejected(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	_, missions := seedSprint(t, db)
	// Everything is done; with no mission left to plan there is no sprint
	// to claim against.
	for _, mission := range missions {
		markDone(t, db, user.ID, mission.ID)
	}
	svc := NewDashboardService(db)

	_, err := svc.ClaimPlanBonus(user.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad_request")

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	require.Equal(t, 3*50, fresh.XPTotal, "no bonus once the module is exhausted")
}

func TestSummary_ReportsActiveSprintAndNextMission(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	sprintID, missions := seedSprint(t, db)
	markDone(t, db, user.ID, missions[0].ID)
	svc := NewDashboardService(db)

	view, err := svc.Summary(user.ID)
	require.NoError(t, err)

	require.NotNil(t, view.ActiveSprint)
	require.Equal(t, sprintID, view.ActiveSprint.ID)
	require.Equal(t, 1, view.ActiveSprint.TasksDone)
	require.Equal(t, 1, view.ActiveSprint.TasksTotal)
	require.False(t, view.ActiveSprint.PlanComplete)

	require.NotNil(t, view.NextMission)
	require.Equal(t, missions[1].ID, view.NextMission.MissionID,
		"the mission after the done anchor comes next")

	require.Equal(t, 50, view.XPToday)
	require.False(t, view.PlanBonusClaimed)
}

func TestSummary_NoHistoryStartsAtFirstModule(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	_, missions := seedSprint(t, db)
	svc := NewDashboardService(db)

	view, err := svc.Summary(user.ID)
	require.NoError(t, err)
	require.NotNil(t, view.NextMission)
	require.Equal(t, missions[0].ID, view.NextMission.MissionID)
	require.Equal(t, 100, view.SpeedPercent, "no timed completions reads neutral")
}
