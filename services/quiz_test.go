package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
)

func TestShuffledIndexes_DeterministicPerSeed(t *testing.T) {
	seed := shuffleSeed("user-1", "mission-1", "question-1", "attempt-1")

	first := shuffledIndexes(4, seed)
	second := shuffledIndexes(4, seed)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", first, second)
		}
	}

	seen := map[int]bool{}
	for _, idx := range first {
		if idx < 0 || idx >= 4 || seen[idx] {
			t.Fatalf("not a permutation: %v", first)
		}
		seen[idx] = true
	}
}

func TestShuffledIndexes_AttemptTokenChangesOrder(t *testing.T) {
	// With 4 options there are 24 permutations; distinct attempt tokens
	// should land on a different one at least once across a handful of
	// questions.
	differs := false
	for _, question := range []string{"q1", "q2", "q3", "q4", "q5"} {
		a := shuffledIndexes(4, shuffleSeed("user-1", "mission-1", question, "attempt-a"))
		b := shuffledIndexes(4, shuffleSeed("user-1", "mission-1", question, "attempt-b"))
		for i := range a {
			if a[i] != b[i] {
				differs = true
			}
		}
	}
	if !differs {
		t.Fatal("different attempt tokens never changed the order")
	}
}

// seedQuiz creates a visible module with one quiz of five questions; the
// first option of every question is the correct one.
func seedQuiz(t *testing.T, db *gorm.DB, passPercent *int) *models.Mission {
	t.Helper()

	module := models.Module{ID: uuid.NewString(), Name: uuid.NewString(), Code: uuid.NewString(), Title: "Basics"}
	require.NoError(t, db.Create(&module).Error)

	mission := models.Mission{
		ID:          uuid.NewString(),
		ModuleID:    module.ID,
		Type:        models.MissionTypeQuiz,
		Title:       "Syntax check",
		XP:          50,
		EtaMinutes:  10,
		PassPercent: passPercent,
	}
	require.NoError(t, db.Create(&mission).Error)

	for q := 0; q < 5; q++ {
		question := models.QuizQuestion{
			ID:        uuid.NewString(),
			MissionID: mission.ID,
			Prompt:    "pick the first option",
			Order:     q,
		}
		require.NoError(t, db.Create(&question).Error)
		for o := 0; o < 4; o++ {
			option := models.QuizOption{
				ID:         uuid.NewString(),
				QuestionID: question.ID,
				Label:      "option",
				IsCorrect:  o == 0,
				Order:      o,
			}
			require.NoError(t, db.Create(&option).Error)
		}
	}

	require.NoError(t, db.Preload("Questions.Options").First(&mission, "id = ?", mission.ID).Error)
	return &mission
}

func quizAnswers(mission *models.Mission, correct int) map[string]string {
	answers := map[string]string{}
	for i, question := range mission.Questions {
		for _, opt := range question.Options {
			pickCorrect := i < correct
			if opt.IsCorrect == pickCorrect {
				answers[question.ID] = opt.ID
				break
			}
		}
	}
	return answers
}

func TestGetQuiz_MarksOpenedAndHidesCorrectFlags(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedQuiz(t, db, nil)
	svc := NewQuizService(db)

	view, err := svc.GetQuiz(user.ID, mission.ID, "")
	require.NoError(t, err)
	require.NotEmpty(t, view.Attempt, "a fresh attempt token is issued")
	require.Equal(t, models.ProgressInProgress, view.Status)
	require.Len(t, view.Questions, 5)
	require.Len(t, view.Questions[0].Options, 4)
	require.Equal(t, defaultPassPercent, view.PassPercent)

	progress, err := findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	require.Equal(t, models.ProgressInProgress, progress.Status)
}

func TestGetQuiz_SameAttemptTokenKeepsOrder(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedQuiz(t, db, nil)
	svc := NewQuizService(db)

	first, err := svc.GetQuiz(user.ID, mission.ID, "attempt-1")
	require.NoError(t, err)
	second, err := svc.GetQuiz(user.ID, mission.ID, "attempt-1")
	require.NoError(t, err)

	for i := range first.Questions {
		for j := range first.Questions[i].Options {
			require.Equal(t, first.Questions[i].Options[j].ID, second.Questions[i].Options[j].ID,
				"option order must be stable within one attempt")
		}
	}
}

func TestSubmitQuiz_PassAwardsFlatXPOnce(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedQuiz(t, db, nil)
	svc := NewQuizService(db)

	result, err := svc.SubmitQuiz(user.ID, mission.ID, QuizSubmitInput{Answers: quizAnswers(mission, 4)})
	require.NoError(t, err)
	require.Equal(t, 4, result.Score)
	require.Equal(t, 5, result.Total)
	require.Equal(t, 80, result.Percent)
	require.True(t, result.Passed, "80 percent meets the default threshold")
	require.Equal(t, 50, result.XPAwarded)

	// A second pass still logs an attempt but awards nothing.
	again, err := svc.SubmitQuiz(user.ID, mission.ID, QuizSubmitInput{Answers: quizAnswers(mission, 5)})
	require.NoError(t, err)
	require.True(t, again.Passed)
	require.Zero(t, again.XPAwarded)

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	require.Equal(t, 50, fresh.XPTotal)

	var attempts int64
	require.NoError(t, db.Model(&models.QuizAttempt{}).Where("user_id = ?", user.ID).Count(&attempts).Error)
	require.EqualValues(t, 2, attempts, "every submission writes an attempt row")
}

func TestSubmitQuiz_FailBelowThreshold(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	mission := seedQuiz(t, db, nil)
	svc := NewQuizService(db)

	result, err := svc.SubmitQuiz(user.ID, mission.ID, QuizSubmitInput{Answers: quizAnswers(mission, 3)})
	require.NoError(t, err)
	require.Equal(t, 60, result.Percent)
	require.False(t, result.Passed)
	require.Zero(t, result.XPAwarded)

	progress, err := findProgress(db, user.ID, mission.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProgressInProgress, progress.Status)
}

func TestSubmitQuiz_CustomPassPercent(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db)
	strict := 90
	mission := seedQuiz(t, db, &strict)
	svc := NewQuizService(db)

	result, err := svc.SubmitQuiz(user.ID, mission.ID, QuizSubmitInput{Answers: quizAnswers(mission, 4)})
	require.NoError(t, err)
	require.Equal(t, 80, result.Percent)
	require.False(t, result.Passed, "80 percent misses a 90 percent threshold")
}
