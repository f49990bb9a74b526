// services/quiz.go
package services

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

const defaultPassPercent = 80

// QuizService serves quiz content with per-attempt deterministic option
// shuffles and grades submissions server-side.
type QuizService struct {
	DB *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{DB: db}
}

// shuffleSeed folds the attempt-scoped key into a 32-bit seed. The same
// user, quiz, question and attempt token always produce the same seed, so
// a page reload within one attempt keeps the option order stable.
func shuffleSeed(userID, missionID, questionID, attempt string) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%s:%s:%s", userID, missionID, questionID, attempt)
	return h.Sum32()
}

// shuffledIndexes returns a Fisher-Yates permutation of [0, n) driven by a
// small LCG so the order is reproducible from the seed alone.
func shuffledIndexes(n int, seed uint32) []int {
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	state := seed
	for i := n - 1; i > 0; i-- {
		state = state*1664525 + 1013904223
		j := int(state % uint32(i+1))
		indexes[i], indexes[j] = indexes[j], indexes[i]
	}
	return indexes
}

// QuizOptionView is one answer choice; the correct flag never leaves the
// server.
type QuizOptionView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type QuizQuestionView struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Prompt  string           `json:"prompt"`
	Options []QuizOptionView `json:"options"`
}

type QuizView struct {
	Title            string                `json:"title"`
	Desc             string                `json:"desc"`
	Attempt          string                `json:"attempt"`
	PassPercent      int                   `json:"pass_percent"`
	TimeLimitSeconds int                   `json:"time_limit_seconds"`
	Questions        []QuizQuestionView    `json:"questions"`
	Status           models.ProgressStatus `json:"status"`
}

// GetQuiz returns the quiz with options shuffled for the attempt token and
// marks the mission opened. An empty token starts a fresh attempt.
func (s *QuizService) GetQuiz(userID, missionID, attempt string) (*QuizView, error) {
	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeQuiz},
		"Questions", "Questions.Options")
	if err != nil {
		return nil, err
	}
	if len(mission.Questions) == 0 {
		return nil, utils.ErrNotFound()
	}

	if attempt == "" {
		attempt = uuid.NewString()
	}
	sortQuestions(mission.Questions)

	var status models.ProgressStatus
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		row, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind: EventOpened,
			At:   time.Now(),
		})
		if err != nil {
			return err
		}
		status = row.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	questions := make([]QuizQuestionView, 0, len(mission.Questions))
	for _, question := range mission.Questions {
		// The permutation must start from a stable base order.
		sort.SliceStable(question.Options, func(i, j int) bool {
			return question.Options[i].Order < question.Options[j].Order
		})
		seed := shuffleSeed(userID, missionID, question.ID, attempt)
		order := shuffledIndexes(len(question.Options), seed)
		options := make([]QuizOptionView, 0, len(question.Options))
		for _, idx := range order {
			opt := question.Options[idx]
			options = append(options, QuizOptionView{ID: opt.ID, Label: opt.Label})
		}
		questions = append(questions, QuizQuestionView{
			ID:      question.ID,
			Title:   question.Title,
			Prompt:  question.Prompt,
			Options: options,
		})
	}

	return &QuizView{
		Title:       mission.Title,
		Desc:        mission.ShortDesc,
		Attempt:     attempt,
		PassPercent: quizPassPercent(mission),
		TimeLimitSeconds: func() int {
			if mission.TimeLimitSeconds != nil {
				return *mission.TimeLimitSeconds
			}
			return mission.EtaMinutes * 60
		}(),
		Questions: questions,
		Status:    status,
	}, nil
}

// sortQuestions restores stored order; only option order is ever shuffled.
func sortQuestions(questions []models.QuizQuestion) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})
}

func quizPassPercent(mission *models.Mission) int {
	if mission.PassPercent != nil {
		return *mission.PassPercent
	}
	return defaultPassPercent
}

// QuizSubmitInput is the validated grading request.
type QuizSubmitInput struct {
	Answers          map[string]string `json:"answers" validate:"required"`
	TimeSpentSeconds *int              `json:"time_spent_seconds,omitempty" validate:"omitempty,min=0"`
}

// QuizResultItem echoes the verdict per question so the client can render
// a review screen.
type QuizResultItem struct {
	QuestionID string  `json:"question_id"`
	SelectedID *string `json:"selected_id,omitempty"`
	CorrectID  string  `json:"correct_id"`
	IsCorrect  bool    `json:"is_correct"`
}

type QuizResult struct {
	Score       int              `json:"score"`
	Total       int              `json:"total"`
	Percent     int              `json:"percent"`
	PassPercent int              `json:"pass_percent"`
	Passed      bool             `json:"passed"`
	XPAwarded   int              `json:"xp_awarded"`
	Items       []QuizResultItem `json:"items"`
}

// SubmitQuiz grades the answers against the stored correct flags. Every
// call writes an attempt row; a pass grants the flat mission XP on the
// first completion only.
func (s *QuizService) SubmitQuiz(userID, missionID string, in QuizSubmitInput) (*QuizResult, error) {
	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeQuiz},
		"Questions", "Questions.Options")
	if err != nil {
		return nil, err
	}
	if len(mission.Questions) == 0 {
		return nil, utils.ErrNotFound()
	}

	sortQuestions(mission.Questions)
	total := len(mission.Questions)
	score := 0
	items := make([]QuizResultItem, 0, total)
	for _, question := range mission.Questions {
		correctID := ""
		for _, opt := range question.Options {
			if opt.IsCorrect {
				correctID = opt.ID
				break
			}
		}
		item := QuizResultItem{QuestionID: question.ID, CorrectID: correctID}
		if selected, ok := in.Answers[question.ID]; ok {
			item.SelectedID = &selected
			item.IsCorrect = selected == correctID
		}
		if item.IsCorrect {
			score++
		}
		items = append(items, item)
	}

	percent := int(math.Round(100 * float64(score) / float64(total)))
	passPercent := quizPassPercent(mission)
	passed := percent >= passPercent

	xpAwarded := 0
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		answers, _ := json.Marshal(in.Answers)
		attempt := models.QuizAttempt{
			ID:               uuid.NewString(),
			UserID:           userID,
			QuizID:           mission.ID,
			Answers:          datatypes.JSON(answers),
			Score:            score,
			Total:            total,
			Percent:          percent,
			Passed:           passed,
			TimeSpentSeconds: in.TimeSpentSeconds,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}

		_, becameDone, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind:             EventCompleted,
			At:               time.Now(),
			Passed:           passed,
			XPAwarded:        mission.XP,
			TimeSpentSeconds: in.TimeSpentSeconds,
		})
		if err != nil {
			return err
		}
		if becameDone {
			xpAwarded = mission.XP
			log.Printf("🧠 Quiz passed: user=%s mission=%s score=%d/%d", userID, missionID, score, total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &QuizResult{
		Score:       score,
		Total:       total,
		Percent:     percent,
		PassPercent: passPercent,
		Passed:      passed,
		XPAwarded:   xpAwarded,
		Items:       items,
	}, nil
}
