// services/missions.go
package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// MissionService serves mission content: the catalog, task fetch/save and
// article read/complete paths. All progress writes go through the ledger.
type MissionService struct {
	DB *gorm.DB
}

func NewMissionService(db *gorm.DB) *MissionService {
	return &MissionService{DB: db}
}

// findMission loads one visible mission of the given types. Missions inside
// modules still under construction are hidden from learners.
func findMission(db *gorm.DB, missionID string, types []models.MissionType, preloads ...string) (*models.Mission, error) {
	query := db.
		Joins("JOIN modules ON modules.id = missions.module_id AND modules.is_building = ? AND modules.deleted_at IS NULL", false).
		Where("missions.id = ? AND missions.type IN ?", missionID, types)
	for _, preload := range preloads {
		query = query.Preload(preload)
	}

	var mission models.Mission
	if err := query.First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound()
		}
		return nil, err
	}
	return &mission, nil
}

// findProgress returns the caller's progress row, nil when never touched.
func findProgress(db *gorm.DB, userID, missionID string) (*models.UserMissionProgress, error) {
	var progress models.UserMissionProgress
	err := db.Where("user_id = ? AND mission_id = ?", userID, missionID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// CatalogItem is one row of the mission catalog with the caller's status.
type CatalogItem struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	ShortDesc   string             `json:"short_desc"`
	ModuleID    string             `json:"module_id"`
	ModuleCode  string             `json:"module_code"`
	ModuleTitle string             `json:"module_title"`
	SprintID    *string            `json:"sprint_id,omitempty"`
	Difficulty  string             `json:"difficulty"`
	Type        models.MissionType `json:"type"`
	Status      string             `json:"status"`
	EtaMinutes  int                `json:"eta_minutes"`
	XP          int                `json:"xp"`
}

// ListCatalog returns all visible missions with the caller's progress state
// merged in, in module → sprint → mission order.
func (s *MissionService) ListCatalog(userID string) ([]CatalogItem, error) {
	var missions []models.Mission
	err := s.DB.
		Joins("JOIN modules ON modules.id = missions.module_id AND modules.is_building = ? AND modules.deleted_at IS NULL", false).
		Joins("LEFT JOIN sprints ON sprints.id = missions.sprint_id").
		Order("modules.code ASC, sprints.sort_order ASC, missions.sort_order ASC, missions.created_at ASC").
		Preload("Progress", "user_id = ?", userID).
		Find(&missions).Error
	if err != nil {
		return nil, err
	}

	moduleMeta := map[string]models.Module{}
	var modules []models.Module
	if err := s.DB.Find(&modules).Error; err != nil {
		return nil, err
	}
	for _, m := range modules {
		moduleMeta[m.ID] = m
	}

	items := make([]CatalogItem, 0, len(missions))
	for _, mission := range missions {
		status := statusLabel(progressStatusOf(mission.Progress))
		meta := moduleMeta[mission.ModuleID]
		items = append(items, CatalogItem{
			ID:          mission.ID,
			Title:       mission.Title,
			ShortDesc:   mission.ShortDesc,
			ModuleID:    mission.ModuleID,
			ModuleCode:  meta.Code,
			ModuleTitle: meta.Title,
			SprintID:    mission.SprintID,
			Difficulty:  mission.Difficulty,
			Type:        mission.Type,
			Status:      status,
			EtaMinutes:  mission.EtaMinutes,
			XP:          mission.XP,
		})
	}
	return items, nil
}

func progressStatusOf(rows []models.UserMissionProgress) models.ProgressStatus {
	if len(rows) == 0 {
		return models.ProgressTodo
	}
	return rows[0].Status
}

func statusLabel(status models.ProgressStatus) string {
	switch status {
	case models.ProgressDone:
		return "done"
	case models.ProgressInProgress:
		return "inProgress"
	default:
		return "todo"
	}
}

// TaskView is the task content payload for the editor page.
type TaskView struct {
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Requirements     interface{}           `json:"requirements,omitempty"`
	Hints            interface{}           `json:"hints,omitempty"`
	Language         string                `json:"language"`
	StarterCode      string                `json:"pattern_code"`
	UserCode         *string               `json:"user_code"`
	PublicTests      []models.TaskTestCase `json:"public_tests"`
	TotalTestsCount  int                   `json:"total_tests_count"`
	TimeLimitSeconds int                   `json:"time_limit_seconds"`
	Status           models.ProgressStatus `json:"status"`
}

// GetTask returns task content plus the caller's saved code. Opening a
// task counts as activity: the first view creates an IN_PROGRESS row,
// later views bump lastOpenedAt.
func (s *MissionService) GetTask(userID, missionID string) (*TaskView, error) {
	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeTask, models.MissionTypeBugfix},
		"Task", "Task.Tests")
	if err != nil {
		return nil, err
	}
	if mission.Task == nil {
		return nil, utils.ErrNotFound()
	}

	var progress *models.UserMissionProgress
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		row, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind: EventOpened,
			At:   time.Now(),
		})
		if err != nil {
			return err
		}
		progress = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	publicTests := make([]models.TaskTestCase, 0, len(mission.Task.Tests))
	for _, test := range mission.Task.Tests {
		if test.IsPublic {
			publicTests = append(publicTests, test)
		}
	}

	view := &TaskView{
		Title:           mission.Title,
		Description:     mission.Description,
		Requirements:    mission.Requirements,
		Hints:           mission.Hints,
		Language:        mission.Task.Language,
		StarterCode:     mission.Task.StarterCode,
		PublicTests:     publicTests,
		TotalTestsCount: len(mission.Task.Tests),
		TimeLimitSeconds: func() int {
			if mission.TimeLimitSeconds != nil {
				return *mission.TimeLimitSeconds
			}
			return mission.EtaMinutes * 60
		}(),
		Status: progress.Status,
	}
	view.UserCode = progress.UserCode
	return view, nil
}

// SaveTaskCode persists the learner's editor buffer as an opened event: the
// row is created IN_PROGRESS on first touch, DONE rows keep their
// completion fields and only update the soft ones.
func (s *MissionService) SaveTaskCode(userID, missionID, userCode string) error {
	_, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeTask, models.MissionTypeBugfix})
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		_, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind:     EventOpened,
			At:       time.Now(),
			UserCode: &userCode,
		})
		return err
	})
}

// ArticleView is the article payload plus the caller's status.
type ArticleView struct {
	Title           string                `json:"title"`
	Desc            string                `json:"desc"`
	ReadTimeMinutes int                   `json:"read_time_minutes"`
	Tags            interface{}           `json:"tags,omitempty"`
	Blocks          interface{}           `json:"blocks,omitempty"`
	Summary         string                `json:"summary"`
	Status          models.ProgressStatus `json:"status"`
}

// GetArticle returns article content and, like the task fetch, marks the
// mission opened.
func (s *MissionService) GetArticle(userID, missionID string) (*ArticleView, error) {
	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeArticle}, "Article")
	if err != nil {
		return nil, err
	}
	if mission.Article == nil {
		return nil, utils.ErrNotFound()
	}

	var progress *models.UserMissionProgress
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		row, _, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind: EventOpened,
			At:   time.Now(),
		})
		if err != nil {
			return err
		}
		progress = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := &ArticleView{
		Title:           mission.Title,
		Desc:            mission.ShortDesc,
		ReadTimeMinutes: mission.EtaMinutes,
		Tags:            mission.Article.Tags,
		Blocks:          mission.Article.Blocks,
		Summary:         mission.Article.Summary,
		Status:          progress.Status,
	}
	return view, nil
}

// CompleteArticle marks an article read. Articles carry no multipliers:
// the flat mission XP is granted on the first completion only.
func (s *MissionService) CompleteArticle(userID, missionID string, timeSpentSeconds *int, sessionID *string) error {
	mission, err := findMission(s.DB, missionID,
		[]models.MissionType{models.MissionTypeArticle})
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		_, becameDone, err := ApplyProgressEvent(tx, userID, missionID, ProgressEvent{
			Kind:             EventCompleted,
			At:               time.Now(),
			Passed:           true,
			XPAwarded:        mission.XP,
			TimeSpentSeconds: timeSpentSeconds,
		})
		if err != nil {
			return err
		}
		if !becameDone {
			return nil
		}

		missionType := string(mission.Type)
		xp := mission.XP
		entry := models.AnalyticsLog{
			ID:               uuid.NewString(),
			Event:            "mission_completed",
			UserID:           userID,
			SessionID:        sessionID,
			MissionID:        &mission.ID,
			MissionType:      &missionType,
			XPAwarded:        &xp,
			TimeSpentSeconds: timeSpentSeconds,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		log.Printf("📖 Article completed: user=%s mission=%s", userID, missionID)
		return nil
	})
}
