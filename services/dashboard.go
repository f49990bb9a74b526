// services/dashboard.go
package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

const planBonusXP = 120

// DashboardService assembles the learner's home view and settles the daily
// plan bonus.
type DashboardService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{DB: db, Now: time.Now}
}

// anchor is where the learner last was: the module and sprint of the most
// recently touched mission, plus the selector hints.
type anchor struct {
	ModuleID        string
	StartSprintID   string
	BaseMissionID   string
	PreferMissionID string
}

// findAnchor derives the anchor from progress history. With no history the
// first visible module is the starting point and the hints stay empty.
func (s *DashboardService) findAnchor(userID string) (*anchor, error) {
	type touched struct {
		MissionID string
		ModuleID  string
		SprintID  *string
		Status    models.ProgressStatus
	}

	var last touched
	err := s.DB.Model(&models.UserMissionProgress{}).
		Select("user_mission_progresses.mission_id, missions.module_id, missions.sprint_id, user_mission_progresses.status").
		Joins("JOIN missions ON missions.id = user_mission_progresses.mission_id").
		Where("user_mission_progresses.user_id = ?", userID).
		Order("user_mission_progresses.updated_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var module models.Module
		err := s.DB.Where("is_building = ?", false).Order("code ASC").First(&module).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound()
		}
		if err != nil {
			return nil, err
		}
		return &anchor{ModuleID: module.ID}, nil
	}
	if err != nil {
		return nil, err
	}

	a := &anchor{ModuleID: last.ModuleID}
	if last.SprintID != nil {
		a.StartSprintID = *last.SprintID
	}
	switch last.Status {
	case models.ProgressInProgress:
		a.PreferMissionID = last.MissionID
	case models.ProgressDone:
		a.BaseMissionID = last.MissionID
	}
	return a, nil
}

// loadSprintRefs materializes the module's sprints with the caller's
// progress merged in, in selector order.
func (s *DashboardService) loadSprintRefs(userID, moduleID string) ([]SprintRef, error) {
	var sprints []models.Sprint
	err := s.DB.Where("module_id = ?", moduleID).
		Order("sort_order ASC").
		Preload("Missions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Missions.Progress", "user_id = ?", userID).
		Find(&sprints).Error
	if err != nil {
		return nil, err
	}

	refs := make([]SprintRef, 0, len(sprints))
	for _, sprint := range sprints {
		ref := SprintRef{
			ID:          sprint.ID,
			Name:        sprint.Name,
			Order:       sprint.Order,
			Title:       sprint.Title,
			Description: sprint.Description,
		}
		for _, mission := range sprint.Missions {
			ref.Missions = append(ref.Missions, MissionRef{
				ID:         mission.ID,
				Type:       mission.Type,
				Title:      mission.Title,
				ShortDesc:  mission.ShortDesc,
				EtaMinutes: mission.EtaMinutes,
				Status:     progressStatusOf(mission.Progress),
			})
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// NextMissionView is the "continue where you left off" card.
type NextMissionView struct {
	MissionID  string             `json:"mission_id"`
	Type       models.MissionType `json:"type"`
	Title      string             `json:"title"`
	ShortDesc  string             `json:"short_desc"`
	EtaMinutes int                `json:"eta_minutes"`
	SprintID   string             `json:"sprint_id"`
	SprintName string             `json:"sprint_name"`
}

// SprintProgressView tallies the active sprint per mission category.
type SprintProgressView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	TasksDone     int    `json:"tasks_done"`
	TasksTotal    int    `json:"tasks_total"`
	ArticlesDone  int    `json:"articles_done"`
	ArticlesTotal int    `json:"articles_total"`
	QuizzesDone   int    `json:"quizzes_done"`
	QuizzesTotal  int    `json:"quizzes_total"`
	PlanComplete  bool   `json:"plan_complete"`
}

type DashboardView struct {
	XPToday          int                 `json:"xp_today"`
	XPYesterday      int                 `json:"xp_yesterday"`
	StreakCurrent    int                 `json:"streak_current"`
	LastGrade        *string             `json:"last_grade,omitempty"`
	SpeedPercent     int                 `json:"speed_percent"`
	PlanBonusClaimed bool                `json:"plan_bonus_claimed"`
	ActiveSprint     *SprintProgressView `json:"active_sprint,omitempty"`
	NextMission      *NextMissionView    `json:"next_mission,omitempty"`
}

// Summary builds the dashboard payload for the caller.
func (s *DashboardService) Summary(userID string) (*DashboardView, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound()
		}
		return nil, err
	}

	now := s.Now()
	view := &DashboardView{
		XPToday:          user.XPToday,
		StreakCurrent:    user.StreakCurrent,
		PlanBonusClaimed: claimedToday(user.PlanBonusClaimedAt, now),
	}

	yesterdayXP, err := s.xpForDay(userID, now.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	view.XPYesterday = yesterdayXP

	var lastGraded models.UserMissionProgress
	err = s.DB.Where("user_id = ? AND grade IS NOT NULL", userID).
		Order("updated_at DESC").First(&lastGraded).Error
	if err == nil {
		view.LastGrade = lastGraded.Grade
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	speed, err := s.speedPercent(userID)
	if err != nil {
		return nil, err
	}
	view.SpeedPercent = speed

	a, err := s.findAnchor(userID)
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) && appErr.Status == 404 {
			return view, nil
		}
		return nil, err
	}
	sprints, err := s.loadSprintRefs(userID, a.ModuleID)
	if err != nil {
		return nil, err
	}

	next := PickNextMission(sprints, a.StartSprintID, a.BaseMissionID, a.PreferMissionID)
	active := activeSprintOf(sprints, a.StartSprintID, next)
	if active != nil {
		view.ActiveSprint = sprintProgressView(*active)
	}
	if next != nil {
		view.NextMission = &NextMissionView{
			MissionID:  next.Mission.ID,
			Type:       next.Mission.Type,
			Title:      next.Mission.Title,
			ShortDesc:  next.Mission.ShortDesc,
			EtaMinutes: next.Mission.EtaMinutes,
			SprintID:   next.Sprint.ID,
			SprintName: next.Sprint.Name,
		}
	}
	return view, nil
}

// activeSprintOf prefers the selector's sprint, falls back to the anchor
// sprint, then the last sprint when everything is DONE.
func activeSprintOf(sprints []SprintRef, startSprintID string, next *NextMission) *SprintRef {
	if next != nil {
		return next.Sprint
	}
	for i := range sprints {
		if sprints[i].ID == startSprintID {
			return &sprints[i]
		}
	}
	if len(sprints) > 0 {
		return &sprints[len(sprints)-1]
	}
	return nil
}

func sprintProgressView(sprint SprintRef) *SprintProgressView {
	view := &SprintProgressView{
		ID:           sprint.ID,
		Title:        sprint.Title,
		Description:  sprint.Description,
		PlanComplete: IsPlanComplete(sprint),
	}
	for _, m := range sprint.Missions {
		switch m.Type {
		case models.MissionTypeTask, models.MissionTypeBugfix:
			view.TasksTotal++
			if m.Status == models.ProgressDone {
				view.TasksDone++
			}
		case models.MissionTypeArticle:
			view.ArticlesTotal++
			if m.Status == models.ProgressDone {
				view.ArticlesDone++
			}
		case models.MissionTypeQuiz:
			view.QuizzesTotal++
			if m.Status == models.ProgressDone {
				view.QuizzesDone++
			}
		}
	}
	return view
}

// xpForDay sums ledger awards completed on one local calendar day. The live
// counter only covers today, so yesterday comes from the progress rows.
func (s *DashboardService) xpForDay(userID string, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var total int64
	err := s.DB.Model(&models.UserMissionProgress{}).
		Where("user_id = ? AND completed_at >= ? AND completed_at < ? AND xp_earned IS NOT NULL", userID, start, end).
		Select("COALESCE(SUM(xp_earned), 0)").
		Scan(&total).Error
	return int(total), err
}

// speedPercent buckets the learner's recent pace against mission ETAs:
// finishing in half the estimate or less reads 120, within the estimate
// 100, up to one and a half times 80, slower 50. No timed completions yet
// reads a neutral 100.
func (s *DashboardService) speedPercent(userID string) (int, error) {
	type timing struct {
		TimeSpentSeconds int
		EtaMinutes       int
	}
	var rows []timing
	err := s.DB.Model(&models.UserMissionProgress{}).
		Select("user_mission_progresses.time_spent_seconds, missions.eta_minutes").
		Joins("JOIN missions ON missions.id = user_mission_progresses.mission_id").
		Where("user_mission_progresses.user_id = ? AND user_mission_progresses.status = ? AND user_mission_progresses.time_spent_seconds IS NOT NULL AND missions.eta_minutes > 0",
			userID, models.ProgressDone).
		Order("user_mission_progresses.completed_at DESC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 100, nil
	}

	ratioSum := 0.0
	for _, row := range rows {
		ratioSum += float64(row.TimeSpentSeconds) / float64(row.EtaMinutes*60)
	}
	switch ratio := ratioSum / float64(len(rows)); {
	case ratio <= 0.5:
		return 120, nil
	case ratio <= 1.0:
		return 100, nil
	case ratio <= 1.5:
		return 80, nil
	default:
		return 50, nil
	}
}

func claimedToday(claimedAt *time.Time, now time.Time) bool {
	if claimedAt == nil {
		return false
	}
	y1, m1, d1 := claimedAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// PlanClaimResult is the claim response: the bonus plus where to go next.
type PlanClaimResult struct {
	XPAwarded   int              `json:"xp_awarded"`
	NextMission *NextMissionView `json:"next_mission,omitempty"`
}

// ClaimPlanBonus grants the fixed daily bonus once the active sprint's plan
// is complete. Repeat claims on the same local day conflict; an incomplete
// plan is a bad request.
func (s *DashboardService) ClaimPlanBonus(userID string) (*PlanClaimResult, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound()
		}
		return nil, err
	}

	now := s.Now()
	if claimedToday(user.PlanBonusClaimedAt, now) {
		return nil, utils.ErrConflict("Plan bonus already claimed today")
	}

	a, err := s.findAnchor(userID)
	if err != nil {
		return nil, err
	}
	sprints, err := s.loadSprintRefs(userID, a.ModuleID)
	if err != nil {
		return nil, err
	}

	// The claim is anchored to the sprint the selector lands on. An
	// exhausted selector means there is nothing left to plan, so there is
	// no sprint to claim against.
	next := PickNextMission(sprints, a.StartSprintID, a.BaseMissionID, a.PreferMissionID)
	if next == nil {
		return nil, utils.ErrBadRequest("No sprint")
	}
	if !IsPlanComplete(*next.Sprint) {
		return nil, utils.ErrBadRequest("Daily plan not complete")
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := AwardXPCounters(tx, userID, planBonusXP); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("plan_bonus_claimed_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🏅 Plan bonus claimed: user=%s xp=%d", userID, planBonusXP)

	result := &PlanClaimResult{XPAwarded: planBonusXP}
	if next != nil {
		result.NextMission = &NextMissionView{
			MissionID:  next.Mission.ID,
			Type:       next.Mission.Type,
			Title:      next.Mission.Title,
			ShortDesc:  next.Mission.ShortDesc,
			EtaMinutes: next.Mission.EtaMinutes,
			SprintID:   next.Sprint.ID,
			SprintName: next.Sprint.Name,
		}
	}
	return result, nil
}
