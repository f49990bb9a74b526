// services/users.go
package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// UserService serves learner stats and the monthly ranking.
type UserService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db, Now: time.Now}
}

func leagueName(rank int) string {
	switch {
	case rank <= 3:
		return "Champions"
	case rank <= 10:
		return "Gold"
	case rank <= 50:
		return "Silver"
	default:
		return "Bronze"
	}
}

// gradeLabel turns the numeric average into the display grade.
func gradeLabel(avg float64) string {
	switch {
	case avg >= 4.75:
		return "A"
	case avg >= 4.25:
		return "A-"
	case avg >= 4.0:
		return "B+"
	case avg >= 3.5:
		return "B"
	case avg >= 3.0:
		return "C+"
	case avg >= 2.5:
		return "C"
	case avg >= 2.0:
		return "D"
	default:
		return "E"
	}
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// calendarDaysBetween counts whole local calendar days from a to b.
func calendarDaysBetween(a, b time.Time) int {
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, b.Location())
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, b.Location())
	return int(bDay.Sub(aDay).Hours() / 24)
}

// rollStreak advances the streak on read: a visit on the next calendar day
// extends it, a longer gap restarts at 1, a same-day visit changes nothing.
func (s *UserService) rollStreak(user *models.User) error {
	now := s.Now()
	if user.StreakUpdatedAt == nil {
		user.StreakCurrent = 1
		user.StreakUpdatedAt = &now
	} else {
		switch gap := calendarDaysBetween(user.StreakUpdatedAt.In(now.Location()), now); {
		case gap == 0:
			return nil
		case gap == 1:
			user.StreakCurrent++
			user.StreakUpdatedAt = &now
		default:
			user.StreakCurrent = 1
			user.StreakUpdatedAt = &now
		}
	}
	if user.StreakCurrent > user.StreakBest {
		user.StreakBest = user.StreakCurrent
	}

	return s.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"streak_current":    user.StreakCurrent,
		"streak_best":       user.StreakBest,
		"streak_updated_at": user.StreakUpdatedAt,
	}).Error
}

// StatsView is the profile stats payload.
type StatsView struct {
	NickName      string   `json:"nick_name"`
	Image         string   `json:"image"`
	XPTotal       int      `json:"xp_total"`
	XPMonth       int      `json:"xp_month"`
	XPToday       int      `json:"xp_today"`
	StreakCurrent int      `json:"streak_current"`
	StreakBest    int      `json:"streak_best"`
	Rank          int      `json:"rank"`
	League        string   `json:"league"`
	GradeAvg      *float64 `json:"grade_avg,omitempty"`
	GradeLabel    *string  `json:"grade_label,omitempty"`
	MissionsDone  int64    `json:"missions_done"`
}

// Stats rolls the streak forward and returns the caller's standing.
func (s *UserService) Stats(userID string) (*StatsView, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound()
		}
		return nil, err
	}

	if err := s.rollStreak(&user); err != nil {
		log.Printf("⚠️ Streak update failed: user=%s err=%v", userID, err)
	}

	var ahead int64
	err := s.DB.Model(&models.User{}).Where("xp_month > ?", user.XPMonth).Count(&ahead).Error
	if err != nil {
		return nil, err
	}
	rank := int(ahead) + 1

	var missionsDone int64
	err = s.DB.Model(&models.UserMissionProgress{}).
		Where("user_id = ? AND status = ?", userID, models.ProgressDone).
		Count(&missionsDone).Error
	if err != nil {
		return nil, err
	}

	view := &StatsView{
		NickName:      strOrEmpty(user.NickName),
		Image:         strOrEmpty(user.Image),
		XPTotal:       user.XPTotal,
		XPMonth:       user.XPMonth,
		XPToday:       user.XPToday,
		StreakCurrent: user.StreakCurrent,
		StreakBest:    user.StreakBest,
		Rank:          rank,
		League:        leagueName(rank),
		GradeAvg:      user.GradeAvg,
	}
	if user.GradeAvg != nil {
		label := gradeLabel(*user.GradeAvg)
		view.GradeLabel = &label
	}
	view.MissionsDone = missionsDone
	return view, nil
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	Rank       int     `json:"rank"`
	NickName   string  `json:"nick_name"`
	Image      string  `json:"image"`
	XPMonth    int     `json:"xp_month"`
	League     string  `json:"league"`
	GradeLabel *string `json:"grade_label,omitempty"`
	IsMe       bool    `json:"is_me"`
}

// RankingView splits the podium from the rest of the board.
type RankingView struct {
	Champions []RankingEntry `json:"champions"`
	Entries   []RankingEntry `json:"entries"`
	MyRank    int            `json:"my_rank"`
}

// Ranking returns the monthly leaderboard ordered by monthly XP; ties
// break on nickname for a stable board.
func (s *UserService) Ranking(userID string, limit int) (*RankingView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	err := s.DB.Order("xp_month DESC, nick_name ASC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, err
	}

	view := &RankingView{Champions: []RankingEntry{}, Entries: []RankingEntry{}}
	for i, user := range users {
		rank := i + 1
		entry := RankingEntry{
			Rank:     rank,
			NickName: strOrEmpty(user.NickName),
			Image:    strOrEmpty(user.Image),
			XPMonth:  user.XPMonth,
			League:   leagueName(rank),
			IsMe:     user.ID == userID,
		}
		if user.GradeAvg != nil {
			label := gradeLabel(*user.GradeAvg)
			entry.GradeLabel = &label
		}
		if entry.IsMe {
			view.MyRank = rank
		}
		if rank <= 3 {
			view.Champions = append(view.Champions, entry)
		} else {
			view.Entries = append(view.Entries, entry)
		}
	}

	if view.MyRank == 0 {
		var me models.User
		if err := s.DB.Where("id = ?", userID).First(&me).Error; err == nil {
			var ahead int64
			if err := s.DB.Model(&models.User{}).Where("xp_month > ?", me.XPMonth).Count(&ahead).Error; err == nil {
				view.MyRank = int(ahead) + 1
			}
		}
	}
	return view, nil
}
