package services

import (
	"github.com/PatGaj/SnakeCoder-sub000/models"
)

// MissionRef is the read-only view of one mission as seen by the selector
// and the plan gate: static ordering data plus the caller's progress state.
type MissionRef struct {
	ID         string
	Type       models.MissionType
	Title      string
	ShortDesc  string
	EtaMinutes int
	Status     models.ProgressStatus
}

func (m MissionRef) done() bool       { return m.Status == models.ProgressDone }
func (m MissionRef) inProgress() bool { return m.Status == models.ProgressInProgress }

// SprintRef is one sprint with its missions in sprint order.
type SprintRef struct {
	ID          string
	Name        string
	Order       int
	Title       string
	Description string
	Missions    []MissionRef
}

// NextMission is the selector's result: the sprint/mission pair the learner
// should see next.
type NextMission struct {
	Sprint  *SprintRef
	Mission *MissionRef
}

// PickNextMission scans sprints in order starting at startSprintID (or the
// first sprint when empty) and returns the next actionable mission.
//
// Within the first scanned sprint only, the anchor hints apply:
// preferMissionID (the learner's IN_PROGRESS mission) wins outright, then
// baseMissionID (the anchor when itself DONE) selects the first pending
// mission strictly after it, then the sprint's first pending mission. Every
// later sprint just yields its first pending mission. Sprints without
// missions are skipped. Returns nil when everything remaining is DONE.
func PickNextMission(sprints []SprintRef, startSprintID, baseMissionID, preferMissionID string) *NextMission {
	firstIndex := 0
	if startSprintID != "" {
		for i := range sprints {
			if sprints[i].ID == startSprintID {
				firstIndex = i
				break
			}
		}
	}

	for i := firstIndex; i < len(sprints); i++ {
		sprint := &sprints[i]
		if len(sprint.Missions) == 0 {
			continue
		}

		if i == firstIndex && startSprintID != "" {
			if preferMissionID != "" {
				for j := range sprint.Missions {
					m := &sprint.Missions[j]
					if m.ID == preferMissionID && m.inProgress() {
						return &NextMission{Sprint: sprint, Mission: m}
					}
				}
			}

			if baseMissionID != "" {
				baseIndex := -1
				for j := range sprint.Missions {
					if sprint.Missions[j].ID == baseMissionID {
						baseIndex = j
						break
					}
				}
				if baseIndex >= 0 {
					for j := baseIndex + 1; j < len(sprint.Missions); j++ {
						if !sprint.Missions[j].done() {
							return &NextMission{Sprint: sprint, Mission: &sprint.Missions[j]}
						}
					}
				}
			}
		}

		for j := range sprint.Missions {
			if !sprint.Missions[j].done() {
				return &NextMission{Sprint: sprint, Mission: &sprint.Missions[j]}
			}
		}
	}

	return nil
}

// IsPlanComplete reports whether one sprint satisfies the daily plan.
//
// A category only constrains the result while it still has pending items:
// pending tasks need at least one DONE task, pending articles at least one
// DONE article, and pending quizzes a computed percent (any DONE quiz
// counts as 100%, otherwise 0%) of at least 80. A fully DONE sprint is
// therefore always complete. The quiz percent deliberately ignores each
// quiz's own pass threshold; see the selection tests.
func IsPlanComplete(sprint SprintRef) bool {
	var tasksTotal, tasksDone int
	var articleTotal, articleDone int
	var quizTotal, quizDone int

	for _, m := range sprint.Missions {
		switch m.Type {
		case models.MissionTypeTask, models.MissionTypeBugfix:
			tasksTotal++
			if m.done() {
				tasksDone++
			}
		case models.MissionTypeArticle:
			articleTotal++
			if m.done() {
				articleDone++
			}
		case models.MissionTypeQuiz:
			quizTotal++
			if m.done() {
				quizDone++
			}
		}
	}

	showTasks := tasksTotal-tasksDone > 0
	showArticle := articleTotal-articleDone > 0
	showQuiz := quizTotal-quizDone > 0

	tasksOk := !showTasks || tasksDone > 0
	articleOk := !showArticle || articleDone > 0

	quizPercent := 0
	if showQuiz && quizDone > 0 {
		quizPercent = 100
	}
	quizOk := !showQuiz || quizPercent >= 80

	return tasksOk && articleOk && quizOk
}
