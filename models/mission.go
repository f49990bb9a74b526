package models

import (
	"gorm.io/datatypes"
)

// MissionType tags the mission variant. The tag decides which payload row
// applies and which completion rule the engine runs.
type MissionType string

const (
	MissionTypeTask    MissionType = "TASK"
	MissionTypeBugfix  MissionType = "BUGFIX"
	MissionTypeQuiz    MissionType = "QUIZ"
	MissionTypeArticle MissionType = "ARTICLE"
)

// IsExecutable reports whether the mission is graded by the code sandbox.
func (t MissionType) IsExecutable() bool {
	return t == MissionTypeTask || t == MissionTypeBugfix
}

// Mission is one learning unit. Read-only to this service.
type Mission struct {
	ID        string      `gorm:"primaryKey;type:uuid" json:"id"`
	ModuleID  string      `gorm:"index;not null" json:"module_id"`
	SprintID  *string     `gorm:"index" json:"sprint_id,omitempty"`
	Type      MissionType `gorm:"not null;index" json:"type"`
	Title     string      `gorm:"not null" json:"title"`
	ShortDesc string      `json:"short_desc"`

	Description  string         `gorm:"type:text" json:"description"`
	Difficulty   string         `gorm:"default:'BEGINNER'" json:"difficulty"`
	XP           int            `gorm:"column:xp;not null" json:"xp"`
	EtaMinutes   int            `gorm:"not null" json:"eta_minutes"`
	Requirements datatypes.JSON `json:"requirements,omitempty"` // []string
	Hints        datatypes.JSON `json:"hints,omitempty"`        // []string

	// Quiz-only knobs; nil means the defaults (80%, eta*60s) apply.
	PassPercent      *int `json:"pass_percent,omitempty"`
	TimeLimitSeconds *int `json:"time_limit_seconds,omitempty"`

	Order int `gorm:"column:sort_order;default:0" json:"order"`

	Task      *TaskDetail    `gorm:"foreignKey:MissionID" json:"task,omitempty"`
	Questions []QuizQuestion `gorm:"foreignKey:MissionID" json:"questions,omitempty"`
	Article   *ArticleDetail `gorm:"foreignKey:MissionID" json:"article,omitempty"`

	Progress []UserMissionProgress `gorm:"foreignKey:MissionID" json:"progress,omitempty"`

	Timestamps
}

// TaskDetail carries the coding payload for TASK/BUGFIX missions.
type TaskDetail struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID   string `gorm:"uniqueIndex;not null" json:"mission_id"`
	Language    string `gorm:"default:'python'" json:"language"`
	StarterCode string `gorm:"type:text" json:"starter_code"`

	Tests []TaskTestCase `gorm:"foreignKey:TaskID" json:"tests,omitempty"`
}

// TaskTestCase is one sandbox test case. Only public cases are shown to the
// learner; the sandbox runs all of them.
type TaskTestCase struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	TaskID         string `gorm:"index;not null" json:"task_id"`
	Input          string `gorm:"type:text" json:"input"`
	ExpectedOutput string `gorm:"type:text" json:"expected_output"`
	IsPublic       bool   `gorm:"default:false;index" json:"is_public"`
	Order          int    `gorm:"column:sort_order;default:0" json:"order"`
}

// QuizQuestion belongs to a QUIZ mission. Options carry exactly one
// correct flag per question.
type QuizQuestion struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID string `gorm:"index;not null" json:"mission_id"`
	Title     string `json:"title"`
	Prompt    string `gorm:"type:text" json:"prompt"`
	Order     int    `gorm:"column:sort_order;default:0" json:"order"`

	Options []QuizOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

type QuizOption struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	QuestionID string `gorm:"index;not null" json:"question_id"`
	Label      string `gorm:"not null" json:"label"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
	Order      int    `gorm:"column:sort_order;default:0" json:"order"`
}

// ArticleDetail carries reading content for ARTICLE missions.
type ArticleDetail struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID string         `gorm:"uniqueIndex;not null" json:"mission_id"`
	Tags      datatypes.JSON `json:"tags,omitempty"`   // []string
	Blocks    datatypes.JSON `json:"blocks,omitempty"` // rendered client-side
	Summary   string         `gorm:"type:text" json:"summary"`
}
