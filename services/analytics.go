// services/analytics.go
package services

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
)

// AnalyticsService appends client-side events to the analytics stream.
type AnalyticsService struct {
	DB *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

// LogInput is one client event. Everything beyond the event name is
// optional context.
type LogInput struct {
	Event            string                 `json:"event" validate:"required,max=64"`
	SessionID        *string                `json:"session_id,omitempty"`
	MissionID        *string                `json:"mission_id,omitempty"`
	MissionType      *string                `json:"mission_type,omitempty"`
	XPAwarded        *int                   `json:"xp_awarded,omitempty"`
	TimeSpentSeconds *int                   `json:"time_spent_seconds,omitempty" validate:"omitempty,min=0"`
	AttemptsCount    *int                   `json:"attempts_count,omitempty" validate:"omitempty,min=0"`
	Payload          map[string]interface{} `json:"payload,omitempty"`
}

// Log writes the event row. Failures surface to the caller; the stream is
// append-only and never read back by this service.
func (s *AnalyticsService) Log(userID string, in LogInput) error {
	entry := models.AnalyticsLog{
		ID:               uuid.NewString(),
		Event:            in.Event,
		UserID:           userID,
		SessionID:        in.SessionID,
		MissionID:        in.MissionID,
		MissionType:      in.MissionType,
		XPAwarded:        in.XPAwarded,
		TimeSpentSeconds: in.TimeSpentSeconds,
		AttemptsCount:    in.AttemptsCount,
	}
	if in.Payload != nil {
		payload, err := json.Marshal(in.Payload)
		if err != nil {
			return err
		}
		entry.Payload = datatypes.JSON(payload)
	}
	return s.DB.Create(&entry).Error
}
