package models

import (
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Module is a static ordering container: module → ordered sprints →
// ordered missions. Read-only to the progression engine.
type Module struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string `gorm:"uniqueIndex;not null" json:"name"` // URL-safe route name
	Code       string `gorm:"uniqueIndex;not null" json:"code"` // e.g. PCEP, PCAP, BASICS
	Title      string `gorm:"not null" json:"title"`
	Category   string `gorm:"default:'CERTIFICATIONS'" json:"category"`
	IsBuilding bool   `gorm:"default:false" json:"is_building"`
	Order      int    `gorm:"column:sort_order;default:0" json:"order"`

	Sprints []Sprint `gorm:"foreignKey:ModuleID" json:"sprints,omitempty"`

	Timestamps
}

// BeforeCreate fills the route name from the title when the seed omits it.
func (m *Module) BeforeCreate(_ *gorm.DB) error {
	if m.Name == "" {
		m.Name = slug.Make(m.Title)
	}
	return nil
}

// Sprint is an ordered group of missions within a module.
type Sprint struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	ModuleID    string `gorm:"index;not null" json:"module_id"`
	Name        string `gorm:"not null" json:"name"` // URL-safe route name
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`
	Title       string `json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Missions []Mission `gorm:"foreignKey:SprintID" json:"missions,omitempty"`

	Timestamps
}

func (s *Sprint) BeforeCreate(_ *gorm.DB) error {
	if s.Name == "" {
		s.Name = slug.Make(s.Title)
	}
	return nil
}
