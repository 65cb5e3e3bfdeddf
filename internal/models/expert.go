package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ExpertStatus string

const (
	ExpertOnline  ExpertStatus = "online"
	ExpertOffline ExpertStatus = "offline"
	ExpertBusy    ExpertStatus = "busy"
)

// Expert is the read/update projection of the account store's experts table.
// Registration and profile CRUD live elsewhere.
type Expert struct {
	ID             string         `gorm:"column:id;type:text;primaryKey" json:"id"`
	Name           string         `gorm:"column:name;type:text" json:"name"`
	Skills         pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	AvailableSlots datatypes.JSON `gorm:"column:available_slots;type:jsonb" json:"availableSlots"`
	CurrentStatus  ExpertStatus   `gorm:"column:current_status;type:text" json:"currentStatus"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;type:timestamptz" json:"updatedAt"`
}

func (Expert) TableName() string { return "experts" }

// AvailabilitySlot is one bookable window as stored in available_slots.
type AvailabilitySlot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ExpertProfile is the public view of an online expert.
type ExpertProfile struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Skills         []string           `json:"skills"`
	AvailableSlots []AvailabilitySlot `json:"availableSlots"`
	Status         ExpertStatus       `json:"status"`
}

// Profile decodes the array and JSONB columns into an ExpertProfile.
func (e Expert) Profile() (ExpertProfile, error) {
	p := ExpertProfile{
		ID:             e.ID,
		Name:           e.Name,
		Skills:         []string(e.Skills),
		AvailableSlots: []AvailabilitySlot{},
		Status:         e.CurrentStatus,
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if len(e.AvailableSlots) > 0 && string(e.AvailableSlots) != "null" {
		if err := json.Unmarshal(e.AvailableSlots, &p.AvailableSlots); err != nil {
			return ExpertProfile{}, fmt.Errorf("decode available_slots for expert %s: %w", e.ID, err)
		}
	}
	return p, nil
}
