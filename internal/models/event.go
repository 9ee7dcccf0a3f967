package models

import (
	"time"

	"github.com/google/uuid"
)

// DailySummary is one day's program inside a multi-day event.
type DailySummary struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type Event struct {
	BaseModel
	Title          string         `json:"title" gorm:"type:varchar(255);not null"`
	Description    string         `json:"description" gorm:"type:text"`
	StartDate      time.Time      `json:"startDate" gorm:"not null;index"`
	EndDate        time.Time      `json:"endDate" gorm:"not null"`
	Location       string         `json:"location" gorm:"type:varchar(255)"`
	DailySummaries []DailySummary `json:"dailySummaries" gorm:"type:jsonb;serializer:json"`
	ImageURL       *string        `json:"imageUrl,omitempty" gorm:"type:text"`
	ImagePath      *string        `json:"-" gorm:"type:text"`
	CreatedByID    uuid.UUID      `json:"createdBy" gorm:"type:uuid;not null;index"`

	Creator User `json:"creator,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
}
