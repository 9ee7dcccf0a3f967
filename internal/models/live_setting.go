package models

import "github.com/google/uuid"

// LiveSetting is a singleton row holding the current livestream state.
// Reads create it lazily with isLive=false; admin updates upsert it.
type LiveSetting struct {
	BaseModel
	IsLive         bool       `json:"isLive" gorm:"not null;default:false"`
	LiveYoutubeURL string     `json:"liveYoutubeUrl" gorm:"type:text"`
	LiveTitle      string     `json:"liveTitle" gorm:"type:varchar(255)"`
	UpdatedByID    *uuid.UUID `json:"updatedBy,omitempty" gorm:"type:uuid"`
}

func (LiveSetting) TableName() string {
	return "live_settings"
}
