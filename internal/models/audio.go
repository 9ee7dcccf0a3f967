package models

import "github.com/google/uuid"

type AudioCategory string

const (
	AudioCategoryEmission AudioCategory = "emission"
	AudioCategoryPodcast  AudioCategory = "podcast"
	AudioCategoryTeaching AudioCategory = "teaching"
)

func ValidAudioCategory(value string) bool {
	switch AudioCategory(value) {
	case AudioCategoryEmission, AudioCategoryPodcast, AudioCategoryTeaching:
		return true
	default:
		return false
	}
}

type Audio struct {
	BaseModel
	Title         string        `json:"title" gorm:"type:varchar(255);not null"`
	Description   string        `json:"description" gorm:"type:text"`
	Category      AudioCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	AudioURL      string        `json:"audioUrl" gorm:"type:text;not null"`
	AudioPath     string        `json:"-" gorm:"type:text;not null"`
	ThumbnailURL  *string       `json:"thumbnailUrl,omitempty" gorm:"type:text"`
	ThumbnailPath *string       `json:"-" gorm:"type:text"`
	Plays         int64         `json:"plays" gorm:"not null;default:0"`
	Downloads     int64         `json:"downloads" gorm:"not null;default:0"`
	UploadedByID  uuid.UUID     `json:"uploadedBy" gorm:"type:uuid;not null;index"`

	Uploader User `json:"uploader,omitempty" gorm:"foreignKey:UploadedByID;references:ID"`
}
