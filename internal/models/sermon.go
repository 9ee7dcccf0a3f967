package models

import (
	"time"

	"github.com/google/uuid"
)

type Sermon struct {
	BaseModel
	Title        string    `json:"title" gorm:"type:varchar(255);not null"`
	Date         time.Time `json:"date" gorm:"not null;index"`
	ImageURL     string    `json:"imageUrl" gorm:"type:text;not null"`
	ImagePath    string    `json:"-" gorm:"type:text;not null"`
	PDFURL       string    `json:"pdfUrl" gorm:"type:text;not null"`
	PDFPath      string    `json:"-" gorm:"type:text;not null"`
	Downloads    int64     `json:"downloads" gorm:"not null;default:0"`
	UploadedByID uuid.UUID `json:"uploadedBy" gorm:"type:uuid;not null;index"`

	Uploader User `json:"uploader,omitempty" gorm:"foreignKey:UploadedByID;references:ID"`
}
