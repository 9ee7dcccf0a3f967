package models

import "github.com/google/uuid"

type PostType string

const (
	PostTypeImage PostType = "image"
	PostTypeVideo PostType = "video"
)

func ValidPostType(value string) bool {
	switch PostType(value) {
	case PostTypeImage, PostTypeVideo:
		return true
	default:
		return false
	}
}

type PostCategory string

const (
	PostCategoryPensee  PostCategory = "pensee"
	PostCategoryPasteur PostCategory = "pasteur"
	PostCategoryMedia   PostCategory = "media"
)

func ValidPostCategory(value string) bool {
	switch PostCategory(value) {
	case PostCategoryPensee, PostCategoryPasteur, PostCategoryMedia:
		return true
	default:
		return false
	}
}

type Post struct {
	BaseModel
	Type      PostType     `json:"type" gorm:"type:varchar(10);not null"`
	Category  PostCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Content   string       `json:"content" gorm:"type:text"`
	MediaURL  string       `json:"mediaUrl" gorm:"type:text;not null"`
	MediaPath string       `json:"-" gorm:"type:text;not null"`
	Likes     int64        `json:"likes" gorm:"not null;default:0"`
	Views     int64        `json:"views" gorm:"not null;default:0"`
	AuthorID  uuid.UUID    `json:"authorId" gorm:"type:uuid;not null;index"`

	Author User `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID"`
}
