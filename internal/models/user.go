package models

import "time"

type UserRole string

const (
	UserRoleUser    UserRole = "user"
	UserRolePasteur UserRole = "pasteur"
	UserRoleMedia   UserRole = "media"
	UserRoleAdmin   UserRole = "admin"
)

func ValidUserRole(value string) bool {
	switch UserRole(value) {
	case UserRoleUser, UserRolePasteur, UserRoleMedia, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// IsModerator reports whether the role may create and mutate content
// resources (audios, sermons, events, posts).
func (r UserRole) IsModerator() bool {
	return r == UserRoleAdmin || r == UserRolePasteur || r == UserRoleMedia
}

type User struct {
	BaseModel
	Email                string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash         string     `json:"-" gorm:"type:text;not null"`
	DisplayName          string     `json:"displayName" gorm:"type:varchar(100);not null"`
	Role                 UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'user';index"`
	FCMToken             *string    `json:"-" gorm:"type:text"`
	InviteToken          *string    `json:"-" gorm:"type:varchar(64);index"`
	InviteTokenExpiresAt *time.Time `json:"-"`
	NeedsPasswordReset   bool       `json:"needsPasswordReset" gorm:"not null;default:false"`

	Audios  []Audio  `json:"-" gorm:"foreignKey:UploadedByID"`
	Sermons []Sermon `json:"-" gorm:"foreignKey:UploadedByID"`
	Posts   []Post   `json:"-" gorm:"foreignKey:AuthorID"`
}
