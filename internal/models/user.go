package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID                 uint64         `gorm:"primarykey" json:"id"`
	Email              string         `gorm:"type:varchar(80);uniqueIndex;not null" json:"email"`
	FirstName          string         `gorm:"type:varchar(100);not null" json:"first_name"`
	Surname            string         `gorm:"type:varchar(100);not null" json:"surname"`
	PasswordHash       string         `gorm:"type:varchar(255);not null" json:"-"`
	ProfilePictureName *string        `gorm:"type:varchar(255)" json:"-"`
	RoleID             Role           `gorm:"not null;index" json:"role_id"`
	RefreshToken       *string        `gorm:"type:varchar(255)" json:"-"`
	RefreshTokenExpiry *time.Time     `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	RoleRecord  RoleRecord      `gorm:"foreignKey:RoleID" json:"-"`
	Memberships []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
}

// FullName joins the first name and surname.
func (u User) FullName() string {
	return u.FirstName + " " + u.Surname
}

// IsDeleted reports whether the user has been soft-deleted.
func (u User) IsDeleted() bool {
	return u.DeletedAt.Valid
}
