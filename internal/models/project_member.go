package models

import "time"

type ProjectMember struct {
	ProjectID uint64    `gorm:"primarykey;autoIncrement:false" json:"project_id"`
	UserID    uint64    `gorm:"primarykey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
