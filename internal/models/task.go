package models

import "time"

type Task struct {
	ID                  uint64    `gorm:"primarykey" json:"id"`
	ProjectID           uint64    `gorm:"not null;index" json:"project_id"`
	AppointerUserID     uint64    `gorm:"not null;index" json:"appointer_user_id"`
	AppointeeEmployeeID uint64    `gorm:"not null;index" json:"appointee_employee_id"`
	Name                string    `gorm:"type:varchar(150);not null" json:"name"`
	Description         *string   `gorm:"type:varchar(350)" json:"description"`
	IsCompleted         bool      `gorm:"not null;default:false" json:"is_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsSelfAssigned reports whether the appointer and the appointee are the same user.
func (t Task) IsSelfAssigned() bool {
	return t.AppointerUserID == t.AppointeeEmployeeID
}
