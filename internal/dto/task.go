package dto

import (
	"time"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/services"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                  uint64    `json:"id"`
	ProjectID           uint64    `json:"project_id"`
	Name                string    `json:"name"`
	Description         *string   `json:"description"`
	IsCompleted         bool      `json:"is_completed"`
	AppointeeEmployeeID uint64    `json:"appointee_employee_id"`
	AppointerUserID     uint64    `json:"appointer_user_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TaskDetailsDTO is a task with its appointee and, unless self-assigned, its appointer
type TaskDetailsDTO struct {
	TaskDTO
	Appointee UserSummaryDTO  `json:"appointee"`
	Appointer *UserSummaryDTO `json:"appointer,omitempty"`
}

// TaskDraftDTO is an unsaved task suggestion
type TaskDraftDTO struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:                  task.ID,
		ProjectID:           task.ProjectID,
		Name:                task.Name,
		Description:         task.Description,
		IsCompleted:         task.IsCompleted,
		AppointeeEmployeeID: task.AppointeeEmployeeID,
		AppointerUserID:     task.AppointerUserID,
		CreatedAt:           task.CreatedAt,
		UpdatedAt:           task.UpdatedAt,
	}
}

// ToTaskDetailsDTO converts TaskDetails to TaskDetailsDTO
func ToTaskDetailsDTO(d services.TaskDetails) TaskDetailsDTO {
	dto := TaskDetailsDTO{
		TaskDTO:   ToTaskDTO(d.Task),
		Appointee: ToUserSummaryDTO(d.Appointee),
	}

	// Self-assigned tasks carry no appointer
	if d.Appointer != nil {
		appointer := ToUserSummaryDTO(*d.Appointer)
		dto.Appointer = &appointer
	}

	return dto
}

// ToTaskDetailsList converts a slice of TaskDetails
func ToTaskDetailsList(list []services.TaskDetails) []TaskDetailsDTO {
	items := make([]TaskDetailsDTO, len(list))
	for i, d := range list {
		items[i] = ToTaskDetailsDTO(d)
	}
	return items
}

// ToTaskDraftDTOs converts drafts returned by the drafting service
func ToTaskDraftDTOs(drafts []services.TaskDraft) []TaskDraftDTO {
	items := make([]TaskDraftDTO, len(drafts))
	for i, d := range drafts {
		items[i] = TaskDraftDTO{Name: d.Name, Description: d.Description}
	}
	return items
}
