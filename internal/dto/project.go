package dto

import (
	"time"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/services"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ProjectDetailsDTO is a project with its tasks and members
type ProjectDetailsDTO struct {
	ProjectDTO
	Tasks   []TaskDetailsDTO `json:"tasks"`
	Members []UserSummaryDTO `json:"members"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(p models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.StatusID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProjectDetailsDTO converts ProjectDetails to ProjectDetailsDTO
func ToProjectDetailsDTO(d services.ProjectDetails) ProjectDetailsDTO {
	members := make([]UserSummaryDTO, len(d.Members))
	for i, m := range d.Members {
		members[i] = ToUserSummaryDTO(m)
	}
	return ProjectDetailsDTO{
		ProjectDTO: ToProjectDTO(d.Project),
		Tasks:      ToTaskDetailsList(d.Tasks),
		Members:    members,
	}
}
