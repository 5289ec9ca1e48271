package dto

import (
	"time"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/services"
	"github.com/yukikurage/employee-admin-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                uint64      `json:"id"`
	Email             string      `json:"email"`
	FirstName         string      `json:"first_name"`
	Surname           string      `json:"surname"`
	Role              models.Role `json:"role"`
	ProfilePictureURL *string     `json:"profile_picture_url"`
	IsDeleted         bool        `json:"is_deleted"`
	CreatedAt         time.Time   `json:"created_at"`
}

// UserSummaryDTO is the compact user embedded in projects and tasks
type UserSummaryDTO struct {
	ID                uint64  `json:"id"`
	Email             string  `json:"email"`
	FirstName         string  `json:"first_name"`
	Surname           string  `json:"surname"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	IsDeleted         bool    `json:"is_deleted"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// TokenDTO carries an issued token pair
type TokenDTO struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// LoginResponse is returned by login and refresh
type LoginResponse struct {
	User   UserDTO  `json:"user"`
	Tokens TokenDTO `json:"tokens"`
}

// ProfileProjectDTO is a project of the profile with the user's own tasks
type ProfileProjectDTO struct {
	ID     uint64               `json:"id"`
	Name   string               `json:"name"`
	Status models.ProjectStatus `json:"status"`
	Tasks  []TaskDTO            `json:"tasks"`
}

// ProfileDTO represents the authenticated user's profile
type ProfileDTO struct {
	UserDTO
	Projects []ProfileProjectDTO `json:"projects"`
}

// ToUserDTO converts a UserWithRole to UserDTO
func ToUserDTO(u services.UserWithRole) UserDTO {
	return UserDTO{
		ID:                u.User.ID,
		Email:             u.User.Email,
		FirstName:         u.User.FirstName,
		Surname:           u.User.Surname,
		Role:              u.Role,
		ProfilePictureURL: u.ProfilePictureURL,
		IsDeleted:         u.User.IsDeleted(),
		CreatedAt:         u.User.CreatedAt,
	}
}

// ToUserSummaryDTO converts a UserSummary to UserSummaryDTO
func ToUserSummaryDTO(u services.UserSummary) UserSummaryDTO {
	return UserSummaryDTO{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		Surname:           u.Surname,
		ProfilePictureURL: u.ProfilePictureURL,
		IsDeleted:         u.IsDeleted,
	}
}

// ToLoginResponse converts an AuthResult to LoginResponse
func ToLoginResponse(result services.AuthResult) LoginResponse {
	return LoginResponse{
		User: ToUserDTO(result.User),
		Tokens: TokenDTO{
			AccessToken:           result.Tokens.AccessToken,
			AccessTokenExpiresAt:  result.Tokens.AccessTokenExpiresAt,
			RefreshToken:          result.Tokens.RefreshToken,
			RefreshTokenExpiresAt: result.Tokens.RefreshTokenExpiresAt,
		},
	}
}

// ToProfileDTO converts a UserProfile to ProfileDTO
func ToProfileDTO(p services.UserProfile) ProfileDTO {
	projects := make([]ProfileProjectDTO, len(p.Projects))
	for i, pp := range p.Projects {
		tasks := make([]TaskDTO, len(pp.Tasks))
		for j, t := range pp.Tasks {
			tasks[j] = ToTaskDTO(t)
		}
		projects[i] = ProfileProjectDTO{
			ID:     pp.Project.ID,
			Name:   pp.Project.Name,
			Status: pp.Project.StatusID,
			Tasks:  tasks,
		}
	}
	return ProfileDTO{UserDTO: ToUserDTO(p.User), Projects: projects}
}

// ToUserListResponse converts users and paging data to UserListResponse
func ToUserListResponse(users []services.UserWithRole, params utils.PaginationParams, total int64) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	return UserListResponse{
		Users: items,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}
}
