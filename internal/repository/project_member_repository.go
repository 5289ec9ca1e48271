package repository

import (
	"context"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectMemberRepository is a GORM implementation of ProjectMemberRepository
type GormProjectMemberRepository struct {
	db *gorm.DB
}

// NewProjectMemberRepository creates a new ProjectMemberRepository
func NewProjectMemberRepository(db *gorm.DB) ProjectMemberRepository {
	return &GormProjectMemberRepository{db: db}
}

// Add creates the membership rows
func (r *GormProjectMemberRepository) Add(ctx context.Context, members ...models.ProjectMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&members).Error
}

// IsMember reports whether the user is a member of the project
func (r *GormProjectMemberRepository) IsMember(ctx context.Context, projectID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListForProject lists the members of a project in join order
func (r *GormProjectMemberRepository) ListForProject(ctx context.Context, projectID uint64) ([]models.ProjectMember, error) {
	members := []models.ProjectMember{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, user_id ASC").
		Find(&members).Error
	return members, err
}

// ListForUser lists the memberships of a user
func (r *GormProjectMemberRepository) ListForUser(ctx context.Context, userID uint64) ([]models.ProjectMember, error) {
	members := []models.ProjectMember{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("project_id ASC").
		Find(&members).Error
	return members, err
}

// Delete removes the memberships of the given users in a project
func (r *GormProjectMemberRepository) Delete(ctx context.Context, projectID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id IN ?", projectID, userIDs).
		Delete(&models.ProjectMember{}).Error
}

// DeleteAllForProject removes every membership of a project
func (r *GormProjectMemberRepository) DeleteAllForProject(ctx context.Context, projectID uint64) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error
}

// DeleteAllForUser removes every membership of a user
func (r *GormProjectMemberRepository) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ProjectMember{}).Error
}
