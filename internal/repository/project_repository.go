package repository

import (
	"context"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDs finds the projects matching ids, ordered by ID
func (r *GormProjectRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Project, error) {
	projects := []models.Project{}
	if len(ids) == 0 {
		return projects, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Exists reports whether a project with the given ID exists
func (r *GormProjectRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// Delete deletes the project row
func (r *GormProjectRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.Project{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
