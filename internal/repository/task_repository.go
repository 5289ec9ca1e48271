package repository

import (
	"context"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// Delete hard deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.Task{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormTaskRepository) filtered(ctx context.Context, filter TaskFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Task{})
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.AppointeeID != nil {
		query = query.Where("tasks.appointee_employee_id = ?", *filter.AppointeeID)
	}
	if filter.IsCompleted != nil {
		query = query.Where("tasks.is_completed = ?", *filter.IsCompleted)
	}
	return query
}

// List retrieves tasks matching the filter, oldest first
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := r.filtered(ctx, filter).Order("tasks.created_at ASC, tasks.id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// HasOpenTasks reports whether any incomplete task matches the filter
func (r *GormTaskRepository) HasOpenTasks(ctx context.Context, filter TaskFilter) (bool, error) {
	open := false
	filter.IsCompleted = &open

	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteAllForProject removes every task of a project
func (r *GormTaskRepository) DeleteAllForProject(ctx context.Context, projectID uint64) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Task{}).Error
}
