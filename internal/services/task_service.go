package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/events"
	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/policy"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/storage"
)

const publishTimeout = 5 * time.Second

// TaskService handles tasks within projects.
type TaskService struct {
	base
	publisher events.Publisher
}

func NewTaskService(uow *repository.WorkUnit, tx *Transactor, roleCache *roles.Cache, images storage.ImageStore, publisher events.Publisher) *TaskService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TaskService{
		base:      newBase(uow, tx, roleCache, images),
		publisher: publisher,
	}
}

type CreateTaskInput struct {
	Name        string  `json:"name" validate:"required,max=150"`
	Description *string `json:"description" validate:"omitnil,max=350"`
	AppointeeID uint64  `json:"appointee_id" validate:"required,gt=0"`
}

type UpdateTaskInput struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=150"`
	Description *string `json:"description" validate:"omitnil,max=350"`
	IsCompleted *bool   `json:"is_completed"`
}

func (in UpdateTaskInput) isEmpty() bool {
	return in.Name == nil && in.Description == nil && in.IsCompleted == nil
}

// authorizeProject checks that the requester is an administrator or a member of the project.
func (s *TaskService) authorizeProject(ctx context.Context, tx *repository.WorkUnit, requesterID, projectID uint64) error {
	role, err := s.requesterRole(ctx, tx.Users, s.roles.WithSource(tx.Users), requesterID)
	if err != nil {
		return err
	}
	isMember, err := tx.Members.IsMember(ctx, projectID, requesterID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !policy.CanAccessProject(role, isMember) {
		return ErrUnauthorized
	}
	return nil
}

// CreateTask assigns a new task in the project. The appointee must be an
// employee and, unless assigning to themself, a member of the project.
func (s *TaskService) CreateTask(ctx context.Context, requesterID, projectID uint64, in CreateTaskInput) (*TaskDetails, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimmedOrNil(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var (
		task      *models.Task
		project   *models.Project
		appointee *models.User
	)
	keys := []string{lock.ProjectKey(projectID), lock.UserKey(in.AppointeeID)}
	err := s.tx.Run(ctx, keys, func(tx *repository.WorkUnit) error {
		if err := s.authorizeProject(ctx, tx, requesterID, projectID); err != nil {
			return err
		}

		var err error
		project, err = tx.Projects.FindByID(ctx, projectID)
		if err != nil {
			if isNotFound(err) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to find project: %w", err)
		}

		appointee, err = tx.Users.FindByID(ctx, in.AppointeeID)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to find appointee: %w", err)
		}
		role, err := s.roleOf(ctx, s.roles.WithSource(tx.Users), appointee.ID)
		if err != nil {
			return err
		}
		if !policy.CanBeProjectMember(role) {
			return ErrNonEmployeeUser
		}

		if in.AppointeeID != requesterID {
			isMember, err := tx.Members.IsMember(ctx, projectID, in.AppointeeID)
			if err != nil {
				return fmt.Errorf("failed to check membership: %w", err)
			}
			if !isMember {
				return ErrNotProjectMember
			}
		}

		task = &models.Task{
			ProjectID:           projectID,
			AppointerUserID:     requesterID,
			AppointeeEmployeeID: in.AppointeeID,
			Name:                in.Name,
			Description:         in.Description,
			IsCompleted:         false,
		}
		if err := tx.Tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, task, project, appointee)

	details, err := s.describeTasks(ctx, s.uow.Users, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *TaskService) publishCreated(ctx context.Context, task *models.Task, project *models.Project, appointee *models.User) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.TaskCreatedEvent{
		TaskID:          task.ID,
		TaskName:        task.Name,
		TaskDescription: task.Description,
		ProjectID:       project.ID,
		ProjectName:     project.Name,
		AppointeeID:     appointee.ID,
		AppointeeEmail:  appointee.Email,
	}
	if err := s.publisher.PublishTaskCreated(pubCtx, event); err != nil {
		s.logger.Printf("[Tasks] task %d created but notification failed: %v", task.ID, err)
	}
}

// GetByID returns a task to an administrator or to its appointee.
func (s *TaskService) GetByID(ctx context.Context, requesterID, id uint64) (*TaskDetails, error) {
	task, err := s.authorizedTask(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	details, err := s.describeTasks(ctx, s.uow.Users, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *TaskService) authorizedTask(ctx context.Context, requesterID, id uint64) (*models.Task, error) {
	task, err := s.uow.Tasks.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	role, err := s.requesterRole(ctx, s.uow.Users, s.roles, requesterID)
	if err != nil {
		return nil, err
	}
	if !policy.CanActOnTask(role, requesterID, *task) {
		return nil, ErrUnauthorized
	}
	return task, nil
}

// GetAllForProject lists the project's tasks for an administrator or a member.
func (s *TaskService) GetAllForProject(ctx context.Context, requesterID, projectID uint64) ([]TaskDetails, error) {
	if err := s.authorizeProject(ctx, s.uow, requesterID, projectID); err != nil {
		return nil, err
	}

	exists, err := s.uow.Projects.Exists(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	tasks, err := s.uow.Tasks.List(ctx, repository.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return s.describeTasks(ctx, s.uow.Users, tasks)
}

// UpdateTask patches the supplied fields of a task for an administrator or its appointee.
func (s *TaskService) UpdateTask(ctx context.Context, requesterID, id uint64, in UpdateTaskInput) (*TaskDetails, error) {
	if in.isEmpty() {
		return nil, ErrEmptyUpdate
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	task, err := s.authorizedTask(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}

	var updated *models.Task
	keys := []string{lock.ProjectKey(task.ProjectID), lock.UserKey(task.AppointeeEmployeeID)}
	err = s.tx.Run(ctx, keys, func(tx *repository.WorkUnit) error {
		current, err := tx.Tasks.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}

		if in.Name != nil {
			current.Name = *in.Name
		}
		if in.Description != nil {
			current.Description = trimmedOrNil(in.Description)
		}
		if in.IsCompleted != nil {
			current.IsCompleted = *in.IsCompleted
		}

		if err := tx.Tasks.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		updated = current
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	details, err := s.describeTasks(ctx, s.uow.Users, []models.Task{*updated})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// DeleteTask removes a task regardless of its completion state.
func (s *TaskService) DeleteTask(ctx context.Context, id uint64) error {
	task, err := s.uow.Tasks.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	keys := []string{lock.ProjectKey(task.ProjectID), lock.UserKey(task.AppointeeEmployeeID)}
	return s.tx.Run(ctx, keys, func(tx *repository.WorkUnit) error {
		if err := tx.Tasks.Delete(ctx, id); err != nil {
			if isNotFound(err) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	}, nil)
}
