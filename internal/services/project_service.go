package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/policy"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/storage"
)

// ProjectService handles project lifecycle and project views.
type ProjectService struct {
	base
}

func NewProjectService(uow *repository.WorkUnit, tx *Transactor, roleCache *roles.Cache, images storage.ImageStore) *ProjectService {
	return &ProjectService{base: newBase(uow, tx, roleCache, images)}
}

// ProjectDetails is a project with its enriched tasks and its members.
type ProjectDetails struct {
	Project models.Project
	Tasks   []TaskDetails
	Members []UserSummary
}

type CreateProjectInput struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Description *string  `json:"description" validate:"omitnil,max=400"`
	EmployeeIDs []uint64 `json:"employee_ids" validate:"max=100,dive,gt=0"`
}

type UpdateProjectInput struct {
	Name        *string               `json:"name" validate:"omitnil,min=1,max=150"`
	Description *string               `json:"description" validate:"omitnil,max=400"`
	Status      *models.ProjectStatus `json:"status"`
}

func (in UpdateProjectInput) isEmpty() bool {
	return in.Name == nil && in.Description == nil && in.Status == nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// CreateProject creates an in-progress project and adds the valid employees
// among EmployeeIDs. Unknown users and non-employees are skipped.
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (*ProjectDetails, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimmedOrNil(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	candidates := dedupe(in.EmployeeIDs)
	keys := make([]string, 0, len(candidates))
	for _, id := range candidates {
		keys = append(keys, lock.UserKey(id))
	}

	project := &models.Project{
		Name:        in.Name,
		Description: in.Description,
		StatusID:    models.ProjectStatusInProgress,
	}

	err := s.tx.Run(ctx, keys, func(tx *repository.WorkUnit) error {
		if err := tx.Projects.Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		rc := s.roles.WithSource(tx.Users)
		members := make([]models.ProjectMember, 0, len(candidates))
		for _, id := range candidates {
			exists, err := tx.Users.Exists(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to find user: %w", err)
			}
			if !exists {
				continue
			}
			role, err := rc.GetRole(ctx, id)
			if err != nil {
				if errors.Is(err, roles.ErrRoleUndefined) {
					continue
				}
				return err
			}
			if !policy.CanBeProjectMember(role) {
				continue
			}
			members = append(members, models.ProjectMember{ProjectID: project.ID, UserID: id})
		}

		if err := tx.Members.Add(ctx, members...); err != nil {
			return fmt.Errorf("failed to add project members: %w", err)
		}
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	return s.details(ctx, project)
}

// GetByID returns the project with its tasks and members to an administrator
// or a member of the project.
func (s *ProjectService) GetByID(ctx context.Context, id, requesterID uint64) (*ProjectDetails, error) {
	project, err := s.uow.Projects.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	role, err := s.requesterRole(ctx, s.uow.Users, s.roles, requesterID)
	if err != nil {
		return nil, err
	}
	isMember, err := s.uow.Members.IsMember(ctx, id, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !policy.CanAccessProject(role, isMember) {
		return nil, ErrUnauthorized
	}

	return s.details(ctx, project)
}

func (s *ProjectService) details(ctx context.Context, project *models.Project) (*ProjectDetails, error) {
	tasks, err := s.uow.Tasks.List(ctx, repository.TaskFilter{ProjectID: &project.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	taskDetails, err := s.describeTasks(ctx, s.uow.Users, tasks)
	if err != nil {
		return nil, err
	}

	memberships, err := s.uow.Members.ListForProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	ids := make([]uint64, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	users, err := s.uow.Users.WithDeleted().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	members := make([]UserSummary, 0, len(memberships))
	for _, m := range memberships {
		if u, ok := users[m.UserID]; ok {
			members = append(members, s.summarize(u))
		}
	}

	return &ProjectDetails{Project: *project, Tasks: taskDetails, Members: members}, nil
}

// UpdateProject patches the supplied fields of a project.
func (s *ProjectService) UpdateProject(ctx context.Context, id uint64, in UpdateProjectInput) (*models.Project, error) {
	if in.isEmpty() {
		return nil, ErrEmptyUpdate
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	err := validateStruct(in)
	if in.Status != nil && !in.Status.Valid() {
		err = mergeFieldErrors(err, map[string]string{"status": "is invalid"})
	}
	if err != nil {
		return nil, err
	}

	var updated *models.Project
	err = s.tx.Run(ctx, []string{lock.ProjectKey(id)}, func(tx *repository.WorkUnit) error {
		project, err := tx.Projects.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to find project: %w", err)
		}

		if in.Name != nil {
			project.Name = *in.Name
		}
		if in.Description != nil {
			project.Description = trimmedOrNil(in.Description)
		}
		if in.Status != nil {
			project.StatusID = *in.Status
		}

		if err := tx.Projects.Update(ctx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		updated = project
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProject removes a project whose tasks are all completed, deleting its
// tasks, then its memberships, then the project row.
func (s *ProjectService) DeleteProject(ctx context.Context, id uint64) error {
	return s.tx.Run(ctx, []string{lock.ProjectKey(id)}, func(tx *repository.WorkUnit) error {
		exists, err := tx.Projects.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find project: %w", err)
		}
		if !exists {
			return ErrProjectNotFound
		}

		open, err := tx.Tasks.HasOpenTasks(ctx, repository.TaskFilter{ProjectID: &id})
		if err != nil {
			return fmt.Errorf("failed to check open tasks: %w", err)
		}
		if open {
			return ErrUncompletedTasks
		}

		if err := tx.Tasks.DeleteAllForProject(ctx, id); err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}
		if err := tx.Members.DeleteAllForProject(ctx, id); err != nil {
			return fmt.Errorf("failed to delete members: %w", err)
		}
		if err := tx.Projects.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	}, nil)
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
