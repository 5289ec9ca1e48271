package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/employee-admin-api/internal/constants"
	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/policy"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
)

// ProjectMemberService adds and removes employees from projects.
type ProjectMemberService struct {
	base
}

func NewProjectMemberService(uow *repository.WorkUnit, tx *Transactor, roleCache *roles.Cache) *ProjectMemberService {
	return &ProjectMemberService{base: newBase(uow, tx, roleCache, nil)}
}

func checkEmployeeIDs(ids []uint64) error {
	switch {
	case len(ids) == 0:
		return NewValidationError(map[string]string{"employee_ids": "is required"})
	case len(ids) > constants.MaxEmployeesPerRequest:
		return NewValidationError(map[string]string{
			"employee_ids": fmt.Sprintf("must contain at most %d items", constants.MaxEmployeesPerRequest),
		})
	}
	return nil
}

func memberLockKeys(projectID uint64, userIDs []uint64) []string {
	keys := make([]string, 0, len(userIDs)+1)
	keys = append(keys, lock.ProjectKey(projectID))
	for _, id := range userIDs {
		keys = append(keys, lock.UserKey(id))
	}
	return keys
}

// AddEmployees makes every id a member of the project. Each id must resolve to
// an employee who is not yet a member; the first failing id aborts the call.
func (s *ProjectMemberService) AddEmployees(ctx context.Context, employeeIDs []uint64, projectID uint64) error {
	if err := checkEmployeeIDs(employeeIDs); err != nil {
		return err
	}
	ids := dedupe(employeeIDs)

	return s.tx.Run(ctx, memberLockKeys(projectID, ids), func(tx *repository.WorkUnit) error {
		exists, err := tx.Projects.Exists(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to find project: %w", err)
		}
		if !exists {
			return ErrProjectNotFound
		}

		rc := s.roles.WithSource(tx.Users)
		members := make([]models.ProjectMember, 0, len(ids))
		for _, id := range ids {
			userExists, err := tx.Users.Exists(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to find user: %w", err)
			}
			if !userExists {
				return fmt.Errorf("%w: %d", ErrUserNotFound, id)
			}

			role, err := s.roleOf(ctx, rc, id)
			if err != nil {
				return err
			}
			if !policy.CanBeProjectMember(role) {
				return fmt.Errorf("%w: %d", ErrNonEmployeeUser, id)
			}

			isMember, err := tx.Members.IsMember(ctx, projectID, id)
			if err != nil {
				return fmt.Errorf("failed to check membership: %w", err)
			}
			if isMember {
				return fmt.Errorf("%w: %d", ErrExistingProjectMember, id)
			}

			members = append(members, models.ProjectMember{ProjectID: projectID, UserID: id})
		}

		if err := tx.Members.Add(ctx, members...); err != nil {
			return fmt.Errorf("failed to add project members: %w", err)
		}
		return nil
	}, nil)
}

// RemoveEmployees removes the memberships once every id is an existing member
// with no open task in the project.
func (s *ProjectMemberService) RemoveEmployees(ctx context.Context, employeeIDs []uint64, projectID uint64) error {
	if err := checkEmployeeIDs(employeeIDs); err != nil {
		return err
	}
	ids := dedupe(employeeIDs)

	return s.tx.Run(ctx, memberLockKeys(projectID, ids), func(tx *repository.WorkUnit) error {
		exists, err := tx.Projects.Exists(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to find project: %w", err)
		}
		if !exists {
			return ErrProjectNotFound
		}

		for _, id := range ids {
			userExists, err := tx.Users.Exists(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to find user: %w", err)
			}
			if !userExists {
				return fmt.Errorf("%w: %d", ErrUserNotFound, id)
			}

			isMember, err := tx.Members.IsMember(ctx, projectID, id)
			if err != nil {
				return fmt.Errorf("failed to check membership: %w", err)
			}
			if !isMember {
				return fmt.Errorf("%w: %d", ErrNotProjectMember, id)
			}

			userID := id
			open, err := tx.Tasks.HasOpenTasks(ctx, repository.TaskFilter{ProjectID: &projectID, AppointeeID: &userID})
			if err != nil {
				return fmt.Errorf("failed to check open tasks: %w", err)
			}
			if open {
				return fmt.Errorf("%w: user %d", ErrUncompletedTasks, id)
			}
		}

		if err := tx.Members.Delete(ctx, projectID, ids); err != nil {
			return fmt.Errorf("failed to remove project members: %w", err)
		}
		return nil
	}, nil)
}

// IsUserMember reports whether the user is a member of the project.
func (s *ProjectMemberService) IsUserMember(ctx context.Context, userID, projectID uint64) (bool, error) {
	isMember, err := s.uow.Members.IsMember(ctx, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return isMember, nil
}
