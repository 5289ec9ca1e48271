package repository

import (
	"context"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/models"
)

// UserRepository defines the interface for user data access.
// Soft-deleted users are excluded unless the repository was obtained through WithDeleted.
type UserRepository interface {
	// WithDeleted returns a repository whose reads include soft-deleted users
	WithDeleted() UserRepository

	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByIDs returns the users matching ids, keyed by ID
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]models.User, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Exists reports whether a user with the given ID exists
	Exists(ctx context.Context, id uint64) (bool, error)

	// EmailInUse reports whether any user, deleted or not, holds the email
	EmailInUse(ctx context.Context, email string) (bool, error)

	// Update writes the profile and credential columns of an active user.
	// It returns gorm.ErrRecordNotFound when the user is missing or soft-deleted.
	Update(ctx context.Context, user *models.User) error

	// SetRefreshToken stores or clears the refresh token of an active user
	SetRefreshToken(ctx context.Context, id uint64, token *string, expiry *time.Time) error

	// SetPasswordHash replaces the password hash of an active user
	SetPasswordHash(ctx context.Context, id uint64, hash string) error

	// SoftDelete stamps deleted_at on a user
	SoftDelete(ctx context.Context, id uint64) error

	// FindRole returns the stored role of a user, deleted or not
	FindRole(ctx context.Context, id uint64) (models.Role, error)

	// UpdateRole overwrites the stored role of a user
	UpdateRole(ctx context.Context, id uint64, role models.Role) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role     *models.Role
	Page     int
	PageSize int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uint64) (*models.Project, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Project, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Update(ctx context.Context, project *models.Project) error

	// Delete hard deletes the project row only; dependents must be removed first
	Delete(ctx context.Context, id uint64) error
}

// ProjectMemberRepository defines the interface for project membership data access
type ProjectMemberRepository interface {
	// Add creates the membership rows
	Add(ctx context.Context, members ...models.ProjectMember) error

	// IsMember reports whether the user is a member of the project
	IsMember(ctx context.Context, projectID, userID uint64) (bool, error)

	// ListForProject lists the members of a project
	ListForProject(ctx context.Context, projectID uint64) ([]models.ProjectMember, error)

	// ListForUser lists the memberships of a user
	ListForUser(ctx context.Context, userID uint64) ([]models.ProjectMember, error)

	// Delete removes the memberships of the given users in a project
	Delete(ctx context.Context, projectID uint64, userIDs []uint64) error

	// DeleteAllForProject removes every membership of a project
	DeleteAllForProject(ctx context.Context, projectID uint64) error

	// DeleteAllForUser removes every membership of a user
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uint64) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint64) error

	// List retrieves tasks matching the filter, oldest first
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)

	// HasOpenTasks reports whether any incomplete task matches the filter
	HasOpenTasks(ctx context.Context, filter TaskFilter) (bool, error)

	// DeleteAllForProject removes every task of a project
	DeleteAllForProject(ctx context.Context, projectID uint64) error
}

// TaskFilter holds filtering options for task queries
type TaskFilter struct {
	ProjectID   *uint64
	AppointeeID *uint64
	IsCompleted *bool
}
