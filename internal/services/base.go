package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/storage"
	"gorm.io/gorm"
)

// UserSummary is the compact projection of a user embedded in other results.
type UserSummary struct {
	ID                uint64
	Email             string
	FirstName         string
	Surname           string
	ProfilePictureURL *string
	IsDeleted         bool
}

// TaskDetails is a task enriched with its appointee and, unless the task is
// self-assigned, its appointer.
type TaskDetails struct {
	Task      models.Task
	Appointee UserSummary
	Appointer *UserSummary
}

// base carries the collaborators shared by every domain service.
type base struct {
	uow    *repository.WorkUnit
	tx     *Transactor
	roles  *roles.Cache
	images storage.ImageStore
	logger *log.Logger
}

func newBase(uow *repository.WorkUnit, tx *Transactor, roleCache *roles.Cache, images storage.ImageStore) base {
	return base{uow: uow, tx: tx, roles: roleCache, images: images, logger: log.Default()}
}

// requesterRole resolves an active requester's role; an unresolvable requester is unauthorized.
func (b *base) requesterRole(ctx context.Context, users repository.UserRepository, rc *roles.Cache, requesterID uint64) (models.Role, error) {
	exists, err := users.Exists(ctx, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to find requester: %w", err)
	}
	if !exists {
		return 0, ErrUnauthorized
	}
	role, err := rc.GetRole(ctx, requesterID)
	if err != nil {
		if errors.Is(err, roles.ErrRoleUndefined) {
			return 0, ErrUnauthorized
		}
		return 0, err
	}
	return role, nil
}

// roleOf resolves a user's role, translating an unknown user to ErrUserNotFound.
func (b *base) roleOf(ctx context.Context, rc *roles.Cache, userID uint64) (models.Role, error) {
	role, err := rc.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, roles.ErrRoleUndefined) {
			return 0, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		return 0, err
	}
	return role, nil
}

func (b *base) pictureURL(name *string) *string {
	if name == nil || *name == "" || b.images == nil {
		return nil
	}
	url := b.images.GetFileURL(*name)
	return &url
}

func (b *base) summarize(u models.User) UserSummary {
	return UserSummary{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		Surname:           u.Surname,
		ProfilePictureURL: b.pictureURL(u.ProfilePictureName),
		IsDeleted:         u.IsDeleted(),
	}
}

// describeTasks loads the users referenced by tasks, deleted ones included,
// and builds the enriched task list.
func (b *base) describeTasks(ctx context.Context, users repository.UserRepository, tasks []models.Task) ([]TaskDetails, error) {
	ids := make([]uint64, 0, len(tasks)*2)
	for _, t := range tasks {
		ids = append(ids, t.AppointeeEmployeeID, t.AppointerUserID)
	}
	byID, err := users.WithDeleted().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load task users: %w", err)
	}

	details := make([]TaskDetails, 0, len(tasks))
	for _, t := range tasks {
		d := TaskDetails{Task: t, Appointee: UserSummary{ID: t.AppointeeEmployeeID}}
		if u, ok := byID[t.AppointeeEmployeeID]; ok {
			d.Appointee = b.summarize(u)
		}
		if !t.IsSelfAssigned() {
			appointer := UserSummary{ID: t.AppointerUserID}
			if u, ok := byID[t.AppointerUserID]; ok {
				appointer = b.summarize(u)
			}
			d.Appointer = &appointer
		}
		details = append(details, d)
	}
	return details, nil
}

// deleteImage removes an asset outside any transaction, logging failures.
func (b *base) deleteImage(ctx context.Context, name string) {
	if name == "" || b.images == nil {
		return
	}
	if err := b.images.DeleteFile(ctx, name); err != nil {
		b.logger.Printf("[Images] failed to delete %s: %v", name, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
