package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/database"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db          *gorm.DB
	withDeleted bool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.withDeleted {
		q = q.Unscoped()
	}
	return q
}

// WithDeleted returns a repository that also sees soft-deleted users
func (r *GormUserRepository) WithDeleted() UserRepository {
	return &GormUserRepository{db: r.db, withDeleted: true}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.query(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.query(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users matching ids, keyed by ID
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]models.User, error) {
	result := make(map[uint64]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := r.query(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// List retrieves users with filtering and pagination
func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	filtered := func() *gorm.DB {
		query := r.query(ctx).Model(&models.User{})
		if filter.Role != nil {
			query = query.Where("role_id = ?", *filter.Role)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := filtered().Order("id ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	var users []models.User
	if err := listQuery.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Exists reports whether a user with the given ID exists
func (r *GormUserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	if err := r.query(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// EmailInUse reports whether any user, deleted or not, holds the email
func (r *GormUserRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update writes the mutable columns of an active user. Soft-deleted rows are
// never matched, so a stale copy cannot bring a deleted user back.
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.updateActive(ctx, user.ID, map[string]any{
		"email":                user.Email,
		"first_name":           user.FirstName,
		"surname":              user.Surname,
		"password_hash":        user.PasswordHash,
		"profile_picture_name": user.ProfilePictureName,
		"refresh_token":        user.RefreshToken,
		"refresh_token_expiry": user.RefreshTokenExpiry,
	})
}

// SetRefreshToken stores or clears the refresh token of an active user
func (r *GormUserRepository) SetRefreshToken(ctx context.Context, id uint64, token *string, expiry *time.Time) error {
	return r.updateActive(ctx, id, map[string]any{
		"refresh_token":        token,
		"refresh_token_expiry": expiry,
	})
}

// SetPasswordHash replaces the password hash of an active user
func (r *GormUserRepository) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	return r.updateActive(ctx, id, map[string]any{"password_hash": hash})
}

func (r *GormUserRepository) updateActive(ctx context.Context, id uint64, columns map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at on an active user
func (r *GormUserRepository) SoftDelete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindRole returns the stored role of a user, deleted or not
func (r *GormUserRepository) FindRole(ctx context.Context, id uint64) (models.Role, error) {
	var user models.User
	err := r.db.WithContext(ctx).Unscoped().
		Select("id", "role_id").
		First(&user, id).Error
	if err != nil {
		return 0, err
	}
	if !user.RoleID.Valid() {
		return 0, errors.New("user has no valid role")
	}
	return user.RoleID, nil
}

// UpdateRole overwrites the stored role of a user
func (r *GormUserRepository) UpdateRole(ctx context.Context, id uint64, role models.Role) error {
	result := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("id = ?", id).
		Update("role_id", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
