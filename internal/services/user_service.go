package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/auth"
	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/policy"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles user administration and credentials.
type UserService struct {
	base
	tokens auth.TokenProvider
	now    func() time.Time
}

func NewUserService(uow *repository.WorkUnit, tx *Transactor, roleCache *roles.Cache, images storage.ImageStore, tokens auth.TokenProvider) *UserService {
	return &UserService{
		base:   newBase(uow, tx, roleCache, images),
		tokens: tokens,
		now:    time.Now,
	}
}

// UserWithRole is a user annotated with its role and picture URL.
type UserWithRole struct {
	User              models.User
	Role              models.Role
	ProfilePictureURL *string
}

// AuthResult is returned on successful authentication.
type AuthResult struct {
	User   UserWithRole
	Tokens auth.TokenPair
}

// ProfileProject is a project the user belongs to with the user's tasks in it.
type ProfileProject struct {
	Project models.Project
	Tasks   []models.Task
}

type UserProfile struct {
	User     UserWithRole
	Projects []ProfileProject
}

type CreateUserInput struct {
	Email          string          `json:"email" validate:"required,email,max=80"`
	FirstName      string          `json:"first_name" validate:"required,max=100"`
	Surname        string          `json:"surname" validate:"required,max=100"`
	Password       string          `json:"password" validate:"required"`
	Role           models.Role     `json:"role"`
	ProfilePicture *storage.Upload `json:"-" validate:"-"`
}

type UpdateUserInput struct {
	Email          *string         `json:"email" validate:"omitnil,email,max=80"`
	FirstName      *string         `json:"first_name" validate:"omitnil,min=1,max=100"`
	Surname        *string         `json:"surname" validate:"omitnil,min=1,max=100"`
	ProfilePicture *storage.Upload `json:"-" validate:"-"`
}

func (in UpdateUserInput) isEmpty() bool {
	return in.Email == nil && in.FirstName == nil && in.Surname == nil && in.ProfilePicture == nil
}

type VerifyCredentialsInput struct {
	Email    string
	Password string
}

type UpdatePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// UserListFilter selects users for GetAllUsers.
type UserListFilter struct {
	Role           *models.Role
	IncludeDeleted bool
	Page           int
	PageSize       int
}

func pictureProblem(upload *storage.Upload) map[string]string {
	if upload == nil {
		return nil
	}
	if err := upload.Validate(); err != nil {
		return map[string]string{"profile_picture": err.Error()}
	}
	return nil
}

// CreateUser creates a user with its role. An uploaded picture is removed again
// if the transaction does not commit.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*UserWithRole, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.Surname = strings.TrimSpace(in.Surname)

	extra := pictureProblem(in.ProfilePicture)
	if problem := passwordProblem(in.Password); problem != "" {
		if extra == nil {
			extra = map[string]string{}
		}
		extra["password"] = problem
	}
	if !in.Role.Valid() {
		if extra == nil {
			extra = map[string]string{}
		}
		extra["role"] = "is invalid"
	}
	if err := mergeFieldErrors(validateStruct(in), extra); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		Surname:      in.Surname,
		PasswordHash: string(hashed),
		RoleID:       in.Role,
	}
	var savedPicture string

	err = s.tx.Run(ctx, []string{lock.EmailKey(in.Email)}, func(tx *repository.WorkUnit) error {
		inUse, err := tx.Users.EmailInUse(ctx, in.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if inUse {
			return ErrEmailInUse
		}

		if in.ProfilePicture != nil {
			name, err := s.images.SaveFile(ctx, *in.ProfilePicture)
			if err != nil {
				return fmt.Errorf("failed to save profile picture: %w", err)
			}
			savedPicture = name
			user.ProfilePictureName = &name
		}

		if err := tx.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.roles.WithSource(tx.Users).SetRole(ctx, user.ID, in.Role)
	}, func(ctx context.Context) {
		s.deleteImage(ctx, savedPicture)
		if user.ID != 0 {
			if err := s.roles.Invalidate(ctx, user.ID); err != nil {
				s.logger.Printf("[Users] %v", err)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return &UserWithRole{User: *user, Role: in.Role, ProfilePictureURL: s.pictureURL(user.ProfilePictureName)}, nil
}

// DeleteUser soft-deletes a user after purging its memberships. Employees with
// open tasks cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, id uint64) error {
	var oldPicture string

	err := s.tx.Run(ctx, []string{lock.UserKey(id)}, func(tx *repository.WorkUnit) error {
		user, err := tx.Users.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to find user: %w", err)
		}

		role, err := s.roleOf(ctx, s.roles.WithSource(tx.Users), id)
		if err != nil {
			return err
		}
		if role == models.RoleEmployee {
			open, err := tx.Tasks.HasOpenTasks(ctx, repository.TaskFilter{AppointeeID: &id})
			if err != nil {
				return fmt.Errorf("failed to check open tasks: %w", err)
			}
			if open {
				return ErrUncompletedTasks
			}
		}

		if err := tx.Members.DeleteAllForUser(ctx, id); err != nil {
			return fmt.Errorf("failed to remove memberships: %w", err)
		}

		if user.ProfilePictureName != nil {
			oldPicture = *user.ProfilePictureName
		}
		user.ProfilePictureName = nil
		user.RefreshToken = nil
		user.RefreshTokenExpiry = nil
		if err := tx.Users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if err := tx.Users.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	}, nil)
	if err != nil {
		return err
	}

	s.deleteImage(context.WithoutCancel(ctx), oldPicture)
	return nil
}

// UpdateUser patches the supplied fields of targetID on behalf of requesterID.
// A replaced picture is deleted only after the new one has been committed.
func (s *UserService) UpdateUser(ctx context.Context, requesterID, targetID uint64, in UpdateUserInput) (*UserWithRole, error) {
	if in.isEmpty() {
		return nil, ErrEmptyUpdate
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := mergeFieldErrors(validateStruct(in), pictureProblem(in.ProfilePicture)); err != nil {
		return nil, err
	}

	requesterRole, err := s.requesterRole(ctx, s.uow.Users, s.roles, requesterID)
	if err != nil {
		return nil, err
	}
	exists, err := s.uow.Users.Exists(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	if !policy.CanModifyUser(requesterRole, requesterID, targetID) {
		return nil, ErrUnauthorized
	}

	keys := []string{lock.UserKey(targetID)}
	if in.Email != nil {
		keys = append(keys, lock.EmailKey(*in.Email))
	}

	var (
		updated    *models.User
		newPicture string
		oldPicture string
	)
	err = s.tx.Run(ctx, keys, func(tx *repository.WorkUnit) error {
		user, err := tx.Users.FindByID(ctx, targetID)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to find user: %w", err)
		}

		if in.Email != nil && *in.Email != user.Email {
			inUse, err := tx.Users.EmailInUse(ctx, *in.Email)
			if err != nil {
				return fmt.Errorf("failed to check email: %w", err)
			}
			if inUse {
				return ErrEmailInUse
			}
			user.Email = *in.Email
		}
		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.Surname != nil {
			user.Surname = strings.TrimSpace(*in.Surname)
		}

		if in.ProfilePicture != nil {
			name, err := s.images.SaveFile(ctx, *in.ProfilePicture)
			if err != nil {
				return fmt.Errorf("failed to save profile picture: %w", err)
			}
			newPicture = name
			if user.ProfilePictureName != nil {
				oldPicture = *user.ProfilePictureName
			}
			user.ProfilePictureName = &name
		}

		if err := tx.Users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		updated = user
		return nil
	}, func(ctx context.Context) {
		s.deleteImage(ctx, newPicture)
	})
	if err != nil {
		return nil, err
	}

	s.deleteImage(context.WithoutCancel(ctx), oldPicture)

	role, err := s.roles.GetRole(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &UserWithRole{User: *updated, Role: role, ProfilePictureURL: s.pictureURL(updated.ProfilePictureName)}, nil
}

// errCredentialsRejected is returned from inside the login transaction when the
// user vanished or the password no longer matches.
var errCredentialsRejected = errors.New("credentials rejected")

// VerifyCredentials returns (nil, nil) when the email is unknown or the password
// does not match. On success the refresh token is rotated.
func (s *UserService) VerifyCredentials(ctx context.Context, in VerifyCredentialsInput) (*AuthResult, error) {
	found, err := s.uow.Users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	var result *AuthResult
	err = s.tx.Run(ctx, []string{lock.UserKey(found.ID)}, func(tx *repository.WorkUnit) error {
		user, err := tx.Users.FindByID(ctx, found.ID)
		if err != nil {
			if isNotFound(err) {
				return errCredentialsRejected
			}
			return fmt.Errorf("failed to find user: %w", err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
			return errCredentialsRejected
		}

		role, err := s.roleOf(ctx, s.roles.WithSource(tx.Users), user.ID)
		if err != nil {
			return err
		}
		result, err = issueTokens(ctx, tx.Users, s.tokens, user, role, s.pictureURL(user.ProfilePictureName))
		return err
	}, nil)
	if err != nil {
		if errors.Is(err, errCredentialsRejected) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// issueTokens mints a token pair and stores the refresh token on the user.
// Only the refresh token columns are written.
func issueTokens(ctx context.Context, users repository.UserRepository, tokens auth.TokenProvider, user *models.User, role models.Role, pictureURL *string) (*AuthResult, error) {
	pair, err := tokens.IssuePair(user.ID, user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	expiry := pair.RefreshTokenExpiresAt
	if err := users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken, &expiry); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	user.RefreshToken = &pair.RefreshToken
	user.RefreshTokenExpiry = &expiry

	return &AuthResult{
		User:   UserWithRole{User: *user, Role: role, ProfilePictureURL: pictureURL},
		Tokens: pair,
	}, nil
}

// GetAllUsers lists users with their roles resolved through the role cache.
func (s *UserService) GetAllUsers(ctx context.Context, filter UserListFilter) ([]UserWithRole, int64, error) {
	users := s.uow.Users
	if filter.IncludeDeleted {
		users = users.WithDeleted()
	}

	list, total, err := users.List(ctx, repository.UserFilter{
		Role:     filter.Role,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]UserWithRole, 0, len(list))
	for _, u := range list {
		role, err := s.roles.GetRole(ctx, u.ID)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, UserWithRole{User: u, Role: role, ProfilePictureURL: s.pictureURL(u.ProfilePictureName)})
	}
	return result, total, nil
}

// GetProfile returns the user with each project it belongs to and the tasks
// assigned to it there.
func (s *UserService) GetProfile(ctx context.Context, userID uint64) (*UserProfile, error) {
	user, err := s.uow.Users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	role, err := s.roleOf(ctx, s.roles, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.uow.Members.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	projectIDs := make([]uint64, 0, len(memberships))
	for _, m := range memberships {
		projectIDs = append(projectIDs, m.ProjectID)
	}
	projects, err := s.uow.Projects.FindByIDs(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	tasks, err := s.uow.Tasks.List(ctx, repository.TaskFilter{AppointeeID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	byProject := make(map[uint64][]models.Task)
	for _, t := range tasks {
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}

	profile := &UserProfile{
		User:     UserWithRole{User: *user, Role: role, ProfilePictureURL: s.pictureURL(user.ProfilePictureName)},
		Projects: make([]ProfileProject, 0, len(projects)),
	}
	for _, p := range projects {
		projectTasks := byProject[p.ID]
		if projectTasks == nil {
			projectTasks = []models.Task{}
		}
		profile.Projects = append(profile.Projects, ProfileProject{Project: p, Tasks: projectTasks})
	}
	return profile, nil
}

// UpdatePassword replaces the requester's password after checking the current one.
func (s *UserService) UpdatePassword(ctx context.Context, requesterID uint64, in UpdatePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}

	return s.tx.Run(ctx, []string{lock.UserKey(requesterID)}, func(tx *repository.WorkUnit) error {
		user, err := tx.Users.FindByID(ctx, requesterID)
		if err != nil {
			if isNotFound(err) {
				return ErrUnauthorized
			}
			return fmt.Errorf("failed to find user: %w", err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
			return ErrInvalidPassword
		}
		if problem := passwordProblem(in.NewPassword); problem != "" {
			return NewValidationError(map[string]string{"new_password": problem})
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := tx.Users.SetPasswordHash(ctx, requesterID, string(hashed)); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return nil
	}, nil)
}

// DoesUserExist reports whether the user exists, optionally counting soft-deleted users.
func (s *UserService) DoesUserExist(ctx context.Context, id uint64, includeDeleted bool) (bool, error) {
	users := s.uow.Users
	if includeDeleted {
		users = users.WithDeleted()
	}
	exists, err := users.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}
