package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/auth"
	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/storage"
)

// AuthService handles token refresh and role checks for the API layer.
type AuthService struct {
	base
	tokens auth.TokenProvider
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(uow *repository.WorkUnit, tx *Transactor, roleCache *roles.Cache, images storage.ImageStore, tokens auth.TokenProvider) *AuthService {
	return &AuthService{
		base:   newBase(uow, tx, roleCache, images),
		tokens: tokens,
		now:    time.Now,
	}
}

// RefreshInput carries the token pair presented by the client.
type RefreshInput struct {
	AccessToken  string
	RefreshToken string
}

// RefreshTokens exchanges a (possibly expired) access token and its refresh
// token for a new pair.
func (s *AuthService) RefreshTokens(ctx context.Context, in RefreshInput) (*AuthResult, error) {
	claims, err := s.tokens.ParseExpiredAccessToken(in.AccessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	var result *AuthResult
	err = s.tx.Run(ctx, []string{lock.UserKey(claims.UserID)}, func(tx *repository.WorkUnit) error {
		user, err := tx.Users.FindByID(ctx, claims.UserID)
		if err != nil {
			if isNotFound(err) {
				return ErrUnauthorized
			}
			return fmt.Errorf("failed to find user: %w", err)
		}

		if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(in.RefreshToken)) != 1 {
			return ErrUnauthorized
		}
		if user.RefreshTokenExpiry == nil || !s.now().Before(*user.RefreshTokenExpiry) {
			return ErrExpiredRefreshToken
		}

		role, err := s.roleOf(ctx, s.roles.WithSource(tx.Users), user.ID)
		if err != nil {
			return err
		}
		result, err = issueTokens(ctx, tx.Users, s.tokens, user, role, s.pictureURL(user.ProfilePictureName))
		if errors.Is(err, ErrUserNotFound) {
			return ErrUnauthorized
		}
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevokeRefreshToken clears the stored refresh token of a user. Unknown and
// deleted users are ignored.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, userID uint64) error {
	err := s.tx.Run(ctx, []string{lock.UserKey(userID)}, func(tx *repository.WorkUnit) error {
		return tx.Users.SetRefreshToken(ctx, userID, nil, nil)
	}, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// IsUserAuthorized reports whether an active user holds one of the allowed roles.
func (s *AuthService) IsUserAuthorized(ctx context.Context, userID uint64, allowed ...models.Role) (bool, error) {
	exists, err := s.uow.Users.Exists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	if !exists {
		return false, nil
	}

	role, err := s.roles.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, roles.ErrRoleUndefined) {
			return false, nil
		}
		return false, err
	}
	return slices.Contains(allowed, role), nil
}

// Authenticate validates an access token and returns its claims.
func (s *AuthService) Authenticate(token string) (auth.Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return auth.Claims{}, ErrUnauthorized
	}
	return claims, nil
}
