// Package roles resolves user roles through a cache-aside store backed by the
// user table.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/cache"
	"github.com/yukikurage/employee-admin-api/internal/constants"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"gorm.io/gorm"
)

// ErrRoleUndefined is returned when no user backs the requested id.
var ErrRoleUndefined = errors.New("role undefined for user")

// Source is the source of truth for user roles.
type Source interface {
	FindRole(ctx context.Context, userID uint64) (models.Role, error)
	UpdateRole(ctx context.Context, userID uint64, role models.Role) error
}

type Cache struct {
	store  cache.Store
	source Source
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a role cache. A zero ttl keeps entries until invalidated.
func NewCache(store cache.Store, source Source, ttl time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{store: store, source: source, ttl: ttl, logger: logger}
}

// WithSource returns a cache sharing the same store but reading from src,
// typically a repository bound to an open transaction.
func (c *Cache) WithSource(src Source) *Cache {
	clone := *c
	clone.source = src
	return &clone
}

func key(userID uint64) string {
	return constants.RoleCacheKeyPrefix + strconv.FormatUint(userID, 10)
}

// GetRole returns the role of a user, soft-deleted users included.
func (c *Cache) GetRole(ctx context.Context, userID uint64) (models.Role, error) {
	var cached models.Role
	found, err := c.store.GetJSON(ctx, key(userID), &cached)
	if err != nil {
		c.logger.Printf("[Roles] cache read failed for user %d: %v", userID, err)
	}
	if found && cached.Valid() {
		return cached, nil
	}

	role, err := c.source.FindRole(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %d", ErrRoleUndefined, userID)
		}
		return 0, fmt.Errorf("failed to load role: %w", err)
	}

	if err := c.store.SetJSON(ctx, key(userID), role, c.ttl); err != nil {
		c.logger.Printf("[Roles] cache write failed for user %d: %v", userID, err)
	}
	return role, nil
}

// IsInRole reports whether the user holds role.
func (c *Cache) IsInRole(ctx context.Context, userID uint64, role models.Role) (bool, error) {
	current, err := c.GetRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return current == role, nil
}

// SetRole writes the role to the store and then to the cache.
func (c *Cache) SetRole(ctx context.Context, userID uint64, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %d", role)
	}
	if err := c.source.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrRoleUndefined, userID)
		}
		return fmt.Errorf("failed to store role: %w", err)
	}
	if err := c.store.SetJSON(ctx, key(userID), role, c.ttl); err != nil {
		c.logger.Printf("[Roles] cache write failed for user %d: %v", userID, err)
	}
	return nil
}

// Invalidate drops the cached role of a user.
func (c *Cache) Invalidate(ctx context.Context, userID uint64) error {
	if err := c.store.Delete(ctx, key(userID)); err != nil {
		return fmt.Errorf("failed to invalidate role: %w", err)
	}
	return nil
}
