package middleware

import (
	"context"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/employee-admin-api/internal/auth"
	"github.com/yukikurage/employee-admin-api/internal/constants"
	apierrors "github.com/yukikurage/employee-admin-api/internal/errors"
	"github.com/yukikurage/employee-admin-api/internal/models"
)

// Authenticator resolves callers and checks their roles.
type Authenticator interface {
	Authenticate(token string) (auth.Claims, error)
	IsUserAuthorized(ctx context.Context, userID uint64, allowed ...models.Role) (bool, error)
}

// RequireAuth accepts a Bearer access token or, failing that, the login session.
// The caller must still be an active user.
func RequireAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveCaller(c, authn)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		active, err := authn.IsUserAuthorized(c.Request.Context(), userID, models.AllRoles()...)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !active {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

func resolveCaller(c *gin.Context, authn Authenticator) (uint64, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return 0, false
		}
		claims, err := authn.Authenticate(token)
		if err != nil {
			return 0, false
		}
		return claims.UserID, true
	}

	session := sessions.Default(c)
	return toUserID(session.Get(constants.ContextKeyUserID))
}

// RequireRole lets the request through only when the caller holds one of roles.
// It must run after RequireAuth.
func RequireRole(authn Authenticator, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		ok, err := authn.IsUserAuthorized(c.Request.Context(), userID, roles...)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !ok {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

func toUserID(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
