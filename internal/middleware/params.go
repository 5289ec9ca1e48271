package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/employee-admin-api/internal/errors"
)

// RequireIDParam parses the numeric path parameter name and stores it under the
// same key in the context.
func RequireIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(name), 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, "Invalid "+name)
			c.Abort()
			return
		}
		c.Set(name, id)
		c.Next()
	}
}

// GetIDParam returns an id stored by RequireIDParam.
func GetIDParam(c *gin.Context, name string) (uint64, bool) {
	v, exists := c.Get(name)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
