package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

// Self admits a caller acting on its own student id (the :id path param).
const Self = "SELF"

// RBAC admits callers whose user type is listed. The Self entry also admits
// a caller whose user id equals the :id path parameter.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedTypes := make(map[models.UserType]struct{}, len(allowed))
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedTypes[models.NormalizeUserType(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedTypes[claims.UserType]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireUserTypes is a helper that accepts a list of user types.
func RequireUserTypes(types ...models.UserType) gin.HandlerFunc {
	allowed := make([]string, len(types))
	for i, t := range types {
		allowed[i] = string(t)
	}
	return RBAC(allowed...)
}

// AdminOrSelf admits the given admin user types plus the student named by :id.
func AdminOrSelf(adminTypes ...models.UserType) gin.HandlerFunc {
	allowed := make([]string, 0, len(adminTypes)+1)
	for _, t := range adminTypes {
		allowed = append(allowed, string(t))
	}
	return RBAC(append(allowed, Self)...)
}
