package middleware

import (
	"net/http"

	"villabook/internal/domain"
	"villabook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated user has one of the given roles
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		current := domain.UserRole(role.(string))
		for _, r := range roles {
			if r == current {
				c.Next()
				return
			}
		}

		response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}

// StaffOnly admits owners and admins.
func StaffOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleOwner, domain.RoleAdmin)
}
