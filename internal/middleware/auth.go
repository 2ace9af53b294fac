package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"villabook/internal/domain"
	"villabook/internal/pkg/jwt"
	"villabook/internal/pkg/response"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth requires a valid bearer token and stores user_id and role in the context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// CurrentUser returns the authenticated user id and role, zero values when anonymous.
func CurrentUser(c *gin.Context) (int64, domain.UserRole) {
	return c.GetInt64(ctxUserID), domain.UserRole(c.GetString(ctxRole))
}

// OptionalJWTAuth sets the caller when a valid bearer token is present and
// lets anonymous requests through otherwise.
func OptionalJWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && strings.TrimSpace(token) != "" {
			if claims, err := jwtService.ValidateToken(strings.TrimSpace(token)); err == nil {
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxRole, string(claims.Role))
			}
		}
		c.Next()
	}
}
