package middleware

import (
	"strings"

	"healthbridge-server/internal/identity"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey      = "userID"
	userRoleKey    = "userRole"
	accessTokenKey = "accessToken"
)

// AuthMiddleware resolves the bearer token through the identity provider.
func AuthMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		user, err := provider.CurrentUser(c.Request.Context(), token)
		if err != nil {
			utils.FromError(c, err)
			c.Abort()
			return
		}

		// Set user information in context for downstream handlers
		c.Set(userIDKey, user.ID)
		c.Set(userRoleKey, user.Role)
		c.Set(accessTokenKey, token)

		c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// GetUserIDFromContext returns the authenticated user's id.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// GetUserRoleFromContext returns the authenticated user's role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(userRoleKey)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}

// GetAccessTokenFromContext returns the bearer token the request was authenticated with.
func GetAccessTokenFromContext(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
