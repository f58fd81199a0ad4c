package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/models"
)

// RequirePermission gates a route on the caller holding at least one of the
// given permissions. Runs after Auth.
func RequirePermission(perms ...models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !actor.Perms.HasAnyPermission(perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}

// RequireAllPermissions gates a route on the caller holding every one of the
// given permissions.
func RequireAllPermissions(perms ...models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !actor.Perms.HasAllPermissions(perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
