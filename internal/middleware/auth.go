package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/config"
	"legacyvault/internal/models"
	"legacyvault/internal/repository"
	"legacyvault/internal/security"
	"legacyvault/internal/service"
)

const (
	contextActor        = "actor"
	contextAccessClaims = "access_claims"
)

// Auth authenticates the bearer token, verifies the backing session, and
// resolves the caller's effective permission set onto the request context.
func Auth(
	cfg *config.AppConfig,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	rbacSvc *service.RBACService,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		session, err := sessions.GetByID(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}

		if session.UserID != claims.UserID || session.DeviceID != claims.DeviceID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_mismatch"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}

		if user.Status != models.UserStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		}

		perms, err := rbacSvc.EvaluatorFor(c.Request.Context(), user.ID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "permission_lookup_failed"})
			return
		}

		_ = sessions.Touch(c.Request.Context(), session.ID, c.ClientIP(), c.GetHeader("User-Agent"))

		c.Set(contextAccessClaims, *claims)
		c.Set(contextActor, service.Actor{User: user, Perms: perms})

		c.Next()
	}
}

// CurrentActor returns the authenticated caller set by Auth.
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	val, ok := c.Get(contextActor)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := val.(service.Actor)
	return actor, ok
}

// AccessClaims returns the parsed token claims set by Auth.
func AccessClaims(c *gin.Context) (security.AccessClaims, bool) {
	val, ok := c.Get(contextAccessClaims)
	if !ok {
		return security.AccessClaims{}, false
	}
	claims, ok := val.(security.AccessClaims)
	return claims, ok
}
