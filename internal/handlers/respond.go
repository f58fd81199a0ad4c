package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/approval"
	"legacyvault/internal/repository"
	"legacyvault/internal/service"
)

const timeFormat = time.RFC3339

// serviceError maps service and repository sentinels onto HTTP statuses.
// Anything unmapped is a 500 and gets logged by the caller.
func (h HandlerSet) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrVaultNotFound),
		errors.Is(err, repository.ErrMemoryNotFound),
		errors.Is(err, repository.ErrMemberNotFound),
		errors.Is(err, repository.ErrRoleNotFound),
		errors.Is(err, repository.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, repository.ErrMemberExists),
		errors.Is(err, repository.ErrRoleAlreadyAssigned),
		errors.Is(err, approval.ErrInvalidTransition),
		errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, service.ErrLastRole):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotVaultMember),
		errors.Is(err, service.ErrSystemRoleImmutable),
		errors.Is(err, service.ErrUserSuspended),
		errors.Is(err, approval.ErrNotCreator):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrTypeMismatch),
		errors.Is(err, service.ErrUnknownPermission),
		errors.Is(err, approval.ErrReasonRequired),
		errors.Is(err, repository.ErrRoleNotAssigned):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
