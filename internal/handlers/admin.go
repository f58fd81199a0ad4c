package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/jobs"
	"legacyvault/internal/middleware"
	"legacyvault/internal/models"
)

// AdminStats reports approval queue sizes, served from the hourly snapshot
// when the scheduler has written one and recomputed otherwise.
func (h HandlerSet) AdminStats(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	ctx := c.Request.Context()

	var counts map[models.ApprovalStatus]int
	if payload, err := h.cache.Get(ctx, jobs.StatsCacheKey).Bytes(); err == nil {
		counts, err = jobs.ParseStatsSnapshot(payload)
		if err != nil {
			h.log.Warn().Err(err).Msg("discarding unreadable stats snapshot")
			counts = nil
		}
	}
	if counts == nil {
		var err error
		counts, err = h.memoryService.PendingCounts(ctx, actor)
		if err != nil {
			h.serviceError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"memories": gin.H{
			"pending":  counts[models.ApprovalStatusPending],
			"approved": counts[models.ApprovalStatusApproved],
			"rejected": counts[models.ApprovalStatusRejected],
		},
	})
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type setUserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) AdminSetUserStatus(c *gin.Context) {
	var req setUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.UserStatus(req.Status)
	switch status {
	case models.UserStatusActive, models.UserStatusSuspended, models.UserStatusPending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if err := h.users.UpdateStatus(c.Request.Context(), c.Param("userId"), status); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
