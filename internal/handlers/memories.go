package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/middleware"
	"legacyvault/internal/models"
	"legacyvault/internal/service"
)

type memoryResponse struct {
	ID              string   `json:"id"`
	VaultID         string   `json:"vaultId"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	MediaURL        string   `json:"mediaUrl"`
	MediaType       string   `json:"mediaType"`
	ThumbnailURL    *string  `json:"thumbnailUrl,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	SizeBytes       int64    `json:"sizeBytes"`
	Tags            []string `json:"tags"`
	ApprovalStatus  string   `json:"approvalStatus"`
	ApprovedBy      *string  `json:"approvedBy,omitempty"`
	ApprovedByName  *string  `json:"approvedByName,omitempty"`
	ApprovedAt      *string  `json:"approvedAt,omitempty"`
	RejectionReason *string  `json:"rejectionReason,omitempty"`
	CreatedBy       string   `json:"createdBy"`
	CreatedByName   string   `json:"createdByName"`
	CreatedAt       string   `json:"createdAt"`
}

func toMemoryResponse(m models.Memory) memoryResponse {
	resp := memoryResponse{
		ID:              m.ID,
		VaultID:         m.VaultID,
		Title:           m.Title,
		Description:     m.Description,
		MediaURL:        m.MediaURL,
		MediaType:       string(m.MediaType),
		ThumbnailURL:    m.ThumbnailURL,
		DurationSeconds: m.DurationSeconds,
		SizeBytes:       m.SizeBytes,
		Tags:            m.Tags,
		ApprovalStatus:  string(m.ApprovalStatus),
		ApprovedBy:      m.ApprovedBy,
		ApprovedByName:  m.ApprovedByName,
		RejectionReason: m.RejectionReason,
		CreatedBy:       m.CreatedBy,
		CreatedByName:   m.CreatedByName,
		CreatedAt:       m.CreatedAt.Format(timeFormat),
	}
	if m.ApprovedAt != nil {
		s := m.ApprovedAt.Format(timeFormat)
		resp.ApprovedAt = &s
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}

func memoryListResponse(memories []models.Memory) []memoryResponse {
	out := make([]memoryResponse, 0, len(memories))
	for _, m := range memories {
		out = append(out, toMemoryResponse(m))
	}
	return out
}

func (h HandlerSet) UploadMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	var duration *int
	if raw := c.PostForm("durationSeconds"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			duration = &v
		}
	}

	memory, err := h.memoryService.Upload(c.Request.Context(), actor, service.UploadInput{
		VaultID:         c.Param("vaultId"),
		Title:           c.PostForm("title"),
		Description:     c.PostForm("description"),
		Tags:            tags,
		FileName:        header.Filename,
		DeclaredMIME:    header.Header.Get("Content-Type"),
		Size:            header.Size,
		DurationSeconds: duration,
		Body:            file,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMemoryResponse(memory))
}

func (h HandlerSet) ListVaultMemories(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var status *models.ApprovalStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ApprovalStatus(raw)
		switch s {
		case models.ApprovalStatusPending, models.ApprovalStatusApproved, models.ApprovalStatusRejected:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
	}

	memories, err := h.memoryService.ListVaultMemories(c.Request.Context(), actor, c.Param("vaultId"), status)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": memoryListResponse(memories)})
}

func (h HandlerSet) ListRejectedMemories(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	memories, err := h.memoryService.RejectedMemories(c.Request.Context(), actor, c.Param("vaultId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": memoryListResponse(memories)})
}

func (h HandlerSet) GetMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	memory, err := h.memoryService.GetMemory(c.Request.Context(), actor, c.Param("memoryId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemoryResponse(memory))
}

type updateMemoryRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

func (h HandlerSet) UpdateMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req updateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memory, err := h.memoryService.UpdateDetails(c.Request.Context(), actor, c.Param("memoryId"), service.MemoryPatch{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemoryResponse(memory))
}

func (h HandlerSet) DeleteMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	if err := h.memoryService.Delete(c.Request.Context(), actor, c.Param("memoryId")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h HandlerSet) ApproveMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	memory, err := h.memoryService.Approve(c.Request.Context(), actor, c.Param("memoryId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemoryResponse(memory))
}

type rejectMemoryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h HandlerSet) RejectMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req rejectMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memory, err := h.memoryService.Reject(c.Request.Context(), actor, c.Param("memoryId"), req.Reason)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemoryResponse(memory))
}

func (h HandlerSet) ResubmitMemory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	memory, err := h.memoryService.Resubmit(c.Request.Context(), actor, c.Param("memoryId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemoryResponse(memory))
}

type commentResponse struct {
	ID        string `json:"id"`
	MemoryID  string `json:"memoryId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

func toCommentResponse(cm models.Comment) commentResponse {
	return commentResponse{
		ID:        cm.ID,
		MemoryID:  cm.MemoryID,
		UserID:    cm.UserID,
		UserName:  cm.UserName,
		Text:      cm.Text,
		CreatedAt: cm.CreatedAt.Format(timeFormat),
	}
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h HandlerSet) AddComment(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.memoryService.AddComment(c.Request.Context(), actor, c.Param("memoryId"), req.Text)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(comment))
}

func (h HandlerSet) ListComments(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	comments, err := h.memoryService.ListComments(c.Request.Context(), actor, c.Param("memoryId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, toCommentResponse(cm))
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}
