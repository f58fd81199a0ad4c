package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/middleware"
	"legacyvault/internal/models"
	"legacyvault/internal/service"
)

type vaultResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Description     string                `json:"description,omitempty"`
	CoverImage      string                `json:"coverImage,omitempty"`
	Theme           string                `json:"theme,omitempty"`
	RequireApproval bool                  `json:"requireApproval"`
	CreatedBy       string                `json:"createdBy"`
	CreatedAt       string                `json:"createdAt"`
	Members         []vaultMemberResponse `json:"members"`
}

type vaultMemberResponse struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joinedAt"`
}

func toVaultResponse(v models.Vault) vaultResponse {
	members := make([]vaultMemberResponse, 0, len(v.Members))
	for _, m := range v.Members {
		members = append(members, vaultMemberResponse{
			UserID:   m.UserID,
			Name:     m.Name,
			Email:    m.Email,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(timeFormat),
		})
	}
	return vaultResponse{
		ID:              v.ID,
		Name:            v.Name,
		Description:     v.Description,
		CoverImage:      v.CoverImage,
		Theme:           v.Theme,
		RequireApproval: v.RequireApproval,
		CreatedBy:       v.CreatedBy,
		CreatedAt:       v.CreatedAt.Format(timeFormat),
		Members:         members,
	}
}

type createVaultRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	Theme           string `json:"theme"`
	RequireApproval bool   `json:"requireApproval"`
}

func (h HandlerSet) CreateVault(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req createVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vault, err := h.vaultService.CreateVault(c.Request.Context(), actor, service.CreateVaultInput{
		Name:            req.Name,
		Description:     req.Description,
		Theme:           req.Theme,
		RequireApproval: req.RequireApproval,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toVaultResponse(vault))
}

func (h HandlerSet) ListVaults(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	vaults, err := h.vaultService.ListVaults(c.Request.Context(), actor)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	out := make([]vaultResponse, 0, len(vaults))
	for _, v := range vaults {
		out = append(out, toVaultResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"vaults": out})
}

func (h HandlerSet) GetVault(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	vault, err := h.vaultService.GetVault(c.Request.Context(), actor, c.Param("vaultId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVaultResponse(vault))
}

type updateVaultRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Theme       *string `json:"theme"`
}

func (h HandlerSet) UpdateVault(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req updateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vault, err := h.vaultService.UpdateVault(c.Request.Context(), actor, c.Param("vaultId"), service.VaultPatch{
		Name:        req.Name,
		Description: req.Description,
		Theme:       req.Theme,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVaultResponse(vault))
}

func (h HandlerSet) DeleteVault(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	if err := h.vaultService.DeleteVault(c.Request.Context(), actor, c.Param("vaultId")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type vaultSettingsRequest struct {
	RequireApproval bool `json:"requireApproval"`
}

func (h HandlerSet) UpdateVaultSettings(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req vaultSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vaultService.UpdateSettings(c.Request.Context(), actor, c.Param("vaultId"), req.RequireApproval); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requireApproval": req.RequireApproval})
}

func (h HandlerSet) UploadVaultCover(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.Upload.MaxSizeBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return
	}

	url, err := h.vaultService.UploadCover(c.Request.Context(), actor, c.Param("vaultId"), data)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coverImage": url})
}

type addMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

func (h HandlerSet) AddVaultMember(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.vaultService.AddMember(c.Request.Context(), actor, c.Param("vaultId"), service.AddMemberInput{
		Email: req.Email,
		Role:  models.VaultRole(req.Role),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, vaultMemberResponse{
		UserID:   member.UserID,
		Name:     member.Name,
		Email:    member.Email,
		Role:     string(member.Role),
		JoinedAt: member.JoinedAt.Format(timeFormat),
	})
}

func (h HandlerSet) RemoveVaultMember(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	if err := h.vaultService.RemoveMember(c.Request.Context(), actor, c.Param("vaultId"), c.Param("userId")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type memberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h HandlerSet) UpdateVaultMemberRole(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req memberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if role := models.VaultRole(req.Role); role != models.VaultRoleAdmin && role != models.VaultRoleMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	err := h.vaultService.UpdateMemberRole(c.Request.Context(), actor, c.Param("vaultId"), c.Param("userId"), models.VaultRole(req.Role))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": req.Role})
}
