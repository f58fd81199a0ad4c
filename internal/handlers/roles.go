package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/middleware"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
	"legacyvault/internal/service"
)

type roleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	IsSystem    bool     `json:"isSystem"`
}

func toRoleResponse(r models.Role) roleResponse {
	perms := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, string(p))
	}
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		IsSystem:    r.IsSystem,
	}
}

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.rbacService.Roles(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"roles": out})
}

func (h HandlerSet) GetRole(c *gin.Context) {
	role, err := h.rbacService.Role(c.Request.Context(), c.Param("roleId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

type createRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions" binding:"required"`
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.rbacService.CreateRole(c.Request.Context(), service.RoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: toPermissions(req.Permissions),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRoleResponse(role))
}

type updateRoleRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

func (h HandlerSet) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var perms []models.Permission
	if req.Permissions != nil {
		perms = toPermissions(req.Permissions)
	}

	role, err := h.rbacService.UpdateRole(c.Request.Context(), c.Param("roleId"), service.RolePatch{
		Name:        req.Name,
		Description: req.Description,
		Permissions: perms,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	if err := h.rbacService.DeleteRole(c.Request.Context(), c.Param("roleId")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h HandlerSet) ListUserRoles(c *gin.Context) {
	roles, err := h.rbacService.RolesForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"roles": out})
}

type assignRoleRequest struct {
	RoleID string `json:"roleId" binding:"required"`
}

func (h HandlerSet) AssignUserRole(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rbacService.AssignRole(c.Request.Context(), c.Param("userId"), req.RoleID, actor.User.ID); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

func (h HandlerSet) RemoveUserRole(c *gin.Context) {
	if err := h.rbacService.RemoveRole(c.Request.Context(), c.Param("userId"), c.Param("roleId")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type permissionEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListPermissions returns the closed permission vocabulary grouped by
// category, for the role editor UI.
func (h HandlerSet) ListPermissions(c *gin.Context) {
	grouped := map[string][]permissionEntry{}
	for category, perms := range rbac.PermissionsByCategory() {
		entries := make([]permissionEntry, 0, len(perms))
		for _, p := range perms {
			entries = append(entries, permissionEntry{
				ID:          string(p),
				Name:        rbac.PermissionName(p),
				Description: rbac.PermissionDescription(p),
			})
		}
		grouped[category] = entries
	}
	c.JSON(http.StatusOK, gin.H{"permissions": grouped})
}

func toPermissions(perms []string) []models.Permission {
	out := make([]models.Permission, 0, len(perms))
	for _, p := range perms {
		out = append(out, models.Permission(p))
	}
	return out
}
