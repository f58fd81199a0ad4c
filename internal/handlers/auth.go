package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legacyvault/internal/middleware"
	"legacyvault/internal/models"
	"legacyvault/internal/service"
)

type signUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	DeviceID     string       `json:"deviceId"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	Status      string  `json:"status"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Status:      string(u.Status),
		AvatarURL:   u.AvatarURL,
	}
}

func sendAuthResponse(c *gin.Context, result service.AuthResult) {
	c.JSON(http.StatusOK, authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		DeviceID:     result.DeviceID,
		User:         toUserResponse(result.User),
	})
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sendAuthResponse(c, result)
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	sendAuthResponse(c, result)
}

type refreshRequest struct {
	UserID       string `json:"userId" binding:"required"`
	DeviceID     string `json:"deviceId" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), service.RefreshInput{
		UserID:       req.UserID,
		DeviceID:     req.DeviceID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	sendAuthResponse(c, result)
}

type logoutRequest struct {
	UserID   string `json:"userId" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

func (h HandlerSet) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.UserID, req.DeviceID); err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h HandlerSet) Me(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	perms := actor.Perms.Permissions()
	permStrings := make([]string, 0, len(perms))
	for _, p := range perms {
		permStrings = append(permStrings, string(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        toUserResponse(actor.User),
		"permissions": permStrings,
	})
}

type updateProfileRequest struct {
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), actor.User.ID, service.ProfilePatch{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type deleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) DeleteAccount(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), actor.User.ID, req.Password); err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type sessionResponse struct {
	ID         string `json:"id"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	IPAddress  string `json:"ipAddress"`
	LastSeenAt string `json:"lastSeenAt"`
	ExpiresAt  string `json:"expiresAt"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	sessions, err := h.authService.Sessions(c.Request.Context(), actor.User.ID)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			DeviceID:   s.DeviceID,
			DeviceName: s.DeviceName,
			IPAddress:  s.IPAddress,
			LastSeenAt: s.LastSeenAt.Format(timeFormat),
			ExpiresAt:  s.ExpiresAt.Format(timeFormat),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	if err := h.authService.Logout(c.Request.Context(), actor.User.ID, c.Param("deviceId")); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
