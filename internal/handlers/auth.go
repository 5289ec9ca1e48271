package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/employee-admin-api/internal/constants"
	"github.com/yukikurage/employee-admin-api/internal/dto"
	apierrors "github.com/yukikurage/employee-admin-api/internal/errors"
	"github.com/yukikurage/employee-admin-api/internal/middleware"
	"github.com/yukikurage/employee-admin-api/internal/services"
)

// AuthHandler coordinates identity-related HTTP handlers.
type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *services.UserService, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

// Login verifies credentials, issues a token pair and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.userService.VerifyCredentials(c.Request.Context(), services.VerifyCredentialsInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}
	if result == nil {
		apierrors.InvalidCredentials(c)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, result.User.User.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToLoginResponse(*result))
}

// Refresh exchanges an access token and its refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		AccessToken  string `json:"access_token" binding:"required"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.RefreshTokens(c.Request.Context(), services.RefreshInput{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		if services.KindOf(err) == services.KindUnauthorized && !errors.Is(err, services.ErrExpiredRefreshToken) {
			apierrors.Unauthorized(c, "Invalid refresh token")
			return
		}
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToLoginResponse(*result))
}

// Logout revokes the refresh token and removes the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID, exists := middleware.GetUserID(c); exists {
		if err := h.authService.RevokeRefreshToken(c.Request.Context(), userID); err != nil {
			apierrors.RespondWithServiceError(c, err)
			return
		}
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetProfile returns the authenticated user with their projects and tasks.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

// UpdatePassword changes the authenticated user's password.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.UpdatePasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.userService.UpdatePassword(c.Request.Context(), userID, req); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
