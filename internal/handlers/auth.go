// internal/handlers/auth.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swapmart/backend/internal/i18n"
	"github.com/swapmart/backend/internal/services"
	"github.com/swapmart/backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	h.issue(c, http.StatusCreated, i18n.KeyAuthRegisterSuccess, func(ctx context.Context) (*services.AuthResponse, error) {
		return h.authService.Register(ctx, &req)
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	h.issue(c, http.StatusOK, i18n.KeyAuthLoginSuccess, func(ctx context.Context) (*services.AuthResponse, error) {
		return h.authService.Login(ctx, &req)
	})
}

// issue runs an authentication step and answers with the session it opened.
// The access token is reported as "token" for existing clients.
func (h *AuthHandler) issue(c *gin.Context, status int, messageKey string, authenticate func(context.Context) (*services.AuthResponse, error)) {
	session, err := authenticate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, utils.APIResponse{
		Success: true,
		Data: gin.H{
			"message":       i18n.T(utils.GetLangFromContext(c), messageKey),
			"user":          session.User,
			"token":         session.AccessToken,
			"refresh_token": session.RefreshToken,
			"token_type":    session.TokenType,
			"expires_in":    session.ExpiresIn,
		},
	})
}

// GET /auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, user)
}
