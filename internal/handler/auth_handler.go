package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

type AuthHandler struct {
	authService *service.StaffAuthService
	limiter     *middleware.LoginRateLimiter
}

func NewAuthHandler(authService *service.StaffAuthService, limiter *middleware.LoginRateLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter}
}

// Login handles POST /v1/auth/login. Only failed attempts count towards the
// per-IP limit enforced by limiter.Guard.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) || errors.Is(err, utils.ErrAccountInactive) {
			h.limiter.Fail(c.ClientIP())
		}
		respondError(c, err)
		return
	}
	h.limiter.Reset(c.ClientIP())

	utils.Success(c, 200, "Login successful", res)
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	utils.Success(c, 200, "Current user", gin.H{
		"id":    middleware.UserID(c),
		"email": c.GetString(middleware.ContextEmail),
		"role":  middleware.Role(c),
	})
}
