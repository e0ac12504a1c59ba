package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// StaffHandler manages back-office logins. Every route is admin only.
type StaffHandler struct {
	staff *service.StaffAuthService
}

func NewStaffHandler(staff *service.StaffAuthService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// List handles GET /v1/staff
func (h *StaffHandler) List(c *gin.Context) {
	users, err := h.staff.ListStaff(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Staff users retrieved", users)
}

// Get handles GET /v1/staff/:id
func (h *StaffHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.staff.GetStaff(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Staff user retrieved", user)
}

// Create handles POST /v1/staff
func (h *StaffHandler) Create(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := h.staff.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "User created successfully", user)
}

// Update handles PUT /v1/staff/:id
func (h *StaffHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := h.staff.UpdateStaff(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "User "+user.Email+" updated successfully", user)
}

// ResetPassword handles POST /v1/staff/:id/reset-password. The new password
// is only ever returned in this response.
func (h *StaffHandler) ResetPassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reset, err := h.staff.ResetPassword(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Password for "+reset.User.Email+" has been reset", reset)
}

// ToggleActive handles POST /v1/staff/:id/toggle-active
func (h *StaffHandler) ToggleActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.staff.ToggleActive(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	state := "deactivated"
	if user.IsActive {
		state = "activated"
	}
	utils.Success(c, 200, "User "+user.Email+" has been "+state, user)
}
