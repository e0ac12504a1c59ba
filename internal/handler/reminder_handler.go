package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// ReminderHandler handles payment reminders.
type ReminderHandler struct {
	reminders *service.ReminderService
}

// NewReminderHandler constructs a ReminderHandler.
func NewReminderHandler(reminders *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// List handles GET /v1/invoices/:id/reminders
func (h *ReminderHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reminders, err := h.reminders.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Reminders retrieved", reminders)
}

// Send handles POST /v1/invoices/:id/reminders
func (h *ReminderHandler) Send(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.SendReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	r, err := h.reminders.Send(c.Request.Context(), id, middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Reminder sent", r)
}

// Bulk handles POST /v1/reminders/bulk
func (h *ReminderHandler) Bulk(c *gin.Context) {
	var req service.BulkReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	res, err := h.reminders.Bulk(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, fmt.Sprintf("%d reminders sent, %d skipped", res.Sent, res.Skipped), res)
}
