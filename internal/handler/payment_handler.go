package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// PaymentHandler handles the payment ledger.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List handles GET /v1/payments
func (h *PaymentHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	from, ok := queryDate(c, "date_from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "date_to")
	if !ok {
		return
	}
	f := repository.PaymentFilter{
		Query:    c.Query("query"),
		DateFrom: from,
		DateTo:   to,
		Page:     page,
		Limit:    limit,
	}
	if s := c.Query("status"); s != "" && s != "all" {
		f.Status = models.PaymentStatus(s)
	}
	if m := c.Query("method"); m != "" && m != "all" {
		f.Method = models.PaymentMethod(m)
	}

	payments, total, err := h.payments.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Payments retrieved", payments, page, limit, total)
}

// Pending handles GET /v1/payments/pending
func (h *PaymentHandler) Pending(c *gin.Context) {
	page, limit := pageParams(c)
	minAmount, ok := queryDecimal(c, "min_amount")
	if !ok {
		return
	}
	maxAmount, ok := queryDecimal(c, "max_amount")
	if !ok {
		return
	}
	f := service.PendingFilter{
		Query:     c.Query("query"),
		MinAmount: minAmount,
		MaxAmount: maxAmount,
		Page:      page,
		Limit:     limit,
	}
	if s := c.Query("overdue_status"); s != "all" {
		f.OverdueStatus = s
	}

	res, err := h.payments.Pending(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Pending payments retrieved", gin.H{
		"invoices": res.Invoices,
		"summary":  res.Summary,
	}, page, limit, res.Total)
}

// ListForInvoice handles GET /v1/invoices/:id/payments
func (h *PaymentHandler) ListForInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payments, err := h.payments.ListForInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Payments retrieved", payments)
}

// Record handles POST /v1/invoices/:id/payments
func (h *PaymentHandler) Record(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	res, err := h.payments.Record(c.Request.Context(), id, middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Payment recorded", res)
}

// Update handles PUT /v1/payments/:id
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	res, err := h.payments.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Payment updated", res)
}

// Cancel handles POST /v1/payments/:id/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.payments.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Payment cancelled", res)
}
