package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// InvoiceHandler handles draft editing and the invoice lifecycle.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler constructs an InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List handles GET /v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	from, ok := queryDate(c, "date_from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "date_to")
	if !ok {
		return
	}
	f := repository.InvoiceFilter{
		Query:    c.Query("query"),
		DateFrom: from,
		DateTo:   to,
		Page:     page,
		Limit:    limit,
	}
	if s := c.Query("status"); s != "" && s != "all" {
		f.Status = models.InvoiceStatus(s)
	}
	if pt := c.Query("payment_type"); pt != "" && pt != "all" {
		f.PaymentType = models.PaymentType(pt)
	}

	res, err := h.invoices.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Invoices retrieved", gin.H{
		"invoices": res.Invoices,
		"totals":   res.Totals,
	}, page, limit, res.Total)
}

// Get handles GET /v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice retrieved", detail)
}

// CreateDraft handles POST /v1/invoices
func (h *InvoiceHandler) CreateDraft(c *gin.Context) {
	var req service.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	inv, err := h.invoices.CreateDraft(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Draft invoice created", inv)
}

// UpdateDraft handles PUT /v1/invoices/:id
func (h *InvoiceHandler) UpdateDraft(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	inv, err := h.invoices.UpdateDraft(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice updated", inv)
}

// Delete handles DELETE /v1/invoices/:id (admin only).
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice deleted", nil)
}

// AddItem handles POST /v1/invoices/:id/items
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	item, inv, err := h.invoices.AddItem(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Item added", gin.H{"item": item, "invoice": inv})
}

// UpdateItem handles PUT /v1/invoices/:id/items/:itemId
func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	var req service.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	item, inv, err := h.invoices.UpdateItem(c.Request.Context(), id, itemID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Item updated", gin.H{"item": item, "invoice": inv})
}

// RemoveItem handles DELETE /v1/invoices/:id/items/:itemId
func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	inv, err := h.invoices.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Item removed", inv)
}

// Issue handles POST /v1/invoices/:id/issue
func (h *InvoiceHandler) Issue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Issue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice issued", inv)
}

// MarkPaid handles POST /v1/invoices/:id/mark-paid
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	inv, warnings, err := h.invoices.MarkPaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice marked as paid", gin.H{"invoice": inv, "warnings": warnings})
}

// Cancel handles POST /v1/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	inv, warnings, err := h.invoices.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice cancelled", gin.H{"invoice": inv, "warnings": warnings})
}

// SetDueDate handles PUT /v1/invoices/:id/due-date
func (h *InvoiceHandler) SetDueDate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		DueDate string `json:"dueDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "dueDate is required")
		return
	}
	inv, err := h.invoices.SetDueDate(c.Request.Context(), id, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Due date updated", inv)
}

// PDF handles GET /v1/invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.invoices.PDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Attachment(c, filename, utils.ContentTypePDF, data)
}

// Archive handles POST /v1/invoices/:id/pdf/archive
func (h *InvoiceHandler) Archive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	url, err := h.invoices.Archive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Invoice archived", gin.H{"url": url})
}
