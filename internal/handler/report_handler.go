package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// ReportHandler serves the reports as JSON or as xlsx/pdf downloads.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// respond writes report as JSON or renders it in the ?format requested.
func (h *ReportHandler) respond(c *gin.Context, message string, report service.Exportable) {
	format := c.DefaultQuery("format", service.FormatJSON)
	if format == service.FormatJSON {
		utils.Success(c, 200, message, report)
		return
	}
	doc, err := h.reports.Export(report, format)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}

// Sales handles GET /v1/reports/sales
func (h *ReportHandler) Sales(c *gin.Context) {
	var req service.SalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid report filters")
		return
	}
	report, err := h.reports.Sales(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, "Sales report generated", report)
}

// Products handles GET /v1/reports/products
func (h *ReportHandler) Products(c *gin.Context) {
	var req service.ProductReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid report filters")
		return
	}
	minQty, ok := queryDecimal(c, "min_quantity")
	if !ok {
		return
	}
	if minQty != nil {
		req.MinQuantity = *minQty
	}
	report, err := h.reports.Products(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, "Product report generated", report)
}

// Customers handles GET /v1/reports/customers
func (h *ReportHandler) Customers(c *gin.Context) {
	var req service.CustomerReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid report filters")
		return
	}
	report, err := h.reports.Customers(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, "Customer report generated", report)
}

// Credit handles GET /v1/reports/credit
func (h *ReportHandler) Credit(c *gin.Context) {
	var req service.CreditReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid report filters")
		return
	}
	report, err := h.reports.Credit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, "Credit report generated", report)
}

// Dashboard handles GET /v1/reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dash, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Dashboard loaded", dash)
}
