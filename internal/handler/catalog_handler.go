package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// maxUploadBytes caps price-list uploads.
const maxUploadBytes = 10 << 20

// CatalogHandler handles products, qualities and price lists.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListProducts handles GET /v1/products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, limit := pageParams(c)
	products, total, err := h.catalog.ListProducts(c.Request.Context(), repository.ProductFilter{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Products retrieved", products, page, limit, total)
}

// SearchProducts handles GET /v1/products/search?q=
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	products, err := h.catalog.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Products retrieved", products)
}

// GetProduct handles GET /v1/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", p)
}

// CreateProduct handles POST /v1/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Product created successfully", p)
}

// UpdateProduct handles PUT /v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product updated successfully", p)
}

// DeleteProduct handles DELETE /v1/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product deleted successfully", nil)
}

// CreateQuality handles POST /v1/products/:id/qualities
func (h *CatalogHandler) CreateQuality(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.QualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	q, err := h.catalog.CreateQuality(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Quality created successfully", q)
}

// UpdateQuality handles PUT /v1/qualities/:id
func (h *CatalogHandler) UpdateQuality(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.QualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	q, err := h.catalog.UpdateQuality(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Quality updated successfully", q)
}

// DeleteQuality handles DELETE /v1/qualities/:id
func (h *CatalogHandler) DeleteQuality(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteQuality(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Quality deleted successfully", nil)
}

// QualityPrice handles GET /v1/qualities/:id/price?customer_type=
func (h *CatalogHandler) QualityPrice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	price, err := h.catalog.PriceFor(c.Request.Context(), id, models.CustomerType(c.Query("customer_type")))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Price retrieved", price)
}

// UploadPriceList handles POST /v1/price-lists/upload (multipart field "file").
func (h *CatalogHandler) UploadPriceList(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		badRequest(c, "Please upload an .xlsx file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Uploaded file could not be read")
		return
	}
	defer f.Close()

	res, err := h.catalog.ImportPriceList(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := fmt.Sprintf("Successfully processed %d products: %d created, %d updated.", res.Processed, res.Created, res.Updated)
	utils.Success(c, 200, msg, res)
}

// ExportPriceList handles GET /v1/price-lists/export
func (h *CatalogHandler) ExportPriceList(c *gin.Context) {
	data, err := h.catalog.ExportPriceList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("price_list_%s.xlsx", time.Now().Format("2006-01-02"))
	utils.Attachment(c, name, utils.ContentTypeXLSX, data)
}

// PriceListTemplate handles GET /v1/price-lists/template
func (h *CatalogHandler) PriceListTemplate(c *gin.Context) {
	data, err := h.catalog.PriceListTemplate()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Attachment(c, "price_list_template.xlsx", utils.ContentTypeXLSX, data)
}
