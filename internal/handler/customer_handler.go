package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// CustomerHandler handles the customer ledger endpoints.
type CustomerHandler struct {
	customers *service.CustomerService
}

// NewCustomerHandler constructs a CustomerHandler.
func NewCustomerHandler(customers *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// List handles GET /v1/customers
func (h *CustomerHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	f := repository.CustomerFilter{Search: c.Query("search"), Page: page, Limit: limit}
	if t := c.Query("customer_type"); t != "" && t != "all" {
		f.CustomerType = models.CustomerType(t)
	}
	customers, total, err := h.customers.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Customers retrieved", customers, page, limit, total)
}

// Search handles GET /v1/customers/search?q=
func (h *CustomerHandler) Search(c *gin.Context) {
	customers, err := h.customers.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Customers retrieved", customers)
}

// Get handles GET /v1/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Customer retrieved", customer)
}

// Create handles POST /v1/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Customer created successfully", customer)
}

// QuickAdd handles POST /v1/customers/quick-add. A duplicate answers 409 with
// the existing customer so the checkout screen can select it instead.
func (h *CustomerHandler) QuickAdd(c *gin.Context) {
	var req service.QuickAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	customer, err := h.customers.QuickAdd(c.Request.Context(), &req)
	if err != nil {
		var dup *service.DuplicateCustomerError
		if errors.As(err, &dup) {
			utils.ErrorWithData(c, http.StatusConflict, utils.ErrCustomerExists.Error(),
				utils.Detail(err, utils.ErrCustomerExists, "Customer already exists"),
				gin.H{"existingCustomer": dup.Existing})
			return
		}
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Customer added successfully", customer)
}

// Update handles PUT /v1/customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Customer updated successfully", customer)
}

// Delete handles DELETE /v1/customers/:id
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Customer deleted successfully", nil)
}

// Credit handles GET /v1/customers/:id/credit
func (h *CustomerHandler) Credit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	credit, err := h.customers.Credit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Credit retrieved", credit)
}

// PaymentHistory handles GET /v1/customers/:id/payment-history
func (h *CustomerHandler) PaymentHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := h.customers.PaymentHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Payment history retrieved", history)
}
