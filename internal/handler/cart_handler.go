package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// CartHandler handles the session cart and checkout.
type CartHandler struct {
	cart     *service.CartService
	checkout *service.CheckoutService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(cart *service.CartService, checkout *service.CheckoutService) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkout}
}

// cartIndex parses :index. A malformed index is reported like an out of range one.
func cartIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, utils.ErrInvalidItemIndex)
		return 0, false
	}
	return index, true
}

// Get handles GET /v1/cart
func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.cart.Get(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart retrieved", cart)
}

// Clear handles DELETE /v1/cart
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), session(c)); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart cleared", nil)
}

// AddItem handles POST /v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req service.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	cart, err := h.cart.Add(c.Request.Context(), session(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Item added to cart", cart)
}

// UpdateItem handles PUT /v1/cart/items/:index
func (h *CartHandler) UpdateItem(c *gin.Context) {
	index, ok := cartIndex(c)
	if !ok {
		return
	}
	var req service.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	cart, err := h.cart.Update(c.Request.Context(), session(c), index, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart updated", cart)
}

// UpdateItemQuality handles PUT /v1/cart/items/:index/quality
func (h *CartHandler) UpdateItemQuality(c *gin.Context) {
	index, ok := cartIndex(c)
	if !ok {
		return
	}
	var req struct {
		QualityID int `json:"qualityId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "qualityId is required")
		return
	}
	cart, err := h.cart.UpdateQuality(c.Request.Context(), session(c), index, req.QualityID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart updated", cart)
}

// RemoveItem handles DELETE /v1/cart/items/:index
func (h *CartHandler) RemoveItem(c *gin.Context) {
	index, ok := cartIndex(c)
	if !ok {
		return
	}
	cart, err := h.cart.Remove(c.Request.Context(), session(c), index)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Item removed from cart", cart)
}

// Checkout handles POST /v1/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	res, err := h.checkout.Checkout(c.Request.Context(), session(c), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, res.Message, res)
}
