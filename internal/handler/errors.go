package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// errorMapping pairs a sentinel with its HTTP status and default message.
type errorMapping struct {
	err     error
	status  int
	message string
}

// Order matters only where one error wraps another; the first match wins.
var errorMappings = []errorMapping{
	{utils.ErrInvalidRequest, http.StatusBadRequest, "Invalid request"},
	{utils.ErrMissingColumn, http.StatusBadRequest, "A required column is missing"},
	{utils.ErrInvalidPrice, http.StatusBadRequest, "Invalid price value"},
	{utils.ErrNoValidData, http.StatusBadRequest, "No valid product data found in the file. Please check the format and try again."},
	{utils.ErrInvalidFile, http.StatusBadRequest, "The uploaded file is not a valid .xlsx workbook"},
	{utils.ErrInvalidItemIndex, http.StatusBadRequest, "Invalid item index"},
	{utils.ErrEmptyCart, http.StatusBadRequest, "Cart is empty"},

	{utils.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{utils.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{utils.ErrAccountInactive, http.StatusForbidden, "Account is inactive"},
	{utils.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{utils.ErrTooManyAttempts, http.StatusTooManyRequests, "Too many failed login attempts"},

	{utils.ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{utils.ErrQualityNotFound, http.StatusNotFound, "Product quality not found"},
	{utils.ErrCustomerNotFound, http.StatusNotFound, "Customer not found"},
	{utils.ErrInvoiceNotFound, http.StatusNotFound, "Invoice not found"},
	{utils.ErrInvoiceItemNotFound, http.StatusNotFound, "Invoice item not found"},
	{utils.ErrPaymentNotFound, http.StatusNotFound, "Payment not found"},
	{utils.ErrStaffNotFound, http.StatusNotFound, "Staff user not found"},

	{utils.ErrDuplicateProduct, http.StatusConflict, "A product with this name already exists"},
	{utils.ErrDuplicateQuality, http.StatusConflict, "This quality already exists for the product"},
	{utils.ErrProductInUse, http.StatusConflict, "Product is used by existing invoices"},
	{utils.ErrCustomerExists, http.StatusConflict, "A customer with this name or phone already exists"},
	{utils.ErrCustomerInUse, http.StatusConflict, "Customer has invoices and cannot be deleted"},
	{utils.ErrInvoiceNotDraft, http.StatusConflict, "Only draft invoices can be changed"},
	{utils.ErrInvoicePaid, http.StatusConflict, "Invoice is already paid"},
	{utils.ErrInvoiceCancelled, http.StatusConflict, "Invoice is cancelled"},
	{utils.ErrInvoiceNotPayable, http.StatusConflict, "Invoice cannot accept payments"},
	{utils.ErrPaymentNotPending, http.StatusConflict, "Only pending payments can be updated"},
	{utils.ErrStaffExists, http.StatusConflict, "A staff user with this email already exists"},
	{utils.ErrSelfDisable, http.StatusConflict, "You cannot deactivate your own account"},

	{utils.ErrQualityMismatch, http.StatusUnprocessableEntity, "Quality belongs to a different product"},
	{utils.ErrInvoiceNoItems, http.StatusUnprocessableEntity, "Invoice has no items"},
	{utils.ErrCreditLimitExceeded, http.StatusUnprocessableEntity, "Credit limit exceeded"},
	{utils.ErrPaymentExceedsDue, http.StatusUnprocessableEntity, "Payment exceeds the amount due"},
	{utils.ErrNothingDue, http.StatusUnprocessableEntity, "Nothing is due on this invoice"},
}

// respondError writes the error envelope for err. Errors without a known
// sentinel are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			utils.Error(c, m.status, m.err.Error(), utils.Detail(err, m.err, m.message))
			return
		}
	}

	log.Error().Err(err).
		Str("request_id", c.GetString("request_id")).
		Str("path", c.FullPath()).
		Msg("Unhandled error")
	utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong. Please try again.")
}

// badRequest reports a malformed body or query.
func badRequest(c *gin.Context, message string) {
	utils.Error(c, http.StatusBadRequest, utils.ErrInvalidRequest.Error(), message)
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// pageParams reads ?page and ?limit, defaulting to the first page.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(utils.DefaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = utils.DefaultPageSize
	}
	return page, limit
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		badRequest(c, key+" must be a date in YYYY-MM-DD format")
		return nil, false
	}
	return &t, true
}

// queryDecimal parses an optional decimal query parameter.
func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, key+" must be a number")
		return nil, false
	}
	return &v, true
}

// session keys the cart by the authenticated staff user.
func session(c *gin.Context) string {
	return strconv.Itoa(middleware.UserID(c))
}
