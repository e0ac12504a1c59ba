package utils

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors used across services. Handlers map them to HTTP
// status codes; services wrap them with a human readable detail.
var (
	ErrInvalidRequest = errors.New("INVALID_REQUEST")
	ErrUnauthorized   = errors.New("UNAUTHORIZED")
	ErrForbidden      = errors.New("FORBIDDEN")

	ErrProductNotFound  = errors.New("PRODUCT_NOT_FOUND")
	ErrQualityNotFound  = errors.New("QUALITY_NOT_FOUND")
	ErrDuplicateProduct = errors.New("DUPLICATE_PRODUCT")
	ErrDuplicateQuality = errors.New("DUPLICATE_QUALITY")
	ErrProductInUse     = errors.New("PRODUCT_IN_USE")
	ErrMissingColumn    = errors.New("MISSING_COLUMN")
	ErrInvalidPrice     = errors.New("INVALID_PRICE")
	ErrNoValidData      = errors.New("NO_VALID_DATA")
	ErrInvalidFile      = errors.New("INVALID_FILE")

	ErrCustomerNotFound = errors.New("CUSTOMER_NOT_FOUND")
	ErrCustomerExists   = errors.New("CUSTOMER_EXISTS")
	ErrCustomerInUse    = errors.New("CUSTOMER_IN_USE")

	ErrEmptyCart        = errors.New("EMPTY_CART")
	ErrInvalidItemIndex = errors.New("INVALID_ITEM_INDEX")
	ErrQualityMismatch  = errors.New("QUALITY_MISMATCH")

	ErrInvoiceNotFound        = errors.New("INVOICE_NOT_FOUND")
	ErrInvoiceItemNotFound    = errors.New("INVOICE_ITEM_NOT_FOUND")
	ErrInvoiceNotDraft        = errors.New("INVOICE_NOT_DRAFT")
	ErrInvoiceNoItems         = errors.New("INVOICE_NO_ITEMS")
	ErrInvoicePaid            = errors.New("INVOICE_PAID")
	ErrInvoiceCancelled       = errors.New("INVOICE_CANCELLED")
	ErrInvoiceNumberExhausted = errors.New("INVOICE_NUMBER_EXHAUSTED")
	ErrCreditLimitExceeded    = errors.New("CREDIT_LIMIT_EXCEEDED")

	ErrPaymentNotFound   = errors.New("PAYMENT_NOT_FOUND")
	ErrPaymentExceedsDue = errors.New("PAYMENT_EXCEEDS_DUE")
	ErrPaymentNotPending = errors.New("PAYMENT_NOT_PENDING")
	ErrInvoiceNotPayable = errors.New("INVOICE_NOT_PAYABLE")
	ErrNothingDue        = errors.New("NOTHING_DUE")

	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive    = errors.New("ACCOUNT_INACTIVE")
	ErrTooManyAttempts    = errors.New("TOO_MANY_ATTEMPTS")

	ErrStaffNotFound = errors.New("STAFF_NOT_FOUND")
	ErrStaffExists   = errors.New("STAFF_EXISTS")
	ErrSelfDisable   = errors.New("SELF_DISABLE")
)

// Wrap attaches a user facing message to a sentinel error.
func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Detail returns the message attached by Wrap, or fallback when err carries none.
func Detail(err, sentinel error, fallback string) string {
	prefix := sentinel.Error() + ": "
	if msg, ok := strings.CutPrefix(err.Error(), prefix); ok && msg != "" {
		return msg
	}
	return fallback
}
