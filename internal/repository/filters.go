package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// ProductFilter holds filters for product listings.
type ProductFilter struct {
	Search string
	Page   int
	Limit  int
}

// CustomerFilter holds filters for customer listings.
type CustomerFilter struct {
	Search       string
	CustomerType models.CustomerType
	Page         int
	Limit        int
}

// InvoiceFilter holds filters for invoice listings. Dates compare against the
// calendar date of created_at and are inclusive. Statuses restricts to a set,
// Status to a single value; both may be empty.
type InvoiceFilter struct {
	Query        string
	Status       models.InvoiceStatus
	Statuses     []models.InvoiceStatus
	PaymentType  models.PaymentType
	CustomerID   int
	CustomerName string
	ExcludeDraft bool
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	Limit        int
}

// PaymentFilter holds filters for payment listings.
type PaymentFilter struct {
	Query      string
	Status     models.PaymentStatus
	Method     models.PaymentMethod
	InvoiceID  int
	CustomerID int
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
}

// SalesItemFilter selects invoice lines for the product report.
type SalesItemFilter struct {
	DateFrom      time.Time
	DateTo        time.Time
	ProductSearch string
	Quality       models.QualityTier
}

// SalesItemRow is one invoice line of a non-draft invoice with its product
// and quality names.
type SalesItemRow struct {
	ProductName string             `db:"product_name"`
	Quality     models.QualityTier `db:"quality"`
	Quantity    decimal.Decimal    `db:"quantity"`
	UnitPrice   decimal.Decimal    `db:"unit_price"`
}
