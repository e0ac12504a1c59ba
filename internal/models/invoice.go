package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType is how the customer settles an invoice at checkout.
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeUPI    PaymentType = "upi"
	PaymentTypeCredit PaymentType = "credit"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeCash, PaymentTypeUPI, PaymentTypeCredit:
		return true
	}
	return false
}

// InvoiceStatus is the persisted lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft          InvoiceStatus = "draft"
	InvoicePendingPayment InvoiceStatus = "pending_payment"
	InvoiceIssued         InvoiceStatus = "issued"
	InvoicePaid           InvoiceStatus = "paid"
	InvoicePartiallyPaid  InvoiceStatus = "partially_paid"
	InvoiceOverdue        InvoiceStatus = "overdue"
	InvoiceCancelled      InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoicePendingPayment, InvoiceIssued, InvoicePaid,
		InvoicePartiallyPaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// Label is the human readable status used in exports.
func (s InvoiceStatus) Label() string {
	switch s {
	case InvoiceDraft:
		return "Draft"
	case InvoicePendingPayment:
		return "Pending Payment"
	case InvoiceIssued:
		return "Issued"
	case InvoicePaid:
		return "Paid"
	case InvoicePartiallyPaid:
		return "Partially Paid"
	case InvoiceOverdue:
		return "Overdue"
	case InvoiceCancelled:
		return "Cancelled"
	}
	return string(s)
}

// OpenStatuses are the states that still carry an amount owed by the customer.
var OpenStatuses = []InvoiceStatus{InvoicePendingPayment, InvoiceIssued, InvoicePartiallyPaid, InvoiceOverdue}

// IsOpen reports whether s is one of OpenStatuses.
func (s InvoiceStatus) IsOpen() bool {
	for _, o := range OpenStatuses {
		if s == o {
			return true
		}
	}
	return false
}

// Invoice is a bill issued to a customer.
type Invoice struct {
	ID                 int             `db:"id" json:"id"`
	InvoiceNumber      string          `db:"invoice_number" json:"invoiceNumber"`
	CustomerID         int             `db:"customer_id" json:"customerId"`
	PaymentType        PaymentType     `db:"payment_type" json:"paymentType"`
	Status             InvoiceStatus   `db:"status" json:"status"`
	Subtotal           decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	TaxPercentage      decimal.Decimal `db:"tax_percentage" json:"taxPercentage"`
	TaxAmount          decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	Total              decimal.Decimal `db:"total" json:"total"`
	AmountPaid         decimal.Decimal `db:"amount_paid" json:"amountPaid"`
	DueDate            *time.Time      `db:"due_date" json:"dueDate,omitempty"`
	PaymentDueDate     *time.Time      `db:"payment_due_date" json:"paymentDueDate,omitempty"`
	Notes              string          `db:"notes" json:"notes,omitempty"`
	CreatedBy          *int            `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`

	// Joined from customers when listing.
	CustomerName  string       `db:"customer_name" json:"customerName,omitempty"`
	CustomerPhone string       `db:"customer_phone" json:"customerPhone,omitempty"`
	CustomerType  CustomerType `db:"customer_type" json:"customerType,omitempty"`
}

// AmountDue is total minus amount paid. It can be negative after an overpayment.
func (i *Invoice) AmountDue() decimal.Decimal {
	return i.Total.Sub(i.AmountPaid)
}

// IsPaid reports whether the invoice has been settled in full.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoicePaid || !i.AmountDue().IsPositive()
}

// EffectiveDueDate prefers the payment due date and falls back to due_date.
func (i *Invoice) EffectiveDueDate() *time.Time {
	if i.PaymentDueDate != nil {
		return i.PaymentDueDate
	}
	return i.DueDate
}

// IsOverdue reports whether an unpaid invoice is past its due date on the given day.
func (i *Invoice) IsOverdue(today time.Time) bool {
	if i.IsPaid() || i.Status == InvoiceCancelled || i.Status == InvoiceDraft {
		return false
	}
	return DaysOverdue(i.EffectiveDueDate(), today) > 0
}

// InvoiceItem is a priced line on an invoice.
type InvoiceItem struct {
	ID                 int             `db:"id" json:"id"`
	InvoiceID          int             `db:"invoice_id" json:"invoiceId"`
	ProductID          int             `db:"product_id" json:"productId"`
	ProductQualityID   int             `db:"product_quality_id" json:"productQualityId"`
	Quantity           decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unitPrice"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	Subtotal           decimal.Decimal `db:"subtotal" json:"subtotal"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`

	ProductName string      `db:"product_name" json:"productName,omitempty"`
	Quality     QualityTier `db:"quality" json:"quality,omitempty"`
}

// Price recomputes DiscountAmount and Subtotal from quantity, unit price and
// the discount percentage.
func (it *InvoiceItem) Price() {
	gross := it.UnitPrice.Mul(it.Quantity)
	it.DiscountAmount = gross.Mul(it.DiscountPercentage).Div(decimal.NewFromInt(100)).Round(2)
	it.Subtotal = gross.Sub(it.DiscountAmount).Round(2)
}

// InvoiceTotals aggregates a filtered invoice listing.
type InvoiceTotals struct {
	Count      int             `db:"count" json:"count"`
	Total      decimal.Decimal `db:"total" json:"total"`
	AmountPaid decimal.Decimal `db:"amount_paid" json:"amountPaid"`
	AmountDue  decimal.Decimal `db:"amount_due" json:"amountDue"`
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysOverdue returns whole days between due and today, or 0 when due is nil
// or not in the past.
func DaysOverdue(due *time.Time, today time.Time) int {
	if due == nil {
		return 0
	}
	days := int(Day(today).Sub(Day(*due)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
