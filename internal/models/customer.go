package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerType decides which price tier a customer is quoted.
type CustomerType string

const (
	CustomerRetail      CustomerType = "retail"
	CustomerWholesale   CustomerType = "wholesale"
	CustomerDistributor CustomerType = "distributor"
)

// Valid reports whether t is a known customer type.
func (t CustomerType) Valid() bool {
	switch t {
	case CustomerRetail, CustomerWholesale, CustomerDistributor:
		return true
	}
	return false
}

// Label is the human readable name used in exports.
func (t CustomerType) Label() string {
	switch t {
	case CustomerRetail:
		return "Retail"
	case CustomerWholesale:
		return "Wholesale"
	case CustomerDistributor:
		return "Distributor"
	}
	return "Unknown"
}

// Customer is a buyer with an optional credit line.
type Customer struct {
	ID           int             `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Phone        string          `db:"phone" json:"phone"`
	Email        string          `db:"email" json:"email,omitempty"`
	Address      string          `db:"address" json:"address,omitempty"`
	CustomerType CustomerType    `db:"customer_type" json:"customerType"`
	CreditLimit  decimal.Decimal `db:"credit_limit" json:"creditLimit"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// CreditInfo is the derived credit position of a customer.
type CreditInfo struct {
	CreditLimit     decimal.Decimal `json:"creditLimit"`
	PendingAmount   decimal.Decimal `json:"pendingAmount"`
	AvailableCredit decimal.Decimal `json:"availableCredit"`
	LimitExceeded   bool            `json:"limitExceeded"`
}

// NewCreditInfo derives the credit position from the limit and the unpaid
// amount. AvailableCredit is clamped at zero for display; checkout compares
// against the unclamped Headroom.
func NewCreditInfo(limit, pending decimal.Decimal) CreditInfo {
	available := limit.Sub(pending)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return CreditInfo{
		CreditLimit:     limit,
		PendingAmount:   pending,
		AvailableCredit: available,
		LimitExceeded:   pending.GreaterThan(limit),
	}
}

// Headroom is credit_limit minus pending, without clamping.
func (c CreditInfo) Headroom() decimal.Decimal {
	return c.CreditLimit.Sub(c.PendingAmount)
}
