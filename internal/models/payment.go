package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the instrument used for a payment.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodUPI, MethodBankTransfer, MethodCheque:
		return true
	}
	return false
}

// PaymentStatus tracks whether a payment counts towards an invoice.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// Payment is money received against an invoice. Only completed payments
// count towards Invoice.AmountPaid.
type Payment struct {
	ID              int             `db:"id" json:"id"`
	InvoiceID       int             `db:"invoice_id" json:"invoiceId"`
	CustomerID      int             `db:"customer_id" json:"customerId"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Status          PaymentStatus   `db:"status" json:"status"`
	ReferenceNumber string          `db:"reference_number" json:"referenceNumber,omitempty"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	PaymentDate     time.Time       `db:"payment_date" json:"paymentDate"`
	CreatedBy       *int            `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`

	InvoiceNumber string `db:"invoice_number" json:"invoiceNumber,omitempty"`
	CustomerName  string `db:"customer_name" json:"customerName,omitempty"`
}

// ReminderType is the channel a payment reminder went out on.
type ReminderType string

const (
	ReminderEmail    ReminderType = "email"
	ReminderSMS      ReminderType = "sms"
	ReminderWhatsApp ReminderType = "whatsapp"
	ReminderCall     ReminderType = "call"
)

// Valid reports whether t is a known reminder channel.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderEmail, ReminderSMS, ReminderWhatsApp, ReminderCall:
		return true
	}
	return false
}

// ReminderStatus tracks delivery of a reminder.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

// Reminder records that a customer was chased for an unpaid invoice.
type Reminder struct {
	ID           int            `db:"id" json:"id"`
	InvoiceID    int            `db:"invoice_id" json:"invoiceId"`
	CustomerID   int            `db:"customer_id" json:"customerId"`
	ReminderType ReminderType   `db:"reminder_type" json:"reminderType"`
	Status       ReminderStatus `db:"status" json:"status"`
	SentAt       *time.Time     `db:"sent_at" json:"sentAt,omitempty"`
	Notes        string         `db:"notes" json:"notes,omitempty"`
	CreatedBy    *int           `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}
