package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns pct percent of amount rounded to cents.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}

// applyTotals recomputes subtotal, discount, tax and total of a draft from
// its lines and its header percentages.
func applyTotals(inv *models.Invoice, items []models.InvoiceItem) {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
	}
	inv.Subtotal = subtotal.Round(2)
	inv.DiscountAmount = percentOf(inv.Subtotal, inv.DiscountPercentage)
	inv.TaxAmount = percentOf(inv.Subtotal.Sub(inv.DiscountAmount), inv.TaxPercentage)
	inv.Total = inv.Subtotal.Sub(inv.DiscountAmount).Add(inv.TaxAmount)
}

// openStatusFor picks pending_payment, or overdue when due is before today.
func openStatusFor(due *time.Time, today time.Time) models.InvoiceStatus {
	if models.DaysOverdue(due, today) > 0 {
		return models.InvoiceOverdue
	}
	return models.InvoicePendingPayment
}

// parseDate reads a yyyy-mm-dd date. Empty input yields nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const maxInvoiceNumberAttempts = 5

// allocateInvoiceNumber draws numbers until one is unused, giving up after
// maxInvoiceNumberAttempts collisions.
func allocateInvoiceNumber(ctx context.Context, invoices InvoiceStore, gen func(prefix string) string, prefix string) (string, error) {
	for attempt := 1; attempt <= maxInvoiceNumberAttempts; attempt++ {
		number := gen(prefix)
		exists, err := invoices.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
		log.Warn().Str("invoice_number", number).Int("attempt", attempt).Msg("Invoice number collision")
	}
	return "", utils.Wrap(utils.ErrInvoiceNumberExhausted, "Could not allocate a unique invoice number, please retry")
}
