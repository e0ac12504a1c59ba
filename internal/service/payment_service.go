package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// PaymentService records payments and keeps invoice balances in step.
type PaymentService struct {
	tx       TxRunner
	invoices InvoiceStore
	payments PaymentStore
	notifier sse.BillingNotifier
	billing  config.BillingConfig
	now      Clock
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(tx TxRunner, invoices InvoiceStore, payments PaymentStore, notifier sse.BillingNotifier, billing config.BillingConfig) *PaymentService {
	return &PaymentService{
		tx:       tx,
		invoices: invoices,
		payments: payments,
		notifier: notifier,
		billing:  billing,
		now:      time.Now,
	}
}

// RecordPaymentRequest records money received against an invoice. Status
// defaults to completed.
type RecordPaymentRequest struct {
	Amount          decimal.Decimal      `json:"amount" validate:"gt=0"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod" validate:"oneof=cash upi bank_transfer cheque"`
	Status          models.PaymentStatus `json:"status" validate:"omitempty,oneof=pending completed"`
	ReferenceNumber string               `json:"referenceNumber"`
	Notes           string               `json:"notes"`
}

// UpdatePaymentRequest edits a pending payment.
type UpdatePaymentRequest struct {
	Amount          decimal.Decimal      `json:"amount" validate:"gt=0"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod" validate:"oneof=cash upi bank_transfer cheque"`
	Status          models.PaymentStatus `json:"status" validate:"oneof=pending completed failed"`
	ReferenceNumber string               `json:"referenceNumber"`
	Notes           string               `json:"notes"`
}

// PaymentResult is a payment together with the invoice it changed.
type PaymentResult struct {
	Payment  *models.Payment `json:"payment"`
	Invoice  *models.Invoice `json:"invoice"`
	Warnings []string        `json:"warnings"`
}

// Due classification used by the pending payments view.
const (
	DueOverdue   = "overdue"
	DueSoon      = "due_soon"
	DueUpcoming  = "upcoming"
	DueNoDueDate = "no_due_date"
)

// PendingFilter narrows the pending payments view.
type PendingFilter struct {
	Query         string
	OverdueStatus string
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Page          int
	Limit         int
}

// PendingInvoice is an open invoice with its due classification.
type PendingInvoice struct {
	models.Invoice
	AmountDue   decimal.Decimal `json:"amountDue"`
	DueStatus   string          `json:"dueStatus"`
	DaysOverdue int             `json:"daysOverdue"`
	DaysUntil   *int            `json:"daysUntilDue,omitempty"`
}

// PendingSummary aggregates every open invoice, ignoring filters.
type PendingSummary struct {
	TotalPending     decimal.Decimal `json:"totalPending"`
	OverdueAmount    decimal.Decimal `json:"overdueAmount"`
	OverdueCount     int             `json:"overdueCount"`
	DueSoonAmount    decimal.Decimal `json:"dueSoonAmount"`
	DueSoonCount     int             `json:"dueSoonCount"`
	NoDueDateCount   int             `json:"noDueDateCount"`
	OpenInvoiceCount int             `json:"openInvoiceCount"`
}

// PendingPayments is one page of open invoices plus the summary.
type PendingPayments struct {
	Invoices []PendingInvoice `json:"invoices"`
	Summary  PendingSummary   `json:"summary"`
	Total    int              `json:"-"`
}

// Record stores a payment. It is refused for draft, paid and cancelled
// invoices and when the amount exceeds what is still due; nothing is written
// in those cases.
func (s *PaymentService) Record(ctx context.Context, invoiceID, createdBy int, req *RecordPaymentRequest) (*PaymentResult, error) {
	if req.Status == "" {
		req.Status = models.PaymentCompleted
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var (
		inv       *models.Invoice
		p         *models.Payment
		oldStatus models.InvoiceStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.invoices.GetForUpdate(ctx, invoiceID); err != nil {
			return notFound(err, utils.ErrInvoiceNotFound)
		}
		if err := payable(inv); err != nil {
			return err
		}
		if due := inv.AmountDue(); req.Amount.GreaterThan(due) {
			return utils.Wrap(utils.ErrPaymentExceedsDue, "Payment amount %s exceeds the amount due %s", req.Amount.StringFixed(2), due.StringFixed(2))
		}
		oldStatus = inv.Status

		p = &models.Payment{
			InvoiceID:       inv.ID,
			CustomerID:      inv.CustomerID,
			Amount:          req.Amount.Round(2),
			PaymentMethod:   req.PaymentMethod,
			Status:          req.Status,
			ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
			Notes:           req.Notes,
			PaymentDate:     s.now(),
			InvoiceNumber:   inv.InvoiceNumber,
			CustomerName:    inv.CustomerName,
		}
		if createdBy > 0 {
			p.CreatedBy = &createdBy
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		return s.recompute(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Int("payment_id", p.ID).
		Str("amount", p.Amount.StringFixed(2)).
		Str("method", string(p.PaymentMethod)).
		Str("invoice_status", string(inv.Status)).
		Msg("Payment recorded")
	s.notifier.NotifyPaymentRecorded(inv, p)
	if inv.Status != oldStatus {
		s.notifier.NotifyInvoiceStatusChanged(inv)
	}
	return &PaymentResult{Payment: p, Invoice: inv, Warnings: []string{}}, nil
}

// Update edits a pending payment and recomputes its invoice.
func (s *PaymentService) Update(ctx context.Context, paymentID int, req *UpdatePaymentRequest) (*PaymentResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var (
		inv       *models.Invoice
		p         *models.Payment
		oldStatus models.InvoiceStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.payments.GetByID(ctx, paymentID); err != nil {
			return notFound(err, utils.ErrPaymentNotFound)
		}
		if p.Status != models.PaymentPending {
			return utils.Wrap(utils.ErrPaymentNotPending, "Only pending payments can be edited")
		}
		if inv, err = s.invoices.GetForUpdate(ctx, p.InvoiceID); err != nil {
			return notFound(err, utils.ErrInvoiceNotFound)
		}
		if req.Status == models.PaymentCompleted {
			if err := payable(inv); err != nil {
				return err
			}
		}

		// A pending payment is not part of amount_paid yet.
		allowed := inv.AmountDue()
		if req.Amount.GreaterThan(allowed) {
			return utils.Wrap(utils.ErrPaymentExceedsDue, "Payment amount %s exceeds the amount due %s", req.Amount.StringFixed(2), allowed.StringFixed(2))
		}
		oldStatus = inv.Status

		p.Amount = req.Amount.Round(2)
		p.PaymentMethod = req.PaymentMethod
		p.Status = req.Status
		p.ReferenceNumber = strings.TrimSpace(req.ReferenceNumber)
		p.Notes = req.Notes
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
		return s.recompute(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	if inv.Status != oldStatus {
		s.notifier.NotifyInvoiceStatusChanged(inv)
	}
	return &PaymentResult{Payment: p, Invoice: inv, Warnings: []string{}}, nil
}

// Cancel voids a payment. Only a completed payment counted towards
// amount_paid, so only its cancellation recomputes the invoice. A paid
// invoice stays paid and the caller gets a warning instead.
func (s *PaymentService) Cancel(ctx context.Context, paymentID int) (*PaymentResult, error) {
	var (
		inv       *models.Invoice
		p         *models.Payment
		oldStatus models.InvoiceStatus
		warnings  = []string{}
		cancelled bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.payments.GetByID(ctx, paymentID); err != nil {
			return notFound(err, utils.ErrPaymentNotFound)
		}
		if inv, err = s.invoices.GetForUpdate(ctx, p.InvoiceID); err != nil {
			return notFound(err, utils.ErrInvoiceNotFound)
		}
		oldStatus = inv.Status
		if p.Status == models.PaymentCancelled {
			warnings = append(warnings, "Payment is already cancelled.")
			return nil
		}

		counted := p.Status == models.PaymentCompleted
		p.Status = models.PaymentCancelled
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
		cancelled = true
		if !counted {
			return nil
		}
		if inv.Status == models.InvoicePaid {
			warnings = append(warnings, fmt.Sprintf("Invoice %s stays paid.", inv.InvoiceNumber))
			return nil
		}
		return s.recompute(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		log.Info().Str("invoice_number", inv.InvoiceNumber).Int("payment_id", p.ID).Msg("Payment cancelled")
		s.notifier.NotifyPaymentCancelled(inv, p)
		if inv.Status != oldStatus {
			s.notifier.NotifyInvoiceStatusChanged(inv)
		}
	}
	return &PaymentResult{Payment: p, Invoice: inv, Warnings: warnings}, nil
}

// List returns a page of payments.
func (s *PaymentService) List(ctx context.Context, f repository.PaymentFilter) ([]models.Payment, int, error) {
	return s.payments.List(ctx, f)
}

// ListForInvoice returns every payment of an invoice.
func (s *PaymentService) ListForInvoice(ctx context.Context, invoiceID int) ([]models.Payment, error) {
	if _, err := s.invoices.GetByID(ctx, invoiceID); err != nil {
		return nil, notFound(err, utils.ErrInvoiceNotFound)
	}
	payments, _, err := s.payments.List(ctx, repository.PaymentFilter{InvoiceID: invoiceID})
	return payments, err
}

// Pending lists open invoices with what is still owed, soonest due first.
func (s *PaymentService) Pending(ctx context.Context, f PendingFilter) (*PendingPayments, error) {
	invoices, _, err := s.invoices.List(ctx, repository.InvoiceFilter{Query: f.Query, Statuses: models.OpenStatuses})
	if err != nil {
		return nil, err
	}

	today := models.Day(s.now())
	out := &PendingPayments{
		Invoices: []PendingInvoice{},
		Summary: PendingSummary{
			TotalPending:  decimal.Zero,
			OverdueAmount: decimal.Zero,
			DueSoonAmount: decimal.Zero,
		},
	}

	matched := []PendingInvoice{}
	for _, inv := range invoices {
		due := inv.AmountDue()
		if !due.IsPositive() {
			continue
		}
		pi := classify(inv, today, s.billing.DueSoonDays)

		sum := &out.Summary
		sum.OpenInvoiceCount++
		sum.TotalPending = sum.TotalPending.Add(due)
		switch pi.DueStatus {
		case DueOverdue:
			sum.OverdueCount++
			sum.OverdueAmount = sum.OverdueAmount.Add(due)
		case DueSoon:
			sum.DueSoonCount++
			sum.DueSoonAmount = sum.DueSoonAmount.Add(due)
		case DueNoDueDate:
			sum.NoDueDateCount++
		}

		if f.OverdueStatus != "" && f.OverdueStatus != pi.DueStatus {
			continue
		}
		if f.MinAmount != nil && due.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && due.GreaterThan(*f.MaxAmount) {
			continue
		}
		matched = append(matched, pi)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].EffectiveDueDate(), matched[j].EffectiveDueDate()
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})

	out.Total = len(matched)
	out.Invoices = paginate(matched, f.Page, f.Limit)
	return out, nil
}

func classify(inv models.Invoice, today time.Time, dueSoonDays int) PendingInvoice {
	pi := PendingInvoice{Invoice: inv, AmountDue: inv.AmountDue()}
	due := inv.EffectiveDueDate()
	if due == nil {
		pi.DueStatus = DueNoDueDate
		return pi
	}
	if days := models.DaysOverdue(due, today); days > 0 {
		pi.DueStatus = DueOverdue
		pi.DaysOverdue = days
		return pi
	}
	until := int(models.Day(*due).Sub(today).Hours() / 24)
	pi.DaysUntil = &until
	if until <= dueSoonDays {
		pi.DueStatus = DueSoon
	} else {
		pi.DueStatus = DueUpcoming
	}
	return pi
}

// recompute sets amount_paid to the sum of completed payments and derives the
// status from it. With nothing paid an open status is kept; an invoice that
// was paid or partially paid falls back to pending_payment or overdue.
// Cancelled invoices keep their status and paid invoices are left alone.
func (s *PaymentService) recompute(ctx context.Context, inv *models.Invoice) error {
	if inv.Status == models.InvoicePaid {
		return nil
	}
	paid, err := s.payments.SumCompleted(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.AmountPaid = paid

	if inv.Status != models.InvoiceCancelled && inv.Status != models.InvoiceDraft {
		inv.Status = statusForPaid(inv, models.Day(s.now()))
	}
	return s.invoices.Update(ctx, inv)
}

func statusForPaid(inv *models.Invoice, today time.Time) models.InvoiceStatus {
	switch {
	case inv.AmountPaid.IsPositive() && inv.AmountPaid.GreaterThanOrEqual(inv.Total):
		return models.InvoicePaid
	case inv.AmountPaid.IsPositive():
		return models.InvoicePartiallyPaid
	}
	switch inv.Status {
	case models.InvoicePendingPayment, models.InvoiceOverdue, models.InvoiceIssued:
		return inv.Status
	}
	return openStatusFor(inv.EffectiveDueDate(), today)
}

func payable(inv *models.Invoice) error {
	switch inv.Status {
	case models.InvoicePaid:
		return utils.Wrap(utils.ErrInvoicePaid, "Invoice %s is already paid", inv.InvoiceNumber)
	case models.InvoiceCancelled:
		return utils.Wrap(utils.ErrInvoiceCancelled, "Invoice %s is cancelled", inv.InvoiceNumber)
	case models.InvoiceDraft:
		return utils.Wrap(utils.ErrInvoiceNotPayable, "Invoice %s is still a draft", inv.InvoiceNumber)
	}
	return nil
}

// paginate slices items for page/limit; a non-positive limit returns all.
func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
