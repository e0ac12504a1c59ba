package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// ReminderService records payment reminders. Delivery is not integrated; a
// reminder is stored as sent the moment it is created.
type ReminderService struct {
	invoices  InvoiceStore
	reminders ReminderStore
	notifier  sse.BillingNotifier
	now       Clock
}

// NewReminderService constructs a ReminderService.
func NewReminderService(invoices InvoiceStore, reminders ReminderStore, notifier sse.BillingNotifier) *ReminderService {
	return &ReminderService{invoices: invoices, reminders: reminders, notifier: notifier, now: time.Now}
}

// SendReminderRequest sends one reminder.
type SendReminderRequest struct {
	ReminderType models.ReminderType `json:"reminderType" validate:"oneof=email sms whatsapp call"`
	Notes        string              `json:"notes"`
}

// BulkReminderRequest sends the same reminder for several invoices.
type BulkReminderRequest struct {
	InvoiceIDs   []int               `json:"invoiceIds" validate:"required,min=1"`
	ReminderType models.ReminderType `json:"reminderType" validate:"oneof=email sms whatsapp call"`
	Notes        string              `json:"notes"`
}

// BulkReminderItem is the outcome for one invoice of a bulk send.
type BulkReminderItem struct {
	InvoiceID int              `json:"invoiceId"`
	Sent      bool             `json:"sent"`
	Reason    string           `json:"reason,omitempty"`
	Reminder  *models.Reminder `json:"reminder,omitempty"`
}

// BulkReminderResult summarises a bulk send.
type BulkReminderResult struct {
	Sent    int                `json:"sent"`
	Skipped int                `json:"skipped"`
	Results []BulkReminderItem `json:"results"`
}

// Send records a reminder for an invoice that still has money due.
func (s *ReminderService) Send(ctx context.Context, invoiceID, createdBy int, req *SendReminderRequest) (*models.Reminder, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.send(ctx, invoiceID, createdBy, req.ReminderType, req.Notes)
}

// Bulk sends a reminder per invoice. Invoices that cannot be reminded are
// skipped with a reason; only unexpected failures abort the batch.
func (s *ReminderService) Bulk(ctx context.Context, createdBy int, req *BulkReminderRequest) (*BulkReminderResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	res := &BulkReminderResult{Results: make([]BulkReminderItem, 0, len(req.InvoiceIDs))}
	for _, id := range req.InvoiceIDs {
		r, err := s.send(ctx, id, createdBy, req.ReminderType, req.Notes)
		switch {
		case err == nil:
			res.Sent++
			res.Results = append(res.Results, BulkReminderItem{InvoiceID: id, Sent: true, Reminder: r})
		case errors.Is(err, utils.ErrInvoiceNotFound),
			errors.Is(err, utils.ErrInvoiceCancelled),
			errors.Is(err, utils.ErrInvoiceNotPayable),
			errors.Is(err, utils.ErrNothingDue):
			res.Skipped++
			res.Results = append(res.Results, BulkReminderItem{InvoiceID: id, Reason: reminderSkipReason(err)})
		default:
			return nil, err
		}
	}

	log.Info().Int("sent", res.Sent).Int("skipped", res.Skipped).Str("type", string(req.ReminderType)).Msg("Bulk reminders processed")
	return res, nil
}

// List returns the reminders of an invoice.
func (s *ReminderService) List(ctx context.Context, invoiceID int) ([]models.Reminder, error) {
	if _, err := s.invoices.GetByID(ctx, invoiceID); err != nil {
		return nil, notFound(err, utils.ErrInvoiceNotFound)
	}
	return s.reminders.ListByInvoice(ctx, invoiceID)
}

func (s *ReminderService) send(ctx context.Context, invoiceID, createdBy int, rtype models.ReminderType, notes string) (*models.Reminder, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, notFound(err, utils.ErrInvoiceNotFound)
	}
	switch {
	case inv.Status == models.InvoiceCancelled:
		return nil, utils.Wrap(utils.ErrInvoiceCancelled, "Invoice %s is cancelled", inv.InvoiceNumber)
	case inv.Status == models.InvoiceDraft:
		return nil, utils.Wrap(utils.ErrInvoiceNotPayable, "Invoice %s is still a draft", inv.InvoiceNumber)
	case inv.IsPaid():
		return nil, utils.Wrap(utils.ErrNothingDue, "Invoice %s has nothing due", inv.InvoiceNumber)
	}

	now := s.now()
	r := &models.Reminder{
		InvoiceID:    inv.ID,
		CustomerID:   inv.CustomerID,
		ReminderType: rtype,
		Status:       models.ReminderSent,
		SentAt:       &now,
		Notes:        notes,
	}
	if createdBy > 0 {
		r.CreatedBy = &createdBy
	}
	if err := s.reminders.Create(ctx, r); err != nil {
		return nil, err
	}

	log.Info().Str("invoice_number", inv.InvoiceNumber).Str("type", string(rtype)).Msg("Payment reminder sent")
	s.notifier.NotifyReminderSent(inv, r)
	return r, nil
}

func reminderSkipReason(err error) string {
	switch {
	case errors.Is(err, utils.ErrInvoiceNotFound):
		return "Invoice not found"
	case errors.Is(err, utils.ErrInvoiceCancelled):
		return "Invoice is cancelled"
	case errors.Is(err, utils.ErrInvoiceNotPayable):
		return "Invoice is still a draft"
	}
	return "Nothing due"
}
