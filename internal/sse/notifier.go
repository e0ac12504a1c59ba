package sse

import (
	"time"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// BillingNotifier is the interface services use to emit billing events.
type BillingNotifier interface {
	NotifyInvoiceCreated(inv *models.Invoice)
	NotifyInvoiceStatusChanged(inv *models.Invoice)
	NotifyPaymentRecorded(inv *models.Invoice, p *models.Payment)
	NotifyPaymentCancelled(inv *models.Invoice, p *models.Payment)
	NotifyReminderSent(inv *models.Invoice, r *models.Reminder)
}

// HubNotifier implements BillingNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyInvoiceCreated(inv *models.Invoice) {
	n.send(invoiceToEvent(EventInvoiceCreated, inv))
}

func (n *HubNotifier) NotifyInvoiceStatusChanged(inv *models.Invoice) {
	n.send(invoiceToEvent(EventInvoiceStatusChanged, inv))
}

func (n *HubNotifier) NotifyPaymentRecorded(inv *models.Invoice, p *models.Payment) {
	n.send(paymentToEvent(EventPaymentRecorded, inv, p))
}

func (n *HubNotifier) NotifyPaymentCancelled(inv *models.Invoice, p *models.Payment) {
	n.send(paymentToEvent(EventPaymentCancelled, inv, p))
}

func (n *HubNotifier) NotifyReminderSent(inv *models.Invoice, r *models.Reminder) {
	ev := invoiceToEvent(EventReminderSent, inv)
	ev.ReminderType = string(r.ReminderType)
	n.send(ev)
}

func (n *HubNotifier) send(ev *BillingEvent) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(ev)
}

func invoiceToEvent(eventType EventType, inv *models.Invoice) *BillingEvent {
	return &BillingEvent{
		Event:         eventType,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		CustomerName:  inv.CustomerName,
		Status:        string(inv.Status),
		Total:         inv.Total,
		AmountPaid:    inv.AmountPaid,
		Timestamp:     time.Now(),
	}
}

func paymentToEvent(eventType EventType, inv *models.Invoice, p *models.Payment) *BillingEvent {
	ev := invoiceToEvent(eventType, inv)
	id := p.ID
	amount := p.Amount
	ev.PaymentID = &id
	ev.Amount = &amount
	return ev
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (NopNotifier) NotifyInvoiceCreated(*models.Invoice)                    {}
func (NopNotifier) NotifyInvoiceStatusChanged(*models.Invoice)              {}
func (NopNotifier) NotifyPaymentRecorded(*models.Invoice, *models.Payment)  {}
func (NopNotifier) NotifyPaymentCancelled(*models.Invoice, *models.Payment) {}
func (NopNotifier) NotifyReminderSent(*models.Invoice, *models.Reminder)    {}
