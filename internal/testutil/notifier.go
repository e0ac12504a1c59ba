package testutil

import (
	"sync"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
)

// RecordingNotifier remembers the events a service emitted.
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []sse.EventType
}

func (n *RecordingNotifier) add(t sse.EventType) {
	n.mu.Lock()
	n.Events = append(n.Events, t)
	n.mu.Unlock()
}

// Count returns how many events of type t were recorded.
func (n *RecordingNotifier) Count(t sse.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.Events {
		if e == t {
			count++
		}
	}
	return count
}

func (n *RecordingNotifier) NotifyInvoiceCreated(*models.Invoice) {
	n.add(sse.EventInvoiceCreated)
}

func (n *RecordingNotifier) NotifyInvoiceStatusChanged(*models.Invoice) {
	n.add(sse.EventInvoiceStatusChanged)
}

func (n *RecordingNotifier) NotifyPaymentRecorded(*models.Invoice, *models.Payment) {
	n.add(sse.EventPaymentRecorded)
}

func (n *RecordingNotifier) NotifyPaymentCancelled(*models.Invoice, *models.Payment) {
	n.add(sse.EventPaymentCancelled)
}

func (n *RecordingNotifier) NotifyReminderSent(*models.Invoice, *models.Reminder) {
	n.add(sse.EventReminderSent)
}

var _ sse.BillingNotifier = (*RecordingNotifier)(nil)
