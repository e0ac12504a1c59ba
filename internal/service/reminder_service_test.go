package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func TestReminder_Send(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "10000")
	inv := f.sell(c, rice, "2", models.PaymentTypeCredit, "")

	r, err := f.reminders.Send(f.ctx, inv.ID, 1, &SendReminderRequest{ReminderType: models.ReminderWhatsApp, Notes: "Called twice"})
	require.NoError(t, err)
	assert.Equal(t, models.ReminderSent, r.Status)
	require.NotNil(t, r.SentAt)
	assert.Equal(t, testNow, *r.SentAt)
	assert.Equal(t, c.ID, r.CustomerID)
	assert.Equal(t, 1, f.notifier.Count(sse.EventReminderSent))

	list, err := f.reminders.List(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.reminders.Send(f.ctx, inv.ID, 1, &SendReminderRequest{ReminderType: "pigeon"})
	require.ErrorIs(t, err, utils.ErrInvalidRequest)

	paid := f.sell(c, rice, "1", models.PaymentTypeCash, "")
	_, err = f.reminders.Send(f.ctx, paid.ID, 1, &SendReminderRequest{ReminderType: models.ReminderSMS})
	require.ErrorIs(t, err, utils.ErrNothingDue)
}

func TestReminder_BulkSkipsWhatCannotBeReminded(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "10000")

	open := f.sell(c, rice, "1", models.PaymentTypeCredit, "")
	overdue := f.sell(c, rice, "1", models.PaymentTypeCredit, "2026-03-01")
	paid := f.sell(c, rice, "1", models.PaymentTypeCash, "")
	cancelled := f.sell(c, rice, "1", models.PaymentTypeCredit, "")
	_, _, err := f.invoices.Cancel(f.ctx, cancelled.ID)
	require.NoError(t, err)
	draft, err := f.invoices.CreateDraft(f.ctx, 1, &DraftRequest{CustomerID: c.ID, PaymentType: models.PaymentTypeCredit})
	require.NoError(t, err)

	res, err := f.reminders.Bulk(f.ctx, 1, &BulkReminderRequest{
		InvoiceIDs:   []int{open.ID, overdue.ID, paid.ID, cancelled.ID, draft.ID, 9999},
		ReminderType: models.ReminderEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 4, res.Skipped)
	require.Len(t, res.Results, 6)

	reasons := map[int]string{}
	for _, r := range res.Results {
		if !r.Sent {
			reasons[r.InvoiceID] = r.Reason
		}
	}
	assert.Equal(t, map[int]string{
		paid.ID:      "Nothing due",
		cancelled.ID: "Invoice is cancelled",
		draft.ID:     "Invoice is still a draft",
		9999:         "Invoice not found",
	}, reasons)

	_, err = f.reminders.Bulk(f.ctx, 1, &BulkReminderRequest{ReminderType: models.ReminderEmail})
	require.ErrorIs(t, err, utils.ErrInvalidRequest)
}
