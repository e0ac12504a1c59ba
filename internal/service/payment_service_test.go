package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func creditInvoice(t *testing.T, f *fixture, qty, due string) *models.Invoice {
	t.Helper()
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "1000")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")
	return f.sell(c, rice, qty, models.PaymentTypeCredit, due)
}

func pay(f *fixture, invoiceID int, amount string) (*PaymentResult, error) {
	return f.payments.Record(f.ctx, invoiceID, 1, &RecordPaymentRequest{
		Amount:        d(amount),
		PaymentMethod: models.MethodUPI,
	})
}

func TestPayment_StatusFollowsAmountPaid(t *testing.T) {
	tests := []struct {
		name     string
		due      string
		payments []string
		wantPaid string
		want     models.InvoiceStatus
	}{
		{name: "one partial", payments: []string{"400"}, wantPaid: "400", want: models.InvoicePartiallyPaid},
		{name: "partials summing to total", payments: []string{"400", "600"}, wantPaid: "1000", want: models.InvoicePaid},
		{name: "single full payment", payments: []string{"1000"}, wantPaid: "1000", want: models.InvoicePaid},
		{name: "partial on overdue", due: "2026-03-01", payments: []string{"1"}, wantPaid: "1", want: models.InvoicePartiallyPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			inv := creditInvoice(t, f, "10", tt.due)

			for _, amount := range tt.payments {
				_, err := pay(f, inv.ID, amount)
				require.NoError(t, err)
			}

			got := f.reload(inv.ID)
			assert.Equal(t, tt.wantPaid, got.AmountPaid.String())
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestPayment_PendingPaymentLeavesStatus(t *testing.T) {
	f := newFixture(t)
	inv := creditInvoice(t, f, "10", "2026-03-01")
	require.Equal(t, models.InvoiceOverdue, inv.Status)

	res, err := f.payments.Record(f.ctx, inv.ID, 1, &RecordPaymentRequest{
		Amount:        d("500"),
		PaymentMethod: models.MethodCheque,
		Status:        models.PaymentPending,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, res.Payment.Status)

	got := f.reload(inv.ID)
	assert.True(t, got.AmountPaid.IsZero())
	assert.Equal(t, models.InvoiceOverdue, got.Status)
}

func TestPayment_ExceedingAmountDueIsRejected(t *testing.T) {
	f := newFixture(t)
	inv := creditInvoice(t, f, "10", "")

	_, err := pay(f, inv.ID, "600")
	require.NoError(t, err)

	_, err = pay(f, inv.ID, "400.01")
	require.ErrorIs(t, err, utils.ErrPaymentExceedsDue)

	payments, total, err := f.store.Payments().List(f.ctx, repository.PaymentFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, payments, 1)
	assert.Equal(t, "600", f.reload(inv.ID).AmountPaid.String())
}

func TestPayment_RejectedInvoiceStates(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "1000")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")
	inv := f.sell(c, rice, "1", models.PaymentTypeCredit, "")

	_, err := pay(f, inv.ID, "100")
	require.NoError(t, err)
	_, err = pay(f, inv.ID, "1")
	require.ErrorIs(t, err, utils.ErrInvoicePaid)

	other := f.sell(c, rice, "1", models.PaymentTypeCredit, "")
	_, _, err = f.invoices.Cancel(f.ctx, other.ID)
	require.NoError(t, err)
	_, err = pay(f, other.ID, "1")
	require.ErrorIs(t, err, utils.ErrInvoiceCancelled)

	_, err = pay(f, 9999, "1")
	require.ErrorIs(t, err, utils.ErrInvoiceNotFound)

	_, err = f.payments.Record(f.ctx, inv.ID, 1, &RecordPaymentRequest{Amount: d("0"), PaymentMethod: models.MethodCash})
	require.ErrorIs(t, err, utils.ErrInvalidRequest)
}

func TestPayment_CancelRecomputesInvoice(t *testing.T) {
	f := newFixture(t)
	inv := creditInvoice(t, f, "10", "2026-03-20")

	first, err := pay(f, inv.ID, "400")
	require.NoError(t, err)
	require.Equal(t, models.InvoicePartiallyPaid, first.Invoice.Status)

	res, err := f.payments.Cancel(f.ctx, first.Payment.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, models.PaymentCancelled, res.Payment.Status)

	got := f.reload(inv.ID)
	assert.True(t, got.AmountPaid.IsZero())
	assert.Equal(t, models.InvoicePendingPayment, got.Status)
	assert.Equal(t, 1, f.notifier.Count(sse.EventPaymentCancelled))

	again, err := f.payments.Cancel(f.ctx, first.Payment.ID)
	require.NoError(t, err)
	assert.Len(t, again.Warnings, 1)
	assert.Equal(t, 1, f.notifier.Count(sse.EventPaymentCancelled))
}

func TestPayment_CancelKeepsPaidInvoicePaid(t *testing.T) {
	tests := []struct {
		name         string
		status       models.PaymentStatus
		markPaid     bool
		wantWarnings int
	}{
		{name: "pending payment then mark paid", status: models.PaymentPending, markPaid: true},
		{name: "completed payment settling in full", status: models.PaymentCompleted, wantWarnings: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			inv := creditInvoice(t, f, "10", "")

			amount := "500"
			if !tt.markPaid {
				amount = "1000"
			}
			rec, err := f.payments.Record(f.ctx, inv.ID, 1, &RecordPaymentRequest{
				Amount:        d(amount),
				PaymentMethod: models.MethodCheque,
				Status:        tt.status,
			})
			require.NoError(t, err)
			if tt.markPaid {
				_, _, err = f.invoices.MarkPaid(f.ctx, inv.ID)
				require.NoError(t, err)
			}
			require.Equal(t, models.InvoicePaid, f.reload(inv.ID).Status)

			res, err := f.payments.Cancel(f.ctx, rec.Payment.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentCancelled, res.Payment.Status)
			assert.Len(t, res.Warnings, tt.wantWarnings)

			got := f.reload(inv.ID)
			assert.Equal(t, models.InvoicePaid, got.Status)
			assert.Equal(t, "1000", got.AmountPaid.String())
			assert.True(t, got.AmountDue().IsZero())
		})
	}
}

func TestPayment_CancelPendingPaymentLeavesInvoice(t *testing.T) {
	f := newFixture(t)
	inv := creditInvoice(t, f, "10", "")

	_, err := pay(f, inv.ID, "200")
	require.NoError(t, err)
	rec, err := f.payments.Record(f.ctx, inv.ID, 1, &RecordPaymentRequest{
		Amount:        d("300"),
		PaymentMethod: models.MethodCheque,
		Status:        models.PaymentPending,
	})
	require.NoError(t, err)

	_, err = f.payments.Cancel(f.ctx, rec.Payment.ID)
	require.NoError(t, err)

	got := f.reload(inv.ID)
	assert.Equal(t, models.InvoicePartiallyPaid, got.Status)
	assert.Equal(t, "200", got.AmountPaid.String())
}

func TestPayment_CancelAfterDueDateFallsBackToOverdue(t *testing.T) {
	f := newFixture(t)
	inv := creditInvoice(t, f, "10", "2026-03-20")

	p, err := pay(f, inv.ID, "250")
	require.NoError(t, err)

	f.now = time.Date(2026, time.March, 25, 9, 0, 0, 0, time.UTC)
	_, err = f.payments.Cancel(f.ctx, p.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceOverdue, f.reload(inv.ID).Status)
}

func TestPayment_UpdatePendingPayment(t *testing.T) {
	f := newFixture(t)
	inv := creditInvoice(t, f, "10", "")

	res, err := f.payments.Record(f.ctx, inv.ID, 1, &RecordPaymentRequest{
		Amount:        d("300"),
		PaymentMethod: models.MethodBankTransfer,
		Status:        models.PaymentPending,
	})
	require.NoError(t, err)

	_, err = f.payments.Update(f.ctx, res.Payment.ID, &UpdatePaymentRequest{
		Amount: d("1000.01"), PaymentMethod: models.MethodBankTransfer, Status: models.PaymentCompleted,
	})
	require.ErrorIs(t, err, utils.ErrPaymentExceedsDue)

	updated, err := f.payments.Update(f.ctx, res.Payment.ID, &UpdatePaymentRequest{
		Amount: d("350"), PaymentMethod: models.MethodBankTransfer, Status: models.PaymentCompleted,
		ReferenceNumber: " NEFT-1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "NEFT-1", updated.Payment.ReferenceNumber)
	assert.Equal(t, models.InvoicePartiallyPaid, updated.Invoice.Status)
	assert.Equal(t, "350", f.reload(inv.ID).AmountPaid.String())

	_, err = f.payments.Update(f.ctx, res.Payment.ID, &UpdatePaymentRequest{
		Amount: d("10"), PaymentMethod: models.MethodCash, Status: models.PaymentCompleted,
	})
	require.ErrorIs(t, err, utils.ErrPaymentNotPending)
}

func TestPayment_PendingView(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "1000")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")

	overdue := f.sell(c, rice, "1", models.PaymentTypeCredit, "2026-03-01")
	soon := f.sell(c, rice, "2", models.PaymentTypeCredit, "2026-03-15")
	later := f.sell(c, rice, "3", models.PaymentTypeCredit, "2026-05-01")
	f.sell(c, rice, "4", models.PaymentTypeCash, "")
	noDue := f.sell(c, rice, "5", models.PaymentTypeUPI, "")

	out, err := f.payments.Pending(f.ctx, PendingFilter{})
	require.NoError(t, err)

	require.Len(t, out.Invoices, 4)
	assert.Equal(t, overdue.ID, out.Invoices[0].ID)
	assert.Equal(t, soon.ID, out.Invoices[1].ID)
	assert.Equal(t, later.ID, out.Invoices[2].ID)
	assert.Equal(t, noDue.ID, out.Invoices[3].ID)

	assert.Equal(t, DueOverdue, out.Invoices[0].DueStatus)
	assert.Equal(t, 9, out.Invoices[0].DaysOverdue)
	assert.Equal(t, DueSoon, out.Invoices[1].DueStatus)
	assert.Equal(t, DueUpcoming, out.Invoices[2].DueStatus)
	assert.Equal(t, DueNoDueDate, out.Invoices[3].DueStatus)

	assert.Equal(t, 4, out.Summary.OpenInvoiceCount)
	assert.Equal(t, "1100", out.Summary.TotalPending.String())
	assert.Equal(t, "100", out.Summary.OverdueAmount.String())
	assert.Equal(t, 1, out.Summary.DueSoonCount)

	filtered, err := f.payments.Pending(f.ctx, PendingFilter{OverdueStatus: DueOverdue})
	require.NoError(t, err)
	assert.Len(t, filtered.Invoices, 1)
	assert.Equal(t, 4, filtered.Summary.OpenInvoiceCount, "summary ignores filters")
}
