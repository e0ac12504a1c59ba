package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

type archiveCall struct {
	key         string
	contentType string
	size        int
}

type stubArchiver struct{ calls []archiveCall }

func (a *stubArchiver) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	a.calls = append(a.calls, archiveCall{key: key, contentType: contentType, size: len(data)})
	return "https://docs.example.com/" + key, nil
}

func TestInvoice_DraftLifecycle(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Mandi Traders", "9800000002", models.CustomerWholesale, "0")

	tax := d("10")
	inv, err := f.invoices.CreateDraft(f.ctx, 1, &DraftRequest{
		CustomerID:         c.ID,
		PaymentType:        models.PaymentTypeCredit,
		DiscountPercentage: d("5"),
		TaxPercentage:      &tax,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assert.Equal(t, "INV-000001", inv.InvoiceNumber)
	assert.True(t, inv.Total.IsZero())

	_, err = f.invoices.Issue(f.ctx, inv.ID)
	require.ErrorIs(t, err, utils.ErrInvoiceNoItems)

	item, inv, err := f.invoices.AddItem(f.ctx, inv.ID, &ItemRequest{QualityID: rice.ID, Quantity: d("2000"), Unit: "g"})
	require.NoError(t, err)
	assert.Equal(t, "2", item.Quantity.String())
	assert.Equal(t, "90", item.UnitPrice.String(), "wholesale customers get the wholesale price")
	assert.Equal(t, "180.00", inv.Subtotal.StringFixed(2))

	override := d("95")
	item, inv, err = f.invoices.UpdateItem(f.ctx, inv.ID, item.ID, &ItemRequest{
		QualityID: rice.ID, Quantity: d("10"), UnitPrice: &override, DiscountPercentage: d("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "95.00", item.DiscountAmount.StringFixed(2))
	assert.Equal(t, "855.00", item.Subtotal.StringFixed(2))
	assert.Equal(t, "855.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "42.75", inv.DiscountAmount.StringFixed(2))
	assert.Equal(t, "81.23", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "893.48", inv.Total.StringFixed(2))

	issued, err := f.invoices.Issue(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePendingPayment, issued.Status)
	require.NotNil(t, issued.PaymentDueDate)
	assert.Equal(t, "2026-04-09", issued.PaymentDueDate.Format("2006-01-02"))
	assert.Equal(t, 1, f.notifier.Count(sse.EventInvoiceStatusChanged))

	_, _, err = f.invoices.AddItem(f.ctx, inv.ID, &ItemRequest{QualityID: rice.ID, Quantity: d("1")})
	require.ErrorIs(t, err, utils.ErrInvoiceNotDraft)
	_, err = f.invoices.RemoveItem(f.ctx, inv.ID, item.ID)
	require.ErrorIs(t, err, utils.ErrInvoiceNotDraft)

	assert.Equal(t, "500", f.stock(rice.ID).String(), "drafts do not move stock")
}

func TestInvoice_DraftItemErrors(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "0")

	inv, err := f.invoices.CreateDraft(f.ctx, 1, &DraftRequest{CustomerID: c.ID, PaymentType: models.PaymentTypeCash})
	require.NoError(t, err)
	other, err := f.invoices.CreateDraft(f.ctx, 1, &DraftRequest{CustomerID: c.ID, PaymentType: models.PaymentTypeCash})
	require.NoError(t, err)
	item, _, err := f.invoices.AddItem(f.ctx, other.ID, &ItemRequest{QualityID: rice.ID, Quantity: d("1")})
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"unknown quality", func() error {
			_, _, err := f.invoices.AddItem(f.ctx, inv.ID, &ItemRequest{QualityID: 999, Quantity: d("1")})
			return err
		}, utils.ErrQualityNotFound},
		{"bad unit", func() error {
			_, _, err := f.invoices.AddItem(f.ctx, inv.ID, &ItemRequest{QualityID: rice.ID, Quantity: d("1"), Unit: "lb"})
			return err
		}, utils.ErrInvalidRequest},
		{"item of another invoice", func() error {
			_, err := f.invoices.RemoveItem(f.ctx, inv.ID, item.ID)
			return err
		}, utils.ErrInvoiceItemNotFound},
		{"unknown customer", func() error {
			_, err := f.invoices.UpdateDraft(f.ctx, inv.ID, &DraftRequest{CustomerID: 999, PaymentType: models.PaymentTypeCash})
			return err
		}, utils.ErrCustomerNotFound},
		{"unknown invoice", func() error {
			_, err := f.invoices.Issue(f.ctx, 999)
			return err
		}, utils.ErrInvoiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.run(), tt.want)
		})
	}

	after, err := f.invoices.RemoveItem(f.ctx, other.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, after.Subtotal.IsZero())
}

func TestInvoice_MarkPaidAndCancel(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")

	inv := f.sell(c, rice, "3", models.PaymentTypeCredit, "")
	paid, warnings, err := f.invoices.MarkPaid(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, models.InvoicePaid, paid.Status)
	assert.Equal(t, "300", paid.AmountPaid.String())

	_, warnings, err = f.invoices.MarkPaid(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice INV-000001 is already marked as paid."}, warnings)

	_, _, err = f.invoices.Cancel(f.ctx, inv.ID)
	require.ErrorIs(t, err, utils.ErrInvoicePaid)

	open := f.sell(c, rice, "1", models.PaymentTypeCredit, "")
	cancelled, warnings, err := f.invoices.Cancel(f.ctx, open.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, models.InvoiceCancelled, cancelled.Status)

	_, warnings, err = f.invoices.Cancel(f.ctx, open.ID)
	require.NoError(t, err)
	assert.Len(t, warnings, 1)

	_, _, err = f.invoices.MarkPaid(f.ctx, open.ID)
	require.ErrorIs(t, err, utils.ErrInvoiceCancelled)
}

func TestInvoice_SetDueDateReevaluatesStatus(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")
	inv := f.sell(c, rice, "1", models.PaymentTypeCredit, "")

	got, err := f.invoices.SetDueDate(f.ctx, inv.ID, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceOverdue, got.Status)

	got, err = f.invoices.SetDueDate(f.ctx, inv.ID, "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePendingPayment, got.Status)
	assert.Equal(t, "2026-03-31", got.DueDate.Format("2006-01-02"))

	_, err = f.invoices.SetDueDate(f.ctx, inv.ID, "31-03-2026")
	require.ErrorIs(t, err, utils.ErrInvalidRequest)
}

func TestInvoice_SweepOverdue(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")

	soon := f.sell(c, rice, "1", models.PaymentTypeCredit, "2026-03-12")
	later := f.sell(c, rice, "1", models.PaymentTypeCredit, "2026-04-30")
	cash := f.sell(c, rice, "1", models.PaymentTypeCash, "")

	n, err := f.invoices.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = time.Date(2026, time.March, 13, 1, 0, 0, 0, time.UTC)
	n, err = f.invoices.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.InvoiceOverdue, f.reload(soon.ID).Status)
	assert.Equal(t, models.InvoicePendingPayment, f.reload(later.ID).Status)
	assert.Equal(t, models.InvoicePaid, f.reload(cash.ID).Status)

	n, err = f.invoices.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "sweeping is idempotent")
}

func TestInvoice_GetAndDelete(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "100000")
	inv := f.sell(c, rice, "2", models.PaymentTypeCredit, "2026-03-05")

	_, err := pay(f, inv.ID, "50")
	require.NoError(t, err)

	detail, err := f.invoices.Get(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Items, 1)
	assert.Len(t, detail.Payments, 1)
	assert.Equal(t, "150", detail.AmountDue.String())
	assert.True(t, detail.IsOverdue)
	assert.Equal(t, 5, detail.DaysOverdue)

	require.NoError(t, f.invoices.Delete(f.ctx, inv.ID))
	_, err = f.invoices.Get(f.ctx, inv.ID)
	require.ErrorIs(t, err, utils.ErrInvoiceNotFound)

	payments, _, err := f.store.Payments().List(f.ctx, repository.PaymentFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Empty(t, payments)
	require.ErrorIs(t, f.invoices.Delete(f.ctx, inv.ID), utils.ErrInvoiceNotFound)
}

func TestInvoice_PDFAndArchive(t *testing.T) {
	f := newFixture(t)
	archiver := &stubArchiver{}
	f.invoices.archiver = archiver
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "0")
	inv := f.sell(c, rice, "2", models.PaymentTypeCash, "")

	data, filename, err := f.invoices.PDF(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-000001.pdf", filename)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	url, err := f.invoices.Archive(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com/invoices/INV-000001.pdf", url)
	require.Len(t, archiver.calls, 1)
	assert.Equal(t, utils.ContentTypePDF, archiver.calls[0].contentType)
	assert.Equal(t, len(data), archiver.calls[0].size)
}
