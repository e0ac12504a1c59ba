package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func TestCustomer_CreateNormalisesAndRejectsDuplicatePhone(t *testing.T) {
	f := newFixture(t)

	c, err := f.customers.Create(f.ctx, &CustomerRequest{Name: "  Asha Stores ", Phone: " 9800000001 ", CreditLimit: d("5000")})
	require.NoError(t, err)
	assert.Equal(t, "Asha Stores", c.Name)
	assert.Equal(t, "9800000001", c.Phone)
	assert.Equal(t, models.CustomerRetail, c.CustomerType)

	_, err = f.customers.Create(f.ctx, &CustomerRequest{Name: "Other", Phone: "9800000001"})
	require.ErrorIs(t, err, utils.ErrCustomerExists)

	tests := []struct {
		name string
		req  CustomerRequest
	}{
		{"missing name", CustomerRequest{Phone: "1"}},
		{"bad email", CustomerRequest{Name: "X", Phone: "2", Email: "not-an-email"}},
		{"negative limit", CustomerRequest{Name: "X", Phone: "3", CreditLimit: d("-1")}},
		{"unknown type", CustomerRequest{Name: "X", Phone: "4", CustomerType: "vip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.customers.Create(f.ctx, &req)
			require.ErrorIs(t, err, utils.ErrInvalidRequest)
		})
	}
}

func TestCustomer_QuickAddReturnsExisting(t *testing.T) {
	f := newFixture(t)
	existing := f.customer("Asha Stores", "9800000001", models.CustomerWholesale, "0")

	for _, req := range []QuickAddRequest{
		{Name: "asha stores", Phone: "9999999999"},
		{Name: "Someone Else", Phone: "9800000001"},
	} {
		_, err := f.customers.QuickAdd(f.ctx, &req)
		require.ErrorIs(t, err, utils.ErrCustomerExists)
		var dup *DuplicateCustomerError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, existing.ID, dup.Existing.ID)
	}

	c, err := f.customers.QuickAdd(f.ctx, &QuickAddRequest{Name: "New Shop", Phone: "9800000003", CustomerType: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerRetail, c.CustomerType)
}

func TestCustomer_CreditPosition(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "1000")

	f.sell(c, rice, "4", models.PaymentTypeCredit, "")
	partly := f.sell(c, rice, "3", models.PaymentTypeCredit, "")
	_, err := pay(f, partly.ID, "100")
	require.NoError(t, err)
	f.sell(c, rice, "5", models.PaymentTypeCash, "")

	credit, err := f.customers.Credit(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "600", credit.PendingAmount.String())
	assert.Equal(t, "400", credit.AvailableCredit.String())
	assert.False(t, credit.LimitExceeded)

	// Lowering the limit below what is owed clamps the displayed headroom.
	_, err = f.customers.Update(f.ctx, c.ID, &CustomerRequest{Name: c.Name, Phone: c.Phone, CreditLimit: d("500")})
	require.NoError(t, err)
	credit, err = f.customers.Credit(f.ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, credit.AvailableCredit.IsZero())
	assert.True(t, credit.LimitExceeded)
	assert.Equal(t, "-100", credit.Headroom().String())
}

func TestCustomer_PaymentHistory(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "10000")

	open := f.sell(c, rice, "2", models.PaymentTypeCredit, "")
	_, err := pay(f, open.ID, "50")
	require.NoError(t, err)
	f.sell(c, rice, "1", models.PaymentTypeCash, "")
	cancelled := f.sell(c, rice, "7", models.PaymentTypeCredit, "")
	_, _, err = f.invoices.Cancel(f.ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = f.invoices.CreateDraft(f.ctx, 1, &DraftRequest{CustomerID: c.ID, PaymentType: models.PaymentTypeCash})
	require.NoError(t, err)

	h, err := f.customers.PaymentHistory(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, h.Invoices, 3, "drafts are not part of the ledger")
	assert.Len(t, h.Payments, 1)
	assert.Equal(t, "300", h.TotalInvoiced.String())
	assert.Equal(t, "50", h.TotalPaid.String())
	assert.Equal(t, "150", h.TotalPending.String())
	assert.Equal(t, "9850", h.Credit.AvailableCredit.String())
}

func TestCustomer_DeleteAndSearch(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "500")
	busy := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "0")
	idle := f.customer("Ashok Traders", "9800000002", models.CustomerRetail, "0")
	f.sell(busy, rice, "1", models.PaymentTypeCash, "")

	found, err := f.customers.Search(f.ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, found, "single character terms return nothing")

	found, err = f.customers.Search(f.ctx, "ash")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	require.ErrorIs(t, f.customers.Delete(f.ctx, busy.ID), utils.ErrCustomerInUse)
	require.NoError(t, f.customers.Delete(f.ctx, idle.ID))
	require.ErrorIs(t, f.customers.Delete(f.ctx, idle.ID), utils.ErrCustomerNotFound)
}
