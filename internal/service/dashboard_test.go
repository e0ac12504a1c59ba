package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

func TestDashboard_Aggregates(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "1000")

	on(f, time.February, 1)
	asha := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "10000")
	on(f, time.February, 20)
	f.sell(asha, rice, "3", models.PaymentTypeCredit, "")

	on(f, time.March, 1)
	f.sell(asha, rice, "2", models.PaymentTypeCash, "")
	on(f, time.March, 5)
	bala := f.customer("Bala Traders", "9800000002", models.CustomerWholesale, "10000")
	on(f, time.March, 9)
	f.sell(asha, rice, "1", models.PaymentTypeUPI, "")
	on(f, time.March, 10)
	f.sell(bala, rice, "5", models.PaymentTypeCredit, "")
	_, err := f.invoices.CreateDraft(f.ctx, 1, &DraftRequest{CustomerID: bala.ID, PaymentType: models.PaymentTypeCash})
	require.NoError(t, err)

	dash, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, "800", dash.MonthSales.String())
	assert.Equal(t, int64(167), dash.SalesGrowth)
	assert.Equal(t, "900", dash.PendingPayments.String())
	assert.Equal(t, int64(200), dash.PendingGrowth)
	assert.Equal(t, 2, dash.TotalCustomers)
	assert.Equal(t, int64(100), dash.CustomerGrowth)
	assert.Equal(t, 4, dash.TotalBills, "drafts are not bills")

	require.Len(t, dash.DailySales, DashboardDays)
	assert.Equal(t, "2026-03-04", dash.DailySales[0].Date)
	assert.Zero(t, dash.DailySales[0].Bills)
	assert.True(t, dash.DailySales[0].TotalSale.IsZero())
	assert.Equal(t, "2026-03-09", dash.DailySales[5].Date)
	assert.Equal(t, "100", dash.DailySales[5].UPI.String())
	assert.Equal(t, "2026-03-10", dash.DailySales[6].Date)
	assert.Equal(t, 1, dash.DailySales[6].Bills)
	assert.Equal(t, "500", dash.DailySales[6].Credit.String())

	assert.Equal(t, "200", dash.PaymentTotals.Cash.String())
	assert.Equal(t, "100", dash.PaymentTotals.UPI.String())
	assert.Equal(t, "800", dash.PaymentTotals.Credit.String())
	assert.Equal(t, "1100", dash.PaymentTotals.Total.String())
	assert.Equal(t, "18.2", dash.PaymentPercents.Cash.String())
	assert.Equal(t, "9.1", dash.PaymentPercents.UPI.String())
	assert.Equal(t, "72.7", dash.PaymentPercents.Credit.String())

	assert.Equal(t, []CustomerTypeCount{
		{CustomerType: models.CustomerRetail, Label: "Retail", Count: 1},
		{CustomerType: models.CustomerWholesale, Label: "Wholesale", Count: 1},
		{CustomerType: models.CustomerDistributor, Label: "Distributor", Count: 0},
	}, dash.CustomerTypes)
}

func TestDashboard_Empty(t *testing.T) {
	f := newFixture(t)

	dash, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.True(t, dash.MonthSales.IsZero())
	assert.Zero(t, dash.SalesGrowth)
	assert.Zero(t, dash.PendingGrowth)
	assert.Zero(t, dash.CustomerGrowth)
	assert.True(t, dash.PaymentPercents.Cash.IsZero())
	require.Len(t, dash.DailySales, DashboardDays)
	assert.Equal(t, "2026-03-10", dash.DailySales[DashboardDays-1].Date)
}

func TestGrowth(t *testing.T) {
	tests := []struct {
		cur, prev string
		want      int64
	}{
		{"800", "300", 167},
		{"100", "200", -50},
		{"5", "0", 100},
		{"0", "0", 0},
		{"0", "40", -100},
	}
	for _, tt := range tests {
		t.Run(tt.cur+"/"+tt.prev, func(t *testing.T) {
			assert.Equal(t, tt.want, growth(d(tt.cur), d(tt.prev)))
		})
	}
}
