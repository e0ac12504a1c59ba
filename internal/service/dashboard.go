package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
)

// DashboardDays is the length of the daily sales series, today included.
const DashboardDays = 7

// DailySales is one day of the dashboard sales chart.
type DailySales struct {
	Date      string          `json:"date"`
	Bills     int             `json:"bills"`
	TotalSale decimal.Decimal `json:"totalSale"`
	Cash      decimal.Decimal `json:"cash"`
	UPI       decimal.Decimal `json:"upi"`
	Credit    decimal.Decimal `json:"credit"`
}

// PaymentTypeTotals splits all-time sales by how they were settled.
type PaymentTypeTotals struct {
	Cash   decimal.Decimal `json:"cash"`
	UPI    decimal.Decimal `json:"upi"`
	Credit decimal.Decimal `json:"credit"`
	Total  decimal.Decimal `json:"total"`
}

// CustomerTypeCount is one slice of the customer mix chart.
type CustomerTypeCount struct {
	CustomerType models.CustomerType `json:"customerType"`
	Label        string              `json:"label"`
	Count        int                 `json:"count"`
}

// Dashboard is the landing page summary. Growth figures are whole percent
// changes against the previous calendar month.
type Dashboard struct {
	Date            time.Time           `json:"date"`
	MonthSales      decimal.Decimal     `json:"monthSales"`
	SalesGrowth     int64               `json:"salesGrowth"`
	PendingPayments decimal.Decimal     `json:"pendingPayments"`
	PendingGrowth   int64               `json:"pendingGrowth"`
	TotalCustomers  int                 `json:"totalCustomers"`
	CustomerGrowth  int64               `json:"customerGrowth"`
	TotalBills      int                 `json:"totalBills"`
	DailySales      []DailySales        `json:"dailySales"`
	PaymentTotals   PaymentTypeTotals   `json:"paymentTotals"`
	PaymentPercents PaymentTypeTotals   `json:"paymentPercentages"`
	CustomerTypes   []CustomerTypeCount `json:"customerTypes"`
}

// Dashboard aggregates month-to-date sales, outstanding credit, the
// customer base and the last week of sales. Drafts are not sales.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := models.Day(s.now())
	monthStart := today.AddDate(0, 0, 1-today.Day())
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	seriesStart := today.AddDate(0, 0, 1-DashboardDays)

	invoices, _, err := s.invoices.List(ctx, repository.InvoiceFilter{ExcludeDraft: true})
	if err != nil {
		return nil, err
	}
	customers, _, err := s.customers.List(ctx, repository.CustomerFilter{})
	if err != nil {
		return nil, err
	}

	out := &Dashboard{
		Date:            today,
		MonthSales:      decimal.Zero,
		PendingPayments: decimal.Zero,
		TotalBills:      len(invoices),
		TotalCustomers:  len(customers),
		DailySales:      make([]DailySales, DashboardDays),
		PaymentTotals:   PaymentTypeTotals{Cash: decimal.Zero, UPI: decimal.Zero, Credit: decimal.Zero, Total: decimal.Zero},
	}
	for i := range out.DailySales {
		out.DailySales[i] = DailySales{
			Date:      seriesStart.AddDate(0, 0, i).Format(reportDateFormat),
			TotalSale: decimal.Zero,
			Cash:      decimal.Zero,
			UPI:       decimal.Zero,
			Credit:    decimal.Zero,
		}
	}

	prevSales, prevPending := decimal.Zero, decimal.Zero
	for i := range invoices {
		inv := &invoices[i]
		day := models.Day(inv.CreatedAt)

		switch {
		case !day.Before(monthStart) && !day.After(today):
			out.MonthSales = out.MonthSales.Add(inv.Total)
		case !day.Before(prevMonthStart) && day.Before(monthStart):
			prevSales = prevSales.Add(inv.Total)
		}

		if inv.Status.IsOpen() {
			if due := inv.AmountDue(); due.IsPositive() {
				out.PendingPayments = out.PendingPayments.Add(due)
				if day.Before(monthStart) {
					prevPending = prevPending.Add(due)
				}
			}
		}

		if !day.Before(seriesStart) && !day.After(today) {
			idx := int(day.Sub(seriesStart).Hours() / 24)
			row := &out.DailySales[idx]
			row.Bills++
			row.TotalSale = row.TotalSale.Add(inv.Total)
			addByPaymentType(inv, &row.Cash, &row.UPI, &row.Credit)
		}

		pt := &out.PaymentTotals
		addByPaymentType(inv, &pt.Cash, &pt.UPI, &pt.Credit)
	}

	pt := &out.PaymentTotals
	pt.Total = pt.Cash.Add(pt.UPI).Add(pt.Credit)
	out.PaymentPercents = PaymentTypeTotals{
		Cash:   percentOneDecimal(pt.Cash, pt.Total),
		UPI:    percentOneDecimal(pt.UPI, pt.Total),
		Credit: percentOneDecimal(pt.Credit, pt.Total),
		Total:  decimal.Zero,
	}
	if pt.Total.IsPositive() {
		out.PaymentPercents.Total = decimal.NewFromInt(100)
	}

	counts := map[models.CustomerType]int{}
	prevCustomers := 0
	for _, c := range customers {
		counts[c.CustomerType]++
		if c.CreatedAt.Before(monthStart) {
			prevCustomers++
		}
	}
	out.CustomerTypes = make([]CustomerTypeCount, 0, 3)
	for _, ct := range []models.CustomerType{models.CustomerRetail, models.CustomerWholesale, models.CustomerDistributor} {
		out.CustomerTypes = append(out.CustomerTypes, CustomerTypeCount{CustomerType: ct, Label: ct.Label(), Count: counts[ct]})
	}

	out.SalesGrowth = growth(out.MonthSales, prevSales)
	out.PendingGrowth = growth(out.PendingPayments, prevPending)
	out.CustomerGrowth = growth(decimal.NewFromInt(int64(out.TotalCustomers)), decimal.NewFromInt(int64(prevCustomers)))
	return out, nil
}

func addByPaymentType(inv *models.Invoice, cash, upi, credit *decimal.Decimal) {
	switch inv.PaymentType {
	case models.PaymentTypeCash:
		*cash = cash.Add(inv.Total)
	case models.PaymentTypeUPI:
		*upi = upi.Add(inv.Total)
	case models.PaymentTypeCredit:
		*credit = credit.Add(inv.Total)
	}
}

// growth is the whole percent change from prev to cur. Anything from
// nothing counts as 100%.
func growth(cur, prev decimal.Decimal) int64 {
	switch {
	case prev.IsPositive():
		return cur.Sub(prev).Mul(decimal.NewFromInt(100)).Div(prev).Round(0).IntPart()
	case cur.IsPositive():
		return 100
	}
	return 0
}

func percentOneDecimal(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(1)
}
