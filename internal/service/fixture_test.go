package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/testutil"
)

var testNow = time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)

const testSession = "42"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	store    *testutil.MemoryStore
	carts    *testutil.CartMem
	notifier *testutil.RecordingNotifier

	catalog   *CatalogService
	customers *CustomerService
	cart      *CartService
	checkout  *CheckoutService
	invoices  *InvoiceService
	payments  *PaymentService
	reminders *ReminderService
	reports   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		now:      testNow,
		store:    testutil.NewMemoryStore(),
		carts:    testutil.NewCartMem(),
		notifier: &testutil.RecordingNotifier{},
	}
	clock := func() time.Time { return f.now }
	f.store.Now = clock

	seq := 0
	numbers := func(prefix string) string {
		seq++
		return fmt.Sprintf("%s-%06d", prefix, seq)
	}
	billing := config.BillingConfig{InvoicePrefix: "INV", CreditDueDays: 30, DueSoonDays: 7}
	catalog, customers, invoices := f.store.Catalog(), f.store.Customers(), f.store.Invoices()
	payments, reminders := f.store.Payments(), f.store.Reminders()

	f.catalog = NewCatalogService(f.store, catalog)
	f.customers = NewCustomerService(customers, invoices, payments)
	f.cart = NewCartService(f.carts, catalog)

	f.checkout = NewCheckoutService(f.store, f.carts, catalog, customers, invoices, f.notifier, billing)
	f.checkout.now, f.checkout.newNumber = clock, numbers

	f.invoices = NewInvoiceService(InvoiceDeps{
		Tx: f.store, Invoices: invoices, Customers: customers, Catalog: catalog,
		Payments: payments, Reminders: reminders, Notifier: f.notifier, Billing: billing,
		Company: config.CompanyConfig{Name: "Green Grocers"},
	})
	f.invoices.now, f.invoices.newNumber = clock, numbers

	f.payments = NewPaymentService(f.store, invoices, payments, f.notifier, billing)
	f.payments.now = clock

	f.reminders = NewReminderService(invoices, reminders, f.notifier)
	f.reminders.now = clock

	f.reports = NewReportService(invoices, customers, config.CompanyConfig{Name: "Green Grocers"})
	f.reports.now = clock
	return f
}

// quality seeds a product (created on first use) with one tier.
func (f *fixture) quality(product string, tier models.QualityTier, retail, wholesale, broker, stock string) *models.ProductQuality {
	f.t.Helper()
	p, err := f.store.Catalog().GetProductByName(f.ctx, product)
	if err != nil {
		p = &models.Product{Name: product}
		require.NoError(f.t, f.store.Catalog().CreateProduct(f.ctx, p))
	}
	q := &models.ProductQuality{
		ProductID:      p.ID,
		Quality:        tier,
		RetailPrice:    d(retail),
		WholesalePrice: d(wholesale),
		BrokerPrice:    d(broker),
		StockQuantity:  d(stock),
	}
	require.NoError(f.t, f.store.Catalog().CreateQuality(f.ctx, q))
	q.ProductName = p.Name
	return q
}

func (f *fixture) customer(name, phone string, ctype models.CustomerType, limit string) *models.Customer {
	f.t.Helper()
	c := &models.Customer{Name: name, Phone: phone, CustomerType: ctype, CreditLimit: d(limit)}
	require.NoError(f.t, f.store.Customers().Create(f.ctx, c))
	return c
}

func (f *fixture) addToCart(q *models.ProductQuality, qty string) {
	f.t.Helper()
	_, err := f.cart.Add(f.ctx, testSession, &AddCartItemRequest{QualityID: q.ID, Quantity: d(qty)})
	require.NoError(f.t, err)
}

// sell checks out one line for the customer and returns the invoice.
func (f *fixture) sell(c *models.Customer, q *models.ProductQuality, qty string, pt models.PaymentType, due string) *models.Invoice {
	f.t.Helper()
	f.addToCart(q, qty)
	res, err := f.checkout.Checkout(f.ctx, testSession, 1, &CheckoutRequest{
		CustomerID:     c.ID,
		PaymentType:    pt,
		PaymentDueDate: due,
	})
	require.NoError(f.t, err)
	return res.Invoice
}

func (f *fixture) reload(id int) *models.Invoice {
	f.t.Helper()
	inv, err := f.store.Invoices().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return inv
}

func (f *fixture) stock(qualityID int) decimal.Decimal {
	f.t.Helper()
	q, err := f.store.Catalog().GetQuality(f.ctx, qualityID)
	require.NoError(f.t, err)
	return q.StockQuantity
}
