package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// CheckoutService turns a session cart into a persisted invoice.
type CheckoutService struct {
	tx        TxRunner
	carts     CartRepository
	catalog   CatalogStore
	customers CustomerStore
	invoices  InvoiceStore
	notifier  sse.BillingNotifier
	billing   config.BillingConfig
	now       Clock
	newNumber func(prefix string) string
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(
	tx TxRunner,
	carts CartRepository,
	catalog CatalogStore,
	customers CustomerStore,
	invoices InvoiceStore,
	notifier sse.BillingNotifier,
	billing config.BillingConfig,
) *CheckoutService {
	return &CheckoutService{
		tx:        tx,
		carts:     carts,
		catalog:   catalog,
		customers: customers,
		invoices:  invoices,
		notifier:  notifier,
		billing:   billing,
		now:       time.Now,
		newNumber: utils.GenerateInvoiceNumber,
	}
}

// CheckoutRequest carries the checkout form. DiscountAmount is an absolute
// amount; TaxPercentage defaults to the configured rate when omitted.
type CheckoutRequest struct {
	CustomerID     int                `json:"customerId" validate:"required"`
	PaymentType    models.PaymentType `json:"paymentType" validate:"oneof=cash upi credit"`
	DiscountAmount decimal.Decimal    `json:"discountAmount" validate:"gte=0"`
	TaxPercentage  *decimal.Decimal   `json:"taxPercentage"`
	PaymentDueDate string             `json:"paymentDueDate"`
	Notes          string             `json:"notes"`
}

// CheckoutResult is the created invoice with any stock warnings.
type CheckoutResult struct {
	Invoice  *models.Invoice      `json:"invoice"`
	Items    []models.InvoiceItem `json:"items"`
	Warnings []string             `json:"warnings"`
	Message  string               `json:"message"`
}

// Checkout validates the cart and customer, prices the invoice, checks
// credit, deducts stock and persists invoice plus lines in one transaction.
// The cart is cleared only after the transaction commits.
func (s *CheckoutService) Checkout(ctx context.Context, session string, createdBy int, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	taxPct := s.billing.DefaultTaxPercentage
	if req.TaxPercentage != nil {
		taxPct = *req.TaxPercentage
	}
	if taxPct.IsNegative() {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "taxPercentage must be at least 0")
	}
	due, err := parseDate(req.PaymentDueDate)
	if err != nil {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "paymentDueDate must be formatted as YYYY-MM-DD")
	}

	cart, err := s.carts.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, utils.Wrap(utils.ErrEmptyCart, "Cart is empty")
	}

	today := models.Day(s.now())
	subtotal := cart.Subtotal().Round(2)
	discount := req.DiscountAmount.Round(2)
	if discount.GreaterThan(subtotal) {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "Discount cannot exceed the subtotal of %s", subtotal.StringFixed(2))
	}
	tax := percentOf(subtotal.Sub(discount), taxPct)
	total := subtotal.Sub(discount).Add(tax)

	if req.PaymentType == models.PaymentTypeCredit && due == nil && s.billing.CreditDueDays > 0 {
		d := today.AddDate(0, 0, s.billing.CreditDueDays)
		due = &d
	}

	inv := &models.Invoice{
		CustomerID:         req.CustomerID,
		PaymentType:        req.PaymentType,
		Subtotal:           subtotal,
		DiscountPercentage: decimal.Zero,
		DiscountAmount:     discount,
		TaxPercentage:      taxPct,
		TaxAmount:          tax,
		Total:              total,
		AmountPaid:         decimal.Zero,
		Notes:              req.Notes,
	}
	if createdBy > 0 {
		inv.CreatedBy = &createdBy
	}
	switch req.PaymentType {
	case models.PaymentTypeCash:
		inv.Status = models.InvoicePaid
		inv.AmountPaid = total
		inv.PaymentDueDate = due
	default:
		inv.Status = openStatusFor(due, today)
		inv.PaymentDueDate = due
		inv.DueDate = due
	}

	var (
		items    []models.InvoiceItem
		warnings = []string{}
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByID(ctx, req.CustomerID)
		if err != nil {
			return notFound(err, utils.ErrCustomerNotFound)
		}
		inv.CustomerName = customer.Name
		inv.CustomerPhone = customer.Phone
		inv.CustomerType = customer.CustomerType

		if req.PaymentType == models.PaymentTypeCredit {
			pending, err := s.customers.PendingAmount(ctx, customer.ID)
			if err != nil {
				return err
			}
			credit := models.NewCreditInfo(customer.CreditLimit, pending)
			if total.GreaterThan(credit.Headroom()) {
				return utils.Wrap(utils.ErrCreditLimitExceeded,
					"Credit limit exceeded. Available credit: %s, invoice total: %s",
					credit.AvailableCredit.StringFixed(2), total.StringFixed(2))
			}
		}

		number, err := allocateInvoiceNumber(ctx, s.invoices, s.newNumber, s.billing.InvoicePrefix)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		for _, line := range cart.Items {
			q, err := s.catalog.GetQualityForUpdate(ctx, line.QualityID)
			if err != nil {
				return notFound(err, utils.Wrap(utils.ErrQualityNotFound, "%s (%s) is no longer in the catalog", line.ProductName, line.Quality))
			}
			stock := q.StockQuantity.Sub(line.Quantity)
			if stock.IsNegative() {
				warnings = append(warnings, fmt.Sprintf(
					"Insufficient stock for %s (%s): requested %s kg, available %s kg. Stock set to 0.",
					line.ProductName, line.Quality, line.Quantity.String(), q.StockQuantity.String()))
				stock = decimal.Zero
			}
			if err := s.catalog.SetStock(ctx, q.ID, stock); err != nil {
				return err
			}
		}

		if err := s.invoices.Create(ctx, inv); err != nil {
			return err
		}

		items = make([]models.InvoiceItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			it := models.InvoiceItem{
				InvoiceID:          inv.ID,
				ProductID:          line.ProductID,
				ProductQualityID:   line.QualityID,
				Quantity:           line.Quantity,
				UnitPrice:          line.UnitPrice,
				DiscountPercentage: decimal.Zero,
				DiscountAmount:     decimal.Zero,
				Subtotal:           line.Subtotal,
				ProductName:        line.ProductName,
				Quality:            line.Quality,
			}
			if err := s.invoices.CreateItem(ctx, &it); err != nil {
				return err
			}
			items = append(items, it)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, session); err != nil {
		log.Warn().Err(err).Str("session", session).Msg("Failed to clear cart after checkout")
	}
	for _, w := range warnings {
		log.Warn().Str("invoice_number", inv.InvoiceNumber).Msg(w)
	}
	log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Int("customer_id", inv.CustomerID).
		Str("payment_type", string(inv.PaymentType)).
		Str("status", string(inv.Status)).
		Str("total", inv.Total.StringFixed(2)).
		Msg("Checkout completed")
	s.notifier.NotifyInvoiceCreated(inv)

	return &CheckoutResult{Invoice: inv, Items: items, Warnings: warnings, Message: checkoutMessage(inv.Status)}, nil
}

func checkoutMessage(status models.InvoiceStatus) string {
	switch status {
	case models.InvoicePaid:
		return "Invoice created and marked as paid."
	case models.InvoiceOverdue:
		return "Invoice created but is already overdue."
	}
	return "Invoice created. Payment is pending."
}
