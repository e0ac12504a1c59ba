package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/export"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// DocumentArchiver stores generated documents and returns their URL.
type DocumentArchiver interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// InvoiceService manages draft invoices and the invoice lifecycle.
type InvoiceService struct {
	tx        TxRunner
	invoices  InvoiceStore
	customers CustomerStore
	catalog   CatalogStore
	payments  PaymentStore
	reminders ReminderStore
	archiver  DocumentArchiver
	notifier  sse.BillingNotifier
	billing   config.BillingConfig
	company   export.Letterhead
	now       Clock
	newNumber func(prefix string) string
}

// InvoiceDeps groups the collaborators of InvoiceService.
type InvoiceDeps struct {
	Tx        TxRunner
	Invoices  InvoiceStore
	Customers CustomerStore
	Catalog   CatalogStore
	Payments  PaymentStore
	Reminders ReminderStore
	Archiver  DocumentArchiver
	Notifier  sse.BillingNotifier
	Billing   config.BillingConfig
	Company   config.CompanyConfig
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(d InvoiceDeps) *InvoiceService {
	return &InvoiceService{
		tx:        d.Tx,
		invoices:  d.Invoices,
		customers: d.Customers,
		catalog:   d.Catalog,
		payments:  d.Payments,
		reminders: d.Reminders,
		archiver:  d.Archiver,
		notifier:  d.Notifier,
		billing:   d.Billing,
		company:   letterhead(d.Company),
		now:       time.Now,
		newNumber: utils.GenerateInvoiceNumber,
	}
}

// DraftRequest creates or updates a draft invoice header.
type DraftRequest struct {
	CustomerID         int                `json:"customerId" validate:"required"`
	PaymentType        models.PaymentType `json:"paymentType" validate:"oneof=cash upi credit"`
	DiscountPercentage decimal.Decimal    `json:"discountPercentage" validate:"gte=0,lte=100"`
	TaxPercentage      *decimal.Decimal   `json:"taxPercentage"`
	PaymentDueDate     string             `json:"paymentDueDate"`
	Notes              string             `json:"notes"`
}

// ItemRequest adds or edits a draft line. UnitPrice defaults to the price of
// the quality for the invoice customer's type.
type ItemRequest struct {
	QualityID          int              `json:"qualityId" validate:"required"`
	Quantity           decimal.Decimal  `json:"quantity" validate:"gt=0"`
	Unit               string           `json:"unit"`
	UnitPrice          *decimal.Decimal `json:"unitPrice"`
	DiscountPercentage decimal.Decimal  `json:"discountPercentage" validate:"gte=0,lte=100"`
}

// InvoiceDetail is an invoice with its lines, payments and reminders.
type InvoiceDetail struct {
	Invoice     *models.Invoice      `json:"invoice"`
	Items       []models.InvoiceItem `json:"items"`
	Payments    []models.Payment     `json:"payments"`
	Reminders   []models.Reminder    `json:"reminders"`
	AmountDue   decimal.Decimal      `json:"amountDue"`
	IsOverdue   bool                 `json:"isOverdue"`
	DaysOverdue int                  `json:"daysOverdue"`
}

// InvoiceList is a page of invoices with totals over the whole filter.
type InvoiceList struct {
	Invoices []models.Invoice     `json:"invoices"`
	Totals   models.InvoiceTotals `json:"totals"`
	Total    int                  `json:"-"`
}

// List returns a page of invoices and aggregate totals.
func (s *InvoiceService) List(ctx context.Context, f repository.InvoiceFilter) (*InvoiceList, error) {
	invoices, total, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, err
	}
	totals, err := s.invoices.Totals(ctx, f)
	if err != nil {
		return nil, err
	}
	return &InvoiceList{Invoices: invoices, Totals: *totals, Total: total}, nil
}

// Get returns an invoice with everything attached to it.
func (s *InvoiceService) Get(ctx context.Context, id int) (*InvoiceDetail, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrInvoiceNotFound)
	}
	items, err := s.invoices.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, _, err := s.payments.List(ctx, repository.PaymentFilter{InvoiceID: id})
	if err != nil {
		return nil, err
	}
	reminders, err := s.reminders.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	today := s.now()
	d := &InvoiceDetail{
		Invoice:   inv,
		Items:     items,
		Payments:  payments,
		Reminders: reminders,
		AmountDue: inv.AmountDue(),
		IsOverdue: inv.IsOverdue(today),
	}
	if d.IsOverdue {
		d.DaysOverdue = models.DaysOverdue(inv.EffectiveDueDate(), today)
	}
	return d, nil
}

// CreateDraft creates an empty draft invoice.
func (s *InvoiceService) CreateDraft(ctx context.Context, createdBy int, req *DraftRequest) (*models.Invoice, error) {
	inv := &models.Invoice{
		Status:     models.InvoiceDraft,
		AmountPaid: decimal.Zero,
	}
	if createdBy > 0 {
		inv.CreatedBy = &createdBy
	}
	if err := s.applyDraftRequest(ctx, inv, req); err != nil {
		return nil, err
	}
	applyTotals(inv, nil)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		number, err := allocateInvoiceNumber(ctx, s.invoices, s.newNumber, s.billing.InvoicePrefix)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		return s.invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("invoice_number", inv.InvoiceNumber).Int("customer_id", inv.CustomerID).Msg("Draft invoice created")
	return inv, nil
}

// UpdateDraft replaces the header of a draft and recomputes its totals.
func (s *InvoiceService) UpdateDraft(ctx context.Context, id int, req *DraftRequest) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.draftForUpdate(ctx, id); err != nil {
			return err
		}
		if err := s.applyDraftRequest(ctx, inv, req); err != nil {
			return err
		}
		return s.saveTotals(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// AddItem adds a line to a draft.
func (s *InvoiceService) AddItem(ctx context.Context, id int, req *ItemRequest) (*models.InvoiceItem, *models.Invoice, error) {
	var (
		inv  *models.Invoice
		item *models.InvoiceItem
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.draftForUpdate(ctx, id); err != nil {
			return err
		}
		item = &models.InvoiceItem{InvoiceID: id}
		if err := s.applyItemRequest(ctx, inv, item, req); err != nil {
			return err
		}
		if err := s.invoices.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.saveTotals(ctx, inv)
	})
	if err != nil {
		return nil, nil, err
	}
	return item, inv, nil
}

// UpdateItem edits a line of a draft.
func (s *InvoiceService) UpdateItem(ctx context.Context, id, itemID int, req *ItemRequest) (*models.InvoiceItem, *models.Invoice, error) {
	var (
		inv  *models.Invoice
		item *models.InvoiceItem
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.draftForUpdate(ctx, id); err != nil {
			return err
		}
		if item, err = s.itemOf(ctx, id, itemID); err != nil {
			return err
		}
		if err := s.applyItemRequest(ctx, inv, item, req); err != nil {
			return err
		}
		if err := s.invoices.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.saveTotals(ctx, inv)
	})
	if err != nil {
		return nil, nil, err
	}
	return item, inv, nil
}

// RemoveItem deletes a line of a draft.
func (s *InvoiceService) RemoveItem(ctx context.Context, id, itemID int) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.draftForUpdate(ctx, id); err != nil {
			return err
		}
		if _, err := s.itemOf(ctx, id, itemID); err != nil {
			return err
		}
		if err := s.invoices.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return s.saveTotals(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Issue finalises a draft. Credit drafts without a due date get one
// CreditDueDays from today. Lines are frozen from here on.
func (s *InvoiceService) Issue(ctx context.Context, id int) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.draftForUpdate(ctx, id); err != nil {
			return err
		}
		items, err := s.invoices.ListItems(ctx, id)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return utils.Wrap(utils.ErrInvoiceNoItems, "Add at least one item before issuing the invoice")
		}
		applyTotals(inv, items)

		today := models.Day(s.now())
		if inv.PaymentType == models.PaymentTypeCredit && inv.EffectiveDueDate() == nil {
			due := today.AddDate(0, 0, s.billing.CreditDueDays)
			inv.PaymentDueDate = &due
		}
		if inv.DueDate == nil {
			inv.DueDate = inv.PaymentDueDate
		}
		inv.Status = openStatusFor(inv.EffectiveDueDate(), today)
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("invoice_number", inv.InvoiceNumber).Str("status", string(inv.Status)).Msg("Invoice issued")
	s.notifier.NotifyInvoiceStatusChanged(inv)
	return inv, nil
}

// MarkPaid settles an invoice in full. Re-marking a paid invoice is a no-op
// reported as a warning.
func (s *InvoiceService) MarkPaid(ctx context.Context, id int) (*models.Invoice, []string, error) {
	var (
		inv      *models.Invoice
		warnings = []string{}
		changed  bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.lockInvoice(ctx, id); err != nil {
			return err
		}
		switch inv.Status {
		case models.InvoicePaid:
			warnings = append(warnings, fmt.Sprintf("Invoice %s is already marked as paid.", inv.InvoiceNumber))
			return nil
		case models.InvoiceCancelled:
			return utils.Wrap(utils.ErrInvoiceCancelled, "Cancelled invoices cannot be marked as paid")
		case models.InvoiceDraft:
			return utils.Wrap(utils.ErrInvoiceNotPayable, "Issue the draft before marking it as paid")
		}
		inv.Status = models.InvoicePaid
		inv.AmountPaid = inv.Total
		changed = true
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, nil, err
	}
	if changed {
		log.Info().Str("invoice_number", inv.InvoiceNumber).Msg("Invoice marked as paid")
		s.notifier.NotifyInvoiceStatusChanged(inv)
	}
	return inv, warnings, nil
}

// Cancel moves an unpaid invoice to the terminal cancelled state.
func (s *InvoiceService) Cancel(ctx context.Context, id int) (*models.Invoice, []string, error) {
	var (
		inv      *models.Invoice
		warnings = []string{}
		changed  bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.lockInvoice(ctx, id); err != nil {
			return err
		}
		switch inv.Status {
		case models.InvoiceCancelled:
			warnings = append(warnings, fmt.Sprintf("Invoice %s is already cancelled.", inv.InvoiceNumber))
			return nil
		case models.InvoicePaid:
			return utils.Wrap(utils.ErrInvoicePaid, "Paid invoices cannot be cancelled")
		}
		inv.Status = models.InvoiceCancelled
		changed = true
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, nil, err
	}
	if changed {
		log.Info().Str("invoice_number", inv.InvoiceNumber).Msg("Invoice cancelled")
		s.notifier.NotifyInvoiceStatusChanged(inv)
	}
	return inv, warnings, nil
}

// SetDueDate changes the payment due date. Pending and overdue invoices are
// re-evaluated against the new date.
func (s *InvoiceService) SetDueDate(ctx context.Context, id int, date string) (*models.Invoice, error) {
	due, err := parseDate(date)
	if err != nil || due == nil {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "dueDate must be formatted as YYYY-MM-DD")
	}

	var (
		inv     *models.Invoice
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.lockInvoice(ctx, id); err != nil {
			return err
		}
		switch inv.Status {
		case models.InvoicePaid:
			return utils.Wrap(utils.ErrInvoicePaid, "Paid invoices cannot change their due date")
		case models.InvoiceCancelled:
			return utils.Wrap(utils.ErrInvoiceCancelled, "Cancelled invoices cannot change their due date")
		}
		inv.PaymentDueDate = due
		inv.DueDate = due
		if inv.Status == models.InvoicePendingPayment || inv.Status == models.InvoiceOverdue {
			next := openStatusFor(due, models.Day(s.now()))
			changed = next != inv.Status
			inv.Status = next
		}
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifier.NotifyInvoiceStatusChanged(inv)
	}
	return inv, nil
}

// Delete removes an invoice together with its lines, payments and reminders.
func (s *InvoiceService) Delete(ctx context.Context, id int) error {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return notFound(err, utils.ErrInvoiceNotFound)
	}
	if err := s.invoices.Delete(ctx, id); err != nil {
		return err
	}
	log.Warn().Str("invoice_number", inv.InvoiceNumber).Msg("Invoice deleted")
	return nil
}

// PDF renders the invoice document and returns it with a download filename.
func (s *InvoiceService) PDF(ctx context.Context, id int) ([]byte, string, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, "", notFound(err, utils.ErrInvoiceNotFound)
	}
	items, err := s.invoices.ListItems(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := export.InvoicePDF(s.company, inv, items)
	if err != nil {
		return nil, "", err
	}
	return data, inv.InvoiceNumber + ".pdf", nil
}

// Archive uploads the invoice PDF to document storage.
func (s *InvoiceService) Archive(ctx context.Context, id int) (string, error) {
	data, filename, err := s.PDF(ctx, id)
	if err != nil {
		return "", err
	}
	return s.archiver.Upload(ctx, "invoices/"+filename, data, utils.ContentTypePDF)
}

// SweepOverdue flips pending invoices past their due date to overdue and
// returns how many changed.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	ids, err := s.invoices.MarkOverdue(ctx, models.Day(s.now()))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		inv, err := s.invoices.GetByID(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int("invoice_id", id).Msg("Failed to load swept invoice")
			continue
		}
		s.notifier.NotifyInvoiceStatusChanged(inv)
	}
	return len(ids), nil
}

func (s *InvoiceService) lockInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := s.invoices.GetForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrInvoiceNotFound)
	}
	return inv, nil
}

func (s *InvoiceService) draftForUpdate(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := s.lockInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft {
		return nil, utils.Wrap(utils.ErrInvoiceNotDraft, "Invoice %s has been issued and can no longer be edited", inv.InvoiceNumber)
	}
	return inv, nil
}

func (s *InvoiceService) itemOf(ctx context.Context, invoiceID, itemID int) (*models.InvoiceItem, error) {
	item, err := s.invoices.GetItem(ctx, itemID)
	if err != nil {
		return nil, notFound(err, utils.ErrInvoiceItemNotFound)
	}
	if item.InvoiceID != invoiceID {
		return nil, utils.ErrInvoiceItemNotFound
	}
	return item, nil
}

func (s *InvoiceService) applyDraftRequest(ctx context.Context, inv *models.Invoice, req *DraftRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	due, err := parseDate(req.PaymentDueDate)
	if err != nil {
		return utils.Wrap(utils.ErrInvalidRequest, "paymentDueDate must be formatted as YYYY-MM-DD")
	}
	taxPct := s.billing.DefaultTaxPercentage
	if req.TaxPercentage != nil {
		taxPct = *req.TaxPercentage
	}
	if taxPct.IsNegative() {
		return utils.Wrap(utils.ErrInvalidRequest, "taxPercentage must be at least 0")
	}

	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return notFound(err, utils.ErrCustomerNotFound)
	}

	inv.CustomerID = customer.ID
	inv.CustomerName = customer.Name
	inv.CustomerPhone = customer.Phone
	inv.CustomerType = customer.CustomerType
	inv.PaymentType = req.PaymentType
	inv.DiscountPercentage = req.DiscountPercentage
	inv.TaxPercentage = taxPct
	inv.PaymentDueDate = due
	inv.DueDate = due
	inv.Notes = req.Notes
	return nil
}

func (s *InvoiceService) applyItemRequest(ctx context.Context, inv *models.Invoice, item *models.InvoiceItem, req *ItemRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	qty, err := ToKilograms(req.Quantity, req.Unit)
	if err != nil {
		return err
	}
	if !qty.IsPositive() {
		return utils.Wrap(utils.ErrInvalidRequest, "Quantity must be greater than 0")
	}
	q, err := s.catalog.GetQuality(ctx, req.QualityID)
	if err != nil {
		return notFound(err, utils.ErrQualityNotFound)
	}

	price := q.PriceFor(inv.CustomerType)
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return utils.Wrap(utils.ErrInvalidRequest, "unitPrice must be at least 0")
		}
		price = *req.UnitPrice
	}

	item.ProductID = q.ProductID
	item.ProductQualityID = q.ID
	item.ProductName = q.ProductName
	item.Quality = q.Quality
	item.Quantity = qty
	item.UnitPrice = price
	item.DiscountPercentage = req.DiscountPercentage
	item.Price()
	return nil
}

func (s *InvoiceService) saveTotals(ctx context.Context, inv *models.Invoice) error {
	items, err := s.invoices.ListItems(ctx, inv.ID)
	if err != nil {
		return err
	}
	applyTotals(inv, items)
	return s.invoices.Update(ctx, inv)
}
