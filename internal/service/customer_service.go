package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// CustomerService manages customers and their credit position.
type CustomerService struct {
	customers CustomerStore
	invoices  InvoiceStore
	payments  PaymentStore
}

// NewCustomerService constructs a CustomerService.
func NewCustomerService(customers CustomerStore, invoices InvoiceStore, payments PaymentStore) *CustomerService {
	return &CustomerService{customers: customers, invoices: invoices, payments: payments}
}

// CustomerRequest is the payload for creating or updating a customer.
type CustomerRequest struct {
	Name         string              `json:"name" validate:"required"`
	Phone        string              `json:"phone" validate:"required"`
	Email        string              `json:"email" validate:"omitempty,email"`
	Address      string              `json:"address"`
	CustomerType models.CustomerType `json:"customerType" validate:"oneof=retail wholesale distributor"`
	CreditLimit  decimal.Decimal     `json:"creditLimit" validate:"gte=0"`
}

// QuickAddRequest creates a customer from the checkout screen.
type QuickAddRequest struct {
	Name         string              `json:"name" validate:"required"`
	Phone        string              `json:"phone" validate:"required"`
	CustomerType models.CustomerType `json:"customerType"`
}

// CustomerWithCredit is a customer together with its derived credit position.
type CustomerWithCredit struct {
	models.Customer
	Credit models.CreditInfo `json:"credit"`
}

// DuplicateCustomerError carries the existing customer a quick-add collided with.
type DuplicateCustomerError struct {
	Existing *models.Customer
}

func (e *DuplicateCustomerError) Error() string {
	return utils.ErrCustomerExists.Error() + ": A customer with this name or phone already exists"
}

func (e *DuplicateCustomerError) Unwrap() error { return utils.ErrCustomerExists }

// PaymentHistory is a customer's invoice ledger.
type PaymentHistory struct {
	Customer      *models.Customer  `json:"customer"`
	Invoices      []models.Invoice  `json:"invoices"`
	Payments      []models.Payment  `json:"payments"`
	TotalInvoiced decimal.Decimal   `json:"totalInvoiced"`
	TotalPaid     decimal.Decimal   `json:"totalPaid"`
	TotalPending  decimal.Decimal   `json:"totalPending"`
	Credit        models.CreditInfo `json:"credit"`
}

func (r *CustomerRequest) normalise() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	if r.CustomerType == "" {
		r.CustomerType = models.CustomerRetail
	}
}

// List returns a page of customers.
func (s *CustomerService) List(ctx context.Context, f repository.CustomerFilter) ([]models.Customer, int, error) {
	return s.customers.List(ctx, f)
}

// Get returns a customer with its credit position.
func (s *CustomerService) Get(ctx context.Context, id int) (*CustomerWithCredit, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrCustomerNotFound)
	}
	credit, err := s.creditOf(ctx, c)
	if err != nil {
		return nil, err
	}
	return &CustomerWithCredit{Customer: *c, Credit: credit}, nil
}

// Search powers search-as-you-type over name and phone.
func (s *CustomerService) Search(ctx context.Context, term string) ([]CustomerWithCredit, error) {
	term = strings.TrimSpace(term)
	out := []CustomerWithCredit{}
	if len([]rune(term)) < SearchMinChars {
		return out, nil
	}

	customers, err := s.customers.Search(ctx, term, SearchLimit)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		credit, err := s.creditOf(ctx, &customers[i])
		if err != nil {
			return nil, err
		}
		out = append(out, CustomerWithCredit{Customer: customers[i], Credit: credit})
	}
	return out, nil
}

// Create adds a customer.
func (s *CustomerService) Create(ctx context.Context, req *CustomerRequest) (*models.Customer, error) {
	req.normalise()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	c := &models.Customer{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		CustomerType: req.CustomerType,
		CreditLimit:  req.CreditLimit,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrCustomerExists, "A customer with this phone already exists")
		}
		return nil, err
	}
	return c, nil
}

// QuickAdd creates a retail customer unless one with the same name or phone
// already exists, in which case a *DuplicateCustomerError is returned.
func (s *CustomerService) QuickAdd(ctx context.Context, req *QuickAddRequest) (*models.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	existing, err := s.customers.FindDuplicate(ctx, req.Name, req.Phone)
	if err == nil {
		return nil, &DuplicateCustomerError{Existing: existing}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	ctype := req.CustomerType
	if !ctype.Valid() {
		ctype = models.CustomerRetail
	}
	return s.Create(ctx, &CustomerRequest{Name: req.Name, Phone: req.Phone, CustomerType: ctype})
}

// Update replaces the editable fields of a customer.
func (s *CustomerService) Update(ctx context.Context, id int, req *CustomerRequest) (*models.Customer, error) {
	req.normalise()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrCustomerNotFound)
	}

	c.Name = req.Name
	c.Phone = req.Phone
	c.Email = req.Email
	c.Address = req.Address
	c.CustomerType = req.CustomerType
	c.CreditLimit = req.CreditLimit
	if err := s.customers.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrCustomerExists, "A customer with this phone already exists")
		}
		return nil, err
	}
	return c, nil
}

// Delete removes a customer without invoices.
func (s *CustomerService) Delete(ctx context.Context, id int) error {
	if _, err := s.customers.GetByID(ctx, id); err != nil {
		return notFound(err, utils.ErrCustomerNotFound)
	}
	if err := s.customers.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return utils.Wrap(utils.ErrCustomerInUse, "Customer has invoices and cannot be deleted")
		}
		return err
	}
	return nil
}

// Credit returns the credit position of a customer.
func (s *CustomerService) Credit(ctx context.Context, id int) (*models.CreditInfo, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrCustomerNotFound)
	}
	credit, err := s.creditOf(ctx, c)
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

// PaymentHistory lists the customer's issued invoices and payments with totals.
func (s *CustomerService) PaymentHistory(ctx context.Context, id int) (*PaymentHistory, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrCustomerNotFound)
	}

	invoices, _, err := s.invoices.List(ctx, repository.InvoiceFilter{CustomerID: id, ExcludeDraft: true})
	if err != nil {
		return nil, err
	}
	payments, _, err := s.payments.List(ctx, repository.PaymentFilter{CustomerID: id, Status: models.PaymentCompleted})
	if err != nil {
		return nil, err
	}

	h := &PaymentHistory{
		Customer:      c,
		Invoices:      invoices,
		Payments:      payments,
		TotalInvoiced: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalPending:  decimal.Zero,
	}
	for _, inv := range invoices {
		if inv.Status == models.InvoiceCancelled {
			continue
		}
		h.TotalInvoiced = h.TotalInvoiced.Add(inv.Total)
	}
	for _, p := range payments {
		h.TotalPaid = h.TotalPaid.Add(p.Amount)
	}

	pending, err := s.customers.PendingAmount(ctx, id)
	if err != nil {
		return nil, err
	}
	h.TotalPending = pending
	h.Credit = models.NewCreditInfo(c.CreditLimit, pending)
	return h, nil
}

func (s *CustomerService) creditOf(ctx context.Context, c *models.Customer) (models.CreditInfo, error) {
	pending, err := s.customers.PendingAmount(ctx, c.ID)
	if err != nil {
		return models.CreditInfo{}, err
	}
	return models.NewCreditInfo(c.CreditLimit, pending), nil
}
