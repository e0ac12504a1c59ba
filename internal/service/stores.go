package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
)

// TxRunner runs fn in a transaction. Stores called with the ctx handed to fn
// take part in it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogStore is the persistence the catalog needs.
type CatalogStore interface {
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error)
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetProductByName(ctx context.Context, name string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int) error

	ListQualities(ctx context.Context, productIDs []int) ([]models.ProductQuality, error)
	ListPriceRows(ctx context.Context) ([]models.ProductQuality, error)
	GetQuality(ctx context.Context, id int) (*models.ProductQuality, error)
	GetQualityForUpdate(ctx context.Context, id int) (*models.ProductQuality, error)
	FindQuality(ctx context.Context, productID int, tier models.QualityTier) (*models.ProductQuality, error)
	CreateQuality(ctx context.Context, q *models.ProductQuality) error
	UpdateQuality(ctx context.Context, q *models.ProductQuality) error
	SetStock(ctx context.Context, id int, stock decimal.Decimal) error
	DeleteQuality(ctx context.Context, id int) error
}

// CustomerStore is the persistence the customer ledger needs.
type CustomerStore interface {
	List(ctx context.Context, f repository.CustomerFilter) ([]models.Customer, int, error)
	Search(ctx context.Context, term string, limit int) ([]models.Customer, error)
	GetByID(ctx context.Context, id int) (*models.Customer, error)
	FindDuplicate(ctx context.Context, name, phone string) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) error
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id int) error
	PendingAmount(ctx context.Context, customerID int) (decimal.Decimal, error)
}

// InvoiceStore is the persistence for invoices and their lines.
type InvoiceStore interface {
	List(ctx context.Context, f repository.InvoiceFilter) ([]models.Invoice, int, error)
	Totals(ctx context.Context, f repository.InvoiceFilter) (*models.InvoiceTotals, error)
	GetByID(ctx context.Context, id int) (*models.Invoice, error)
	GetForUpdate(ctx context.Context, id int) (*models.Invoice, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, inv *models.Invoice) error
	Update(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, id int) error
	MarkOverdue(ctx context.Context, today time.Time) ([]int, error)

	ListItems(ctx context.Context, invoiceID int) ([]models.InvoiceItem, error)
	GetItem(ctx context.Context, id int) (*models.InvoiceItem, error)
	CreateItem(ctx context.Context, it *models.InvoiceItem) error
	UpdateItem(ctx context.Context, it *models.InvoiceItem) error
	DeleteItem(ctx context.Context, id int) error
	ListSalesItems(ctx context.Context, f repository.SalesItemFilter) ([]repository.SalesItemRow, error)
}

// PaymentStore is the persistence for payments.
type PaymentStore interface {
	List(ctx context.Context, f repository.PaymentFilter) ([]models.Payment, int, error)
	GetByID(ctx context.Context, id int) (*models.Payment, error)
	Create(ctx context.Context, p *models.Payment) error
	Update(ctx context.Context, p *models.Payment) error
	SumCompleted(ctx context.Context, invoiceID int) (decimal.Decimal, error)
}

// ReminderStore is the persistence for payment reminders.
type ReminderStore interface {
	Create(ctx context.Context, r *models.Reminder) error
	ListByInvoice(ctx context.Context, invoiceID int) ([]models.Reminder, error)
}

// StaffStore is the persistence for staff logins.
type StaffStore interface {
	GetByEmail(ctx context.Context, email string) (*models.StaffUser, error)
	GetByID(ctx context.Context, id int) (*models.StaffUser, error)
	List(ctx context.Context) ([]models.StaffUser, error)
	Create(ctx context.Context, user *models.StaffUser) error
	Update(ctx context.Context, user *models.StaffUser) error
	SetPassword(ctx context.Context, id int, hash string) error
	TouchLastLogin(ctx context.Context, id int) error
}

// CartRepository keeps the per-session cart.
type CartRepository interface {
	Load(ctx context.Context, session string) (*models.Cart, error)
	Save(ctx context.Context, session string, cart *models.Cart) error
	Clear(ctx context.Context, session string) error
}

// notFound swaps sql.ErrNoRows for the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time
