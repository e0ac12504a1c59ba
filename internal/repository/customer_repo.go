package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// CustomerRepository handles data access for customers.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, name, phone, email, address, customer_type, credit_limit, created_at, updated_at`

// openStatusList is the SQL form of models.OpenStatuses.
const openStatusList = `('pending_payment', 'issued', 'partially_paid', 'overdue')`

// List returns customers matching the filter ordered by name, with the total count.
func (r *CustomerRepository) List(ctx context.Context, f CustomerFilter) ([]models.Customer, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.Search != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR phone ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}
	if f.CustomerType != "" {
		where += fmt.Sprintf(` AND customer_type = $%d`, argIdx)
		args = append(args, f.CustomerType)
		argIdx++
	}

	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM customers`+where, args...); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY name`
	if offset, ok := pageBounds(f.Page, f.Limit); ok {
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
		args = append(args, f.Limit, offset)
	}

	customers := []models.Customer{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &customers, q, args...); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Search returns up to limit customers whose name or phone contains term.
func (r *CustomerRepository) Search(ctx context.Context, term string, limit int) ([]models.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers
        WHERE name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%'
        ORDER BY name LIMIT $2`

	customers := []models.Customer{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &customers, q, term, limit); err != nil {
		return nil, err
	}
	return customers, nil
}

// GetByID returns a single customer.
func (r *CustomerRepository) GetByID(ctx context.Context, id int) (*models.Customer, error) {
	var c models.Customer
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &c, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindDuplicate returns a customer with the same name (case-insensitive) or phone.
func (r *CustomerRepository) FindDuplicate(ctx context.Context, name, phone string) (*models.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers
        WHERE LOWER(name) = LOWER($1) OR phone = $2
        ORDER BY id LIMIT 1`

	var c models.Customer
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &c, q, name, phone); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a customer.
func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	const q = `INSERT INTO customers (name, phone, email, address, customer_type, credit_limit)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		c.Name, c.Phone, c.Email, c.Address, c.CustomerType, c.CreditLimit,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translate(err)
}

// Update saves the editable customer fields.
func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	const q = `UPDATE customers
        SET name = $1, phone = $2, email = $3, address = $4, customer_type = $5,
            credit_limit = $6, updated_at = NOW()
        WHERE id = $7
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		c.Name, c.Phone, c.Email, c.Address, c.CustomerType, c.CreditLimit, c.ID,
	).Scan(&c.UpdatedAt)
	return translate(err)
}

// Delete removes a customer. Customers with invoices yield ErrReferenced.
func (r *CustomerRepository) Delete(ctx context.Context, id int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return translate(err)
}

// PendingAmount sums the unpaid balance of the customer's open invoices.
// Overpaid invoices contribute zero rather than a negative balance.
func (r *CustomerRepository) PendingAmount(ctx context.Context, customerID int) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(GREATEST(total - amount_paid, 0)), 0)
        FROM invoices
        WHERE customer_id = $1 AND status IN ` + openStatusList

	var pending decimal.Decimal
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &pending, q, customerID); err != nil {
		return decimal.Zero, err
	}
	return pending, nil
}
