package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// PaymentRepository handles data access for payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentSelect = `SELECT pm.id, pm.invoice_id, pm.customer_id, pm.amount, pm.payment_method,
        pm.status, pm.reference_number, pm.notes, pm.payment_date, pm.created_by,
        pm.created_at, pm.updated_at,
        i.invoice_number, c.name AS customer_name
    FROM payments pm
    JOIN invoices i ON i.id = pm.invoice_id
    JOIN customers c ON c.id = pm.customer_id`

// List returns payments newest first plus the total matching count.
func (r *PaymentRepository) List(ctx context.Context, f PaymentFilter) ([]models.Payment, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.Query != "" {
		where += fmt.Sprintf(` AND (i.invoice_number ILIKE $%d OR c.name ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+f.Query+"%")
		argIdx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND pm.status = $%d`, argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.Method != "" {
		where += fmt.Sprintf(` AND pm.payment_method = $%d`, argIdx)
		args = append(args, f.Method)
		argIdx++
	}
	if f.InvoiceID > 0 {
		where += fmt.Sprintf(` AND pm.invoice_id = $%d`, argIdx)
		args = append(args, f.InvoiceID)
		argIdx++
	}
	if f.CustomerID > 0 {
		where += fmt.Sprintf(` AND pm.customer_id = $%d`, argIdx)
		args = append(args, f.CustomerID)
		argIdx++
	}
	if f.DateFrom != nil {
		where += fmt.Sprintf(` AND pm.payment_date::date >= $%d`, argIdx)
		args = append(args, f.DateFrom.Format("2006-01-02"))
		argIdx++
	}
	if f.DateTo != nil {
		where += fmt.Sprintf(` AND pm.payment_date::date <= $%d`, argIdx)
		args = append(args, f.DateTo.Format("2006-01-02"))
		argIdx++
	}

	var total int
	countQ := `SELECT COUNT(*) FROM payments pm
        JOIN invoices i ON i.id = pm.invoice_id
        JOIN customers c ON c.id = pm.customer_id` + where
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, countQ, args...); err != nil {
		return nil, 0, err
	}

	q := paymentSelect + where + ` ORDER BY pm.payment_date DESC, pm.id DESC`
	if offset, ok := pageBounds(f.Page, f.Limit); ok {
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
		args = append(args, f.Limit, offset)
	}

	payments := []models.Payment{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &payments, q, args...); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// GetByID returns a single payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id int) (*models.Payment, error) {
	var p models.Payment
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &p, paymentSelect+` WHERE pm.id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (invoice_id, customer_id, amount, payment_method, status,
            reference_number, notes, payment_date, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		p.InvoiceID, p.CustomerID, p.Amount, p.PaymentMethod, p.Status,
		p.ReferenceNumber, p.Notes, p.PaymentDate, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

// Update saves amount, method, status, reference and notes.
func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	const q = `UPDATE payments
        SET amount = $1, payment_method = $2, status = $3, reference_number = $4,
            notes = $5, updated_at = NOW()
        WHERE id = $6
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		p.Amount, p.PaymentMethod, p.Status, p.ReferenceNumber, p.Notes, p.ID,
	).Scan(&p.UpdatedAt)
	return translate(err)
}

// SumCompleted totals the completed payments of an invoice.
func (r *PaymentRepository) SumCompleted(ctx context.Context, invoiceID int) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1 AND status = 'completed'`

	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &sum, q, invoiceID); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
