package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// InvoiceRepository handles data access for invoices and invoice items.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceSelect = `SELECT i.id, i.invoice_number, i.customer_id, i.payment_type, i.status,
        i.subtotal, i.discount_percentage, i.discount_amount, i.tax_percentage, i.tax_amount,
        i.total, i.amount_paid, i.due_date, i.payment_due_date, i.notes, i.created_by,
        i.created_at, i.updated_at,
        c.name AS customer_name, c.phone AS customer_phone, c.customer_type
    FROM invoices i
    JOIN customers c ON c.id = i.customer_id`

const itemSelect = `SELECT it.id, it.invoice_id, it.product_id, it.product_quality_id, it.quantity,
        it.unit_price, it.discount_percentage, it.discount_amount, it.subtotal, it.created_at,
        p.name AS product_name, q.quality
    FROM invoice_items it
    JOIN products p ON p.id = it.product_id
    JOIN product_qualities q ON q.id = it.product_quality_id`

// invoiceWhere builds the WHERE clause for f. It returns the clause, its
// arguments and the next free placeholder index.
func invoiceWhere(f InvoiceFilter) (string, []interface{}, int) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.Query != "" {
		where += fmt.Sprintf(` AND (i.invoice_number ILIKE $%d OR c.name ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+f.Query+"%")
		argIdx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND i.status = $%d`, argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where += fmt.Sprintf(` AND i.status = ANY($%d)`, argIdx)
		args = append(args, pq.Array(statuses))
		argIdx++
	}
	if f.ExcludeDraft {
		where += ` AND i.status <> 'draft'`
	}
	if f.PaymentType != "" {
		where += fmt.Sprintf(` AND i.payment_type = $%d`, argIdx)
		args = append(args, f.PaymentType)
		argIdx++
	}
	if f.CustomerID > 0 {
		where += fmt.Sprintf(` AND i.customer_id = $%d`, argIdx)
		args = append(args, f.CustomerID)
		argIdx++
	}
	if f.CustomerName != "" {
		where += fmt.Sprintf(` AND c.name ILIKE $%d`, argIdx)
		args = append(args, "%"+f.CustomerName+"%")
		argIdx++
	}
	if f.DateFrom != nil {
		where += fmt.Sprintf(` AND i.created_at::date >= $%d`, argIdx)
		args = append(args, f.DateFrom.Format("2006-01-02"))
		argIdx++
	}
	if f.DateTo != nil {
		where += fmt.Sprintf(` AND i.created_at::date <= $%d`, argIdx)
		args = append(args, f.DateTo.Format("2006-01-02"))
		argIdx++
	}
	return where, args, argIdx
}

// List returns invoices newest first plus the total matching count.
func (r *InvoiceRepository) List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, int, error) {
	where, args, argIdx := invoiceWhere(f)

	var total int
	countQ := `SELECT COUNT(*) FROM invoices i JOIN customers c ON c.id = i.customer_id` + where
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, countQ, args...); err != nil {
		return nil, 0, err
	}

	q := invoiceSelect + where + ` ORDER BY i.created_at DESC, i.id DESC`
	if offset, ok := pageBounds(f.Page, f.Limit); ok {
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
		args = append(args, f.Limit, offset)
	}

	invoices := []models.Invoice{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &invoices, q, args...); err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// Totals aggregates all invoices matching f, ignoring pagination.
func (r *InvoiceRepository) Totals(ctx context.Context, f InvoiceFilter) (*models.InvoiceTotals, error) {
	where, args, _ := invoiceWhere(f)
	q := `SELECT COUNT(*) AS count,
            COALESCE(SUM(i.total), 0) AS total,
            COALESCE(SUM(i.amount_paid), 0) AS amount_paid,
            COALESCE(SUM(i.total - i.amount_paid), 0) AS amount_due
        FROM invoices i JOIN customers c ON c.id = i.customer_id` + where

	var totals models.InvoiceTotals
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &totals, q, args...); err != nil {
		return nil, err
	}
	return &totals, nil
}

// GetByID returns a single invoice with customer details.
func (r *InvoiceRepository) GetByID(ctx context.Context, id int) (*models.Invoice, error) {
	var inv models.Invoice
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &inv, invoiceSelect+` WHERE i.id = $1`, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetForUpdate reads an invoice and locks its row for the surrounding transaction.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id int) (*models.Invoice, error) {
	var inv models.Invoice
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &inv, invoiceSelect+` WHERE i.id = $1 FOR UPDATE OF i`, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

// NumberExists reports whether an invoice number is already taken.
func (r *InvoiceRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)`, number)
	return exists, err
}

// Create inserts an invoice.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	const q = `INSERT INTO invoices (invoice_number, customer_id, payment_type, status,
            subtotal, discount_percentage, discount_amount, tax_percentage, tax_amount, total,
            amount_paid, due_date, payment_due_date, notes, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		inv.InvoiceNumber, inv.CustomerID, inv.PaymentType, inv.Status,
		inv.Subtotal, inv.DiscountPercentage, inv.DiscountAmount, inv.TaxPercentage, inv.TaxAmount, inv.Total,
		inv.AmountPaid, inv.DueDate, inv.PaymentDueDate, inv.Notes, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	return translate(err)
}

// Update saves every mutable invoice column.
func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	const q = `UPDATE invoices
        SET customer_id = $1, payment_type = $2, status = $3, subtotal = $4,
            discount_percentage = $5, discount_amount = $6, tax_percentage = $7, tax_amount = $8,
            total = $9, amount_paid = $10, due_date = $11, payment_due_date = $12, notes = $13,
            updated_at = NOW()
        WHERE id = $14
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		inv.CustomerID, inv.PaymentType, inv.Status, inv.Subtotal,
		inv.DiscountPercentage, inv.DiscountAmount, inv.TaxPercentage, inv.TaxAmount,
		inv.Total, inv.AmountPaid, inv.DueDate, inv.PaymentDueDate, inv.Notes,
		inv.ID,
	).Scan(&inv.UpdatedAt)
	return translate(err)
}

// Delete removes an invoice; items, payments and reminders cascade.
func (r *InvoiceRepository) Delete(ctx context.Context, id int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return err
}

// MarkOverdue flips pending_payment invoices whose effective due date is
// before today to overdue and returns their ids.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, today time.Time) ([]int, error) {
	const q = `UPDATE invoices
        SET status = 'overdue', updated_at = NOW()
        WHERE status = 'pending_payment'
          AND COALESCE(payment_due_date, due_date) < $1
        RETURNING id`

	ids := []int{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &ids, q, today.Format("2006-01-02")); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListItems returns the lines of an invoice in insertion order.
func (r *InvoiceRepository) ListItems(ctx context.Context, invoiceID int) ([]models.InvoiceItem, error) {
	items := []models.InvoiceItem{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &items, itemSelect+` WHERE it.invoice_id = $1 ORDER BY it.id`, invoiceID); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns a single invoice line.
func (r *InvoiceRepository) GetItem(ctx context.Context, id int) (*models.InvoiceItem, error) {
	var it models.InvoiceItem
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &it, itemSelect+` WHERE it.id = $1`, id); err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem inserts an invoice line.
func (r *InvoiceRepository) CreateItem(ctx context.Context, it *models.InvoiceItem) error {
	const q = `INSERT INTO invoice_items (invoice_id, product_id, product_quality_id, quantity,
            unit_price, discount_percentage, discount_amount, subtotal)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q,
		it.InvoiceID, it.ProductID, it.ProductQualityID, it.Quantity,
		it.UnitPrice, it.DiscountPercentage, it.DiscountAmount, it.Subtotal,
	).Scan(&it.ID, &it.CreatedAt)
	return translate(err)
}

// UpdateItem saves quality, quantity, price and discount of a line.
func (r *InvoiceRepository) UpdateItem(ctx context.Context, it *models.InvoiceItem) error {
	const q = `UPDATE invoice_items
        SET product_id = $1, product_quality_id = $2, quantity = $3, unit_price = $4,
            discount_percentage = $5, discount_amount = $6, subtotal = $7
        WHERE id = $8`

	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		it.ProductID, it.ProductQualityID, it.Quantity, it.UnitPrice,
		it.DiscountPercentage, it.DiscountAmount, it.Subtotal, it.ID,
	)
	return translate(err)
}

// DeleteItem removes an invoice line.
func (r *InvoiceRepository) DeleteItem(ctx context.Context, id int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM invoice_items WHERE id = $1`, id)
	return err
}

// ListSalesItems returns lines of non-draft invoices created in the date range.
func (r *InvoiceRepository) ListSalesItems(ctx context.Context, f SalesItemFilter) ([]SalesItemRow, error) {
	q := `SELECT p.name AS product_name, q.quality, it.quantity, it.unit_price
        FROM invoice_items it
        JOIN invoices i ON i.id = it.invoice_id
        JOIN products p ON p.id = it.product_id
        JOIN product_qualities q ON q.id = it.product_quality_id
        WHERE i.status <> 'draft'
          AND i.created_at::date >= $1 AND i.created_at::date <= $2`
	args := []interface{}{f.DateFrom.Format("2006-01-02"), f.DateTo.Format("2006-01-02")}
	argIdx := 3

	if f.ProductSearch != "" {
		q += fmt.Sprintf(` AND p.name ILIKE $%d`, argIdx)
		args = append(args, "%"+f.ProductSearch+"%")
		argIdx++
	}
	if f.Quality != "" {
		q += fmt.Sprintf(` AND q.quality = $%d`, argIdx)
		args = append(args, f.Quality)
	}

	rows := []SalesItemRow{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
