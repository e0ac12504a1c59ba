package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// ReminderRepository handles data access for payment reminders.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository creates a new ReminderRepository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts a reminder.
func (r *ReminderRepository) Create(ctx context.Context, rem *models.Reminder) error {
	const q = `INSERT INTO reminders (invoice_id, customer_id, reminder_type, status, sent_at, notes, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	return conn(ctx, r.db).QueryRowxContext(ctx, q,
		rem.InvoiceID, rem.CustomerID, rem.ReminderType, rem.Status, rem.SentAt, rem.Notes, rem.CreatedBy,
	).Scan(&rem.ID, &rem.CreatedAt)
}

// ListByInvoice returns the reminders of an invoice, newest first.
func (r *ReminderRepository) ListByInvoice(ctx context.Context, invoiceID int) ([]models.Reminder, error) {
	const q = `SELECT id, invoice_id, customer_id, reminder_type, status, sent_at, notes, created_by, created_at
        FROM reminders WHERE invoice_id = $1 ORDER BY created_at DESC, id DESC`

	reminders := []models.Reminder{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &reminders, q, invoiceID); err != nil {
		return nil, err
	}
	return reminders, nil
}
