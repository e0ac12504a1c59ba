package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"unique violation", &pq.Error{Code: "23505", Constraint: "products_name_key"}, ErrDuplicate},
		{"foreign key violation", &pq.Error{Code: "23503", Constraint: "invoice_items_product_id_fkey"}, ErrReferenced},
		{"other pq error", &pq.Error{Code: "23514"}, nil},
		{"plain error", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
			default:
				require.ErrorIs(t, got, tt.want)
			}
		})
	}

	err := translate(&pq.Error{Code: "23505", Constraint: "customers_phone_key"})
	assert.Contains(t, err.Error(), "customers_phone_key")
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, limit, offset int
		ok                  bool
	}{
		{page: 1, limit: 0, offset: 0, ok: false},
		{page: 3, limit: -5, offset: 0, ok: false},
		{page: 0, limit: 10, offset: 0, ok: true},
		{page: 1, limit: 10, offset: 0, ok: true},
		{page: 3, limit: 25, offset: 50, ok: true},
	}
	for _, tt := range tests {
		offset, ok := pageBounds(tt.page, tt.limit)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.offset, offset)
	}
}

func TestTxManager(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and shares the transaction", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCatalogRepository(db)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1`)).
			WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM product_qualities WHERE id = $1`)).
			WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewTxManager(db).WithinTx(ctx, func(ctx context.Context) error {
			if err := repo.DeleteProduct(ctx, 4); err != nil {
				return err
			}
			return NewTxManager(db).WithinTx(ctx, func(ctx context.Context) error {
				return repo.DeleteQuality(ctx, 9)
			})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCatalogRepository(db)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1`)).
			WithArgs(4).WillReturnError(&pq.Error{Code: "23503", Constraint: "invoice_items_product_id_fkey"})
		mock.ExpectRollback()

		err := NewTxManager(db).WithinTx(ctx, func(ctx context.Context) error {
			return repo.DeleteProduct(ctx, 4)
		})
		require.ErrorIs(t, err, ErrReferenced)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCatalogRepository_ListProductsPaginates(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products WHERE`)).
		WithArgs("rice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT id, name, description, image_url, created_at, updated_at FROM products .* ORDER BY name LIMIT \$2 OFFSET \$3`).
		WithArgs("rice", 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "image_url", "created_at", "updated_at"}).
			AddRow(11, "Basmati Rice", "", "", now, now).
			AddRow(12, "Sona Masoori Rice", "Daily use", "", now, now))

	products, total, err := NewCatalogRepository(db).ListProducts(context.Background(), ProductFilter{Search: "rice", Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, products, 2)
	assert.Equal(t, "Sona Masoori Rice", products[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_CreateProductDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products (name, description, image_url)`)).
		WithArgs("Basmati Rice", "", "").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_name_key"})

	err := NewCatalogRepository(db).CreateProduct(context.Background(), &models.Product{Name: "Basmati Rice"})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_PendingAmount(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(GREATEST(total - amount_paid, 0)), 0)`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("150.00"))

	pending, err := NewCustomerRepository(db).PendingAmount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "150", pending.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_MarkOverdue(t *testing.T) {
	db, mock := newMock(t)
	today := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE invoices`)).
		WithArgs("2026-10-15").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(7))

	ids, err := NewInvoiceRepository(db).MarkOverdue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffUserRepository_GetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM staff_users`)).
		WithArgs("nobody@shop.test").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewStaffUserRepository(db).GetByEmail(context.Background(), "nobody@shop.test")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffUserRepository_SetPasswordMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE staff_users SET password_hash = $1`)).
		WithArgs("hash", 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewStaffUserRepository(db).SetPassword(context.Background(), 9, "hash")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffUserRepository_UpdateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE staff_users`)).
		WithArgs("owner@shop.test", "Clerk", "executive", true, 2).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "staff_users_email_key"})

	err := NewStaffUserRepository(db).Update(context.Background(), &models.StaffUser{
		ID: 2, Email: "owner@shop.test", Name: "Clerk", Role: models.RoleExecutive, IsActive: true,
	})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}
