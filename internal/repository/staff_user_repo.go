package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

type StaffUserRepository struct {
	db *sqlx.DB
}

func NewStaffUserRepository(db *sqlx.DB) *StaffUserRepository {
	return &StaffUserRepository{db: db}
}

const staffColumns = `id, email, password_hash, name, role, is_active, last_login_at, created_at, updated_at`

func (r *StaffUserRepository) GetByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	var user models.StaffUser
	err := sqlx.GetContext(ctx, r.db, &user, `
		SELECT `+staffColumns+`
		FROM staff_users
		WHERE LOWER(email) = LOWER($1)
	`, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *StaffUserRepository) GetByID(ctx context.Context, id int) (*models.StaffUser, error) {
	var user models.StaffUser
	err := sqlx.GetContext(ctx, r.db, &user, `SELECT `+staffColumns+` FROM staff_users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every staff login ordered by name.
func (r *StaffUserRepository) List(ctx context.Context) ([]models.StaffUser, error) {
	users := []models.StaffUser{}
	err := sqlx.SelectContext(ctx, r.db, &users, `SELECT `+staffColumns+` FROM staff_users ORDER BY LOWER(name), id`)
	return users, err
}

func (r *StaffUserRepository) Create(ctx context.Context, user *models.StaffUser) error {
	query := `
		INSERT INTO staff_users (email, password_hash, name, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, user.Email, user.PasswordHash, user.Name, user.Role, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

func (r *StaffUserRepository) TouchLastLogin(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE staff_users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *StaffUserRepository) Update(ctx context.Context, user *models.StaffUser) error {
	query := `
		UPDATE staff_users
		SET email = $1, name = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, user.Email, user.Name, user.Role, user.IsActive, user.ID).
		Scan(&user.UpdatedAt)
	return translate(err)
}

func (r *StaffUserRepository) SetPassword(ctx context.Context, id int, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE staff_users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
