package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

// AccountRepository persists login accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs the repository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID loads an account including its password hash.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	const query = `SELECT account_id, email, password_hash, role, status, created_at, updated_at FROM accounts WHERE account_id = $1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdatePassword stores a new password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE account_id = $1`
	affected, err := execAffected(ctx, r.db, query, id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
