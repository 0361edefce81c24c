package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository reads balances kept in the bank database
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchBalance returns the stored balance of an account. ok is false when the
// account is unknown or its balance is NULL.
func (r *Repository) FetchBalance(ctx context.Context, accountID string) (float64, bool, error) {
	var balance sql.NullFloat64
	query := `
		SELECT balance
		FROM bank.accounts
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch balance: %w", err)
	}
	if !balance.Valid {
		return 0, false, nil
	}
	return balance.Float64, true, nil
}
