package repository

import (
	"context"
	"database/sql"
	"errors"

	"collections-ledger/internal/domain"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT
			id,
			reference,
			debtor_name,
			email,
			phone,
			outstanding_balance,
			original_balance,
			currency,
			created_at,
			updated_at
		FROM accounts
		WHERE id = $1
	`

	var a domain.Account
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.Reference,
		&a.DebtorName,
		&a.Email,
		&a.Phone,
		&a.OutstandingBalance,
		&a.OriginalBalance,
		&a.Currency,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}
