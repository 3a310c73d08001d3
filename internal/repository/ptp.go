package repository

import (
	"context"
	"database/sql"
	"errors"

	"collections-ledger/internal/domain"
)

const ptpColumns = `
	id,
	account_id,
	amount,
	promise_date,
	status,
	notes,
	payment_event_ref,
	created_at,
	decided_at
`

type PTPRepository struct {
	db *sql.DB
}

func NewPTPRepository(db *sql.DB) *PTPRepository {
	return &PTPRepository{db: db}
}

func (r *PTPRepository) Create(ctx context.Context, ptp *domain.PromiseToPay, event *domain.ActivityEvent) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO promises_to_pay (
				id, account_id, amount, promise_date, status, notes, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		_, err := tx.ExecContext(ctx, query,
			ptp.ID,
			ptp.AccountID,
			ptp.Amount,
			ptp.PromiseDate,
			string(ptp.Status),
			ptp.Notes,
			ptp.CreatedAt,
		)
		if err != nil {
			return err
		}

		return insertEvent(ctx, tx, event)
	})
}

// RecordDecision applies the pending -> honored/broken transition along with
// its ledger event. The status guard keeps a terminal promise terminal even
// if a stale caller slips past the service lock.
func (r *PTPRepository) RecordDecision(ctx context.Context, ptp *domain.PromiseToPay, event *domain.ActivityEvent) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE promises_to_pay
			SET status = $2,
			    payment_event_ref = $3,
			    decided_at = $4
			WHERE id = $1
			  AND status = $5
		`

		res, err := tx.ExecContext(ctx, query,
			ptp.ID,
			string(ptp.Status),
			ptp.PaymentEventRef,
			ptp.DecidedAt,
			string(domain.PTPPending),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NewInvalidTransition("promise to pay", ptp.ID, "terminal", "decide")
		}

		return insertEvent(ctx, tx, event)
	})
}

func (r *PTPRepository) GetByID(ctx context.Context, id string) (*domain.PromiseToPay, error) {
	query := `
		SELECT ` + ptpColumns + `
		FROM promises_to_pay
		WHERE id = $1
	`

	var (
		p      domain.PromiseToPay
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.AccountID,
		&p.Amount,
		&p.PromiseDate,
		&status,
		&p.Notes,
		&p.PaymentEventRef,
		&p.CreatedAt,
		&p.DecidedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Status = domain.PTPStatus(status)
	return &p, nil
}

func (r *PTPRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.PromiseToPay, error) {
	query := `
		SELECT ` + ptpColumns + `
		FROM promises_to_pay
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PromiseToPay
	for rows.Next() {
		var (
			p      domain.PromiseToPay
			status string
		)
		if err := rows.Scan(
			&p.ID,
			&p.AccountID,
			&p.Amount,
			&p.PromiseDate,
			&status,
			&p.Notes,
			&p.PaymentEventRef,
			&p.CreatedAt,
			&p.DecidedAt,
		); err != nil {
			return nil, err
		}
		p.Status = domain.PTPStatus(status)
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
