package repository

import (
	"context"
	"database/sql"
	"errors"

	"collections-ledger/internal/domain"
)

const reconciliationColumns = `
	id,
	account_id,
	amount,
	payment_date,
	payment_method,
	transaction_ref,
	requested_by,
	status,
	proof_attached,
	approved_by,
	decision_at,
	rejection_reason,
	created_at
`

type ReconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) Create(ctx context.Context, req *domain.ReconciliationRequest, event *domain.ActivityEvent) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO reconciliation_requests (
				id, account_id, amount, payment_date, payment_method,
				transaction_ref, requested_by, status, proof_attached, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.ExecContext(ctx, query,
			req.ID,
			req.AccountID,
			req.Amount,
			req.PaymentDate,
			req.PaymentMethod,
			req.TransactionRef,
			req.RequestedBy,
			string(req.Status),
			req.ProofAttached,
			req.CreatedAt,
		)
		if err != nil {
			return err
		}

		return insertEvent(ctx, tx, event)
	})
}

func (r *ReconciliationRepository) RecordDecision(ctx context.Context, req *domain.ReconciliationRequest, event *domain.ActivityEvent) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE reconciliation_requests
			SET status = $2,
			    approved_by = $3,
			    decision_at = $4,
			    rejection_reason = $5
			WHERE id = $1
			  AND status = $6
		`

		res, err := tx.ExecContext(ctx, query,
			req.ID,
			string(req.Status),
			req.ApprovedBy,
			req.DecisionAt,
			req.RejectionReason,
			string(domain.ReconciliationPending),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NewInvalidTransition("reconciliation request", req.ID, "terminal", "decide")
		}

		return insertEvent(ctx, tx, event)
	})
}

func (r *ReconciliationRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationRequest, error) {
	query := `
		SELECT ` + reconciliationColumns + `
		FROM reconciliation_requests
		WHERE id = $1
	`

	var (
		req    domain.ReconciliationRequest
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.AccountID,
		&req.Amount,
		&req.PaymentDate,
		&req.PaymentMethod,
		&req.TransactionRef,
		&req.RequestedBy,
		&status,
		&req.ProofAttached,
		&req.ApprovedBy,
		&req.DecisionAt,
		&req.RejectionReason,
		&req.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	req.Status = domain.ReconciliationStatus(status)
	return &req, nil
}

func (r *ReconciliationRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.ReconciliationRequest, error) {
	query := `
		SELECT ` + reconciliationColumns + `
		FROM reconciliation_requests
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReconciliationRequest
	for rows.Next() {
		var (
			req    domain.ReconciliationRequest
			status string
		)
		if err := rows.Scan(
			&req.ID,
			&req.AccountID,
			&req.Amount,
			&req.PaymentDate,
			&req.PaymentMethod,
			&req.TransactionRef,
			&req.RequestedBy,
			&status,
			&req.ProofAttached,
			&req.ApprovedBy,
			&req.DecisionAt,
			&req.RejectionReason,
			&req.CreatedAt,
		); err != nil {
			return nil, err
		}
		req.Status = domain.ReconciliationStatus(status)
		result = append(result, req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
