package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"collections-ledger/internal/domain"
)

const hardshipColumns = `
	id,
	account_id,
	reason,
	monthly_income,
	monthly_expenses,
	status,
	supporting_documents,
	requested_at,
	decision_at,
	decision_notes,
	payment_plan
`

type HardshipRepository struct {
	db *sql.DB
}

func NewHardshipRepository(db *sql.DB) *HardshipRepository {
	return &HardshipRepository{db: db}
}

func (r *HardshipRepository) Create(ctx context.Context, req *domain.HardshipRequest, event *domain.ActivityEvent) error {
	docs, err := json.Marshal(req.SupportingDocuments)
	if err != nil {
		return err
	}

	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO hardship_requests (
				id, account_id, reason, monthly_income, monthly_expenses,
				status, supporting_documents, requested_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err := tx.ExecContext(ctx, query,
			req.ID,
			req.AccountID,
			string(req.Reason),
			req.MonthlyIncome,
			req.MonthlyExpenses,
			string(req.Status),
			docs,
			req.RequestedAt,
		)
		if err != nil {
			return err
		}

		return insertEvent(ctx, tx, event)
	})
}

// RecordDecision stores the review outcome. The payment plan, when present,
// is part of the decision record itself and is persisted as decided.
func (r *HardshipRepository) RecordDecision(ctx context.Context, req *domain.HardshipRequest, event *domain.ActivityEvent) error {
	var plan []byte
	if req.PaymentPlan != nil {
		var err error
		plan, err = json.Marshal(req.PaymentPlan)
		if err != nil {
			return err
		}
	}

	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE hardship_requests
			SET status = $2,
			    decision_at = $3,
			    decision_notes = $4,
			    payment_plan = $5
			WHERE id = $1
			  AND status = $6
		`

		res, err := tx.ExecContext(ctx, query,
			req.ID,
			string(req.Status),
			req.DecisionAt,
			req.DecisionNotes,
			plan,
			string(domain.HardshipUnderReview),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NewInvalidTransition("hardship request", req.ID, "terminal", "decide")
		}

		return insertEvent(ctx, tx, event)
	})
}

func (r *HardshipRepository) GetByID(ctx context.Context, id string) (*domain.HardshipRequest, error) {
	query := `
		SELECT ` + hardshipColumns + `
		FROM hardship_requests
		WHERE id = $1
	`

	req, err := scanHardship(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return req, err
}

func (r *HardshipRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.HardshipRequest, error) {
	query := `
		SELECT ` + hardshipColumns + `
		FROM hardship_requests
		WHERE account_id = $1
		ORDER BY requested_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HardshipRequest
	for rows.Next() {
		req, err := scanHardship(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHardship(row rowScanner) (*domain.HardshipRequest, error) {
	var (
		req     domain.HardshipRequest
		reason  string
		status  string
		rawDocs []byte
		rawPlan []byte
	)

	if err := row.Scan(
		&req.ID,
		&req.AccountID,
		&reason,
		&req.MonthlyIncome,
		&req.MonthlyExpenses,
		&status,
		&rawDocs,
		&req.RequestedAt,
		&req.DecisionAt,
		&req.DecisionNotes,
		&rawPlan,
	); err != nil {
		return nil, err
	}

	req.Reason = domain.HardshipReason(reason)
	req.Status = domain.HardshipStatus(status)

	if len(rawDocs) > 0 {
		if err := json.Unmarshal(rawDocs, &req.SupportingDocuments); err != nil {
			return nil, err
		}
	}
	if len(rawPlan) > 0 {
		if err := json.Unmarshal(rawPlan, &req.PaymentPlan); err != nil {
			return nil, err
		}
	}

	return &req, nil
}
