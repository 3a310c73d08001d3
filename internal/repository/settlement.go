package repository

import (
	"context"
	"database/sql"
	"errors"

	"collections-ledger/internal/domain"
)

const settlementColumns = `
	id,
	account_id,
	amount,
	discount_percent,
	status,
	offer_valid_until,
	payment_terms,
	communication_key,
	customer_response,
	response_at,
	created_at
`

type SettlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create persists the offer together with its ledger events in one
// transaction, so an offer can never exist without its audit trail.
func (r *SettlementRepository) Create(ctx context.Context, offer *domain.SettlementOffer, events []*domain.ActivityEvent) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO settlement_offers (
				id, account_id, amount, discount_percent, status,
				offer_valid_until, payment_terms, communication_key, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`

		_, err := tx.ExecContext(ctx, query,
			offer.ID,
			offer.AccountID,
			offer.Amount,
			offer.DiscountPercent,
			string(offer.Status),
			offer.OfferValidUntil,
			offer.PaymentTerms,
			offer.CommunicationKey,
			offer.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, ev := range events {
			if err := insertEvent(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordResponse applies the pending -> accepted/rejected transition, appends
// the settlement response event, and attaches the synthesized customer reply
// onto the offer's communication thread, all in one transaction. The WHERE
// status guard backs up the service-level account lock against lost updates.
// Returns whether the reply landed on the outbound event.
func (r *SettlementRepository) RecordResponse(ctx context.Context, offer *domain.SettlementOffer, event *domain.ActivityEvent, reply domain.Reply) (bool, error) {
	var attached bool

	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE settlement_offers
			SET status = $2,
			    customer_response = $3,
			    response_at = $4
			WHERE id = $1
			  AND status = $5
		`

		res, err := tx.ExecContext(ctx, query,
			offer.ID,
			string(offer.Status),
			offer.CustomerResponse,
			offer.ResponseAt,
			string(domain.SettlementPendingApproval),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NewInvalidTransition("settlement offer", offer.ID, "terminal", "respond")
		}

		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}

		attached, err = attachReplyToThread(ctx, tx, offer.CommunicationKey, reply)
		return err
	})

	return attached, err
}

func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*domain.SettlementOffer, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlement_offers
		WHERE id = $1
	`

	var (
		o      domain.SettlementOffer
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID,
		&o.AccountID,
		&o.Amount,
		&o.DiscountPercent,
		&status,
		&o.OfferValidUntil,
		&o.PaymentTerms,
		&o.CommunicationKey,
		&o.CustomerResponse,
		&o.ResponseAt,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Status = domain.SettlementStatus(status)
	return &o, nil
}

func (r *SettlementRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.SettlementOffer, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlement_offers
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SettlementOffer
	for rows.Next() {
		var (
			o      domain.SettlementOffer
			status string
		)
		if err := rows.Scan(
			&o.ID,
			&o.AccountID,
			&o.Amount,
			&o.DiscountPercent,
			&status,
			&o.OfferValidUntil,
			&o.PaymentTerms,
			&o.CommunicationKey,
			&o.CustomerResponse,
			&o.ResponseAt,
			&o.CreatedAt,
		); err != nil {
			return nil, err
		}
		o.Status = domain.SettlementStatus(status)
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
