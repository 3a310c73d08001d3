package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"collections-ledger/internal/domain"

	"github.com/oklog/ulid/v2"
)

const eventColumns = `
	id,
	account_id,
	occurred_at,
	module,
	action,
	actor,
	status,
	details,
	correlation_key,
	payload,
	reply_content,
	reply_at,
	reply_status,
	created_at
`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// insertEvent persists one ledger event, assigning a ULID id so events sort
// lexicographically in insertion order. Shared with the entity repositories,
// which call it inside their own transactions.
func insertEvent(ctx context.Context, q Querier, ev *domain.ActivityEvent) error {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}
	if ev.Status == "" {
		ev.Status = domain.EventSuccess
	}

	payload, err := domain.EncodePayload(ev.Payload)
	if err != nil {
		return err
	}

	// direction is denormalized into its own column so the correlation
	// engine can filter on it without digging into the payload JSON
	var direction *string
	if cp, ok := ev.Payload.(domain.CommunicationPayload); ok && cp.Direction != "" {
		d := cp.Direction
		direction = &d
	}

	query := `
		INSERT INTO activity_events (
			id, account_id, occurred_at, module, action, actor, status,
			details, correlation_key, direction, payload, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = q.ExecContext(ctx, query,
		ev.ID,
		ev.AccountID,
		ev.OccurredAt,
		string(ev.Module),
		ev.Action,
		ev.Actor,
		string(ev.Status),
		ev.Details,
		ev.CorrelationKey,
		direction,
		payload,
		ev.CreatedAt,
	)
	return err
}

// attachReplyToThread writes the reply fields onto the most recent outbound
// communication event for the key that has not been answered yet. Returns
// false when no such event exists. Picking the newest unanswered event is the
// documented last-write tie-break for keys shared by several outbound sends.
// Only outbound events are candidates: an inbound event logged for an
// unmatched reply must never become an attach target itself.
func attachReplyToThread(ctx context.Context, q Querier, correlationKey string, reply domain.Reply) (bool, error) {
	query := `
		UPDATE activity_events
		SET reply_content = $2,
		    reply_at      = $3,
		    reply_status  = $4
		WHERE id = (
			SELECT id
			FROM activity_events
			WHERE correlation_key = $1
			  AND module = $5
			  AND direction = $6
			  AND reply_at IS NULL
			ORDER BY occurred_at DESC, id DESC
			LIMIT 1
		)
	`

	res, err := q.ExecContext(ctx, query,
		correlationKey,
		reply.Content,
		reply.At,
		reply.Status,
		string(domain.ModuleCommunication),
		domain.DirectionOutbound,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Append inserts a single event outside any entity transaction.
func (r *LedgerRepository) Append(ctx context.Context, ev *domain.ActivityEvent) (string, error) {
	if err := insertEvent(ctx, r.db, ev); err != nil {
		return "", err
	}
	return ev.ID, nil
}

func (r *LedgerRepository) AttachReply(ctx context.Context, correlationKey string, reply domain.Reply) (bool, error) {
	return attachReplyToThread(ctx, r.db, correlationKey, reply)
}

// AccountForThread resolves which account an outbound communication thread
// belongs to; used to take the right account lock before attaching a reply.
func (r *LedgerRepository) AccountForThread(ctx context.Context, correlationKey string) (string, error) {
	query := `
		SELECT account_id
		FROM activity_events
		WHERE correlation_key = $1
		  AND module = $2
		  AND direction = $3
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`

	var accountID string
	err := r.db.QueryRowContext(ctx, query, correlationKey, string(domain.ModuleCommunication), domain.DirectionOutbound).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// ListByAccount returns the account timeline: occurred_at descending, ties
// broken by insertion order (the ULID id).
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.ActivityEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM activity_events
		WHERE account_id = $1
		ORDER BY occurred_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetThread returns the outbound event a correlation key points at, with any
// attached reply already on it.
func (r *LedgerRepository) GetThread(ctx context.Context, correlationKey string) (*domain.ActivityEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM activity_events
		WHERE correlation_key = $1
		  AND module = $2
		  AND direction = $3
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`

	rows, err := r.db.QueryContext(ctx, query, correlationKey, string(domain.ModuleCommunication), domain.DirectionOutbound)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	return &events[0], nil
}

func scanEvents(rows *sql.Rows) ([]domain.ActivityEvent, error) {
	var result []domain.ActivityEvent

	for rows.Next() {
		var (
			ev         domain.ActivityEvent
			module     string
			status     string
			rawPayload []byte
		)

		if err := rows.Scan(
			&ev.ID,
			&ev.AccountID,
			&ev.OccurredAt,
			&module,
			&ev.Action,
			&ev.Actor,
			&status,
			&ev.Details,
			&ev.CorrelationKey,
			&rawPayload,
			&ev.ReplyContent,
			&ev.ReplyAt,
			&ev.ReplyStatus,
			&ev.CreatedAt,
		); err != nil {
			return nil, err
		}

		ev.Module = domain.Module(module)
		ev.Status = domain.EventStatus(status)

		payload, err := domain.DecodePayload(ev.Module, rawPayload)
		if err != nil {
			return nil, err
		}
		ev.Payload = payload

		result = append(result, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
