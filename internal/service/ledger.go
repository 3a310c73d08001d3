package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"
)

// LedgerStore is the append-biased event collection backing every workflow
// component. Mutation is confined to the single reply attachment the
// correlation engine performs; everything else is insert-only.
type LedgerStore interface {
	Append(ctx context.Context, ev *domain.ActivityEvent) (string, error)
	AttachReply(ctx context.Context, correlationKey string, reply domain.Reply) (bool, error)
	AccountForThread(ctx context.Context, correlationKey string) (string, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.ActivityEvent, error)
	GetThread(ctx context.Context, correlationKey string) (*domain.ActivityEvent, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// InboundReply is a customer reply reported by the delivery collaborator.
type InboundReply struct {
	AccountID      string
	CorrelationKey string
	Channel        domain.Channel
	Sender         string
	Content        string
	Status         string
	ReceivedAt     time.Time
}

// LedgerService owns standalone appends and the correlation engine.
type LedgerService struct {
	store LedgerStore
	locks *AccountLocks
	redis *clients.RedisClient
	ws    *clients.WebSocketClient
}

func NewLedgerService(
	store LedgerStore,
	locks *AccountLocks,
	redis *clients.RedisClient,
	ws *clients.WebSocketClient,
) *LedgerService {
	return &LedgerService{
		store: store,
		locks: locks,
		redis: redis,
		ws:    ws,
	}
}

// Append writes a standalone event for modules that carry no state machine
// (ad-hoc communications, legal, dispute, skip tracing, case updates).
// Workflow modules are rejected: their events are written by their own
// services alongside the backing entity.
func (s *LedgerService) Append(ctx context.Context, ev *domain.ActivityEvent) (string, error) {
	if ev.AccountID == "" {
		return "", &domain.ValidationError{Field: "account_id", Message: "account_id is required"}
	}
	if !ev.Module.Valid() {
		return "", &domain.ValidationError{Field: "module", Message: fmt.Sprintf("unknown module %q", ev.Module)}
	}
	if !ev.Module.Standalone() {
		return "", &domain.ValidationError{Field: "module", Message: fmt.Sprintf("%s events are written by their workflow, not appended directly", ev.Module)}
	}
	if ev.Action == "" {
		return "", &domain.ValidationError{Field: "action", Message: "action is required"}
	}
	if ev.Actor == "" {
		ev.Actor = domain.SystemActor
	}
	if ev.Payload != nil && ev.Payload.PayloadModule() != ev.Module {
		return "", &domain.ValidationError{Field: "payload", Message: "payload does not match event module"}
	}

	unlock := s.locks.Lock(ev.AccountID)
	defer unlock()

	id, err := s.store.Append(ctx, ev)
	if err != nil {
		return "", err
	}

	invalidateTimeline(ctx, s.redis, ev.AccountID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, ev.Actor, ev.AccountID, id, string(ev.Module), ev.Action)
	}

	return id, nil
}

// AttachReply links an inbound reply to the most recent unanswered outbound
// communication sharing its correlation key. A miss is not an error: the
// reply is appended as a standalone inbound event instead, and false is
// returned so the caller knows no thread was found.
func (s *LedgerService) AttachReply(ctx context.Context, in InboundReply) (bool, error) {
	if in.Content == "" {
		return false, &domain.ValidationError{Field: "content", Message: "reply content is required"}
	}
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = time.Now().UTC()
	}
	if in.Status == "" {
		in.Status = "received"
	}

	accountID := in.AccountID
	if in.CorrelationKey != "" {
		if resolved, err := s.store.AccountForThread(ctx, in.CorrelationKey); err == nil {
			accountID = resolved
		} else if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}
	if accountID == "" {
		return false, &domain.ValidationError{Field: "account_id", Message: "account_id is required when the correlation key matches no thread"}
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	if in.CorrelationKey != "" {
		attached, err := s.store.AttachReply(ctx, in.CorrelationKey, domain.Reply{
			Content: in.Content,
			At:      in.ReceivedAt,
			Status:  in.Status,
		})
		if err != nil {
			return false, err
		}
		if attached {
			invalidateTimeline(ctx, s.redis, accountID)
			if s.ws != nil {
				_ = s.ws.NotifyReplyAttached(ctx, in.Sender, accountID, in.CorrelationKey, in.Status)
			}
			return true, nil
		}
	}

	// no matching thread: log the reply on its own, never drop it
	var key *string
	if in.CorrelationKey != "" {
		key = &in.CorrelationKey
	}
	channel := in.Channel
	if !channel.Valid() {
		channel = domain.ChannelMessage
	}

	ev := &domain.ActivityEvent{
		AccountID:      accountID,
		OccurredAt:     in.ReceivedAt,
		Module:         domain.ModuleCommunication,
		Action:         "Unmatched Reply Received",
		Actor:          domain.SystemActor,
		Status:         domain.EventSuccess,
		Details:        "Inbound reply arrived with no open thread to attach to",
		CorrelationKey: key,
		Payload: domain.CommunicationPayload{
			Channel:   channel,
			Recipient: in.Sender,
			Body:      in.Content,
			Direction: domain.DirectionInbound,
		},
	}

	if _, err := s.store.Append(ctx, ev); err != nil {
		return false, err
	}

	invalidateTimeline(ctx, s.redis, accountID)
	return false, nil
}
