package service

import (
	"context"
	"fmt"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"

	"github.com/google/uuid"
)

type PTPStore interface {
	Create(ctx context.Context, ptp *domain.PromiseToPay, event *domain.ActivityEvent) error
	RecordDecision(ctx context.Context, ptp *domain.PromiseToPay, event *domain.ActivityEvent) error
	GetByID(ctx context.Context, id string) (*domain.PromiseToPay, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.PromiseToPay, error)
}

type CreatePTPRequest struct {
	AccountID   string
	Amount      float64
	PromiseDate time.Time
	Notes       string
	Actor       string
}

type PTPService struct {
	promises PTPStore
	accounts AccountStore
	locks    *AccountLocks
	redis    *clients.RedisClient
	dispatch CommunicationDispatcher
	ws       *clients.WebSocketClient
}

func NewPTPService(
	promises PTPStore,
	accounts AccountStore,
	locks *AccountLocks,
	redis *clients.RedisClient,
	dispatch CommunicationDispatcher,
	ws *clients.WebSocketClient,
) *PTPService {
	return &PTPService{
		promises: promises,
		accounts: accounts,
		locks:    locks,
		redis:    redis,
		dispatch: dispatch,
		ws:       ws,
	}
}

// Create records a promise to pay. The promise date may not be in the past
// at creation time; there is no timer that breaks a promise later, both
// outcomes are explicit caller transitions.
func (s *PTPService) Create(ctx context.Context, req CreatePTPRequest) (*domain.PromiseToPay, error) {
	if req.Amount <= 0 {
		return nil, &domain.ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if req.PromiseDate.IsZero() {
		return nil, &domain.ValidationError{Field: "promise_date", Message: "promise_date is required"}
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.PromiseDate.Before(today) {
		return nil, &domain.ValidationError{Field: "promise_date", Message: "promise_date may not be in the past"}
	}
	if req.Actor == "" {
		req.Actor = domain.SystemActor
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	ptp := &domain.PromiseToPay{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Amount:      req.Amount,
		PromiseDate: req.PromiseDate,
		Status:      domain.PTPPending,
		Notes:       req.Notes,
		CreatedAt:   now,
	}

	ptpKey := ptp.ID
	event := &domain.ActivityEvent{
		AccountID:      account.ID,
		OccurredAt:     now,
		Module:         domain.ModulePTP,
		Action:         "Promise to Pay Created",
		Actor:          req.Actor,
		Status:         domain.EventPending,
		Details:        fmt.Sprintf("Promise of %.2f due %s", ptp.Amount, ptp.PromiseDate.Format("2006-01-02")),
		CorrelationKey: &ptpKey,
		Payload: domain.PTPPayload{
			PTPID:       ptp.ID,
			Amount:      ptp.Amount,
			PromiseDate: ptp.PromiseDate.Format("2006-01-02"),
			Notes:       ptp.Notes,
		},
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	if err := s.promises.Create(ctx, ptp, event); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, account.ID)

	if s.dispatch != nil {
		recipient, channel := preferredContact(account)
		_ = s.dispatch.Dispatch(ctx, clients.OutboundCommunication{
			AccountID: account.ID,
			Recipient: recipient,
			Channel:   string(channel),
			Subject:   fmt.Sprintf("Payment arrangement confirmation for account %s", account.Reference),
			Body: fmt.Sprintf(
				"Dear %s,\n\nThis confirms your commitment to pay %.2f %s by %s.\n\nThank you.",
				account.DebtorName, ptp.Amount, account.Currency, ptp.PromiseDate.Format("2006-01-02"),
			),
			CorrelationKey: ptp.ID,
		})
	}
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, req.Actor, account.ID, event.ID, string(domain.ModulePTP), event.Action)
	}

	return ptp, nil
}

// MarkHonored transitions a pending promise once a matching payment is
// confirmed; paymentEventRef points at that confirmation.
func (s *PTPService) MarkHonored(ctx context.Context, ptpID, paymentEventRef, actor string) (*domain.PromiseToPay, error) {
	if paymentEventRef == "" {
		return nil, &domain.ValidationError{Field: "payment_event_ref", Message: "payment_event_ref is required"}
	}
	return s.decide(ctx, ptpID, domain.PTPHonored, &paymentEventRef, actor)
}

// MarkBroken is the explicit caller-invoked transition for a promise that
// was not kept.
func (s *PTPService) MarkBroken(ctx context.Context, ptpID, actor string) (*domain.PromiseToPay, error) {
	return s.decide(ctx, ptpID, domain.PTPBroken, nil, actor)
}

func (s *PTPService) decide(ctx context.Context, ptpID string, target domain.PTPStatus, paymentEventRef *string, actor string) (*domain.PromiseToPay, error) {
	if actor == "" {
		actor = domain.SystemActor
	}

	ptp, err := s.promises.GetByID(ctx, ptpID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ptp.AccountID)
	defer unlock()

	ptp, err = s.promises.GetByID(ctx, ptpID)
	if err != nil {
		return nil, err
	}
	if ptp.Status.Terminal() {
		return nil, domain.NewInvalidTransition("promise to pay", ptp.ID, string(ptp.Status), "decide")
	}

	now := time.Now().UTC()
	ptp.Status = target
	ptp.PaymentEventRef = paymentEventRef
	ptp.DecidedAt = &now

	var (
		action string
		status domain.EventStatus
	)
	if target == domain.PTPHonored {
		action = "Promise Honored"
		status = domain.EventSuccess
	} else {
		action = "Promise Broken"
		status = domain.EventFailed
	}

	ptpKey := ptp.ID
	event := &domain.ActivityEvent{
		AccountID:      ptp.AccountID,
		OccurredAt:     now,
		Module:         domain.ModulePTP,
		Action:         action,
		Actor:          actor,
		Status:         status,
		Details:        fmt.Sprintf("Promise of %.2f due %s marked %s", ptp.Amount, ptp.PromiseDate.Format("2006-01-02"), string(target)),
		CorrelationKey: &ptpKey,
		Payload: domain.PTPPayload{
			PTPID:       ptp.ID,
			Amount:      ptp.Amount,
			PromiseDate: ptp.PromiseDate.Format("2006-01-02"),
		},
	}

	if err := s.promises.RecordDecision(ctx, ptp, event); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, ptp.AccountID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, actor, ptp.AccountID, event.ID, string(domain.ModulePTP), action)
	}

	return ptp, nil
}

func (s *PTPService) Get(ctx context.Context, ptpID string) (*domain.PromiseToPay, error) {
	return s.promises.GetByID(ctx, ptpID)
}

func (s *PTPService) List(ctx context.Context, accountID string) ([]domain.PromiseToPay, error) {
	return s.promises.ListByAccount(ctx, accountID)
}
