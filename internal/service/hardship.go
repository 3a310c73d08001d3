package service

import (
	"context"
	"fmt"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"

	"github.com/google/uuid"
)

type HardshipStore interface {
	Create(ctx context.Context, req *domain.HardshipRequest, event *domain.ActivityEvent) error
	RecordDecision(ctx context.Context, req *domain.HardshipRequest, event *domain.ActivityEvent) error
	GetByID(ctx context.Context, id string) (*domain.HardshipRequest, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.HardshipRequest, error)
}

type CreateHardshipRequest struct {
	AccountID           string
	Reason              domain.HardshipReason
	MonthlyIncome       float64
	MonthlyExpenses     float64
	SupportingDocuments []string
	Actor               string
}

type HardshipDecision struct {
	Approved    bool
	Notes       string
	PaymentPlan []domain.PlanInstallment
	Actor       string
}

type HardshipService struct {
	requests HardshipStore
	accounts AccountStore
	locks    *AccountLocks
	redis    *clients.RedisClient
	ws       *clients.WebSocketClient
}

func NewHardshipService(
	requests HardshipStore,
	accounts AccountStore,
	locks *AccountLocks,
	redis *clients.RedisClient,
	ws *clients.WebSocketClient,
) *HardshipService {
	return &HardshipService{
		requests: requests,
		accounts: accounts,
		locks:    locks,
		redis:    redis,
		ws:       ws,
	}
}

func (s *HardshipService) Create(ctx context.Context, req CreateHardshipRequest) (*domain.HardshipRequest, error) {
	if req.Reason == "" {
		return nil, &domain.ValidationError{Field: "reason", Message: "reason is required"}
	}
	if !req.Reason.Valid() {
		return nil, &domain.ValidationError{Field: "reason", Message: fmt.Sprintf("unknown hardship reason %q", req.Reason)}
	}
	if req.MonthlyIncome < 0 {
		return nil, &domain.ValidationError{Field: "monthly_income", Message: "monthly_income may not be negative"}
	}
	if req.MonthlyExpenses < 0 {
		return nil, &domain.ValidationError{Field: "monthly_expenses", Message: "monthly_expenses may not be negative"}
	}
	if req.Actor == "" {
		req.Actor = domain.SystemActor
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	hardship := &domain.HardshipRequest{
		ID:                  uuid.NewString(),
		AccountID:           account.ID,
		Reason:              req.Reason,
		MonthlyIncome:       req.MonthlyIncome,
		MonthlyExpenses:     req.MonthlyExpenses,
		Status:              domain.HardshipUnderReview,
		SupportingDocuments: req.SupportingDocuments,
		RequestedAt:         now,
	}

	reqKey := hardship.ID
	event := &domain.ActivityEvent{
		AccountID:      account.ID,
		OccurredAt:     now,
		Module:         domain.ModuleHardship,
		Action:         "Hardship Request Submitted",
		Actor:          req.Actor,
		Status:         domain.EventPending,
		Details:        fmt.Sprintf("Hardship (%s), disposable income %.2f", hardship.Reason, hardship.DisposableIncome()),
		CorrelationKey: &reqKey,
		Payload: domain.HardshipPayload{
			RequestID:        hardship.ID,
			Reason:           string(hardship.Reason),
			DisposableIncome: hardship.DisposableIncome(),
		},
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	if err := s.requests.Create(ctx, hardship, event); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, account.ID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, req.Actor, account.ID, event.ID, string(domain.ModuleHardship), event.Action)
	}

	return hardship, nil
}

// Decide resolves a request under review. The payment plan is accepted only
// with an approval and becomes part of the stored decision.
func (s *HardshipService) Decide(ctx context.Context, requestID string, decision HardshipDecision) (*domain.HardshipRequest, error) {
	if !decision.Approved && len(decision.PaymentPlan) > 0 {
		return nil, &domain.ValidationError{Field: "payment_plan", Message: "payment plan may only accompany an approval"}
	}
	if decision.Actor == "" {
		decision.Actor = domain.SystemActor
	}

	hardship, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(hardship.AccountID)
	defer unlock()

	hardship, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if hardship.Status.Terminal() {
		return nil, domain.NewInvalidTransition("hardship request", hardship.ID, string(hardship.Status), "decide")
	}

	now := time.Now().UTC()
	var (
		action string
		status domain.EventStatus
		label  string
	)
	if decision.Approved {
		hardship.Status = domain.HardshipApproved
		hardship.PaymentPlan = decision.PaymentPlan
		action = "Hardship Request Approved"
		status = domain.EventSuccess
		label = "approved"
	} else {
		hardship.Status = domain.HardshipRejected
		action = "Hardship Request Rejected"
		status = domain.EventFailed
		label = "rejected"
	}
	hardship.DecisionAt = &now
	if decision.Notes != "" {
		notes := decision.Notes
		hardship.DecisionNotes = &notes
	}

	reqKey := hardship.ID
	event := &domain.ActivityEvent{
		AccountID:      hardship.AccountID,
		OccurredAt:     now,
		Module:         domain.ModuleHardship,
		Action:         action,
		Actor:          decision.Actor,
		Status:         status,
		Details:        fmt.Sprintf("Hardship request %s %s", hardship.ID, label),
		CorrelationKey: &reqKey,
		Payload: domain.HardshipPayload{
			RequestID:        hardship.ID,
			Reason:           string(hardship.Reason),
			DisposableIncome: hardship.DisposableIncome(),
			Decision:         label,
		},
	}

	if err := s.requests.RecordDecision(ctx, hardship, event); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, hardship.AccountID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, decision.Actor, hardship.AccountID, event.ID, string(domain.ModuleHardship), action)
	}

	return hardship, nil
}

func (s *HardshipService) Get(ctx context.Context, requestID string) (*domain.HardshipRequest, error) {
	return s.requests.GetByID(ctx, requestID)
}

func (s *HardshipService) List(ctx context.Context, accountID string) ([]domain.HardshipRequest, error) {
	return s.requests.ListByAccount(ctx, accountID)
}
