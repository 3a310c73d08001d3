package service

import (
	"context"
	"fmt"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"

	"github.com/google/uuid"
)

type ReconciliationStore interface {
	Create(ctx context.Context, req *domain.ReconciliationRequest, event *domain.ActivityEvent) error
	RecordDecision(ctx context.Context, req *domain.ReconciliationRequest, event *domain.ActivityEvent) error
	GetByID(ctx context.Context, id string) (*domain.ReconciliationRequest, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.ReconciliationRequest, error)
}

type SubmitReconciliationRequest struct {
	AccountID      string
	Amount         float64
	PaymentDate    time.Time
	PaymentMethod  string
	TransactionRef string
	ProofAttached  bool
	RequestedBy    string
}

// ReconciliationService runs the two-actor approval workflow for manually
// reported payments. Applying an approved payment to the account balance is
// a downstream collaborator's job, not this service's.
type ReconciliationService struct {
	requests ReconciliationStore
	accounts AccountStore
	locks    *AccountLocks
	redis    *clients.RedisClient
	ws       *clients.WebSocketClient
}

func NewReconciliationService(
	requests ReconciliationStore,
	accounts AccountStore,
	locks *AccountLocks,
	redis *clients.RedisClient,
	ws *clients.WebSocketClient,
) *ReconciliationService {
	return &ReconciliationService{
		requests: requests,
		accounts: accounts,
		locks:    locks,
		redis:    redis,
		ws:       ws,
	}
}

func (s *ReconciliationService) Submit(ctx context.Context, req SubmitReconciliationRequest) (*domain.ReconciliationRequest, error) {
	if req.Amount <= 0 {
		return nil, &domain.ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if req.TransactionRef == "" {
		return nil, &domain.ValidationError{Field: "transaction_ref", Message: "transaction_ref is required"}
	}
	if req.PaymentDate.IsZero() {
		return nil, &domain.ValidationError{Field: "payment_date", Message: "payment_date is required"}
	}
	if req.RequestedBy == "" {
		return nil, &domain.ValidationError{Field: "requested_by", Message: "requested_by is required"}
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recon := &domain.ReconciliationRequest{
		ID:             uuid.NewString(),
		AccountID:      account.ID,
		Amount:         req.Amount,
		PaymentDate:    req.PaymentDate,
		PaymentMethod:  req.PaymentMethod,
		TransactionRef: req.TransactionRef,
		RequestedBy:    req.RequestedBy,
		Status:         domain.ReconciliationPending,
		ProofAttached:  req.ProofAttached,
		CreatedAt:      now,
	}

	reqKey := recon.ID
	event := &domain.ActivityEvent{
		AccountID:      account.ID,
		OccurredAt:     now,
		Module:         domain.ModulePaymentReconciliation,
		Action:         "Payment Reconciliation Submitted",
		Actor:          req.RequestedBy,
		Status:         domain.EventPending,
		Details:        fmt.Sprintf("Payment of %.2f via %s (ref %s) awaiting approval", recon.Amount, recon.PaymentMethod, recon.TransactionRef),
		CorrelationKey: &reqKey,
		Payload: domain.ReconciliationPayload{
			RequestID:      recon.ID,
			Amount:         recon.Amount,
			PaymentMethod:  recon.PaymentMethod,
			TransactionRef: recon.TransactionRef,
		},
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	if err := s.requests.Create(ctx, recon, event); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, account.ID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, req.RequestedBy, account.ID, event.ID, string(domain.ModulePaymentReconciliation), event.Action)
	}

	return recon, nil
}

func (s *ReconciliationService) Approve(ctx context.Context, requestID, approverID string) (*domain.ReconciliationRequest, error) {
	return s.decide(ctx, requestID, approverID, true, "")
}

func (s *ReconciliationService) Reject(ctx context.Context, requestID, approverID, reason string) (*domain.ReconciliationRequest, error) {
	if reason == "" {
		return nil, &domain.ValidationError{Field: "reason", Message: "a rejection reason is required"}
	}
	return s.decide(ctx, requestID, approverID, false, reason)
}

func (s *ReconciliationService) decide(ctx context.Context, requestID, approverID string, approved bool, reason string) (*domain.ReconciliationRequest, error) {
	if approverID == "" {
		return nil, &domain.ValidationError{Field: "approver_id", Message: "approver_id is required"}
	}

	recon, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// requester and approver are distinct roles
	if recon.RequestedBy == approverID {
		return nil, &domain.ValidationError{Field: "approver_id", Message: "a request may not be decided by its requester"}
	}

	unlock := s.locks.Lock(recon.AccountID)
	defer unlock()

	recon, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if recon.Status.Terminal() {
		return nil, domain.NewInvalidTransition("reconciliation request", recon.ID, string(recon.Status), "decide")
	}

	now := time.Now().UTC()
	recon.ApprovedBy = &approverID
	recon.DecisionAt = &now

	var (
		action string
		status domain.EventStatus
		label  string
	)
	if approved {
		recon.Status = domain.ReconciliationApproved
		action = "Payment Reconciliation Approved"
		status = domain.EventSuccess
		label = "approved"
	} else {
		recon.Status = domain.ReconciliationRejected
		recon.RejectionReason = &reason
		action = "Payment Reconciliation Rejected"
		status = domain.EventFailed
		label = "rejected"
	}

	reqKey := recon.ID
	details := fmt.Sprintf("Payment of %.2f (ref %s) %s by %s", recon.Amount, recon.TransactionRef, label, approverID)
	if !approved {
		details += ": " + reason
	}

	event := &domain.ActivityEvent{
		AccountID:      recon.AccountID,
		OccurredAt:     now,
		Module:         domain.ModulePaymentReconciliation,
		Action:         action,
		Actor:          approverID,
		Status:         status,
		Details:        details,
		CorrelationKey: &reqKey,
		Payload: domain.ReconciliationPayload{
			RequestID:      recon.ID,
			Amount:         recon.Amount,
			PaymentMethod:  recon.PaymentMethod,
			TransactionRef: recon.TransactionRef,
			Decision:       label,
		},
	}

	if err := s.requests.RecordDecision(ctx, recon, event); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, recon.AccountID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, approverID, recon.AccountID, event.ID, string(domain.ModulePaymentReconciliation), action)
	}

	return recon, nil
}

func (s *ReconciliationService) Get(ctx context.Context, requestID string) (*domain.ReconciliationRequest, error) {
	return s.requests.GetByID(ctx, requestID)
}

func (s *ReconciliationService) List(ctx context.Context, accountID string) ([]domain.ReconciliationRequest, error) {
	return s.requests.ListByAccount(ctx, accountID)
}
