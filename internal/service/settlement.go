package service

import (
	"context"
	"fmt"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"

	"github.com/google/uuid"
)

type SettlementStore interface {
	Create(ctx context.Context, offer *domain.SettlementOffer, events []*domain.ActivityEvent) error
	RecordResponse(ctx context.Context, offer *domain.SettlementOffer, event *domain.ActivityEvent, reply domain.Reply) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.SettlementOffer, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.SettlementOffer, error)
}

type CommunicationDispatcher interface {
	Dispatch(ctx context.Context, msg clients.OutboundCommunication) error
}

type CreateSettlementRequest struct {
	AccountID       string
	Amount          float64
	DiscountPercent float64
	PaymentTerms    string
	ValidUntil      time.Time
	Actor           string
}

type SettlementService struct {
	offers   SettlementStore
	accounts AccountStore
	locks    *AccountLocks
	redis    *clients.RedisClient
	dispatch CommunicationDispatcher
	ws       *clients.WebSocketClient
}

func NewSettlementService(
	offers SettlementStore,
	accounts AccountStore,
	locks *AccountLocks,
	redis *clients.RedisClient,
	dispatch CommunicationDispatcher,
	ws *clients.WebSocketClient,
) *SettlementService {
	return &SettlementService{
		offers:   offers,
		accounts: accounts,
		locks:    locks,
		redis:    redis,
		dispatch: dispatch,
		ws:       ws,
	}
}

// Create opens a settlement offer in pending approval and emits its audit
// trail: the offer email as a communication event carrying a fresh thread
// key, and the settlement event keyed by the offer id. Both land in the same
// transaction as the offer row.
func (s *SettlementService) Create(ctx context.Context, req CreateSettlementRequest) (*domain.SettlementOffer, error) {
	if req.Amount <= 0 {
		return nil, &domain.ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if req.DiscountPercent < 0 || req.DiscountPercent >= 100 {
		return nil, &domain.ValidationError{Field: "discount_percent", Message: "discount_percent must be in [0, 100)"}
	}
	if req.ValidUntil.IsZero() {
		return nil, &domain.ValidationError{Field: "valid_until", Message: "valid_until is required"}
	}
	if req.Actor == "" {
		req.Actor = domain.SystemActor
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	offer := &domain.SettlementOffer{
		ID:               uuid.NewString(),
		AccountID:        account.ID,
		Amount:           req.Amount,
		DiscountPercent:  req.DiscountPercent,
		Status:           domain.SettlementPendingApproval,
		OfferValidUntil:  req.ValidUntil,
		PaymentTerms:     req.PaymentTerms,
		CommunicationKey: uuid.NewString(),
		CreatedAt:        now,
	}

	recipient, channel := preferredContact(account)
	subject, body := renderOfferMessage(account, offer)

	commKey := offer.CommunicationKey
	offerKey := offer.ID

	events := []*domain.ActivityEvent{
		{
			AccountID:      account.ID,
			OccurredAt:     now,
			Module:         domain.ModuleCommunication,
			Action:         "Settlement Email Sent",
			Actor:          req.Actor,
			Status:         domain.EventSuccess,
			Details:        fmt.Sprintf("Settlement offer of %.2f (%.0f%% off) sent to %s", offer.Amount, offer.DiscountPercent, recipient),
			CorrelationKey: &commKey,
			Payload: domain.CommunicationPayload{
				Channel:   channel,
				Recipient: recipient,
				Subject:   subject,
				Body:      body,
				Direction: domain.DirectionOutbound,
			},
		},
		{
			AccountID:      account.ID,
			OccurredAt:     now,
			Module:         domain.ModuleSettlement,
			Action:         "Settlement Offer Created",
			Actor:          req.Actor,
			Status:         domain.EventPending,
			Details:        fmt.Sprintf("Offer %.2f at %.0f%% discount, valid until %s", offer.Amount, offer.DiscountPercent, offer.OfferValidUntil.Format("2006-01-02")),
			CorrelationKey: &offerKey,
			Payload: domain.SettlementPayload{
				OfferID:         offer.ID,
				Amount:          offer.Amount,
				DiscountPercent: offer.DiscountPercent,
				PaymentTerms:    offer.PaymentTerms,
			},
		},
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	if err := s.offers.Create(ctx, offer, events); err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, account.ID)

	if s.dispatch != nil {
		_ = s.dispatch.Dispatch(ctx, clients.OutboundCommunication{
			AccountID:      account.ID,
			Recipient:      recipient,
			Channel:        string(channel),
			Subject:        subject,
			Body:           body,
			CorrelationKey: offer.CommunicationKey,
		})
	}
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, req.Actor, account.ID, events[1].ID, string(domain.ModuleSettlement), events[1].Action)
	}

	return offer, nil
}

// Respond records the customer's decision. Legal only while the offer is
// pending; terminal offers stay unchanged and the caller gets an
// InvalidStateTransition error. The decision also synthesizes a customer
// reply onto the original offer email, so the thread shows the answer even
// when an agent recorded it on the customer's behalf.
func (s *SettlementService) Respond(ctx context.Context, offerID string, accepted bool, actor string) (*domain.SettlementOffer, error) {
	if actor == "" {
		actor = domain.SystemActor
	}

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(offer.AccountID)
	defer unlock()

	// re-read under the account lock: a concurrent respond may have won
	offer, err = s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status.Terminal() {
		return nil, domain.NewInvalidTransition("settlement offer", offer.ID, string(offer.Status), "respond")
	}

	now := time.Now().UTC()
	var (
		action      string
		replyStatus string
		response    string
	)
	if accepted {
		offer.Status = domain.SettlementAccepted
		action = "Settlement Offer Accepted"
		replyStatus = "Accepted"
		response = fmt.Sprintf("I accept the settlement offer of %.2f.", offer.Amount)
	} else {
		offer.Status = domain.SettlementRejected
		action = "Settlement Offer Rejected"
		replyStatus = "Rejected"
		response = fmt.Sprintf("I decline the settlement offer of %.2f.", offer.Amount)
	}
	offer.CustomerResponse = &response
	offer.ResponseAt = &now

	offerKey := offer.ID
	status := domain.EventSuccess
	if !accepted {
		status = domain.EventFailed
	}

	event := &domain.ActivityEvent{
		AccountID:      offer.AccountID,
		OccurredAt:     now,
		Module:         domain.ModuleSettlement,
		Action:         action,
		Actor:          actor,
		Status:         status,
		Details:        fmt.Sprintf("Offer %s %s", offer.ID, replyStatus),
		CorrelationKey: &offerKey,
		Payload: domain.SettlementPayload{
			OfferID:         offer.ID,
			Amount:          offer.Amount,
			DiscountPercent: offer.DiscountPercent,
			Response:        replyStatus,
		},
	}

	attached, err := s.offers.RecordResponse(ctx, offer, event, domain.Reply{
		Content: response,
		At:      now,
		Status:  replyStatus,
	})
	if err != nil {
		return nil, err
	}

	invalidateTimeline(ctx, s.redis, offer.AccountID)
	if s.ws != nil {
		_ = s.ws.NotifyActivity(ctx, actor, offer.AccountID, event.ID, string(domain.ModuleSettlement), action)
		if attached {
			_ = s.ws.NotifyReplyAttached(ctx, actor, offer.AccountID, offer.CommunicationKey, replyStatus)
		}
	}

	return offer, nil
}

func (s *SettlementService) Get(ctx context.Context, offerID string) (*domain.SettlementOffer, error) {
	return s.offers.GetByID(ctx, offerID)
}

func (s *SettlementService) List(ctx context.Context, accountID string) ([]domain.SettlementOffer, error) {
	return s.offers.ListByAccount(ctx, accountID)
}

func preferredContact(account *domain.Account) (string, domain.Channel) {
	if account.Email != nil && *account.Email != "" {
		return *account.Email, domain.ChannelEmail
	}
	if account.Phone != nil && *account.Phone != "" {
		return *account.Phone, domain.ChannelWhatsApp
	}
	return account.Reference, domain.ChannelMessage
}

func renderOfferMessage(account *domain.Account, offer *domain.SettlementOffer) (string, string) {
	subject := fmt.Sprintf("Settlement offer for account %s", account.Reference)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"We are able to settle your outstanding balance of %.2f %s for a one-time payment of %.2f %s, a discount of %.0f%% (you save %.2f).\n\n"+
			"Payment terms: %s\n"+
			"This offer is valid until %s.\n\n"+
			"Reply to this message to accept or decline.",
		account.DebtorName,
		offer.OriginalDebt(), account.Currency,
		offer.Amount, account.Currency,
		offer.DiscountPercent, offer.Savings(),
		offer.PaymentTerms,
		offer.OfferValidUntil.Format("2006-01-02"),
	)
	return subject, body
}
