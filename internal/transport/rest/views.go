package rest

import (
	"time"

	"collections-ledger/internal/domain"
)

// View structs decouple the wire format from the domain types. Derived
// financial figures (original debt, savings, disposable income, days until
// due) are computed here on every render, never read from storage.

type eventView struct {
	ID             string              `json:"id"`
	AccountID      string              `json:"account_id"`
	OccurredAt     time.Time           `json:"occurred_at"`
	Module         string              `json:"module"`
	Action         string              `json:"action"`
	Actor          string              `json:"actor"`
	Status         string              `json:"status"`
	Details        string              `json:"details,omitempty"`
	CorrelationKey *string             `json:"correlation_key,omitempty"`
	Payload        domain.EventPayload `json:"payload,omitempty"`
	Reply          *replyView          `json:"reply,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type replyView struct {
	Content string    `json:"content"`
	At      time.Time `json:"at"`
	Status  string    `json:"status"`
}

func toEventView(ev domain.ActivityEvent) eventView {
	v := eventView{
		ID:             ev.ID,
		AccountID:      ev.AccountID,
		OccurredAt:     ev.OccurredAt,
		Module:         string(ev.Module),
		Action:         ev.Action,
		Actor:          ev.Actor,
		Status:         string(ev.Status),
		Details:        ev.Details,
		CorrelationKey: ev.CorrelationKey,
		Payload:        ev.Payload,
		CreatedAt:      ev.CreatedAt,
	}
	if ev.HasReply() {
		v.Reply = &replyView{
			Content: derefStr(ev.ReplyContent),
			At:      *ev.ReplyAt,
			Status:  derefStr(ev.ReplyStatus),
		}
	}
	return v
}

func toEventViews(events []domain.ActivityEvent) []eventView {
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toEventView(ev))
	}
	return views
}

type settlementView struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"account_id"`
	Amount           float64    `json:"amount"`
	DiscountPercent  float64    `json:"discount_percent"`
	OriginalDebt     float64    `json:"original_debt"`
	Savings          float64    `json:"savings"`
	Status           string     `json:"status"`
	OfferValidUntil  string     `json:"offer_valid_until"`
	PaymentTerms     string     `json:"payment_terms,omitempty"`
	CommunicationKey string     `json:"communication_key"`
	CustomerResponse *string    `json:"customer_response,omitempty"`
	ResponseAt       *time.Time `json:"response_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toSettlementView(o *domain.SettlementOffer) settlementView {
	return settlementView{
		ID:               o.ID,
		AccountID:        o.AccountID,
		Amount:           o.Amount,
		DiscountPercent:  o.DiscountPercent,
		OriginalDebt:     o.OriginalDebt(),
		Savings:          o.Savings(),
		Status:           string(o.Status),
		OfferValidUntil:  o.OfferValidUntil.Format("2006-01-02"),
		PaymentTerms:     o.PaymentTerms,
		CommunicationKey: o.CommunicationKey,
		CustomerResponse: o.CustomerResponse,
		ResponseAt:       o.ResponseAt,
		CreatedAt:        o.CreatedAt,
	}
}

type ptpView struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	Amount          float64    `json:"amount"`
	PromiseDate     string     `json:"promise_date"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	DaysUntilDue    int        `json:"days_until_due"`
	Overdue         bool       `json:"overdue"`
	PaymentEventRef *string    `json:"payment_event_ref,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
}

func toPTPView(p *domain.PromiseToPay) ptpView {
	now := time.Now().UTC()
	return ptpView{
		ID:              p.ID,
		AccountID:       p.AccountID,
		Amount:          p.Amount,
		PromiseDate:     p.PromiseDate.Format("2006-01-02"),
		Status:          string(p.Status),
		Notes:           p.Notes,
		DaysUntilDue:    p.DaysUntilDue(now),
		Overdue:         p.Overdue(now),
		PaymentEventRef: p.PaymentEventRef,
		CreatedAt:       p.CreatedAt,
		DecidedAt:       p.DecidedAt,
	}
}

type hardshipView struct {
	ID                  string                   `json:"id"`
	AccountID           string                   `json:"account_id"`
	Reason              string                   `json:"reason"`
	MonthlyIncome       float64                  `json:"monthly_income"`
	MonthlyExpenses     float64                  `json:"monthly_expenses"`
	DisposableIncome    float64                  `json:"disposable_income"`
	Status              string                   `json:"status"`
	SupportingDocuments []string                 `json:"supporting_documents,omitempty"`
	RequestedAt         time.Time                `json:"requested_at"`
	DecisionAt          *time.Time               `json:"decision_at,omitempty"`
	DecisionNotes       *string                  `json:"decision_notes,omitempty"`
	PaymentPlan         []domain.PlanInstallment `json:"payment_plan,omitempty"`
}

func toHardshipView(h *domain.HardshipRequest) hardshipView {
	return hardshipView{
		ID:                  h.ID,
		AccountID:           h.AccountID,
		Reason:              string(h.Reason),
		MonthlyIncome:       h.MonthlyIncome,
		MonthlyExpenses:     h.MonthlyExpenses,
		DisposableIncome:    h.DisposableIncome(),
		Status:              string(h.Status),
		SupportingDocuments: h.SupportingDocuments,
		RequestedAt:         h.RequestedAt,
		DecisionAt:          h.DecisionAt,
		DecisionNotes:       h.DecisionNotes,
		PaymentPlan:         h.PaymentPlan,
	}
}

type reconciliationView struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	Amount          float64    `json:"amount"`
	PaymentDate     string     `json:"payment_date"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	TransactionRef  string     `json:"transaction_ref"`
	RequestedBy     string     `json:"requested_by"`
	Status          string     `json:"status"`
	ProofAttached   bool       `json:"proof_attached"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	DecisionAt      *time.Time `json:"decision_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toReconciliationView(r *domain.ReconciliationRequest) reconciliationView {
	return reconciliationView{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Amount:          r.Amount,
		PaymentDate:     r.PaymentDate.Format("2006-01-02"),
		PaymentMethod:   r.PaymentMethod,
		TransactionRef:  r.TransactionRef,
		RequestedBy:     r.RequestedBy,
		Status:          string(r.Status),
		ProofAttached:   r.ProofAttached,
		ApprovedBy:      r.ApprovedBy,
		DecisionAt:      r.DecisionAt,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
	}
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
