package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"collections-ledger/internal/domain"
)

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// AppendEventRequest is the body of POST /accounts/{account_id}/events:
// a standalone ledger entry for modules without their own workflow endpoint.
type AppendEventRequest struct {
	Module         string          `json:"module"`
	Action         string          `json:"action"`
	Actor          string          `json:"actor"`
	Status         string          `json:"status"`
	Details        string          `json:"details"`
	OccurredAt     *time.Time      `json:"occurred_at"`
	CorrelationKey *string         `json:"correlation_key"`
	Payload        json.RawMessage `json:"payload"`
}

func ValidateAppendEventRequest(r *http.Request) (*AppendEventRequest, error) {
	var req AppendEventRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Module == "" {
		return nil, &domain.ValidationError{Field: "module", Message: "module is required"}
	}
	if !domain.Module(req.Module).Valid() {
		return nil, &domain.ValidationError{Field: "module", Message: "unknown module"}
	}
	if req.Action == "" {
		return nil, &domain.ValidationError{Field: "action", Message: "action is required"}
	}
	return &req, nil
}

func (req *AppendEventRequest) ToEvent(accountID string) (*domain.ActivityEvent, error) {
	module := domain.Module(req.Module)
	payload, err := domain.DecodePayload(module, req.Payload)
	if err != nil {
		return nil, &domain.ValidationError{Field: "payload", Message: "payload does not match the module's shape"}
	}

	ev := &domain.ActivityEvent{
		AccountID:      accountID,
		Module:         module,
		Action:         req.Action,
		Actor:          req.Actor,
		Status:         domain.EventStatus(req.Status),
		Details:        req.Details,
		CorrelationKey: req.CorrelationKey,
		Payload:        payload,
	}
	if req.OccurredAt != nil {
		ev.OccurredAt = *req.OccurredAt
	}
	return ev, nil
}

type CreateSettlementBody struct {
	Amount          float64 `json:"amount"`
	DiscountPercent float64 `json:"discount_percent"`
	PaymentTerms    string  `json:"payment_terms"`
	ValidUntil      string  `json:"valid_until"` // YYYY-MM-DD
	Actor           string  `json:"actor"`
}

func ValidateCreateSettlementBody(r *http.Request) (*CreateSettlementBody, time.Time, error) {
	var req CreateSettlementBody
	if err := decodeBody(r, &req); err != nil {
		return nil, time.Time{}, err
	}
	if req.ValidUntil == "" {
		return nil, time.Time{}, &domain.ValidationError{Field: "valid_until", Message: "valid_until is required"}
	}
	validUntil, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		return nil, time.Time{}, &domain.ValidationError{Field: "valid_until", Message: "valid_until must be YYYY-MM-DD"}
	}
	return &req, validUntil, nil
}

type RespondSettlementBody struct {
	Accepted *bool  `json:"accepted"`
	Actor    string `json:"actor"`
}

func ValidateRespondSettlementBody(r *http.Request) (*RespondSettlementBody, error) {
	var req RespondSettlementBody
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Accepted == nil {
		return nil, &domain.ValidationError{Field: "accepted", Message: "accepted is required"}
	}
	return &req, nil
}

type CreatePTPBody struct {
	Amount      float64 `json:"amount"`
	PromiseDate string  `json:"promise_date"` // YYYY-MM-DD
	Notes       string  `json:"notes"`
	Actor       string  `json:"actor"`
}

func ValidateCreatePTPBody(r *http.Request) (*CreatePTPBody, time.Time, error) {
	var req CreatePTPBody
	if err := decodeBody(r, &req); err != nil {
		return nil, time.Time{}, err
	}
	if req.PromiseDate == "" {
		return nil, time.Time{}, &domain.ValidationError{Field: "promise_date", Message: "promise_date is required"}
	}
	promiseDate, err := time.Parse("2006-01-02", req.PromiseDate)
	if err != nil {
		return nil, time.Time{}, &domain.ValidationError{Field: "promise_date", Message: "promise_date must be YYYY-MM-DD"}
	}
	return &req, promiseDate, nil
}

type HonorPTPBody struct {
	PaymentEventRef string `json:"payment_event_ref"`
	Actor           string `json:"actor"`
}

type BreakPTPBody struct {
	Actor string `json:"actor"`
}

type CreateHardshipBody struct {
	Reason              string   `json:"reason"`
	MonthlyIncome       float64  `json:"monthly_income"`
	MonthlyExpenses     float64  `json:"monthly_expenses"`
	SupportingDocuments []string `json:"supporting_documents"`
	Actor               string   `json:"actor"`
}

type DecideHardshipBody struct {
	Approved    *bool                    `json:"approved"`
	Notes       string                   `json:"notes"`
	PaymentPlan []domain.PlanInstallment `json:"payment_plan"`
	Actor       string                   `json:"actor"`
}

func ValidateDecideHardshipBody(r *http.Request) (*DecideHardshipBody, error) {
	var req DecideHardshipBody
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Approved == nil {
		return nil, &domain.ValidationError{Field: "approved", Message: "approved is required"}
	}
	return &req, nil
}

type SubmitReconciliationBody struct {
	Amount         float64 `json:"amount"`
	PaymentDate    string  `json:"payment_date"` // YYYY-MM-DD
	PaymentMethod  string  `json:"payment_method"`
	TransactionRef string  `json:"transaction_ref"`
	ProofAttached  bool    `json:"proof_attached"`
	RequestedBy    string  `json:"requested_by"`
}

func ValidateSubmitReconciliationBody(r *http.Request) (*SubmitReconciliationBody, time.Time, error) {
	var req SubmitReconciliationBody
	if err := decodeBody(r, &req); err != nil {
		return nil, time.Time{}, err
	}
	if req.PaymentDate == "" {
		return nil, time.Time{}, &domain.ValidationError{Field: "payment_date", Message: "payment_date is required"}
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, time.Time{}, &domain.ValidationError{Field: "payment_date", Message: "payment_date must be YYYY-MM-DD"}
	}
	return &req, paymentDate, nil
}

type DecideReconciliationBody struct {
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
}

// PostReplyBody is an inbound customer reply reported by the message
// delivery collaborator. account_id is only needed when the correlation key
// matches no open thread.
type PostReplyBody struct {
	AccountID      string     `json:"account_id"`
	CorrelationKey string     `json:"correlation_key"`
	Channel        string     `json:"channel"`
	Sender         string     `json:"sender"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	ReceivedAt     *time.Time `json:"received_at"`
}

func ValidatePostReplyBody(r *http.Request) (*PostReplyBody, error) {
	var req PostReplyBody
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Content == "" {
		return nil, &domain.ValidationError{Field: "content", Message: "content is required"}
	}
	return &req, nil
}

type TimelineExportBody struct {
	Fields []string `json:"fields"`
}
