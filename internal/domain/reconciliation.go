package domain

import "time"

type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationApproved ReconciliationStatus = "approved"
	ReconciliationRejected ReconciliationStatus = "rejected"
)

func (s ReconciliationStatus) Terminal() bool {
	return s == ReconciliationApproved || s == ReconciliationRejected
}

// ReconciliationRequest is a manually reported payment awaiting supervisor
// confirmation. Requester and approver are distinct roles; ApprovedBy is
// non-nil exactly when the request has been decided either way. Applying the
// payment to the account balance is a downstream collaborator's job.
type ReconciliationRequest struct {
	ID             string
	AccountID      string
	Amount         float64
	PaymentDate    time.Time
	PaymentMethod  string
	TransactionRef string
	RequestedBy    string
	Status         ReconciliationStatus
	ProofAttached  bool

	ApprovedBy      *string
	DecisionAt      *time.Time
	RejectionReason *string

	CreatedAt time.Time
}
