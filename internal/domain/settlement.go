package domain

import "time"

type SettlementStatus string

const (
	SettlementPendingApproval SettlementStatus = "pending_approval"
	SettlementAccepted        SettlementStatus = "accepted"
	SettlementRejected        SettlementStatus = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s SettlementStatus) Terminal() bool {
	return s == SettlementAccepted || s == SettlementRejected
}

// SettlementOffer is a discounted payoff proposal sent to the debtor.
// Amount and DiscountPercent are the inputs; original debt and savings are
// always derived from them on read and never stored, so the two can never
// drift apart.
type SettlementOffer struct {
	ID              string
	AccountID       string
	Amount          float64
	DiscountPercent float64
	Status          SettlementStatus
	OfferValidUntil time.Time
	PaymentTerms    string

	// CommunicationKey is the correlation key of the offer email, used to
	// attach the customer's reply back onto it.
	CommunicationKey string

	CustomerResponse *string
	ResponseAt       *time.Time

	CreatedAt time.Time
}

// OriginalDebt back-calculates the pre-discount balance the offer settles.
// discountPercent == 100 would divide by zero; validation rejects it before
// an offer is created.
func (o *SettlementOffer) OriginalDebt() float64 {
	return o.Amount / (1 - o.DiscountPercent/100)
}

// Savings the debtor realizes by taking the offer.
func (o *SettlementOffer) Savings() float64 {
	return o.OriginalDebt() - o.Amount
}
