package domain

import "time"

type HardshipStatus string

const (
	HardshipUnderReview HardshipStatus = "under_review"
	HardshipApproved    HardshipStatus = "approved"
	HardshipRejected    HardshipStatus = "rejected"
)

func (s HardshipStatus) Terminal() bool {
	return s == HardshipApproved || s == HardshipRejected
}

// HardshipReason is the enumerated category behind a hardship application.
type HardshipReason string

const (
	HardshipUnemployment    HardshipReason = "unemployment"
	HardshipMedical         HardshipReason = "medical"
	HardshipIncomeReduction HardshipReason = "income_reduction"
	HardshipFamilyChange    HardshipReason = "family_change"
	HardshipNaturalDisaster HardshipReason = "natural_disaster"
	HardshipOther           HardshipReason = "other"
)

func (r HardshipReason) Valid() bool {
	switch r {
	case HardshipUnemployment, HardshipMedical, HardshipIncomeReduction,
		HardshipFamilyChange, HardshipNaturalDisaster, HardshipOther:
		return true
	}
	return false
}

// PlanInstallment is one entry of a payment-plan schedule attached to an
// approved hardship request. The schedule is part of the decision record,
// stored as decided, never recomputed.
type PlanInstallment struct {
	Month   string  `json:"month"` // YYYY-MM
	Payment float64 `json:"payment"`
}

type HardshipRequest struct {
	ID              string
	AccountID       string
	Reason          HardshipReason
	MonthlyIncome   float64
	MonthlyExpenses float64
	Status          HardshipStatus

	SupportingDocuments []string

	RequestedAt   time.Time
	DecisionAt    *time.Time
	DecisionNotes *string
	PaymentPlan   []PlanInstallment
}

// DisposableIncome is derived from the current income/expense figures on
// every read rather than frozen at creation.
func (h *HardshipRequest) DisposableIncome() float64 {
	return h.MonthlyIncome - h.MonthlyExpenses
}
