package domain

import "time"

type PTPStatus string

const (
	PTPPending PTPStatus = "pending"
	PTPHonored PTPStatus = "honored"
	PTPBroken  PTPStatus = "broken"
)

func (s PTPStatus) Terminal() bool {
	return s == PTPHonored || s == PTPBroken
}

// PromiseToPay records a debtor's committed future payment. A promise moves
// to Honored only on explicit confirmation of a matching payment, and to
// Broken only by an explicit caller decision; nothing transitions it on a
// timer.
type PromiseToPay struct {
	ID          string
	AccountID   string
	Amount      float64
	PromiseDate time.Time
	Status      PTPStatus
	Notes       string

	// PaymentEventRef points at the payment confirmation that honored the
	// promise; set only on the Pending -> Honored transition.
	PaymentEventRef *string

	CreatedAt time.Time
	DecidedAt *time.Time
}

// DaysUntilDue is derived on read for presentation and alerting; negative
// values mean the promise date has passed.
func (p *PromiseToPay) DaysUntilDue(now time.Time) int {
	due := time.Date(p.PromiseDate.Year(), p.PromiseDate.Month(), p.PromiseDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}

// Overdue reports whether a still-pending promise has passed its date.
func (p *PromiseToPay) Overdue(now time.Time) bool {
	return p.Status == PTPPending && p.DaysUntilDue(now) < 0
}
