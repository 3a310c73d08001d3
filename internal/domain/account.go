package domain

import "time"

// Account is the debtor record being worked. Identity fields are immutable;
// balance fields are mutated only by payment application, which lives outside
// this service.
type Account struct {
	ID         string
	Reference  string
	DebtorName string
	Email      *string
	Phone      *string

	OutstandingBalance float64
	OriginalBalance    float64
	Currency           string

	CreatedAt *time.Time
	UpdatedAt *time.Time
}
