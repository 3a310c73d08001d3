package domain

import (
	"math"
	"testing"
	"time"
)

func TestSettlementOffer_DerivedFinancials(t *testing.T) {
	offer := &SettlementOffer{
		ID:              "s-1",
		AccountID:       "a-1",
		Amount:          7000,
		DiscountPercent: 30,
		Status:          SettlementPendingApproval,
	}

	wantOriginal := 10000.0
	if got := offer.OriginalDebt(); math.Abs(got-wantOriginal) > 0.01 {
		t.Fatalf("OriginalDebt = %.2f, want %.2f", got, wantOriginal)
	}
	if got := offer.Savings(); math.Abs(got-3000.0) > 0.01 {
		t.Fatalf("Savings = %.2f, want 3000.00", got)
	}

	// mutate the inputs: derived values must follow, there is no cache
	offer.Amount = 5000
	offer.DiscountPercent = 50
	if got := offer.OriginalDebt(); math.Abs(got-10000.0) > 0.01 {
		t.Fatalf("OriginalDebt after change = %.2f, want 10000.00", got)
	}
}

func TestSettlementStatus_Terminal(t *testing.T) {
	if SettlementPendingApproval.Terminal() {
		t.Fatal("pending_approval must not be terminal")
	}
	if !SettlementAccepted.Terminal() || !SettlementRejected.Terminal() {
		t.Fatal("accepted and rejected must be terminal")
	}
}

func TestPromiseToPay_DaysUntilDue(t *testing.T) {
	now := time.Date(2025, 1, 20, 15, 30, 0, 0, time.UTC)
	ptp := &PromiseToPay{
		PromiseDate: time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC),
		Status:      PTPPending,
	}

	if got := ptp.DaysUntilDue(now); got != 5 {
		t.Fatalf("DaysUntilDue = %d, want 5", got)
	}
	if ptp.Overdue(now) {
		t.Fatal("promise with a future date must not be overdue")
	}

	late := now.AddDate(0, 0, 7)
	if got := ptp.DaysUntilDue(late); got != -2 {
		t.Fatalf("DaysUntilDue past due = %d, want -2", got)
	}
	if !ptp.Overdue(late) {
		t.Fatal("pending promise past its date must be overdue")
	}

	ptp.Status = PTPHonored
	if ptp.Overdue(late) {
		t.Fatal("honored promise is never overdue")
	}
}

func TestHardshipRequest_DisposableIncome(t *testing.T) {
	h := &HardshipRequest{MonthlyIncome: 40000, MonthlyExpenses: 28000}
	if got := h.DisposableIncome(); got != 12000 {
		t.Fatalf("DisposableIncome = %.2f, want 12000", got)
	}

	// not frozen: follows the current figures
	h.MonthlyExpenses = 30000
	if got := h.DisposableIncome(); got != 10000 {
		t.Fatalf("DisposableIncome after change = %.2f, want 10000", got)
	}
}
