package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"collections-ledger/internal/domain"
)

func newPTPFixture() (*PTPService, *fakeLedgerStore, *fakeDispatcher) {
	ledger := &fakeLedgerStore{}
	dispatch := &fakeDispatcher{}
	svc := NewPTPService(newFakePTPs(ledger), newFakeAccounts(testAccount()), NewAccountLocks(), nil, dispatch, nil)
	return svc, ledger, dispatch
}

func TestPTPCreate(t *testing.T) {
	svc, ledger, dispatch := newPTPFixture()

	due := time.Now().UTC().AddDate(0, 0, 7)
	ptp, err := svc.Create(context.Background(), CreatePTPRequest{
		AccountID:   "A-1",
		Amount:      1500,
		PromiseDate: due,
		Notes:       "after payday",
		Actor:       "agent-3",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ptp.Status != domain.PTPPending {
		t.Fatalf("status = %s, want pending", ptp.Status)
	}

	ev := ledger.byAction("Promise to Pay Created")
	if ev == nil {
		t.Fatal("creation event not written")
	}
	if ev.Status != domain.EventPending {
		t.Errorf("event status = %s, want pending", ev.Status)
	}
	if ev.CorrelationKey == nil || *ev.CorrelationKey != ptp.ID {
		t.Error("event not keyed by the promise id")
	}

	if len(dispatch.sent) != 1 {
		t.Fatalf("dispatched %d confirmations, want 1", len(dispatch.sent))
	}
	if dispatch.sent[0].CorrelationKey != ptp.ID {
		t.Error("confirmation not keyed by the promise id")
	}
}

func TestPTPCreate_Validation(t *testing.T) {
	svc, _, _ := newPTPFixture()
	ctx := context.Background()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	cases := []struct {
		name string
		req  CreatePTPRequest
	}{
		{"zero amount", CreatePTPRequest{AccountID: "A-1", PromiseDate: time.Now().AddDate(0, 0, 1)}},
		{"past date", CreatePTPRequest{AccountID: "A-1", Amount: 100, PromiseDate: yesterday}},
		{"missing date", CreatePTPRequest{AccountID: "A-1", Amount: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestPTPCreate_TodayIsAllowed(t *testing.T) {
	svc, _, _ := newPTPFixture()

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(context.Background(), CreatePTPRequest{
		AccountID:   "A-1",
		Amount:      100,
		PromiseDate: today,
	}); err != nil {
		t.Fatalf("a promise due today should be accepted, got %v", err)
	}
}

func TestPTPMarkHonored(t *testing.T) {
	svc, ledger, _ := newPTPFixture()
	ctx := context.Background()

	ptp, _ := svc.Create(ctx, CreatePTPRequest{
		AccountID:   "A-1",
		Amount:      1500,
		PromiseDate: time.Now().UTC().AddDate(0, 0, 7),
	})

	updated, err := svc.MarkHonored(ctx, ptp.ID, "evt-payment-1", "agent-3")
	if err != nil {
		t.Fatalf("MarkHonored: %v", err)
	}
	if updated.Status != domain.PTPHonored {
		t.Fatalf("status = %s, want honored", updated.Status)
	}
	if updated.PaymentEventRef == nil || *updated.PaymentEventRef != "evt-payment-1" {
		t.Error("payment event reference not stored")
	}
	if updated.DecidedAt == nil {
		t.Error("DecidedAt not set")
	}

	ev := ledger.byAction("Promise Honored")
	if ev == nil {
		t.Fatal("honored event not written")
	}
	if ev.Status != domain.EventSuccess {
		t.Errorf("event status = %s, want success", ev.Status)
	}
}

func TestPTPMarkHonored_RequiresPaymentRef(t *testing.T) {
	svc, _, _ := newPTPFixture()
	ctx := context.Background()

	ptp, _ := svc.Create(ctx, CreatePTPRequest{
		AccountID:   "A-1",
		Amount:      100,
		PromiseDate: time.Now().UTC().AddDate(0, 0, 1),
	})

	_, err := svc.MarkHonored(ctx, ptp.ID, "", "agent-3")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestPTPMarkBroken(t *testing.T) {
	svc, ledger, _ := newPTPFixture()
	ctx := context.Background()

	ptp, _ := svc.Create(ctx, CreatePTPRequest{
		AccountID:   "A-1",
		Amount:      1500,
		PromiseDate: time.Now().UTC().AddDate(0, 0, 7),
	})

	updated, err := svc.MarkBroken(ctx, ptp.ID, "agent-3")
	if err != nil {
		t.Fatalf("MarkBroken: %v", err)
	}
	if updated.Status != domain.PTPBroken {
		t.Fatalf("status = %s, want broken", updated.Status)
	}

	ev := ledger.byAction("Promise Broken")
	if ev == nil {
		t.Fatal("broken event not written")
	}
	if ev.Status != domain.EventFailed {
		t.Errorf("event status = %s, want failed", ev.Status)
	}
}

func TestPTPDecide_TerminalPromiseRejected(t *testing.T) {
	svc, ledger, _ := newPTPFixture()
	ctx := context.Background()

	ptp, _ := svc.Create(ctx, CreatePTPRequest{
		AccountID:   "A-1",
		Amount:      1500,
		PromiseDate: time.Now().UTC().AddDate(0, 0, 7),
	})
	if _, err := svc.MarkHonored(ctx, ptp.ID, "evt-1", "agent-3"); err != nil {
		t.Fatalf("MarkHonored: %v", err)
	}
	eventsBefore := ledger.count()

	_, err := svc.MarkHonored(ctx, ptp.ID, "evt-2", "agent-3")
	var terr *domain.InvalidStateTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("second MarkHonored err = %v, want InvalidStateTransitionError", err)
	}

	if _, err := svc.MarkBroken(ctx, ptp.ID, "agent-3"); !errors.As(err, &terr) {
		t.Fatalf("MarkBroken on honored promise err = %v, want InvalidStateTransitionError", err)
	}

	if ledger.count() != eventsBefore {
		t.Error("rejected transitions appended events")
	}
}

func TestPTPDecide_UnknownPromise(t *testing.T) {
	svc, _, _ := newPTPFixture()
	if _, err := svc.MarkBroken(context.Background(), "missing", "agent-3"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
