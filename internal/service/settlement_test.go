package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collections-ledger/internal/domain"
)

func newSettlementFixture() (*SettlementService, *fakeLedgerStore, *fakeSettlementStore, *fakeDispatcher) {
	ledger := &fakeLedgerStore{}
	offers := newFakeSettlements(ledger)
	dispatch := &fakeDispatcher{}
	svc := NewSettlementService(offers, newFakeAccounts(testAccount()), NewAccountLocks(), nil, dispatch, nil)
	return svc, ledger, offers, dispatch
}

func validOfferRequest() CreateSettlementRequest {
	return CreateSettlementRequest{
		AccountID:       "A-1",
		Amount:          7000,
		DiscountPercent: 30,
		PaymentTerms:    "lump sum within 14 days",
		ValidUntil:      time.Now().AddDate(0, 0, 14),
		Actor:           "agent-7",
	}
}

func TestSettlementCreate_EmitsOfferAndCommunicationEvents(t *testing.T) {
	svc, ledger, _, dispatch := newSettlementFixture()

	offer, err := svc.Create(context.Background(), validOfferRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if offer.Status != domain.SettlementPendingApproval {
		t.Fatalf("status = %s, want pending_approval", offer.Status)
	}
	if offer.CommunicationKey == "" {
		t.Fatal("offer has no communication key")
	}

	if ledger.count() != 2 {
		t.Fatalf("event count = %d, want 2", ledger.count())
	}

	comm := ledger.byAction("Settlement Email Sent")
	if comm == nil {
		t.Fatal("communication event not written")
	}
	if comm.Module != domain.ModuleCommunication {
		t.Errorf("communication event module = %s", comm.Module)
	}
	if comm.CorrelationKey == nil || *comm.CorrelationKey != offer.CommunicationKey {
		t.Error("communication event does not carry the offer's thread key")
	}
	if comm.HasReply() {
		t.Error("fresh communication event already has a reply")
	}

	created := ledger.byAction("Settlement Offer Created")
	if created == nil {
		t.Fatal("settlement event not written")
	}
	if created.Status != domain.EventPending {
		t.Errorf("settlement event status = %s, want pending", created.Status)
	}
	if created.CorrelationKey == nil || *created.CorrelationKey != offer.ID {
		t.Error("settlement event not keyed by the offer id")
	}

	if len(dispatch.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dispatch.sent))
	}
	if dispatch.sent[0].CorrelationKey != offer.CommunicationKey {
		t.Error("outbound message carries a different correlation key than the thread")
	}
	if dispatch.sent[0].Recipient != "debtor@example.com" {
		t.Errorf("recipient = %s, want the account email", dispatch.sent[0].Recipient)
	}
}

func TestSettlementCreate_Validation(t *testing.T) {
	svc, _, _, _ := newSettlementFixture()

	cases := []struct {
		name   string
		mutate func(*CreateSettlementRequest)
	}{
		{"zero amount", func(r *CreateSettlementRequest) { r.Amount = 0 }},
		{"negative amount", func(r *CreateSettlementRequest) { r.Amount = -5 }},
		{"discount 100", func(r *CreateSettlementRequest) { r.DiscountPercent = 100 }},
		{"negative discount", func(r *CreateSettlementRequest) { r.DiscountPercent = -1 }},
		{"missing valid_until", func(r *CreateSettlementRequest) { r.ValidUntil = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validOfferRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestSettlementCreate_UnknownAccount(t *testing.T) {
	svc, _, _, _ := newSettlementFixture()

	req := validOfferRequest()
	req.AccountID = "missing"
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSettlementRespond_AcceptAttachesReply(t *testing.T) {
	svc, ledger, _, _ := newSettlementFixture()
	ctx := context.Background()

	offer, err := svc.Create(ctx, validOfferRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Respond(ctx, offer.ID, true, "agent-7")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if updated.Status != domain.SettlementAccepted {
		t.Fatalf("status = %s, want accepted", updated.Status)
	}
	if updated.ResponseAt == nil {
		t.Error("ResponseAt not set")
	}
	if updated.CustomerResponse == nil {
		t.Error("CustomerResponse not set")
	}

	comm := ledger.byAction("Settlement Email Sent")
	if comm == nil {
		t.Fatal("communication event missing")
	}
	if !comm.HasReply() {
		t.Fatal("reply was not attached to the offer email")
	}
	if comm.ReplyStatus == nil || *comm.ReplyStatus != "Accepted" {
		t.Errorf("reply status = %v, want Accepted", comm.ReplyStatus)
	}
	if comm.ReplyAt == nil {
		t.Error("reply timestamp missing")
	}

	if ev := ledger.byAction("Settlement Offer Accepted"); ev == nil {
		t.Error("acceptance event not written")
	}
}

func TestSettlementRespond_RejectRecordsFailure(t *testing.T) {
	svc, ledger, _, _ := newSettlementFixture()
	ctx := context.Background()

	offer, _ := svc.Create(ctx, validOfferRequest())

	updated, err := svc.Respond(ctx, offer.ID, false, "agent-7")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if updated.Status != domain.SettlementRejected {
		t.Fatalf("status = %s, want rejected", updated.Status)
	}

	ev := ledger.byAction("Settlement Offer Rejected")
	if ev == nil {
		t.Fatal("rejection event not written")
	}
	if ev.Status != domain.EventFailed {
		t.Errorf("rejection event status = %s, want failed", ev.Status)
	}

	comm := ledger.byAction("Settlement Email Sent")
	if comm.ReplyStatus == nil || *comm.ReplyStatus != "Rejected" {
		t.Errorf("reply status = %v, want Rejected", comm.ReplyStatus)
	}
}

func TestSettlementRespond_TerminalOfferRejected(t *testing.T) {
	svc, ledger, offers, _ := newSettlementFixture()
	ctx := context.Background()

	offer, _ := svc.Create(ctx, validOfferRequest())
	if _, err := svc.Respond(ctx, offer.ID, true, "agent-7"); err != nil {
		t.Fatalf("first Respond: %v", err)
	}
	eventsBefore := ledger.count()

	_, err := svc.Respond(ctx, offer.ID, false, "agent-8")
	var terr *domain.InvalidStateTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want InvalidStateTransitionError", err)
	}

	// the terminal offer and the ledger are untouched
	stored, _ := offers.GetByID(ctx, offer.ID)
	if stored.Status != domain.SettlementAccepted {
		t.Errorf("status changed to %s after rejected transition", stored.Status)
	}
	if ledger.count() != eventsBefore {
		t.Error("rejected transition still appended events")
	}
}

func TestSettlementRespond_ConcurrentDecisionsOneWins(t *testing.T) {
	svc, _, _, _ := newSettlementFixture()
	ctx := context.Background()

	offer, _ := svc.Create(ctx, validOfferRequest())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Respond(ctx, offer.ID, i == 0, "agent-7")
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			var terr *domain.InvalidStateTransitionError
			if errors.As(err, &terr) {
				conflicted++
			} else {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("succeeded=%d conflicted=%d, want exactly one of each", succeeded, conflicted)
	}
}

func TestSettlementCreate_FallsBackToPhone(t *testing.T) {
	phone := "+15550100"
	account := testAccount()
	account.Email = nil
	account.Phone = &phone

	ledger := &fakeLedgerStore{}
	dispatch := &fakeDispatcher{}
	svc := NewSettlementService(newFakeSettlements(ledger), newFakeAccounts(account), NewAccountLocks(), nil, dispatch, nil)

	if _, err := svc.Create(context.Background(), validOfferRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(dispatch.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dispatch.sent))
	}
	if dispatch.sent[0].Recipient != phone {
		t.Errorf("recipient = %s, want phone fallback", dispatch.sent[0].Recipient)
	}
	if dispatch.sent[0].Channel != string(domain.ChannelWhatsApp) {
		t.Errorf("channel = %s, want whatsapp", dispatch.sent[0].Channel)
	}
}
