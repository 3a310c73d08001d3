package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"
)

// In-memory stands-ins for the repositories. They mirror the repository
// contract, including the status guards the SQL layer enforces, so the
// services can be exercised without a database.

type fakeLedgerStore struct {
	mu     sync.Mutex
	seq    int
	events []domain.ActivityEvent
}

func (f *fakeLedgerStore) appendLocked(ev *domain.ActivityEvent) {
	f.seq++
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("%08d", f.seq)
	}
	now := time.Now().UTC()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.Status == "" {
		ev.Status = domain.EventSuccess
	}
	f.events = append(f.events, *ev)
}

func (f *fakeLedgerStore) Append(ctx context.Context, ev *domain.ActivityEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendLocked(ev)
	return ev.ID, nil
}

// isOutbound mirrors the direction column filter the SQL layer applies:
// only outbound sends are reply targets, never inbound events.
func isOutbound(ev domain.ActivityEvent) bool {
	cp, ok := ev.Payload.(domain.CommunicationPayload)
	return ok && cp.Direction == domain.DirectionOutbound
}

func (f *fakeLedgerStore) attachLocked(correlationKey string, reply domain.Reply) bool {
	best := -1
	for i, ev := range f.events {
		if ev.Module != domain.ModuleCommunication || !isOutbound(ev) || ev.HasReply() {
			continue
		}
		if ev.CorrelationKey == nil || *ev.CorrelationKey != correlationKey {
			continue
		}
		if best == -1 || laterEvent(f.events[i], f.events[best]) {
			best = i
		}
	}
	if best == -1 {
		return false
	}

	content := reply.Content
	at := reply.At
	status := reply.Status
	f.events[best].ReplyContent = &content
	f.events[best].ReplyAt = &at
	f.events[best].ReplyStatus = &status
	return true
}

func laterEvent(a, b domain.ActivityEvent) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.ID > b.ID
}

func (f *fakeLedgerStore) AttachReply(ctx context.Context, correlationKey string, reply domain.Reply) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachLocked(correlationKey, reply), nil
}

func (f *fakeLedgerStore) AccountForThread(ctx context.Context, correlationKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	best := -1
	for i, ev := range f.events {
		if ev.Module != domain.ModuleCommunication || !isOutbound(ev) {
			continue
		}
		if ev.CorrelationKey == nil || *ev.CorrelationKey != correlationKey {
			continue
		}
		if best == -1 || laterEvent(f.events[i], f.events[best]) {
			best = i
		}
	}
	if best == -1 {
		return "", domain.ErrNotFound
	}
	return f.events[best].AccountID, nil
}

func (f *fakeLedgerStore) ListByAccount(ctx context.Context, accountID string) ([]domain.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []domain.ActivityEvent
	for _, ev := range f.events {
		if ev.AccountID == accountID {
			result = append(result, ev)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return laterEvent(result[i], result[j])
	})
	return result, nil
}

func (f *fakeLedgerStore) GetThread(ctx context.Context, correlationKey string) (*domain.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	best := -1
	for i, ev := range f.events {
		if ev.Module != domain.ModuleCommunication || !isOutbound(ev) {
			continue
		}
		if ev.CorrelationKey == nil || *ev.CorrelationKey != correlationKey {
			continue
		}
		if best == -1 || laterEvent(f.events[i], f.events[best]) {
			best = i
		}
	}
	if best == -1 {
		return nil, domain.ErrNotFound
	}
	ev := f.events[best]
	return &ev, nil
}

func (f *fakeLedgerStore) byAction(action string) *domain.ActivityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].Action == action {
			ev := f.events[i]
			return &ev
		}
	}
	return nil
}

func (f *fakeLedgerStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeAccountStore struct {
	accounts map[string]domain.Account
}

func newFakeAccounts(accounts ...domain.Account) *fakeAccountStore {
	m := make(map[string]domain.Account)
	for _, a := range accounts {
		m[a.ID] = a
	}
	return &fakeAccountStore{accounts: m}
}

func (f *fakeAccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

type fakeSettlementStore struct {
	mu     sync.Mutex
	ledger *fakeLedgerStore
	offers map[string]domain.SettlementOffer
}

func newFakeSettlements(ledger *fakeLedgerStore) *fakeSettlementStore {
	return &fakeSettlementStore{ledger: ledger, offers: make(map[string]domain.SettlementOffer)}
}

func (f *fakeSettlementStore) Create(ctx context.Context, offer *domain.SettlementOffer, events []*domain.ActivityEvent) error {
	f.mu.Lock()
	f.offers[offer.ID] = *offer
	f.mu.Unlock()

	for _, ev := range events {
		if _, err := f.ledger.Append(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSettlementStore) RecordResponse(ctx context.Context, offer *domain.SettlementOffer, event *domain.ActivityEvent, reply domain.Reply) (bool, error) {
	f.mu.Lock()
	cur, ok := f.offers[offer.ID]
	if !ok {
		f.mu.Unlock()
		return false, domain.ErrNotFound
	}
	if cur.Status != domain.SettlementPendingApproval {
		f.mu.Unlock()
		return false, domain.NewInvalidTransition("settlement offer", offer.ID, "terminal", "respond")
	}
	f.offers[offer.ID] = *offer
	f.mu.Unlock()

	if _, err := f.ledger.Append(ctx, event); err != nil {
		return false, err
	}
	return f.ledger.AttachReply(ctx, offer.CommunicationKey, reply)
}

func (f *fakeSettlementStore) GetByID(ctx context.Context, id string) (*domain.SettlementOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (f *fakeSettlementStore) ListByAccount(ctx context.Context, accountID string) ([]domain.SettlementOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.SettlementOffer
	for _, o := range f.offers {
		if o.AccountID == accountID {
			result = append(result, o)
		}
	}
	return result, nil
}

type fakePTPStore struct {
	mu       sync.Mutex
	ledger   *fakeLedgerStore
	promises map[string]domain.PromiseToPay
}

func newFakePTPs(ledger *fakeLedgerStore) *fakePTPStore {
	return &fakePTPStore{ledger: ledger, promises: make(map[string]domain.PromiseToPay)}
}

func (f *fakePTPStore) Create(ctx context.Context, ptp *domain.PromiseToPay, event *domain.ActivityEvent) error {
	f.mu.Lock()
	f.promises[ptp.ID] = *ptp
	f.mu.Unlock()
	_, err := f.ledger.Append(ctx, event)
	return err
}

func (f *fakePTPStore) RecordDecision(ctx context.Context, ptp *domain.PromiseToPay, event *domain.ActivityEvent) error {
	f.mu.Lock()
	cur, ok := f.promises[ptp.ID]
	if !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	if cur.Status != domain.PTPPending {
		f.mu.Unlock()
		return domain.NewInvalidTransition("promise to pay", ptp.ID, "terminal", "decide")
	}
	f.promises[ptp.ID] = *ptp
	f.mu.Unlock()
	_, err := f.ledger.Append(ctx, event)
	return err
}

func (f *fakePTPStore) GetByID(ctx context.Context, id string) (*domain.PromiseToPay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promises[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *fakePTPStore) ListByAccount(ctx context.Context, accountID string) ([]domain.PromiseToPay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.PromiseToPay
	for _, p := range f.promises {
		if p.AccountID == accountID {
			result = append(result, p)
		}
	}
	return result, nil
}

type fakeHardshipStore struct {
	mu       sync.Mutex
	ledger   *fakeLedgerStore
	requests map[string]domain.HardshipRequest
}

func newFakeHardships(ledger *fakeLedgerStore) *fakeHardshipStore {
	return &fakeHardshipStore{ledger: ledger, requests: make(map[string]domain.HardshipRequest)}
}

func (f *fakeHardshipStore) Create(ctx context.Context, req *domain.HardshipRequest, event *domain.ActivityEvent) error {
	f.mu.Lock()
	f.requests[req.ID] = *req
	f.mu.Unlock()
	_, err := f.ledger.Append(ctx, event)
	return err
}

func (f *fakeHardshipStore) RecordDecision(ctx context.Context, req *domain.HardshipRequest, event *domain.ActivityEvent) error {
	f.mu.Lock()
	cur, ok := f.requests[req.ID]
	if !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	if cur.Status != domain.HardshipUnderReview {
		f.mu.Unlock()
		return domain.NewInvalidTransition("hardship request", req.ID, "terminal", "decide")
	}
	f.requests[req.ID] = *req
	f.mu.Unlock()
	_, err := f.ledger.Append(ctx, event)
	return err
}

func (f *fakeHardshipStore) GetByID(ctx context.Context, id string) (*domain.HardshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeHardshipStore) ListByAccount(ctx context.Context, accountID string) ([]domain.HardshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.HardshipRequest
	for _, r := range f.requests {
		if r.AccountID == accountID {
			result = append(result, r)
		}
	}
	return result, nil
}

type fakeReconciliationStore struct {
	mu       sync.Mutex
	ledger   *fakeLedgerStore
	requests map[string]domain.ReconciliationRequest
}

func newFakeReconciliations(ledger *fakeLedgerStore) *fakeReconciliationStore {
	return &fakeReconciliationStore{ledger: ledger, requests: make(map[string]domain.ReconciliationRequest)}
}

func (f *fakeReconciliationStore) Create(ctx context.Context, req *domain.ReconciliationRequest, event *domain.ActivityEvent) error {
	f.mu.Lock()
	f.requests[req.ID] = *req
	f.mu.Unlock()
	_, err := f.ledger.Append(ctx, event)
	return err
}

func (f *fakeReconciliationStore) RecordDecision(ctx context.Context, req *domain.ReconciliationRequest, event *domain.ActivityEvent) error {
	f.mu.Lock()
	cur, ok := f.requests[req.ID]
	if !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	if cur.Status != domain.ReconciliationPending {
		f.mu.Unlock()
		return domain.NewInvalidTransition("reconciliation request", req.ID, "terminal", "decide")
	}
	f.requests[req.ID] = *req
	f.mu.Unlock()
	_, err := f.ledger.Append(ctx, event)
	return err
}

func (f *fakeReconciliationStore) GetByID(ctx context.Context, id string) (*domain.ReconciliationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeReconciliationStore) ListByAccount(ctx context.Context, accountID string) ([]domain.ReconciliationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ReconciliationRequest
	for _, r := range f.requests {
		if r.AccountID == accountID {
			result = append(result, r)
		}
	}
	return result, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []clients.OutboundCommunication
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, msg clients.OutboundCommunication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func testAccount() domain.Account {
	email := "debtor@example.com"
	return domain.Account{
		ID:                 "A-1",
		Reference:          "ACC-1001",
		DebtorName:         "Jordan Vance",
		Email:              &email,
		OutstandingBalance: 10000,
		OriginalBalance:    12000,
		Currency:           "USD",
	}
}
