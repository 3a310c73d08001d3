package domain

import "time"

// Module identifies which subsystem produced a ledger event.
type Module string

const (
	ModuleCommunication         Module = "communication"
	ModuleSettlement            Module = "settlement"
	ModulePTP                   Module = "ptp"
	ModuleHardship              Module = "hardship"
	ModuleLegal                 Module = "legal"
	ModuleDispute               Module = "dispute"
	ModuleSkipTracing           Module = "skip_tracing"
	ModulePaymentReconciliation Module = "payment_reconciliation"
	ModuleCaseUpdate            Module = "case_update"
)

func (m Module) Valid() bool {
	switch m {
	case ModuleCommunication, ModuleSettlement, ModulePTP, ModuleHardship,
		ModuleLegal, ModuleDispute, ModuleSkipTracing,
		ModulePaymentReconciliation, ModuleCaseUpdate:
		return true
	}
	return false
}

// Standalone reports whether agents may append events for the module
// directly. Workflow modules write their own ledger entries on every
// transition, so direct appends for them would produce events with no
// backing entity.
func (m Module) Standalone() bool {
	switch m {
	case ModuleCommunication, ModuleLegal, ModuleDispute,
		ModuleSkipTracing, ModuleCaseUpdate:
		return true
	}
	return false
}

// Direction of a communication event. Stored in its own column so the
// correlation engine can restrict reply matching to outbound sends.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

type EventStatus string

const (
	EventSuccess EventStatus = "success"
	EventPending EventStatus = "pending"
	EventFailed  EventStatus = "failed"
)

// Channel of an outbound or inbound communication.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelMessage  Channel = "message"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp || c == ChannelMessage
}

// SystemActor is recorded when an event is produced by the service itself
// rather than a named agent.
const SystemActor = "System"

// ActivityEvent is the atomic ledger record. Events are immutable once
// written; the single permitted in-place update is the reply attachment
// performed by the correlation engine, which only ever touches the three
// Reply* fields of one communication event.
type ActivityEvent struct {
	ID         string // ULID, lexicographically time-ordered
	AccountID  string
	OccurredAt time.Time
	Module     Module
	Action     string
	Actor      string
	Status     EventStatus
	Details    string

	// CorrelationKey links an event to its owning entity (settlement id,
	// ptp id) or, for communications, to the thread the outbound message
	// opened.
	CorrelationKey *string

	Payload EventPayload

	ReplyContent *string
	ReplyAt      *time.Time
	ReplyStatus  *string

	CreatedAt time.Time
}

// Reply is the inbound half of a communication thread, attached onto the
// original outbound event by the correlation engine.
type Reply struct {
	Content string
	At      time.Time
	Status  string
}

// HasReply reports whether an outbound communication already received its
// inbound reply. An event with a reply is never matched again.
func (e *ActivityEvent) HasReply() bool {
	return e.ReplyAt != nil
}
