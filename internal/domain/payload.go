package domain

import (
	"encoding/json"
	"fmt"
)

// EventPayload is the module-specific structured part of a ledger event.
// One concrete shape exists per module; the repository persists payloads as
// JSON and decodes them back by the event's module tag.
type EventPayload interface {
	PayloadModule() Module
}

type CommunicationPayload struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject,omitempty"`
	Body      string  `json:"body"`
	Direction string  `json:"direction"` // outbound | inbound
}

func (CommunicationPayload) PayloadModule() Module { return ModuleCommunication }

type SettlementPayload struct {
	OfferID         string  `json:"offer_id"`
	Amount          float64 `json:"amount"`
	DiscountPercent float64 `json:"discount_percent"`
	PaymentTerms    string  `json:"payment_terms,omitempty"`
	Response        string  `json:"response,omitempty"`
}

func (SettlementPayload) PayloadModule() Module { return ModuleSettlement }

type PTPPayload struct {
	PTPID       string  `json:"ptp_id"`
	Amount      float64 `json:"amount"`
	PromiseDate string  `json:"promise_date"` // YYYY-MM-DD
	Notes       string  `json:"notes,omitempty"`
}

func (PTPPayload) PayloadModule() Module { return ModulePTP }

type HardshipPayload struct {
	RequestID        string  `json:"request_id"`
	Reason           string  `json:"reason"`
	DisposableIncome float64 `json:"disposable_income"`
	Decision         string  `json:"decision,omitempty"`
}

func (HardshipPayload) PayloadModule() Module { return ModuleHardship }

type LegalPayload struct {
	CaseNumber  string   `json:"case_number,omitempty"`
	Court       string   `json:"court,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

func (LegalPayload) PayloadModule() Module { return ModuleLegal }

type DisputePayload struct {
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
}

func (DisputePayload) PayloadModule() Module { return ModuleDispute }

type SkipTracingPayload struct {
	Source  string `json:"source"`
	Finding string `json:"finding"`
}

func (SkipTracingPayload) PayloadModule() Module { return ModuleSkipTracing }

type ReconciliationPayload struct {
	RequestID      string  `json:"request_id"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"payment_method"`
	TransactionRef string  `json:"transaction_ref"`
	Decision       string  `json:"decision,omitempty"`
}

func (ReconciliationPayload) PayloadModule() Module { return ModulePaymentReconciliation }

type CaseUpdatePayload struct {
	Note string `json:"note"`
}

func (CaseUpdatePayload) PayloadModule() Module { return ModuleCaseUpdate }

// EncodePayload serializes a payload for storage. A nil payload encodes as
// nil so events without structured data keep a NULL column.
func EncodePayload(p EventPayload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// DecodePayload reconstructs the typed payload for a module from its stored
// JSON form.
func DecodePayload(m Module, raw []byte) (EventPayload, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var (
		p   EventPayload
		err error
	)

	switch m {
	case ModuleCommunication:
		var v CommunicationPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModuleSettlement:
		var v SettlementPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModulePTP:
		var v PTPPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModuleHardship:
		var v HardshipPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModuleLegal:
		var v LegalPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModuleDispute:
		var v DisputePayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModuleSkipTracing:
		var v SkipTracingPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModulePaymentReconciliation:
		var v ReconciliationPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ModuleCaseUpdate:
		var v CaseUpdatePayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown module %q", m)
	}

	if err != nil {
		return nil, err
	}
	return p, nil
}
