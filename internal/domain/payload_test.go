package domain

import "testing"

func TestDecodePayload_ByModule(t *testing.T) {
	raw, err := EncodePayload(CommunicationPayload{
		Channel:   ChannelEmail,
		Recipient: "debtor@example.com",
		Subject:   "Settlement Offer",
		Body:      "We can settle for less.",
		Direction: "outbound",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodePayload(ModuleCommunication, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	comm, ok := decoded.(CommunicationPayload)
	if !ok {
		t.Fatalf("expected CommunicationPayload, got %T", decoded)
	}
	if comm.Channel != ChannelEmail || comm.Recipient != "debtor@example.com" {
		t.Fatalf("unexpected payload: %+v", comm)
	}
}

func TestDecodePayload_UnknownModule(t *testing.T) {
	if _, err := DecodePayload(Module("billing"), []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestDecodePayload_Empty(t *testing.T) {
	p, err := DecodePayload(ModuleCaseUpdate, nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil payload, got %T", p)
	}
}

func TestEventPayload_ModuleTags(t *testing.T) {
	cases := []struct {
		payload EventPayload
		module  Module
	}{
		{SettlementPayload{}, ModuleSettlement},
		{PTPPayload{}, ModulePTP},
		{HardshipPayload{}, ModuleHardship},
		{LegalPayload{}, ModuleLegal},
		{DisputePayload{}, ModuleDispute},
		{SkipTracingPayload{}, ModuleSkipTracing},
		{ReconciliationPayload{}, ModulePaymentReconciliation},
		{CaseUpdatePayload{}, ModuleCaseUpdate},
	}
	for _, c := range cases {
		if c.payload.PayloadModule() != c.module {
			t.Fatalf("%T reports module %q, want %q", c.payload, c.payload.PayloadModule(), c.module)
		}
	}
}
