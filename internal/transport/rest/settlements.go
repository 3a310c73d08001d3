package rest

import (
	"net/http"

	"collections-ledger/internal/service"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createSettlement(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	body, validUntil, err := ValidateCreateSettlementBody(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	offer, err := h.settlements.Create(r.Context(), service.CreateSettlementRequest{
		AccountID:       accountID,
		Amount:          body.Amount,
		DiscountPercent: body.DiscountPercent,
		PaymentTerms:    body.PaymentTerms,
		ValidUntil:      validUntil,
		Actor:           actorFrom(r, body.Actor),
	})
	if err != nil {
		writeDomainError(w, err, "failed to create settlement offer")
		return
	}

	Success(w, "Settlement offer created", toSettlementView(offer))
}

func (h *Handler) respondSettlement(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offer_id")

	body, err := ValidateRespondSettlementBody(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	offer, err := h.settlements.Respond(r.Context(), offerID, *body.Accepted, actorFrom(r, body.Actor))
	if err != nil {
		writeDomainError(w, err, "failed to record settlement response")
		return
	}

	Success(w, "Settlement response recorded", toSettlementView(offer))
}

func (h *Handler) getSettlement(w http.ResponseWriter, r *http.Request) {
	offer, err := h.settlements.Get(r.Context(), chi.URLParam(r, "offer_id"))
	if err != nil {
		writeDomainError(w, err, "failed to read settlement offer")
		return
	}
	Success(w, "", toSettlementView(offer))
}

func (h *Handler) listSettlements(w http.ResponseWriter, r *http.Request) {
	offers, err := h.settlements.List(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeDomainError(w, err, "failed to list settlement offers")
		return
	}

	views := make([]settlementView, 0, len(offers))
	for i := range offers {
		views = append(views, toSettlementView(&offers[i]))
	}
	Success(w, "", views)
}
